// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dataset reads the company dataset, merges resolved EBITDA figures
// into it, and writes the result back out as CSV.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
)

var (
	ErrMissingColumn  = errors.New("required column missing")
	ErrColumnLength   = errors.New("column length does not match table")
	ErrEmptyInputFile = errors.New("input file has no header")
)

// naTokens are the cell values treated as missing, the same set pandas uses
// by default when reading CSV files
var naTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsMissing reports whether a cell holds no value
func IsMissing(cell string) bool {
	_, ok := naTokens[strings.TrimSpace(cell)]
	return ok
}

// Table is a CSV file held in memory. Column order is preserved.
type Table struct {
	Header []string
	Rows   [][]string
}

// Read loads the CSV file at path
func Read(path string) (*Table, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	return ReadCSV(fh)
}

func ReadCSV(r io.Reader) (*Table, error) {
	records, err := gocsv.DefaultCSVReader(r).ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, ErrEmptyInputFile
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	return &Table{
		Header: header,
		Rows:   records[1:],
	}, nil
}

// Write saves the table to path, creating parent directories as needed
func (table *Table) Write(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	fh, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := table.WriteCSV(fh); err != nil {
		fh.Close()
		return err
	}

	return fh.Close()
}

func (table *Table) WriteCSV(w io.Writer) error {
	csvWriter := gocsv.DefaultCSVWriter(w)
	if err := csvWriter.Write(table.Header); err != nil {
		return err
	}

	for _, row := range table.Rows {
		if err := csvWriter.Write(row); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// Len returns the number of data rows
func (table *Table) Len() int {
	return len(table.Rows)
}

// ColumnIndex returns the position of the named column
func (table *Table) ColumnIndex(name string) (int, bool) {
	for idx, col := range table.Header {
		if col == name {
			return idx, true
		}
	}

	return -1, false
}

// Column returns a copy of the values in the named column
func (table *Table) Column(name string) ([]string, error) {
	idx, ok := table.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}

	values := make([]string, len(table.Rows))
	for rowIdx, row := range table.Rows {
		if idx < len(row) {
			values[rowIdx] = row[idx]
		}
	}

	return values, nil
}

// SetColumn overwrites the named column, appending it if it does not exist
func (table *Table) SetColumn(name string, values []string) error {
	if len(values) != len(table.Rows) {
		return fmt.Errorf("%w: %s has %d values for %d rows", ErrColumnLength, name, len(values), len(table.Rows))
	}

	idx, ok := table.ColumnIndex(name)
	if !ok {
		table.Header = append(table.Header, name)
		idx = len(table.Header) - 1
	}

	for rowIdx, row := range table.Rows {
		for len(row) <= idx {
			row = append(row, "")
		}
		row[idx] = values[rowIdx]
		table.Rows[rowIdx] = row
	}

	return nil
}

// DropColumns removes every named column present in the table and returns
// the names that were removed. Names not in the table are ignored.
func (table *Table) DropColumns(names ...string) []string {
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		drop[name] = struct{}{}
	}

	keep := make([]int, 0, len(table.Header))
	dropped := make([]string, 0)
	for idx, col := range table.Header {
		if _, ok := drop[col]; ok {
			dropped = append(dropped, col)
			continue
		}
		keep = append(keep, idx)
	}

	if len(dropped) == 0 {
		return dropped
	}

	table.Header = pick(table.Header, keep)
	for rowIdx, row := range table.Rows {
		table.Rows[rowIdx] = pick(row, keep)
	}

	return dropped
}

func pick(row []string, indices []int) []string {
	out := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx < len(row) {
			out = append(out, row[idx])
		} else {
			out = append(out, "")
		}
	}

	return out
}
