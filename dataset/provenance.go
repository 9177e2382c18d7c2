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
package dataset

import (
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// ProvenanceRecord records which branch of the fallback chain produced the
// EBITDA of a single input row
type ProvenanceRecord struct {
	Row        int32    `csv:"Row" parquet:"name=row, type=INT32"`
	Ticker     string   `csv:"Ticker" parquet:"name=ticker, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Source     string   `csv:"Source" parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	FiscalYear int32    `csv:"FiscalYear" parquet:"name=fiscal_year, type=INT32"`
	EBITDA     *float64 `csv:"EBITDA,omitempty" parquet:"name=ebitda, type=DOUBLE, repetitiontype=OPTIONAL"`
	Margin     float64  `csv:"EBITDA_Margin" parquet:"name=ebitda_margin, type=DOUBLE"`
	Error      string   `csv:"Error" parquet:"name=error, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// Provenance converts generator rows into provenance records
func Provenance(rows []Row) []*ProvenanceRecord {
	records := make([]*ProvenanceRecord, 0, len(rows))
	for _, row := range rows {
		record := &ProvenanceRecord{
			Row:        int32(row.Index),
			Ticker:     row.Ticker,
			Source:     string(row.Resolution.Source),
			FiscalYear: int32(row.Resolution.FiscalYear),
			Margin:     row.Margin,
		}

		if val, ok := row.Resolution.Value(); ok {
			record.EBITDA = &val
		}

		if row.Resolution.Err != nil {
			record.Error = row.Resolution.Err.Error()
		}

		records = append(records, record)
	}

	return records
}

// SaveProvenanceCSV writes records to fn
func SaveProvenanceCSV(records []*ProvenanceRecord, fn string) error {
	if err := os.MkdirAll(filepath.Dir(fn), 0o755); err != nil {
		return err
	}

	fh, err := os.Create(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("cannot create provenance file")
		return err
	}
	defer fh.Close()

	if err := gocsv.MarshalFile(&records, fh); err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("provenance csv write failed")
		return err
	}

	log.Info().Int("NumRecords", len(records)).Str("FileName", fn).Msg("provenance csv write finished")
	return nil
}

// SaveProvenanceParquet writes records to fn as ZSTD compressed parquet
func SaveProvenanceParquet(records []*ProvenanceRecord, fn string) error {
	var err error

	if err = os.MkdirAll(filepath.Dir(fn), 0o755); err != nil {
		return err
	}

	fh, err := local.NewLocalFileWriter(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("cannot create local file")
		return err
	}
	defer fh.Close()

	pw, err := writer.NewParquetWriter(fh, new(ProvenanceRecord), 4)
	if err != nil {
		log.Error().Err(err).Msg("parquet write failed")
		return err
	}

	pw.RowGroupSize = 128 * 1024 * 1024 // 128M
	pw.PageSize = 8 * 1024              // 8k
	pw.CompressionType = parquet.CompressionCodec_ZSTD

	for _, r := range records {
		if err = pw.Write(r); err != nil {
			log.Error().Err(err).Int32("Row", r.Row).Str("Ticker", r.Ticker).Msg("parquet write failed for record")
		}
	}

	if err = pw.WriteStop(); err != nil {
		log.Error().Err(err).Msg("parquet write failed")
		return err
	}

	log.Info().Int("NumRecords", len(records)).Str("FileName", fn).Msg("parquet write finished")
	return nil
}
