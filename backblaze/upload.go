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
package backblaze

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/kothar/go-backblaze"
	"github.com/penny-vault/pvebitda/config"
	"github.com/rs/zerolog/log"
)

var (
	ErrBucketNotFound = errors.New("bucket not found")
)

// ObjectName is the key a local file is stored under: <dir>/<year>/<base name>
func ObjectName(dirname string, year int, fn string) string {
	return path.Join(dirname, fmt.Sprintf("%d", year), filepath.Base(fn))
}

// Upload copies each file to the configured bucket. Every file is attempted
// and the first error is returned.
func Upload(cfg config.Backblaze, year int, files ...string) error {
	b2, err := backblaze.NewB2(backblaze.Credentials{
		KeyID:          cfg.ApplicationID,
		ApplicationKey: cfg.ApplicationKey,
	})
	if err != nil {
		log.Error().Err(err).Str("BucketName", cfg.Bucket).Msg("authorize backblaze failed")
		return err
	}

	bucket, err := b2.Bucket(cfg.Bucket)
	if err != nil {
		log.Error().Err(err).Str("BucketName", cfg.Bucket).Msg("lookup bucket failed")
		return err
	}
	if bucket == nil {
		log.Error().Str("BucketName", cfg.Bucket).Msg("bucket does not exist")
		return ErrBucketNotFound
	}

	var firstErr error
	for _, fn := range files {
		if err := uploadFile(bucket, ObjectName(cfg.Dir, year, fn), fn); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func uploadFile(bucket *backblaze.Bucket, outName, fn string) error {
	reader, err := os.Open(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("could not open file for upload")
		return err
	}
	defer reader.Close()

	metadata := make(map[string]string)

	file, err := bucket.UploadFile(outName, metadata, reader)
	if err != nil {
		log.Error().Err(err).Str("FileName", outName).Str("BucketName", bucket.Name).Msg("save file to backblaze failed")
		return err
	}

	log.Info().Str("FileName", file.Name).Int64("Size", file.ContentLength).Str("ID", file.ID).Msg("uploaded file to backblaze")
	return nil
}
