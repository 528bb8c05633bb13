// Copyright 2026 The IUDX Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/gcerrors"

	// Bucket URL schemes accepted for checkpointBucket.
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// Checkpoint is the position a failed backfill resumes from: the window it
// was copying and the id of the last row copied in it.
type Checkpoint struct {
	StartTime int64  `json:"starttime"`
	EndTime   int64  `json:"endtime"`
	LastID    string `json:"lastId"`
}

// CheckpointStore keeps one Checkpoint under a key of a bucket.
type CheckpointStore struct {
	bucket *blob.Bucket
	key    string
}

// OpenCheckpointStore opens the bucket at location. A location without a
// URL scheme is a local directory, created when missing, and an empty
// location is the working directory.
func OpenCheckpointStore(ctx context.Context, location, key string) (*CheckpointStore, error) {
	var (
		bucket *blob.Bucket
		err    error
	)
	if strings.Contains(location, "://") {
		bucket, err = blob.OpenBucket(ctx, location)
	} else {
		if location == "" {
			location = "."
		}
		if err := os.MkdirAll(location, 0o755); err != nil {
			return nil, fmt.Errorf("could not create checkpoint directory %s: %v", location, err)
		}
		bucket, err = fileblob.OpenBucket(location, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("could not open bucket %s: %v", location, err)
	}
	return NewCheckpointStore(bucket, key), nil
}

// NewCheckpointStore returns a store keeping the checkpoint at key in
// bucket.
func NewCheckpointStore(bucket *blob.Bucket, key string) *CheckpointStore {
	return &CheckpointStore{bucket: bucket, key: key}
}

// Load returns the saved checkpoint, or nil when there is none.
func (s *CheckpointStore) Load(ctx context.Context) (*Checkpoint, error) {
	b, err := s.bucket.ReadAll(ctx, s.key)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read checkpoint %s: %v", s.key, err)
	}
	cp := &Checkpoint{}
	if err := json.Unmarshal(b, cp); err != nil {
		return nil, fmt.Errorf("invalid checkpoint %s: %v", s.key, err)
	}
	return cp, nil
}

// Save replaces the saved checkpoint with cp.
func (s *CheckpointStore) Save(ctx context.Context, cp Checkpoint) error {
	b, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	if err := s.bucket.WriteAll(ctx, s.key, b, &blob.WriterOptions{ContentType: "application/json"}); err != nil {
		return fmt.Errorf("could not write checkpoint %s: %v", s.key, err)
	}
	return nil
}

// Clear removes the saved checkpoint.
func (s *CheckpointStore) Clear(ctx context.Context) error {
	err := s.bucket.Delete(ctx, s.key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("could not delete checkpoint %s: %v", s.key, err)
	}
	return nil
}

// Close closes the bucket.
func (s *CheckpointStore) Close() error {
	return s.bucket.Close()
}
