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

package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	dberrors "github.com/datakaveri/rs-maintenance/pkg/db/errors"
)

func TestTranslate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want dberrors.Code
	}{
		{
			name: "unique violation",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation},
			want: dberrors.AlreadyExists,
		},
		{
			name: "wrapped foreign key violation",
			err:  fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}),
			want: dberrors.FailedPrecondition,
		},
		{
			name: "missing table",
			err:  &pgconn.PgError{Code: pgerrcode.UndefinedTable},
			want: dberrors.FailedPrecondition,
		},
		{
			name: "unknown error",
			err:  errors.New("boom"),
			want: dberrors.Unknown,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := translate(tc.err); got != tc.want {
				t.Fatalf("translate() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRegistered(t *testing.T) {
	if got := dberrors.CodeOf(&pgconn.PgError{Code: pgerrcode.UniqueViolation}); got != dberrors.AlreadyExists {
		t.Errorf("CodeOf() = %v, want %v", got, dberrors.AlreadyExists)
	}
}
