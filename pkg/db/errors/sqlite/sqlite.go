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

// Package sqlite registers the sqlite error space used by tests.
package sqlite

import (
	"errors"

	"github.com/mattn/go-sqlite3"

	dberrors "github.com/datakaveri/rs-maintenance/pkg/db/errors"
)

func sqlite(err error) dberrors.Code {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return dberrors.Unknown
	}

	switch serr.Code {
	case sqlite3.ErrConstraint:
		switch serr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return dberrors.AlreadyExists
		case sqlite3.ErrConstraintForeignKey:
			return dberrors.FailedPrecondition
		}
		return dberrors.InvalidArgument
	case sqlite3.ErrNotFound:
		return dberrors.NotFound
	}
	return dberrors.Unknown
}

func init() {
	dberrors.RegisterErrorSpace(sqlite)
}
