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

// Package postgres registers the postgres error space. Import it for side
// effects wherever a postgres connection is opened.
package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	dberrors "github.com/datakaveri/rs-maintenance/pkg/db/errors"
)

func translate(err error) dberrors.Code {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return dberrors.Unknown
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return dberrors.AlreadyExists
	case pgerrcode.ForeignKeyViolation, pgerrcode.UndefinedTable, pgerrcode.UndefinedColumn:
		return dberrors.FailedPrecondition
	case pgerrcode.InvalidTextRepresentation, pgerrcode.InvalidDatetimeFormat, pgerrcode.NotNullViolation:
		return dberrors.InvalidArgument
	}
	return dberrors.Unknown
}

func init() {
	dberrors.RegisterErrorSpace(translate)
}
