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

// Package errors classifies database errors into driver independent codes.
// Drivers register an ErrorSpace from their own subpackage.
package errors

import (
	"errors"
	"sync"

	"gorm.io/gorm"
)

// Code classifies a database error.
type Code int

// Codes reported by Wrap.
const (
	Unknown Code = iota
	NotFound
	AlreadyExists
	FailedPrecondition
	InvalidArgument
)

func (c Code) String() string {
	switch c {
	case NotFound:
		return "NOT_FOUND"
	case AlreadyExists:
		return "ALREADY_EXISTS"
	case FailedPrecondition:
		return "FAILED_PRECONDITION"
	case InvalidArgument:
		return "INVALID_ARGUMENT"
	}
	return "UNKNOWN"
}

// Error is a database error annotated with its Code.
type Error struct {
	Code Code
	err  error
}

func (e *Error) Error() string {
	return e.err.Error()
}

func (e *Error) Unwrap() error {
	return e.err
}

// ErrorSpace maps a driver error to a Code, returning Unknown for errors it
// does not recognise.
type ErrorSpace func(error) Code

var (
	mu     sync.RWMutex
	spaces []ErrorSpace
)

// RegisterErrorSpace adds a driver specific ErrorSpace consulted by Wrap.
func RegisterErrorSpace(f ErrorSpace) {
	mu.Lock()
	defer mu.Unlock()
	spaces = append(spaces, f)
}

// Wrap annotates err with its Code. Errors no space recognises are returned
// unchanged.
func Wrap(err error) error {
	if err == nil {
		return err
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	// Check for gorm provided errors first - these are supported across
	// drivers.
	if code, ok := gormCode(err); ok {
		return &Error{Code: code, err: err}
	}

	mu.RLock()
	defer mu.RUnlock()
	for _, space := range spaces {
		if code := space(err); code != Unknown {
			return &Error{Code: code, err: err}
		}
	}
	return err
}

// CodeOf returns the Code of err, classifying it first if needed.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(Wrap(err), &e) {
		return e.Code
	}
	return Unknown
}

func gormCode(err error) (Code, bool) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound, true
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return AlreadyExists, true
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return FailedPrecondition, true
	case errors.Is(err, gorm.ErrInvalidField), errors.Is(err, gorm.ErrInvalidValue):
		return InvalidArgument, true
	}
	return Unknown, false
}
