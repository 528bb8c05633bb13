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

package errors

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func TestWrap(t *testing.T) {
	boom := errors.New("boom")
	RegisterErrorSpace(func(err error) Code {
		if errors.Is(err, boom) {
			return FailedPrecondition
		}
		return Unknown
	})

	for _, tc := range []struct {
		name string
		err  error
		want Code
	}{
		{name: "nil", err: nil, want: Unknown},
		{name: "record not found", err: fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound), want: NotFound},
		{name: "duplicated key", err: gorm.ErrDuplicatedKey, want: AlreadyExists},
		{name: "registered space", err: fmt.Errorf("insert: %w", boom), want: FailedPrecondition},
		{name: "unrecognised", err: errors.New("other"), want: Unknown},
		{name: "already wrapped", err: &Error{Code: InvalidArgument, err: boom}, want: InvalidArgument},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.want {
				t.Errorf("CodeOf() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(gorm.ErrRecordNotFound)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("Wrap() = %v, lost the cause", err)
	}
	if err.Error() != gorm.ErrRecordNotFound.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), gorm.ErrRecordNotFound.Error())
	}
	if got := AlreadyExists.String(); got != "ALREADY_EXISTS" {
		t.Errorf("String() = %s", got)
	}
}
