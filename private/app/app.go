// Copyright 2020 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package app can be used to build CLI applications.
package app

import (
	"errors"
)

// LogLevelUsage is the usage string of the log level flag.
const LogLevelUsage = "Console logging level verbosity (debug|info|error)"

// WithExitCode wraps err such that ExitCode returns code for it. A nil error
// stays nil.
func WithExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return codeError{error: err, code: code}
}

// ExitCode returns the exit code attached to err with WithExitCode, or -1 if
// there is none.
func ExitCode(err error) int {
	var codeErr codeError
	if errors.As(err, &codeErr) {
		return codeErr.code
	}
	return -1
}

type codeError struct {
	error
	code int
}

func (e codeError) Unwrap() error {
	return e.error
}
