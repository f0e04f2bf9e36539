// Copyright 2026 Anapaya Systems
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

package serrors

import (
	"runtime"

	"github.com/pkg/errors"
)

// maxStackDepth bounds the number of frames recorded per error.
const maxStackDepth = 32

// StackTrace is the stack of frames recorded when an error was created. The
// frames format with %s, %v and %+v like the ones of github.com/pkg/errors.
type StackTrace = errors.StackTrace

// Frame is a single program counter of a StackTrace.
type Frame = errors.Frame

type stack []uintptr

// callers records the stack of the caller of the exported constructor, i.e.
// it skips runtime.Callers, callers, mkErrorInfo and the constructor itself.
func callers() *stack {
	var pcs [maxStackDepth]uintptr
	n := runtime.Callers(4, pcs[:])
	st := make(stack, n)
	copy(st, pcs[:n])
	return &st
}

func (s *stack) StackTrace() StackTrace {
	f := make([]Frame, len(*s))
	for i := range f {
		f[i] = Frame((*s)[i])
	}
	return f
}
