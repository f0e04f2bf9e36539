// Copyright 2016 ETH Zurich
// Copyright 2019 ETH Zurich, Anapaya Systems
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

// Package serrors provides enhanced errors. Errors created with serrors can
// have additional log context in form of key value pairs. The package provides
// wrapping methods. The returned errors support Is and As error functionality.
//
// The packet parsing code reports framing problems through sentinel errors
// joined with per-packet context, e.g.
//
//	serrors.JoinNoStack(extn.ErrBufferOverrun, nil, "offset", 16, "need", 8, "have", 3)
//
// so that callers can classify with errors.Is and still log the context.
package serrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type field struct {
	key   string
	value any
}

// ctxError is the error type of all constructors. Exactly one of msg and base
// describes the error itself; cause is the optional underlying error.
type ctxError struct {
	msg    string
	base   error
	cause  error
	fields []field
	stack  *stack
}

func newCtxError(msg string, base, cause error, withStack bool, errCtx []any) *ctxError {
	e := &ctxError{
		msg:    msg,
		base:   base,
		cause:  cause,
		fields: make([]field, 0, len(errCtx)/2),
	}
	for i := 0; i+1 < len(errCtx); i += 2 {
		e.fields = append(e.fields, field{key: fmt.Sprint(errCtx[i]), value: errCtx[i+1]})
	}
	sort.SliceStable(e.fields, func(a, b int) bool {
		return e.fields[a].key < e.fields[b].key
	})
	// Only the innermost error of this package records a stack. If it was
	// created without one, none of its wrappers records one either.
	var inner *ctxError
	if withStack && (cause == nil || !errors.As(cause, &inner)) {
		e.stack = callers()
	}
	return e
}

func (e *ctxError) Error() string {
	var b strings.Builder
	if e.base != nil {
		b.WriteString(e.base.Error())
	} else {
		b.WriteString(e.msg)
	}
	if len(e.fields) > 0 {
		b.WriteString(" {")
		for i, f := range e.fields {
			if i > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s=%v", f.key, f.value)
		}
		b.WriteString("}")
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *ctxError) Unwrap() []error {
	errs := make([]error, 0, 2)
	for _, err := range []error{e.base, e.cause} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// StackTrace returns the attached stack trace if there is any.
func (e *ctxError) StackTrace() StackTrace {
	if e.stack == nil {
		return nil
	}
	return e.stack.StackTrace()
}

// MarshalLogObject implements zapcore.ObjectMarshaler to have a nicer log
// representation. A base error is not dissected.
func (e *ctxError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if e.base != nil {
		enc.AddString("msg", e.base.Error())
	} else {
		enc.AddString("msg", e.msg)
	}
	if e.cause != nil {
		if m, ok := e.cause.(zapcore.ObjectMarshaler); ok {
			if err := enc.AddObject("cause", m); err != nil {
				return err
			}
		} else {
			enc.AddString("cause", e.cause.Error())
		}
	}
	if e.stack != nil {
		if err := enc.AddArray("stacktrace", e.stack); err != nil {
			return err
		}
	}
	for _, f := range e.fields {
		zap.Any(f.key, f.value).AddTo(enc)
	}
	return nil
}

// New creates an error with the given message and context, plus a stack
// trace. Every call returns a distinct error, even for the same message.
//
// Sentinel errors should be created with errors.New instead, the stack trace
// and context of a package level error serve no purpose.
func New(msg string, errCtx ...any) error {
	return newCtxError(msg, nil, nil, true, errCtx)
}

// Wrap returns an error with the given message and context that wraps cause.
// A stack trace is added unless cause already carries one from this package.
//
// errors.Is(Wrap(msg, cause), cause) is true.
func Wrap(msg string, cause error, errCtx ...any) error {
	return newCtxError(msg, nil, cause, true, errCtx)
}

// WrapNoStack is Wrap without recording a stack trace. A stack trace of cause
// is preserved.
func WrapNoStack(msg string, cause error, errCtx ...any) error {
	return newCtxError(msg, nil, cause, false, errCtx)
}

// Join returns an error that is err, with cause and the given context
// attached. Typically err is a sentinel error and cause the error of a lower
// layer. A stack trace is added unless cause already carries one from this
// package. If both err and cause are nil, Join returns nil.
//
// errors.Is returns true for both err and cause.
func Join(err, cause error, errCtx ...any) error {
	if err == nil && cause == nil {
		return nil
	}
	return newCtxError("", err, cause, true, errCtx)
}

// JoinNoStack is Join without recording a stack trace. It is cheap enough for
// the per-packet error path.
func JoinNoStack(err, cause error, errCtx ...any) error {
	if err == nil && cause == nil {
		return nil
	}
	return newCtxError("", err, cause, false, errCtx)
}

// List is a slice of errors.
type List []error

// Error implements the error interface.
func (e List) Error() string {
	s := make([]string, 0, len(e))
	for _, err := range e {
		s = append(s, err.Error())
	}
	return fmt.Sprintf("[ %s ]", strings.Join(s, "; "))
}

// ToError returns the list as error, or nil if it is empty.
func (e List) ToError() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// MarshalLogArray implements zapcore.ArrayMarshaler.
func (e List) MarshalLogArray(ae zapcore.ArrayEncoder) error {
	for _, err := range e {
		if m, ok := err.(zapcore.ObjectMarshaler); ok {
			if err := ae.AppendObject(m); err != nil {
				return err
			}
			continue
		}
		ae.AppendString(err.Error())
	}
	return nil
}

func (s *stack) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, pc := range *s {
		t, err := Frame(pc).MarshalText()
		if err != nil {
			return err
		}
		enc.AppendByteString(t)
	}
	return nil
}
