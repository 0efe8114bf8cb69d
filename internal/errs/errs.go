// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package errs classifies the failures a store reader can hit.  The
// root logstore package re-exports everything here.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind int

const (
	KindIO Kind = iota + 1
	KindFormat
	KindCorruption
	KindDecode
)

var (
	ErrIO         = errors.New("i/o error")
	ErrFormat     = errors.New("not a supported log store")
	ErrCorruption = errors.New("log store corrupted")
	ErrDecode     = errors.New("frame decode failed")
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindFormat:
		return "format"
	case KindCorruption:
		return "corruption"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindIO:
		return ErrIO
	case KindFormat:
		return ErrFormat
	case KindCorruption:
		return ErrCorruption
	case KindDecode:
		return ErrDecode
	default:
		return nil
	}
}

// Error is returned for every failure the reader reports.  Offset is the
// byte offset of the frame involved, or -1 when no frame is involved.
type Error struct {
	Kind   Kind
	Op     string
	Path   string
	Offset int64
	Err    error
}

// Error leaves out Path when the wrapped error already names it, as an
// *fs.PathError does.
func (e *Error) Error() string {
	var inner string
	if e.Err != nil {
		inner = e.Err.Error()
	}
	msg := "logstore: " + e.Op
	if e.Path != "" && !strings.Contains(inner, e.Path) {
		msg += " " + e.Path
	}
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" (offset %d)", e.Offset)
	}
	if e.Err != nil {
		msg += ": " + inner
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's Kind, so callers can
// write errors.Is(err, ErrCorruption).
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func IO(op, path string, err error) *Error {
	return &Error{Kind: KindIO, Op: op, Path: path, Offset: -1, Err: err}
}

func Format(path string, format string, args ...any) *Error {
	return &Error{Kind: KindFormat, Op: "open", Path: path, Offset: -1, Err: fmt.Errorf(format, args...)}
}

func Corrupt(path string, off int64, format string, args ...any) *Error {
	return &Error{Kind: KindCorruption, Op: "read", Path: path, Offset: off, Err: fmt.Errorf(format, args...)}
}

func Decode(path string, off int64, err error) *Error {
	return &Error{Kind: KindDecode, Op: "decode", Path: path, Offset: off, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
