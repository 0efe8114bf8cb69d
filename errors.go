// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package logstore

import (
	"errors"

	"github.com/bpowers/logstore/internal/errs"
)

// Error is the type of every error the reader returns other than Done.
// Use errors.Is with the sentinels below to classify it.
type Error = errs.Error

// ErrorKind classifies an Error.
type ErrorKind = errs.Kind

const (
	KindIO         = errs.KindIO
	KindFormat     = errs.KindFormat
	KindCorruption = errs.KindCorruption
	KindDecode     = errs.KindDecode
)

var (
	// ErrIO means the store couldn't be opened or read.
	ErrIO = errs.ErrIO
	// ErrFormat means the file isn't a store this version understands.
	ErrFormat = errs.ErrFormat
	// ErrCorruption means frame or record data is structurally inconsistent.
	ErrCorruption = errs.ErrCorruption
	// ErrDecode means decompression or decryption failed; retrying with a
	// different key may succeed.
	ErrDecode = errs.ErrDecode
)

// Done is returned by Iter.Next once every message has been read.
var Done = errors.New("no more messages")
