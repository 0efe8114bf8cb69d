// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package logstore

import (
	"bytes"
	"io"
	"log/slog"
)

// Option configures how a store is opened.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	key     []byte
	kws     *KeywordTable
	useMmap bool
}

func defaultOptions() options {
	return options{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		kws:     defaultKeywords,
		useMmap: true,
	}
}

// WithLogger sets an optional logger for debug-level lifecycle events.
// If not provided, no logging output will be produced.  Errors are
// returned, never logged.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithKey provides the key for encrypted stores.  The store keeps its own
// copy, so the caller may scrub key afterwards.
func WithKey(key []byte) Option {
	return func(opts *options) {
		opts.key = bytes.Clone(key)
	}
}

// WithKeywordTable interns field names into kws instead of the
// process-wide table.
func WithKeywordTable(kws *KeywordTable) Option {
	return func(opts *options) {
		opts.kws = kws
	}
}

// WithMmap selects between memory mapping the store (the default) and
// reading it through a buffered file.
func WithMmap(useMmap bool) Option {
	return func(opts *options) {
		opts.useMmap = useMmap
	}
}
