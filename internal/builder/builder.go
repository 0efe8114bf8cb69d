// Copyright 2021 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package builder writes log stores.  The public logstore API is read
// only; this exists for tests and test-data generation.
package builder

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bpowers/logstore/internal/codec"
	"github.com/bpowers/logstore/internal/container"
	"github.com/bpowers/logstore/internal/record"
)

// Option configures the Builder.
type Option func(*options)

type options struct {
	codec        codec.Codec
	cipher       codec.Cipher
	key          []byte
	declareCount bool
	logger       *slog.Logger
}

// WithCodec compresses every frame with c.
func WithCodec(c codec.Codec) Option {
	return func(opts *options) {
		opts.codec = c
	}
}

// WithKey encrypts every frame with XChaCha20-Poly1305 under key.
func WithKey(key []byte) Option {
	return func(opts *options) {
		opts.cipher = codec.XChaCha20Poly1305
		opts.key = key
	}
}

// WithoutRecordCount leaves the record count undeclared, the way a store
// looks when its writer never finished.
func WithoutRecordCount() Option {
	return func(opts *options) {
		opts.declareCount = false
	}
}

// WithLogger sets an optional logger for the builder to use for progress updates.
// If not provided, no logging output will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// Builder is used to construct a log store from messages.
type Builder struct {
	resultPath string
	dataFile   *os.File
	w          *container.Writer
	enc        *codec.Encoder
	buf        []byte
	count      int
	opts       options
}

// New creates a Builder that writes to a temporary file next to path and
// atomically renames it into place on Finalize.
func New(path string, opts ...Option) (*Builder, error) {
	options := options{declareCount: true}
	options.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, opt := range opts {
		opt(&options)
	}

	// we want to write to a new file and do an atomic rename when we're done on disk
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("filepath.Abs: %w", err)
	}
	dir := filepath.Dir(path)
	dataFile, err := os.CreateTemp(dir, "logstore-builder.*.lgs")
	if err != nil {
		return nil, fmt.Errorf("CreateTemp failed (may need permissions for dir %q containing store): %w", dir, err)
	}

	h := container.NewHeader(options.codec, options.cipher)
	enc, err := codec.NewEncoder(h.Params(), options.key)
	if err != nil {
		_ = dataFile.Close()
		_ = os.Remove(dataFile.Name())
		return nil, fmt.Errorf("codec.NewEncoder: %w", err)
	}
	w, err := container.NewWriter(dataFile, h)
	if err != nil {
		_ = dataFile.Close()
		_ = os.Remove(dataFile.Name())
		return nil, fmt.Errorf("container.NewWriter: %w", err)
	}

	return &Builder{
		resultPath: path,
		dataFile:   dataFile,
		w:          w,
		enc:        enc,
		opts:       options,
	}, nil
}

// Put appends one message.
func (b *Builder) Put(ts time.Time, fields ...record.Field) error {
	var err error
	b.buf, err = record.Append(b.buf[:0], ts, fields...)
	if err != nil {
		return err
	}
	if _, err := b.w.Write(b.enc.Encode(b.buf, b.w.Offset())); err != nil {
		return err
	}
	b.count++
	return nil
}

// PutRaw appends a frame whose payload is used as-is, bypassing record
// encoding and the codec.
func (b *Builder) PutRaw(payload []byte) error {
	if _, err := b.w.Write(payload); err != nil {
		return err
	}
	b.count++
	return nil
}

// Finalize flushes the store to disk and moves it into place read-only.
func (b *Builder) Finalize() error {
	defer func() {
		_ = b.enc.Close()
	}()

	if err := b.w.Finish(b.opts.declareCount); err != nil {
		return fmt.Errorf("container.Finish: %w", err)
	}
	if err := b.dataFile.Sync(); err != nil {
		return fmt.Errorf("f.Sync: %w", err)
	}

	// make the file read-only
	if err := os.Chmod(b.dataFile.Name(), 0444); err != nil {
		return fmt.Errorf("os.Chmod(0444): %w", err)
	}
	if err := os.Rename(b.dataFile.Name(), b.resultPath); err != nil {
		return fmt.Errorf("os.Rename: %w", err)
	}
	_ = b.dataFile.Close()
	b.dataFile = nil

	b.opts.logger.Info("store finalized", "path", b.resultPath, "messages", b.count, "codec", b.opts.codec, "cipher", b.opts.cipher)

	return nil
}

// Abort discards a store that won't be finalized, removing the temporary file.
func (b *Builder) Abort() error {
	if b.dataFile == nil {
		return nil
	}
	_ = b.enc.Close()
	name := b.dataFile.Name()
	_ = b.dataFile.Close()
	b.dataFile = nil
	return os.Remove(name)
}
