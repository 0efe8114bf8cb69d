// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package logstore

import (
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bpowers/logstore/internal/codec"
	"github.com/bpowers/logstore/internal/container"
	"github.com/bpowers/logstore/internal/zero"
)

// Store is an open log store.  A Store and its Iter must not be used from
// more than one goroutine at a time.
type Store struct {
	path     string
	r        *container.Reader
	h        container.Header
	kws      *KeywordTable
	logger   *slog.Logger
	it       *Iter
	isClosed atomic.Bool
}

// Info describes a store's header.
type Info struct {
	Path    string
	Version uint32
	// RecordCount is only meaningful when CountDeclared is true.
	RecordCount   uint64
	CountDeclared bool
	Codec         string
	Cipher        string
	FileID        uuid.UUID
	Created       time.Time
}

// Open validates the store at path and positions it before the first
// message.  Errors are *Error values classified as ErrIO or ErrFormat.
func Open(path string, opts ...Option) (*Store, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return open(path, options)
}

// open scrubs options.key before returning, whether or not it succeeds.
func open(path string, options options) (*Store, error) {
	defer zero.Bytes(options.key)

	r, err := container.Open(path, options.useMmap)
	if err != nil {
		return nil, err
	}

	h := r.Header()
	// the cipher keeps its own copy of the key
	c := codec.NewDecoder(h.Params(), options.key)

	s := &Store{
		path:   path,
		r:      r,
		h:      h,
		kws:    options.kws,
		logger: options.logger,
	}
	s.it = &Iter{
		r:   r,
		dec: newDecoder(path, c, options.kws),
		kws: options.kws,
	}

	s.logger.Debug("store opened",
		"path", path,
		"version", h.Version,
		"records", h.RecordCount,
		"count_declared", h.CountDeclared(),
		"codec", h.Codec,
		"cipher", h.Cipher,
		"mmap", options.useMmap)

	return s, nil
}

func (s *Store) Info() Info {
	return Info{
		Path:          s.path,
		Version:       s.h.Version,
		RecordCount:   s.h.RecordCount,
		CountDeclared: s.h.CountDeclared(),
		Codec:         s.h.Codec.String(),
		Cipher:        s.h.Cipher.String(),
		FileID:        s.h.FileID,
		Created:       s.h.Created,
	}
}

// Keywords returns the table this store interns field names into.
func (s *Store) Keywords() *KeywordTable {
	return s.kws
}

// Messages returns the store's iterator.  There is exactly one per
// Store: to read a store again, open it again.
func (s *Store) Messages() *Iter {
	return s.it
}

// All ranges over the remaining messages.  Iteration stops after the
// first error, which is yielded with a zero View.
func (s *Store) All() iter.Seq2[View, error] {
	return func(yield func(View, error) bool) {
		for {
			v, err := s.it.Next()
			if err == Done {
				return
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the file or mapping behind the store.  Views already
// returned stay valid.  It is safe to call more than once.
func (s *Store) Close() error {
	if s.isClosed.Swap(true) {
		return nil
	}
	s.logger.Debug("store closed", "path", s.path, "messages", s.r.Count())
	return s.r.Close()
}
