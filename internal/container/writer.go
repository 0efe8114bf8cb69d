// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package container

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/dgryski/go-farm"
)

type nopWriter struct{}

func (nopWriter) Write([]byte) (int, error) {
	return 0, io.EOF
}

// FileWriter is usually an *os.File, but specified as an interface for easier testing.
type FileWriter interface {
	io.Writer
	io.WriterAt
}

// Writer appends frames to a new store.  Readers only trust the record
// count once Finish has run.
type Writer struct {
	f        FileWriter
	h        Header
	w        *bufio.Writer
	off      int64
	count    uint64
	finished atomic.Bool
}

func NewWriter(f FileWriter, h Header) (*Writer, error) {
	// the count is only declared by Finish
	h.RecordCount = 0
	h.Flags &^= flagCountDeclared

	w := &Writer{
		f: f,
		h: h,
		w: bufio.NewWriterSize(f, defaultBufferSize),
	}

	if headerLen, err := w.h.WriteTo(w.w); err != nil {
		return nil, fmt.Errorf("Header.WriteTo: %w", err)
	} else {
		w.off = headerLen
	}

	// try to expose errors when writing to the backing file early
	if err := w.w.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	return w, nil
}

func (w *Writer) Header() Header {
	return w.h
}

// Offset is where the next frame will be written.  Encoders that bind
// ciphertext to its position need it before calling Write.
func (w *Writer) Offset() int64 {
	return w.off
}

// Write appends one frame containing payload and returns its offset.
func (w *Writer) Write(payload []byte) (off int64, err error) {
	if w.finished.Load() {
		return 0, errors.New("write after Finish")
	}
	if len(payload) > MaxFrameSize {
		return 0, fmt.Errorf("payload of %d bytes exceeds maximum frame size %d", len(payload), MaxFrameSize)
	}

	off = w.off

	var header [frameHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], farm.Hash32(payload))
	binary.LittleEndian.PutUint32(header[frameLengthOff:frameLengthOff+4], uint32(len(payload)))

	if _, err := w.w.Write(header[:]); err != nil {
		return 0, fmt.Errorf("bufio.Write 1: %w", err)
	}
	if _, err := w.w.Write(payload); err != nil {
		return 0, fmt.Errorf("bufio.Write 2: %w", err)
	}

	w.off += frameHeaderSize + int64(len(payload))
	w.count++

	return off, nil
}

// Finish flushes buffered frames and, if declareCount is set, records the
// number of frames written in the header.
func (w *Writer) Finish(declareCount bool) error {
	if alreadyFinished := w.finished.Swap(true); alreadyFinished {
		// nothing to do - already cleaned up
		return nil
	}

	defer func() {
		w.w.Reset(nopWriter{})
	}()

	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("bufio.Flush: %w", err)
	}

	if !declareCount {
		return nil
	}
	return w.h.UpdateRecordCount(w.count, w.f)
}
