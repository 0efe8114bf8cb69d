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
	"os"
	"sync/atomic"

	"github.com/dgryski/go-farm"
	"golang.org/x/sys/unix"

	"github.com/bpowers/logstore/internal/errs"
	"github.com/bpowers/logstore/internal/mmap"
)

const (
	frameHeaderSize   = 4 + 4 // 32-bit checksum of the payload + 32-bit payload length
	defaultBufferSize = 256 * 1024

	frameLengthOff = 4
)

// MaxFrameSize is the largest payload a frame may carry.
const MaxFrameSize = 64 << 20

// ErrEndOfStore is returned by Next once every frame has been read.  It
// is never wrapped.
var ErrEndOfStore = errors.New("end of store")

// Frame is one undecoded record.  Payload may point into a shared buffer
// or a memory mapping: it is only valid until the next call to Next or
// Close.
type Frame struct {
	Offset  int64
	Payload []byte
}

// source hands out the bytes after the file header, in order.  The slice
// returned from next is only valid until the following call.
type source interface {
	next(n int) ([]byte, error)
	Close() error
}

// Reader reads frames from a store sequentially.  It is not safe for
// concurrent use.
type Reader struct {
	path     string
	h        Header
	src      source
	size     int64
	off      int64
	n        uint64
	isClosed atomic.Bool
}

// Open validates the header of the store at path and positions the
// reader at the first frame.  With useMmap the file is memory mapped,
// otherwise it is read through a buffered *os.File.
func Open(path string, useMmap bool) (*Reader, error) {
	if useMmap {
		return openMmap(path)
	}
	return openFile(path)
}

func openMmap(path string) (*Reader, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, errs.IO("open", path, err)
	}

	data := m.Data()
	var header Header
	if err := header.UnmarshalBytes(data); err != nil {
		_ = m.Close()
		return nil, errs.Format(path, "%w", err)
	}

	if err := m.Advise(unix.MADV_SEQUENTIAL); err != nil {
		_ = m.Close()
		return nil, errs.IO("madvise", path, err)
	}

	return &Reader{
		path: path,
		h:    header,
		src:  &mmapSource{m: m, off: HeaderSize},
		size: int64(len(data)),
		off:  HeaderSize,
	}, nil
}

func openFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO("open", path, err)
	}

	stats, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errs.IO("stat", path, err)
	}

	br := bufio.NewReaderSize(f, defaultBufferSize)
	headerBytes := make([]byte, HeaderSize)
	n, err := io.ReadFull(br, headerBytes)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		_ = f.Close()
		return nil, errs.IO("read header", path, err)
	}

	var header Header
	if err := header.UnmarshalBytes(headerBytes[:n]); err != nil {
		_ = f.Close()
		return nil, errs.Format(path, "%w", err)
	}

	return &Reader{
		path: path,
		h:    header,
		src:  &fileSource{f: f, r: br},
		size: stats.Size(),
		off:  HeaderSize,
	}, nil
}

func (r *Reader) Header() Header {
	return r.h
}

func (r *Reader) Path() string {
	return r.path
}

// Count returns the number of frames read so far.
func (r *Reader) Count() uint64 {
	return r.n
}

func readFrameHeader(header []byte) (expectedChecksum uint32, payloadLen int64) {
	_ = header[frameHeaderSize-1]

	expectedChecksum = binary.LittleEndian.Uint32(header[:4])
	payloadLen = int64(binary.LittleEndian.Uint32(header[frameLengthOff : frameLengthOff+4]))
	return
}

// Next returns the next frame, ErrEndOfStore when there are no more, or an
// *errs.Error.  A short final frame is corruption unless the header's
// declared record count has already been reached.
func (r *Reader) Next() (Frame, error) {
	if r.isClosed.Load() {
		return Frame{}, errs.IO("read", r.path, os.ErrClosed)
	}

	declared := r.h.CountDeclared()
	if declared && r.n >= r.h.RecordCount {
		return Frame{}, ErrEndOfStore
	}

	off := r.off
	remaining := r.size - off
	if remaining == 0 {
		if declared {
			return Frame{}, errs.Corrupt(r.path, off, "store ends after %d of %d declared records", r.n, r.h.RecordCount)
		}
		return Frame{}, ErrEndOfStore
	}
	if remaining < frameHeaderSize {
		return Frame{}, errs.Corrupt(r.path, off, "truncated frame header: %d bytes left, need %d", remaining, frameHeaderSize)
	}

	header, err := r.src.next(frameHeaderSize)
	if err != nil {
		return Frame{}, errs.IO("read", r.path, fmt.Errorf("frame header at %d: %w", off, err))
	}
	expectedChecksum, payloadLen := readFrameHeader(header)

	if payloadLen > MaxFrameSize {
		return Frame{}, errs.Corrupt(r.path, off, "frame payload length %d exceeds maximum frame size %d", payloadLen, MaxFrameSize)
	}
	if payloadLen > remaining-frameHeaderSize {
		return Frame{}, errs.Corrupt(r.path, off, "truncated frame: payload length %d beyond end of store (%d bytes left)", payloadLen, remaining-frameHeaderSize)
	}

	payload, err := r.src.next(int(payloadLen))
	if err != nil {
		return Frame{}, errs.IO("read", r.path, fmt.Errorf("frame payload at %d: %w", off, err))
	}
	if checksum := farm.Hash32(payload); checksum != expectedChecksum {
		return Frame{}, errs.Corrupt(r.path, off, "checksum failed (%d != %d)", expectedChecksum, checksum)
	}

	r.off += frameHeaderSize + payloadLen
	r.n++

	return Frame{Offset: off, Payload: payload}, nil
}

// Close releases the underlying file or mapping.  It is safe to call
// more than once.
func (r *Reader) Close() error {
	if r.isClosed.Swap(true) {
		return nil
	}
	return r.src.Close()
}

type mmapSource struct {
	m   *mmap.ReaderAt
	off int
}

func (s *mmapSource) next(n int) ([]byte, error) {
	data := s.m.Data()
	if s.off+n > len(data) {
		return nil, io.ErrUnexpectedEOF
	}
	b := data[s.off : s.off+n]
	s.off += n
	return b, nil
}

func (s *mmapSource) Close() error {
	return s.m.Close()
}

type fileSource struct {
	f   *os.File
	r   *bufio.Reader
	buf []byte
}

func (s *fileSource) next(n int) ([]byte, error) {
	if cap(s.buf) < n {
		s.buf = make([]byte, n)
	}
	b := s.buf[:n]
	if _, err := io.ReadFull(s.r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *fileSource) Close() error {
	s.r.Reset(nil)
	s.buf = nil
	return s.f.Close()
}
