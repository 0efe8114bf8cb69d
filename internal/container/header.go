// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package container

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/bpowers/logstore/internal/codec"
)

const (
	magicStoreHeader  = 0x10C5701E
	fileFormatVersion = 1
	HeaderSize        = 128

	flagCountDeclared = 1 << 0

	recordCountOff = 8
	flagsOff       = 16
	codecOff       = 20
	cipherOff      = 21
	fileIDOff      = 24
	createdOff     = 40
)

// Header is the parsed file header of a store.
type Header struct {
	Version     uint32
	RecordCount uint64
	Flags       uint32
	Codec       codec.Codec
	Cipher      codec.Cipher
	FileID      uuid.UUID
	Created     time.Time
}

// NewHeader returns a header for a new store with a fresh file ID.
func NewHeader(c codec.Codec, cipher codec.Cipher) Header {
	return Header{
		Version: fileFormatVersion,
		Codec:   c,
		Cipher:  cipher,
		FileID:  uuid.New(),
		Created: time.Now(),
	}
}

// CountDeclared reports whether RecordCount is authoritative.  Stores
// whose writer never finished don't declare a count.
func (h *Header) CountDeclared() bool {
	return h.Flags&flagCountDeclared != 0
}

// Params returns the codec parameters frames in this store were written with.
func (h *Header) Params() codec.Params {
	return codec.Params{
		Codec:  h.Codec,
		Cipher: h.Cipher,
		FileID: h.FileID,
	}
}

func (h *Header) MarshalTo(headerBytes []byte) error {
	if len(headerBytes) < HeaderSize {
		return fmt.Errorf("headerBytes too short: %d < %d", len(headerBytes), HeaderSize)
	}
	headerBytes = headerBytes[:HeaderSize]
	for i := range headerBytes {
		headerBytes[i] = 0
	}

	binary.LittleEndian.PutUint32(headerBytes[:4], magicStoreHeader)
	binary.LittleEndian.PutUint32(headerBytes[4:8], h.Version)
	binary.LittleEndian.PutUint64(headerBytes[recordCountOff:recordCountOff+8], h.RecordCount)
	binary.LittleEndian.PutUint32(headerBytes[flagsOff:flagsOff+4], h.Flags)
	headerBytes[codecOff] = byte(h.Codec)
	headerBytes[cipherOff] = byte(h.Cipher)
	copy(headerBytes[fileIDOff:fileIDOff+16], h.FileID[:])
	var created int64
	if !h.Created.IsZero() {
		created = h.Created.UnixNano()
	}
	binary.LittleEndian.PutUint64(headerBytes[createdOff:createdOff+8], uint64(created))

	return nil
}

func (h *Header) WriteTo(w io.Writer) (n int64, err error) {
	var headerBuf [HeaderSize]byte
	if err := h.MarshalTo(headerBuf[:]); err != nil {
		return 0, err
	}
	if _, err = w.Write(headerBuf[:]); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	return int64(HeaderSize), nil
}

// UpdateRecordCount records n as the declared record count, both in h and
// in the header at the start of w.
func (h *Header) UpdateRecordCount(n uint64, w io.WriterAt) error {
	h.RecordCount = n
	h.Flags |= flagCountDeclared

	var buf [12]byte
	binary.LittleEndian.PutUint64(buf[:8], h.RecordCount)
	binary.LittleEndian.PutUint32(buf[8:], h.Flags)
	if _, err := w.WriteAt(buf[:], recordCountOff); err != nil {
		return fmt.Errorf("f.WriteAt: %w", err)
	}

	return nil
}

func (h *Header) UnmarshalBytes(headerBytes []byte) error {
	if len(headerBytes) >= 4 {
		if magic := binary.LittleEndian.Uint32(headerBytes[:4]); magic != magicStoreHeader {
			return fmt.Errorf("bad magic number (%x) -- not a log store or corrupted", magic)
		}
	}
	if len(headerBytes) < HeaderSize {
		return fmt.Errorf("file too short for a store header: %d < %d", len(headerBytes), HeaderSize)
	}
	headerBytes = headerBytes[:HeaderSize]

	h.Version = binary.LittleEndian.Uint32(headerBytes[4:8])
	if h.Version != fileFormatVersion {
		return fmt.Errorf("this version of logstore can only read v%d stores; found v%d", fileFormatVersion, h.Version)
	}

	h.RecordCount = binary.LittleEndian.Uint64(headerBytes[recordCountOff : recordCountOff+8])
	h.Flags = binary.LittleEndian.Uint32(headerBytes[flagsOff : flagsOff+4])
	h.Codec = codec.Codec(headerBytes[codecOff])
	h.Cipher = codec.Cipher(headerBytes[cipherOff])
	copy(h.FileID[:], headerBytes[fileIDOff:fileIDOff+16])
	h.Created = time.Time{}
	if created := int64(binary.LittleEndian.Uint64(headerBytes[createdOff : createdOff+8])); created != 0 {
		h.Created = time.Unix(0, created)
	}

	return nil
}
