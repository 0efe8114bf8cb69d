// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package codec unwraps the optional compression and encryption applied
// to each frame payload.  Encoding compresses then encrypts; decoding
// runs the steps in reverse.
package codec

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/chacha20poly1305"
)

// Codec identifies the compression applied to frame payloads.
type Codec uint8

const (
	None Codec = iota
	Snappy
	Zstd
)

func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// Cipher identifies the encryption applied to frame payloads.
type Cipher uint8

const (
	NoCipher Cipher = iota
	XChaCha20Poly1305
)

func (c Cipher) String() string {
	switch c {
	case NoCipher:
		return "none"
	case XChaCha20Poly1305:
		return "xchacha20-poly1305"
	default:
		return fmt.Sprintf("cipher(%d)", uint8(c))
	}
}

// KeySize is the length of the key a XChaCha20Poly1305 store needs.
const KeySize = chacha20poly1305.KeySize

var (
	ErrMissingKey        = errors.New("store is encrypted and no key was provided")
	ErrUnsupportedCodec  = errors.New("unsupported codec")
	ErrUnsupportedCipher = errors.New("unsupported cipher")
	ErrTooLarge          = errors.New("decoded payload too large")
)

// MaxDecodedSize bounds the size of a decompressed record.
const MaxDecodedSize = 64 << 20

// Params are the per-store settings a payload was encoded with.
type Params struct {
	Codec  Codec
	Cipher Cipher
	FileID uuid.UUID
}

// zstdDecoder is shared by every Decoder; DecodeAll is safe for
// concurrent use.
var zstdDecoder = mustNewZstdDecoder()

func mustNewZstdDecoder() *zstd.Decoder {
	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(0),
		zstd.WithDecoderMaxMemory(MaxDecodedSize))
	if err != nil {
		panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
	}
	return decoder
}

// nonce binds a ciphertext to its store and its position in that store,
// so frames can't be swapped between offsets or files undetected.
func nonce(fileID uuid.UUID, off int64) []byte {
	n := make([]byte, chacha20poly1305.NonceSizeX)
	copy(n, fileID[:])
	binary.LittleEndian.PutUint64(n[16:], uint64(off))
	return n
}

func newAEAD(cph Cipher, key []byte) (cipher.AEAD, error) {
	switch cph {
	case NoCipher:
		return nil, nil
	case XChaCha20Poly1305:
		if len(key) == 0 {
			return nil, ErrMissingKey
		}
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("chacha20poly1305.NewX: %w", err)
		}
		return aead, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCipher, cph)
	}
}

// Decoder turns stored frame payloads back into record bytes.
type Decoder struct {
	p    Params
	aead cipher.AEAD
	// err is reported on every Decode call: a missing or bad key is a
	// decode failure, not an open failure, so callers can retry with
	// different credentials.
	err error
}

// NewDecoder never fails; problems with the key or parameters are
// reported by Decode.
func NewDecoder(p Params, key []byte) *Decoder {
	d := &Decoder{p: p}
	switch p.Codec {
	case None, Snappy, Zstd:
	default:
		d.err = fmt.Errorf("%w: %s", ErrUnsupportedCodec, p.Codec)
		return d
	}
	d.aead, d.err = newAEAD(p.Cipher, key)
	return d
}

// Decode returns the record bytes stored in payload, which was written
// at offset off.  The result never aliases payload when a codec or cipher
// is in use; with neither it is payload itself.
func (d *Decoder) Decode(payload []byte, off int64) ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}

	plain := payload
	if d.aead != nil {
		var err error
		plain, err = d.aead.Open(nil, nonce(d.p.FileID, off), payload, d.p.FileID[:])
		if err != nil {
			return nil, fmt.Errorf("aead.Open: %w", err)
		}
	}

	switch d.p.Codec {
	case Snappy:
		n, err := snappy.DecodedLen(plain)
		if err != nil {
			return nil, fmt.Errorf("snappy.DecodedLen: %w", err)
		}
		if n > MaxDecodedSize {
			return nil, fmt.Errorf("%w: snappy header declares %d bytes, limit is %d", ErrTooLarge, n, MaxDecodedSize)
		}
		out, err := snappy.Decode(nil, plain)
		if err != nil {
			return nil, fmt.Errorf("snappy.Decode: %w", err)
		}
		return out, nil
	case Zstd:
		out, err := zstdDecoder.DecodeAll(plain, nil)
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrTooLarge, err)
		} else if err != nil {
			return nil, fmt.Errorf("zstd.DecodeAll: %w", err)
		}
		return out, nil
	default:
		return plain, nil
	}
}

// Encoder is the inverse of Decoder, used when building stores.
type Encoder struct {
	p    Params
	aead cipher.AEAD
	zenc *zstd.Encoder
}

func NewEncoder(p Params, key []byte) (*Encoder, error) {
	e := &Encoder{p: p}
	switch p.Codec {
	case None, Snappy:
	case Zstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd.NewWriter: %w", err)
		}
		e.zenc = enc
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, p.Codec)
	}

	aead, err := newAEAD(p.Cipher, key)
	if err != nil {
		return nil, err
	}
	e.aead = aead
	return e, nil
}

// Encode returns the bytes to store for record at offset off.
func (e *Encoder) Encode(record []byte, off int64) []byte {
	out := record
	switch e.p.Codec {
	case Snappy:
		out = snappy.Encode(nil, record)
	case Zstd:
		out = e.zenc.EncodeAll(record, make([]byte, 0, len(record)))
	}
	if e.aead != nil {
		out = e.aead.Seal(nil, nonce(e.p.FileID, off), out, e.p.FileID[:])
	}
	return out
}

func (e *Encoder) Close() error {
	if e.zenc != nil {
		return e.zenc.Close()
	}
	return nil
}
