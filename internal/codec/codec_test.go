// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, KeySize)
}

func TestRoundTrip(t *testing.T) {
	record := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 20)

	for _, c := range []Codec{None, Snappy, Zstd} {
		for _, cph := range []Cipher{NoCipher, XChaCha20Poly1305} {
			t.Run(c.String()+"/"+cph.String(), func(t *testing.T) {
				p := Params{Codec: c, Cipher: cph, FileID: uuid.New()}
				var key []byte
				if cph != NoCipher {
					key = testKey(7)
				}

				enc, err := NewEncoder(p, key)
				require.NoError(t, err)
				defer func() {
					_ = enc.Close()
				}()

				stored := enc.Encode(record, 128)
				if c != None || cph != NoCipher {
					assert.NotEqual(t, record, stored)
				}

				dec := NewDecoder(p, key)
				out, err := dec.Decode(stored, 128)
				require.NoError(t, err)
				assert.Equal(t, record, out)
			})
		}
	}
}

func TestDecode_WrongKey(t *testing.T) {
	p := Params{Codec: Snappy, Cipher: XChaCha20Poly1305, FileID: uuid.New()}
	enc, err := NewEncoder(p, testKey(1))
	require.NoError(t, err)
	stored := enc.Encode([]byte("secret"), 200)

	_, err = NewDecoder(p, testKey(2)).Decode(stored, 200)
	assert.Error(t, err)

	// the right key at the wrong offset fails too
	_, err = NewDecoder(p, testKey(1)).Decode(stored, 201)
	assert.Error(t, err)
}

func TestDecode_MissingKey(t *testing.T) {
	p := Params{Cipher: XChaCha20Poly1305, FileID: uuid.New()}
	_, err := NewDecoder(p, nil).Decode([]byte("whatever"), 128)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingKey))

	// wrong-sized keys are rejected
	_, err = NewDecoder(p, []byte("short")).Decode([]byte("whatever"), 128)
	assert.Error(t, err)
}

func TestDecode_Unsupported(t *testing.T) {
	_, err := NewDecoder(Params{Codec: Codec(42)}, nil).Decode([]byte("x"), 128)
	assert.True(t, errors.Is(err, ErrUnsupportedCodec))

	_, err = NewDecoder(Params{Cipher: Cipher(9)}, nil).Decode([]byte("x"), 128)
	assert.True(t, errors.Is(err, ErrUnsupportedCipher))

	_, err = NewEncoder(Params{Codec: Codec(42)}, nil)
	assert.True(t, errors.Is(err, ErrUnsupportedCodec))
}

func TestDecode_Garbage(t *testing.T) {
	garbage := []byte{0xff, 0xfe, 0xfd, 0xfc, 0xfb}
	_, err := NewDecoder(Params{Codec: Snappy}, nil).Decode(garbage, 128)
	assert.Error(t, err)
	_, err = NewDecoder(Params{Codec: Zstd}, nil).Decode(garbage, 128)
	assert.Error(t, err)
}

func TestDecode_TooLarge(t *testing.T) {
	// a snappy block header claiming 1.5 GiB of output followed by junk
	var bomb []byte
	bomb = binary.AppendUvarint(bomb, 3<<29)
	bomb = append(bomb, 0x00, 0x01, 0x02)
	_, err := NewDecoder(Params{Codec: Snappy}, nil).Decode(bomb, 128)
	assert.True(t, errors.Is(err, ErrTooLarge), "%v", err)

	// zstd records the content size in the frame header, so this is
	// rejected before anything is allocated for the output
	enc, err := NewEncoder(Params{Codec: Zstd}, nil)
	require.NoError(t, err)
	defer func() {
		_ = enc.Close()
	}()
	big := enc.Encode(make([]byte, MaxDecodedSize+1), 128)
	require.Less(t, len(big), 1<<20)
	_, err = NewDecoder(Params{Codec: Zstd}, nil).Decode(big, 128)
	assert.True(t, errors.Is(err, ErrTooLarge), "%v", err)

	// right at the limit still decodes
	limit := enc.Encode(make([]byte, MaxDecodedSize), 128)
	out, err := NewDecoder(Params{Codec: Zstd}, nil).Decode(limit, 128)
	require.NoError(t, err)
	assert.Len(t, out, MaxDecodedSize)
}
