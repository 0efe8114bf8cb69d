// Copyright 2021 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package builder

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/logstore/internal/codec"
	"github.com/bpowers/logstore/internal/container"
	"github.com/bpowers/logstore/internal/record"
)

func TestBuilder(t *testing.T) {
	var logs bytes.Buffer
	path := filepath.Join(t.TempDir(), "out.lgs")
	key := bytes.Repeat([]byte{3}, codec.KeySize)

	b, err := New(path,
		WithCodec(codec.Zstd),
		WithKey(key),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	require.NoError(t, err)

	ts := time.Unix(1700000000, 0)
	for i := 0; i < 10; i++ {
		require.NoError(t, b.Put(ts, record.String("MESSAGE", "message "+strconv.Itoa(i))))
	}
	require.NoError(t, b.Finalize())
	assert.Contains(t, logs.String(), "store finalized")

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0444), fi.Mode().Perm())

	r, err := container.Open(path, false)
	require.NoError(t, err)
	defer func() {
		_ = r.Close()
	}()

	h := r.Header()
	assert.True(t, h.CountDeclared())
	assert.Equal(t, uint64(10), h.RecordCount)
	assert.Equal(t, codec.Zstd, h.Codec)
	assert.Equal(t, codec.XChaCha20Poly1305, h.Cipher)

	dec := codec.NewDecoder(h.Params(), key)
	for i := 0; i < 10; i++ {
		frame, err := r.Next()
		require.NoError(t, err)
		plain, err := dec.Decode(frame.Payload, frame.Offset)
		require.NoError(t, err)
		rec, err := record.Decode(plain)
		require.NoError(t, err)
		require.Len(t, rec.Fields, 1)
		assert.Equal(t, "message "+strconv.Itoa(i), string(rec.Fields[0].Value))
	}
	_, err = r.Next()
	assert.Equal(t, container.ErrEndOfStore, err)
}

func TestBuilder_WithoutRecordCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.lgs")
	b, err := New(path, WithoutRecordCount())
	require.NoError(t, err)
	require.NoError(t, b.PutRaw([]byte("not a record")))
	require.NoError(t, b.Finalize())

	r, err := container.Open(path, true)
	require.NoError(t, err)
	defer func() {
		_ = r.Close()
	}()
	h := r.Header()
	assert.False(t, h.CountDeclared())

	frame, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "not a record", string(frame.Payload))
}

func TestBuilder_Errors(t *testing.T) {
	_, err := New(filepath.Join("/doesnt/exist", "out.lgs"))
	assert.Error(t, err)

	// encryption without a usable key
	_, err = New(filepath.Join(t.TempDir(), "out.lgs"), WithKey(nil))
	assert.Error(t, err)

	b, err := New(filepath.Join(t.TempDir(), "out.lgs"))
	require.NoError(t, err)
	assert.Error(t, b.Put(time.Now(), record.String("", "empty name")))
}

func TestBuilder_Abort(t *testing.T) {
	dir := t.TempDir()
	b, err := New(filepath.Join(dir, "out.lgs"))
	require.NoError(t, err)
	require.NoError(t, b.Put(time.Now(), record.String("MESSAGE", "hi")))
	require.NoError(t, b.Abort())
	// a second Abort is a no-op
	require.NoError(t, b.Abort())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
