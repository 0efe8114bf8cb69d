// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package logstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/logstore/internal/builder"
	"github.com/bpowers/logstore/internal/record"
)

func TestIter_States(t *testing.T) {
	path := writeStore(t, nil, numberedMessages(2)...)
	s, err := Open(path)
	require.NoError(t, err)
	defer func() {
		_ = s.Close()
	}()

	it := s.Messages()
	assert.Same(t, it, s.Messages())
	assert.Equal(t, iterReady, it.state)

	_, err = it.Next()
	require.NoError(t, err)
	assert.Equal(t, iterYielding, it.state)
	_, err = it.Next()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = it.Next()
		assert.Equal(t, Done, err)
		assert.Equal(t, iterExhausted, it.state)
	}
	assert.NoError(t, it.Err())
	assert.Equal(t, int64(2), it.Count())
}

func TestIter_FailedIsSticky(t *testing.T) {
	path := writeStore(t, []builder.Option{builder.WithoutRecordCount()}, numberedMessages(3)...)
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	truncated := filepath.Join(t.TempDir(), "truncated.lgs")
	require.NoError(t, os.WriteFile(truncated, contents[:len(contents)-1], 0o644))

	s, err := Open(truncated)
	require.NoError(t, err)
	defer func() {
		_ = s.Close()
	}()

	it := s.Messages()
	views, first := readAll(it)
	require.Len(t, views, 2)
	require.True(t, errors.Is(first, ErrCorruption), "%v", first)
	assert.Equal(t, iterFailed, it.state)

	for i := 0; i < 5; i++ {
		v, err := it.Next()
		// the identical error, not a fresh one
		assert.Same(t, first.(*Error), err.(*Error))
		assert.Equal(t, 0, v.Len())
	}
	assert.Equal(t, first, it.Err())
	assert.Equal(t, int64(2), it.Count())
}

func TestStore_All(t *testing.T) {
	path := writeStore(t, nil, numberedMessages(5)...)
	s, err := Open(path)
	require.NoError(t, err)
	defer func() {
		_ = s.Close()
	}()

	n := 0
	for v, err := range s.All() {
		require.NoError(t, err)
		assert.Equal(t, "x1", v.Lookup("HOST").String())
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)

	// ranging again resumes where the last loop stopped
	for _, err := range s.All() {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 5, n)
}

func TestStore_AllStopsOnError(t *testing.T) {
	path := writeStore(t, nil,
		testMessage{record.String("MESSAGE", "fine")},
		testMessage{record.String("A", "x"), record.String("A", "y")},
		testMessage{record.String("MESSAGE", "never seen")},
	)
	s, err := Open(path)
	require.NoError(t, err)
	defer func() {
		_ = s.Close()
	}()

	var errs []error
	n := 0
	for _, err := range s.All() {
		n++
		if err != nil {
			errs = append(errs, err)
		}
	}
	assert.Equal(t, 2, n)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], ErrCorruption))
}
