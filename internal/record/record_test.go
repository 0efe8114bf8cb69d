// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package record

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	ts := time.Unix(1700000000, 12345)
	b, err := Append(nil, ts,
		String("MESSAGE", "hello"),
		String("HOST", "x1"),
		Int("PID", -42),
		Time("RECEIVED", ts.Add(time.Second)),
		Bytes("RAW", []byte{0, 1, 2}),
		Absent("UNSET"),
	)
	require.NoError(t, err)

	rec, err := Decode(b)
	require.NoError(t, err)
	assert.True(t, ts.Equal(rec.Timestamp))
	require.Len(t, rec.Fields, 6)

	names := make([]string, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		names = append(names, string(f.Name))
	}
	assert.Equal(t, []string{"MESSAGE", "HOST", "PID", "RECEIVED", "RAW", "UNSET"}, names)

	assert.Equal(t, TagString, rec.Fields[0].Tag)
	assert.Equal(t, "hello", string(rec.Fields[0].Value))
	assert.Equal(t, TagInt, rec.Fields[2].Tag)
	assert.Equal(t, int64(-42), int64(binary.LittleEndian.Uint64(rec.Fields[2].Value)))
	assert.Equal(t, TagTime, rec.Fields[3].Tag)
	assert.Equal(t, ts.Add(time.Second).UnixNano(), int64(binary.LittleEndian.Uint64(rec.Fields[3].Value)))
	assert.Equal(t, []byte{0, 1, 2}, rec.Fields[4].Value)
	assert.Equal(t, TagAbsent, rec.Fields[5].Tag)
	assert.Empty(t, rec.Fields[5].Value)
}

func TestDecode_Empty(t *testing.T) {
	b, err := Append(nil, time.Unix(0, 1))
	require.NoError(t, err)
	rec, err := Decode(b)
	require.NoError(t, err)
	assert.Empty(t, rec.Fields)
}

// rawField hand-encodes a field so tests can produce inconsistent data
// that Append refuses to write.
func rawField(name string, tag Tag, declaredLen uint64, value []byte) []byte {
	var b []byte
	b = binary.AppendUvarint(b, uint64(len(name)))
	b = append(b, name...)
	b = append(b, byte(tag))
	b = binary.AppendUvarint(b, declaredLen)
	return append(b, value...)
}

func rawRecord(count uint64, fields ...[]byte) []byte {
	b := binary.LittleEndian.AppendUint64(nil, 1)
	b = binary.AppendUvarint(b, count)
	for _, f := range fields {
		b = append(b, f...)
	}
	return b
}

func TestDecode_Corrupt(t *testing.T) {
	valid := rawField("HOST", TagString, 2, []byte("x1"))

	for name, input := range map[string][]byte{
		"empty":             nil,
		"short timestamp":   {1, 2, 3},
		"missing count":     binary.LittleEndian.AppendUint64(nil, 1),
		"count too large":   rawRecord(100, valid),
		"count too small":   rawRecord(0, valid),
		"int with 4 bytes":  rawRecord(1, rawField("PID", TagInt, 4, []byte{1, 2, 3, 4}), valid),
		"time with 9 bytes": rawRecord(1, rawField("T", TagTime, 9, make([]byte, 9)), valid),
		"absent with value": rawRecord(1, rawField("U", TagAbsent, 1, []byte{1}), valid),
		"unknown tag":       rawRecord(1, rawField("HOST", Tag(77), 2, []byte("x1")), valid),
		"value past end":    rawRecord(1, rawField("HOST", TagString, 200, []byte("x1")), valid),
		"zero name length":  rawRecord(1, rawField("", TagString, 2, []byte("x1")), valid),
		"name past end":     rawRecord(1, []byte{50, 'a', 'b', 'c', 'd'}),
		"truncated field":   rawRecord(1, []byte{1, 'a'}),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCorrupt), "%v", err)
		})
	}
}

func TestAppend_Errors(t *testing.T) {
	_, err := Append(nil, time.Now(), String("", "x"))
	assert.Error(t, err)

	_, err = Append(nil, time.Now(), String(string(make([]byte, MaxNameLen+1)), "x"))
	assert.Error(t, err)

	_, err = Append(nil, time.Now(), Field{Name: []byte("PID"), Tag: TagInt, Value: []byte{1}})
	assert.Error(t, err)

	_, err = Append(nil, time.Now(), Field{Name: []byte("X"), Tag: Tag(99)})
	assert.Error(t, err)
}
