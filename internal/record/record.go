// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package record encodes and decodes the contents of a frame once any
// compression and encryption has been removed.
//
// A record is a timestamp followed by a counted list of fields:
//
//	timestamp   int64, unix nanoseconds, little-endian
//	fieldCount  uvarint
//	fields      fieldCount × (nameLen uvarint, name, tag byte, valueLen uvarint, value)
//
// Int and Time values are 8-byte little-endian int64s, Absent values are
// empty, String and Bytes values are raw bytes.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Tag is the on-disk type of a field value.
type Tag uint8

const (
	TagAbsent Tag = iota
	TagString
	TagInt
	TagTime
	TagBytes

	numTags
)

const (
	timestampSize = 8
	MaxNameLen    = (1 << 8) - 1
)

// ErrCorrupt is wrapped by every error Decode returns.
var ErrCorrupt = errors.New("malformed record")

// Field is one name/value pair.  In a decoded Record, Name and Value point
// into the buffer passed to Decode.
type Field struct {
	Name  []byte
	Tag   Tag
	Value []byte
}

type Record struct {
	Timestamp time.Time
	Fields    []Field
}

func String(name, s string) Field {
	return Field{Name: []byte(name), Tag: TagString, Value: []byte(s)}
}

func Int(name string, i int64) Field {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(i))
	return Field{Name: []byte(name), Tag: TagInt, Value: buf[:]}
}

func Time(name string, t time.Time) Field {
	f := Int(name, t.UnixNano())
	f.Tag = TagTime
	return f
}

func Bytes(name string, b []byte) Field {
	return Field{Name: []byte(name), Tag: TagBytes, Value: b}
}

func Absent(name string) Field {
	return Field{Name: []byte(name), Tag: TagAbsent}
}

// fixedLen returns the only value length valid for tag, or -1 if any
// length is fine.
func fixedLen(tag Tag) int {
	switch tag {
	case TagAbsent:
		return 0
	case TagInt, TagTime:
		return 8
	default:
		return -1
	}
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

// Decode parses b.  The returned Fields alias b.
func Decode(b []byte) (Record, error) {
	if len(b) < timestampSize {
		return Record{}, corrupt("%d bytes is too short for a timestamp", len(b))
	}
	rec := Record{
		Timestamp: time.Unix(0, int64(binary.LittleEndian.Uint64(b[:timestampSize]))),
	}
	rest := b[timestampSize:]

	count, n := binary.Uvarint(rest)
	if n <= 0 {
		return Record{}, corrupt("bad field count")
	}
	rest = rest[n:]
	// every field takes at least 4 bytes; don't let a bogus count drive a
	// huge allocation
	if count > uint64(len(rest))/4 {
		return Record{}, corrupt("field count %d larger than record (%d bytes left)", count, len(rest))
	}

	rec.Fields = make([]Field, 0, count)
	for i := uint64(0); i < count; i++ {
		var f Field
		var err error
		if f, rest, err = decodeField(rest); err != nil {
			return Record{}, fmt.Errorf("field %d: %w", i, err)
		}
		rec.Fields = append(rec.Fields, f)
	}

	if len(rest) != 0 {
		return Record{}, corrupt("%d trailing bytes after last field", len(rest))
	}

	return rec, nil
}

func decodeField(b []byte) (f Field, rest []byte, err error) {
	nameLen, n := binary.Uvarint(b)
	if n <= 0 {
		return Field{}, nil, corrupt("bad name length")
	}
	b = b[n:]
	if nameLen == 0 || nameLen > MaxNameLen {
		return Field{}, nil, corrupt("invalid name length %d", nameLen)
	}
	if nameLen > uint64(len(b)) {
		return Field{}, nil, corrupt("name length %d beyond end of record (%d bytes left)", nameLen, len(b))
	}
	f.Name = b[:nameLen]
	b = b[nameLen:]

	if len(b) < 1 {
		return Field{}, nil, corrupt("missing tag for %q", f.Name)
	}
	f.Tag = Tag(b[0])
	b = b[1:]
	if f.Tag >= numTags {
		return Field{}, nil, corrupt("unknown tag %d for %q", f.Tag, f.Name)
	}

	valueLen, n := binary.Uvarint(b)
	if n <= 0 {
		return Field{}, nil, corrupt("bad value length for %q", f.Name)
	}
	b = b[n:]
	if fl := fixedLen(f.Tag); fl >= 0 && valueLen != uint64(fl) {
		return Field{}, nil, corrupt("value length %d inconsistent with tag %d for %q", valueLen, f.Tag, f.Name)
	}
	if valueLen > uint64(len(b)) {
		return Field{}, nil, corrupt("value length %d beyond end of record (%d bytes left) for %q", valueLen, len(b), f.Name)
	}
	f.Value = b[:valueLen]

	return f, b[valueLen:], nil
}

// Append encodes a record onto dst.
func Append(dst []byte, ts time.Time, fields ...Field) ([]byte, error) {
	dst = binary.LittleEndian.AppendUint64(dst, uint64(ts.UnixNano()))
	dst = binary.AppendUvarint(dst, uint64(len(fields)))
	for _, f := range fields {
		if len(f.Name) == 0 {
			return nil, errors.New("empty field name not supported")
		}
		if len(f.Name) > MaxNameLen {
			return nil, fmt.Errorf("field name %q too long", f.Name)
		}
		if f.Tag >= numTags {
			return nil, fmt.Errorf("unknown tag %d for %q", f.Tag, f.Name)
		}
		if fl := fixedLen(f.Tag); fl >= 0 && len(f.Value) != fl {
			return nil, fmt.Errorf("value length %d inconsistent with tag %d for %q", len(f.Value), f.Tag, f.Name)
		}
		dst = binary.AppendUvarint(dst, uint64(len(f.Name)))
		dst = append(dst, f.Name...)
		dst = append(dst, byte(f.Tag))
		dst = binary.AppendUvarint(dst, uint64(len(f.Value)))
		dst = append(dst, f.Value...)
	}
	return dst, nil
}
