// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package logstore

import (
	"encoding/hex"
	"strconv"
	"time"
)

// Kind is the type of a Value.
type Kind uint8

const (
	Absent Kind = iota
	String
	Int
	Time
	Bytes
)

func (k Kind) String() string {
	switch k {
	case Absent:
		return "absent"
	case String:
		return "string"
	case Int:
		return "int"
	case Time:
		return "time"
	case Bytes:
		return "bytes"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a field value.  The zero Value is Absent.
type Value struct {
	kind Kind
	s    string
	i    int64
	b    []byte
}

func StringValue(s string) Value { return Value{kind: String, s: s} }
func IntValue(i int64) Value     { return Value{kind: Int, i: i} }
func TimeValue(t time.Time) Value {
	return Value{kind: Time, i: t.UnixNano()}
}
func BytesValue(b []byte) Value { return Value{kind: Bytes, b: b} }

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsAbsent() bool {
	return v.kind == Absent
}

func (v Value) Str() (string, bool) {
	return v.s, v.kind == String
}

func (v Value) Int() (int64, bool) {
	return v.i, v.kind == Int
}

func (v Value) Time() (time.Time, bool) {
	if v.kind != Time {
		return time.Time{}, false
	}
	return time.Unix(0, v.i), true
}

// Bytes returns the value's bytes.  Callers must not modify them.
func (v Value) Bytes() ([]byte, bool) {
	return v.b, v.kind == Bytes
}

// String renders v for display: strings as-is, ints in decimal, times in
// RFC 3339 (UTC), bytes in hex, and Absent as the empty string.
func (v Value) String() string {
	switch v.kind {
	case String:
		return v.s
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Time:
		return time.Unix(0, v.i).UTC().Format(time.RFC3339Nano)
	case Bytes:
		return hex.EncodeToString(v.b)
	default:
		return ""
	}
}

// Meta is where a message came from.
type Meta struct {
	// Offset is the byte offset of the message's frame in the store.
	Offset    int64
	Timestamp time.Time
}

type field struct {
	kw Keyword
	v  Value
}

// Message is one decoded record.  Keywords are unique within a message
// and fields keep the order they were written in.
type Message struct {
	meta   Meta
	fields []field
}

// Entry is one field of a message, as returned by View.Entries.
type Entry struct {
	Name    string
	Keyword Keyword
	Value   Value
}

// View is a read-only accessor over a Message.
type View struct {
	msg *Message
	kws *KeywordTable
}

func newView(m *Message, kws *KeywordTable) View {
	return View{msg: m, kws: kws}
}

// Get returns the value stored under kw, or an Absent value.
func (v View) Get(kw Keyword) Value {
	if v.msg == nil {
		return Value{}
	}
	for _, f := range v.msg.fields {
		if f.kw == kw {
			return f.v
		}
	}
	return Value{}
}

// Lookup returns the value stored under name.  A name that was never
// interned can't be in any message, so this never grows the table.
func (v View) Lookup(name string) Value {
	if v.msg == nil {
		return Value{}
	}
	kw, ok := v.kws.Lookup(name)
	if !ok {
		return Value{}
	}
	return v.Get(kw)
}

// Has reports whether the message has a field for kw, even an Absent one.
func (v View) Has(kw Keyword) bool {
	if v.msg == nil {
		return false
	}
	for _, f := range v.msg.fields {
		if f.kw == kw {
			return true
		}
	}
	return false
}

// Entries returns every field in the order it was written.  The slice is
// freshly allocated on each call.
func (v View) Entries() []Entry {
	if v.msg == nil {
		return nil
	}
	entries := make([]Entry, 0, len(v.msg.fields))
	for _, f := range v.msg.fields {
		name, _ := v.kws.Name(f.kw)
		entries = append(entries, Entry{Name: name, Keyword: f.kw, Value: f.v})
	}
	return entries
}

func (v View) Len() int {
	if v.msg == nil {
		return 0
	}
	return len(v.msg.fields)
}

func (v View) Meta() Meta {
	if v.msg == nil {
		return Meta{}
	}
	return v.msg.meta
}
