// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package logstore

import (
	"bytes"
	"encoding/binary"
	"slices"

	"github.com/bpowers/logstore/internal/bitset"
	"github.com/bpowers/logstore/internal/codec"
	"github.com/bpowers/logstore/internal/container"
	"github.com/bpowers/logstore/internal/errs"
	"github.com/bpowers/logstore/internal/record"
)

// smallRecordFields is the field count up to which duplicates are found
// by scanning the ids already seen instead of with the bitset.
const smallRecordFields = 32

// decoder turns frames into Messages.  It remembers the kind each
// keyword first had in this store: a field can't change type midway
// through a store.
type decoder struct {
	path  string
	codec *codec.Decoder
	kws   *KeywordTable
	kinds map[Keyword]Kind
	seen  bitset.Bitset
	ids   []Keyword
}

func newDecoder(path string, c *codec.Decoder, kws *KeywordTable) *decoder {
	return &decoder{
		path:  path,
		codec: c,
		kws:   kws,
		kinds: make(map[Keyword]Kind),
	}
}

func kindOf(tag record.Tag) Kind {
	switch tag {
	case record.TagString:
		return String
	case record.TagInt:
		return Int
	case record.TagTime:
		return Time
	case record.TagBytes:
		return Bytes
	default:
		return Absent
	}
}

// valueOf copies f's value out of the decode buffer.
func valueOf(f record.Field) Value {
	switch f.Tag {
	case record.TagString:
		return Value{kind: String, s: string(f.Value)}
	case record.TagInt:
		return Value{kind: Int, i: int64(binary.LittleEndian.Uint64(f.Value))}
	case record.TagTime:
		return Value{kind: Time, i: int64(binary.LittleEndian.Uint64(f.Value))}
	case record.TagBytes:
		return Value{kind: Bytes, b: bytes.Clone(f.Value)}
	default:
		return Value{}
	}
}

func (d *decoder) decode(frame container.Frame) (*Message, error) {
	plain, err := d.codec.Decode(frame.Payload, frame.Offset)
	if err != nil {
		return nil, errs.Decode(d.path, frame.Offset, err)
	}

	rec, err := record.Decode(plain)
	if err != nil {
		return nil, errs.Corrupt(d.path, frame.Offset, "%w", err)
	}

	// intern everything first: the table may grow under us from other
	// stores, so size the duplicate check by the largest id we got back
	d.ids = d.ids[:0]
	var maxID Keyword
	for _, f := range rec.Fields {
		kw := d.kws.internBytes(f.Name)
		d.ids = append(d.ids, kw)
		if kw > maxID {
			maxID = kw
		}
	}
	small := len(d.ids) <= smallRecordFields
	if !small {
		d.seen.Reset(int64(maxID) + 1)
	}

	msg := &Message{
		meta: Meta{
			Offset:    frame.Offset,
			Timestamp: rec.Timestamp,
		},
		fields: make([]field, 0, len(rec.Fields)),
	}
	for i, f := range rec.Fields {
		kw := d.ids[i]
		var dup bool
		if small {
			dup = slices.Contains(d.ids[:i], kw)
		} else {
			dup = d.seen.IsSet(int64(kw))
			d.seen.Set(int64(kw))
		}
		if dup {
			return nil, errs.Corrupt(d.path, frame.Offset, "duplicate field %q", f.Name)
		}

		if kind := kindOf(f.Tag); kind != Absent {
			if prev, ok := d.kinds[kw]; ok && prev != kind {
				return nil, errs.Corrupt(d.path, frame.Offset, "field %q is %s, but was %s earlier in this store", f.Name, kind, prev)
			} else if !ok {
				d.kinds[kw] = kind
			}
		}

		msg.fields = append(msg.fields, field{kw: kw, v: valueOf(f)})
	}

	return msg, nil
}
