// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package logstore

import (
	"github.com/bpowers/logstore/internal/container"
)

type iterState int

const (
	iterReady iterState = iota
	iterYielding
	iterExhausted
	iterFailed
)

// Iter reads a store's messages in order, one frame per call to Next.
type Iter struct {
	r     *container.Reader
	dec   *decoder
	kws   *KeywordTable
	state iterState
	err   error
	n     int64
}

// Next returns the next message.  Once the store is exhausted it returns
// Done on every call; once it fails it returns the same error on every
// call.
func (it *Iter) Next() (View, error) {
	switch it.state {
	case iterExhausted:
		return View{}, Done
	case iterFailed:
		return View{}, it.err
	}

	frame, err := it.r.Next()
	if err == container.ErrEndOfStore {
		it.state = iterExhausted
		return View{}, Done
	} else if err != nil {
		return it.fail(err)
	}

	msg, err := it.dec.decode(frame)
	if err != nil {
		return it.fail(err)
	}

	it.state = iterYielding
	it.n++
	return newView(msg, it.kws), nil
}

func (it *Iter) fail(err error) (View, error) {
	it.state = iterFailed
	it.err = err
	return View{}, err
}

// Count returns the number of messages yielded so far.
func (it *Iter) Count() int64 {
	return it.n
}

// Err returns the error the iterator failed with, or nil.
func (it *Iter) Err() error {
	return it.err
}
