// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package logstore reads log stores: binary container files holding a
// sequence of structured log messages.
//
// Messages are decoded lazily, one per call to Iter.Next:
//
//	s, err := logstore.Open(path)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	msgKw := logstore.Intern("MESSAGE")
//	it := s.Messages()
//	for {
//		m, err := it.Next()
//		if err == logstore.Done {
//			break
//		} else if err != nil {
//			return err
//		}
//		fmt.Println(m.Get(msgKw))
//	}
//
// Field names are interned into Keywords through a process-wide
// KeywordTable shared by every store.  Stores themselves are not safe for
// concurrent use, but separate stores may be read from separate
// goroutines.
//
// Failures are *Error values; classify them with errors.Is against
// ErrIO, ErrFormat, ErrCorruption and ErrDecode.  An ErrDecode failure
// usually means a missing or wrong key rather than a damaged file.
package logstore
