// Copyright 2024 The logstore Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package logstore

import (
	"sync"
)

// Keyword is an interned field name.  The zero Keyword is never issued.
type Keyword uint32

// KeywordTable maps field names to Keywords.  Entries are never removed
// or renumbered, and it is safe for concurrent use.
type KeywordTable struct {
	mu    sync.RWMutex
	ids   map[string]Keyword
	names []string // names[id-1]
}

func NewKeywordTable() *KeywordTable {
	return &KeywordTable{
		ids: make(map[string]Keyword),
	}
}

var defaultKeywords = NewKeywordTable()

// Keywords returns the process-wide table that stores use unless given
// WithKeywordTable.
func Keywords() *KeywordTable {
	return defaultKeywords
}

// Intern returns the Keyword for name in the process-wide table,
// allocating one if needed.
func Intern(name string) Keyword {
	return defaultKeywords.Intern(name)
}

// Intern returns the Keyword for name, allocating one if needed.
func (t *KeywordTable) Intern(name string) Keyword {
	if kw, ok := t.Lookup(name); ok {
		return kw
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// someone may have beaten us here between RUnlock and Lock
	if kw, ok := t.ids[name]; ok {
		return kw
	}
	t.names = append(t.names, name)
	kw := Keyword(len(t.names))
	t.ids[name] = kw
	return kw
}

// internBytes is Intern for names still sitting in a decode buffer; it
// only allocates a string the first time a name is seen.
func (t *KeywordTable) internBytes(name []byte) Keyword {
	t.mu.RLock()
	kw, ok := t.ids[string(name)]
	t.mu.RUnlock()
	if ok {
		return kw
	}
	return t.Intern(string(name))
}

// Lookup returns the Keyword for name without allocating one.
func (t *KeywordTable) Lookup(name string) (Keyword, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	kw, ok := t.ids[name]
	return kw, ok
}

// Name returns the field name kw stands for.
func (t *KeywordTable) Name(kw Keyword) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if kw == 0 || int(kw) > len(t.names) {
		return "", false
	}
	return t.names[kw-1], true
}

// Len returns the number of Keywords issued so far.
func (t *KeywordTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.names)
}
