// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ledger keeps the deduplicated history of critical events.
//
// The ledger is append-only and unbounded for the lifetime of the process.
// Two entries are the same event when their display timestamp and message
// are equal; display timestamps are rendered at seconds precision, so events
// within the same second with the same message collapse into one entry.
// Callers that need bounded output use Latest.
package ledger

import (
	"sync"

	"github.com/smartsafe/safewatch/internal/model"
)

type key struct {
	ts  string
	msg string
}

// Ledger is safe for one writer and any number of concurrent readers.
type Ledger struct {
	mu      sync.RWMutex
	entries []model.WarningEntry // oldest first
	seen    map[key]struct{}
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{seen: make(map[key]struct{})}
}

// Record appends e unless an entry with the same display timestamp and
// message already exists. It reports whether e was appended.
func (l *Ledger) Record(e model.WarningEntry) bool {
	k := key{ts: e.DisplayTimestamp, msg: e.Message}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.seen[k]; dup {
		return false
	}
	l.seen[k] = struct{}{}
	l.entries = append(l.entries, e)
	return true
}

// Entries returns a copy of all entries, newest first.
func (l *Ledger) Entries() []model.WarningEntry {
	return l.Latest(-1)
}

// Latest returns at most n entries, newest first. A negative n returns all.
func (l *Ledger) Latest(n int) []model.WarningEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n < 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]model.WarningEntry, 0, n)
	for i := len(l.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// Len returns the number of recorded entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
