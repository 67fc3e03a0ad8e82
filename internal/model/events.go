// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import "fmt"

// WarningEntry is a single critical event in the warning ledger.
type WarningEntry struct {
	DisplayTimestamp string `json:"timestamp"`
	Message          string `json:"message"`
}

// LockState is the last confirmed position of the physical lock.
type LockState string

const (
	Locked   LockState = "locked"
	Unlocked LockState = "unlocked"
)

// Intent is a user-issued lock command.
type Intent string

const (
	IntentLock   Intent = "lock"
	IntentUnlock Intent = "unlock"
)

// ParseIntent converts a command word into an Intent.
func ParseIntent(s string) (Intent, error) {
	switch Intent(s) {
	case IntentLock, IntentUnlock:
		return Intent(s), nil
	}
	return "", fmt.Errorf("unknown intent %q", s)
}

// Action is the actuator payload value for the intent.
func (i Intent) Action() string {
	if i == IntentUnlock {
		return "on"
	}
	return "off"
}

// Target is the lock state reached when the intent is confirmed.
func (i Intent) Target() LockState {
	if i == IntentUnlock {
		return Unlocked
	}
	return Locked
}

// AccessSession is the in-memory authentication state of the gate.
type AccessSession struct {
	Authenticated bool `json:"authenticated"`
}
