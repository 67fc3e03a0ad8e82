// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

// Package gate implements the password gate in front of lock commands.
package gate

import (
	"crypto/subtle"
	"sync"

	"github.com/smartsafe/safewatch/internal/i18n"
	"github.com/smartsafe/safewatch/internal/metrics"
	"github.com/smartsafe/safewatch/internal/model"
	"github.com/smartsafe/safewatch/internal/notify"
)

// AuthError is returned for a rejected password. Message is the text shown
// to the user.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// Dispatcher receives every attempt. *notify.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(a notify.Attempt)
}

// Gate holds one in-memory session. It is safe for concurrent use.
type Gate struct {
	password   string
	dispatcher Dispatcher
	metrics    *metrics.Metrics

	mu      sync.RWMutex
	session model.AccessSession
	errMsg  string
}

// New returns a locked Gate. An empty password rejects every attempt. A nil
// dispatcher disables notifications.
func New(password string, d Dispatcher, m *metrics.Metrics) *Gate {
	return &Gate{password: password, dispatcher: d, metrics: m}
}

// Submit checks input against the configured password. Every attempt is
// handed to the dispatcher; the raw input is only included on failure.
func (g *Gate) Submit(input string) error {
	ok := g.password != "" &&
		subtle.ConstantTimeCompare([]byte(input), []byte(g.password)) == 1

	g.mu.Lock()
	if ok {
		g.session.Authenticated = true
		g.errMsg = ""
	} else {
		g.errMsg = i18n.T("lock.incorrect_password")
	}
	msg := g.errMsg
	g.mu.Unlock()

	g.metrics.AuthAttempt(ok)
	if g.dispatcher != nil {
		a := notify.Attempt{Success: ok}
		if !ok {
			a.PasswordAttempt = input
		}
		g.dispatcher.Dispatch(a)
	}

	if !ok {
		return &AuthError{Message: msg}
	}
	return nil
}

// Authenticated reports whether the session has passed the gate.
func (g *Gate) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.session.Authenticated
}

// Session returns a copy of the session state.
func (g *Gate) Session() model.AccessSession {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.session
}

// Err returns the message of the last failed attempt, or "".
func (g *Gate) Err() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.errMsg
}

// ClearError drops the failure message, e.g. when the user starts typing.
func (g *Gate) ClearError() {
	g.mu.Lock()
	g.errMsg = ""
	g.mu.Unlock()
}

// Logout returns the gate to the locked state.
func (g *Gate) Logout() {
	g.mu.Lock()
	g.session = model.AccessSession{}
	g.errMsg = ""
	g.mu.Unlock()
}
