// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

// Package notify delivers password attempt notifications. Delivery is best
// effort: the Dispatcher runs every send on its own goroutine and only logs
// failures.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smartsafe/safewatch/internal/config"
	"github.com/smartsafe/safewatch/internal/logging"
	"github.com/smartsafe/safewatch/internal/metrics"
)

// Attempt describes one password gate submission. PasswordAttempt is only
// set for failed attempts.
type Attempt struct {
	Success         bool      `json:"success"`
	PasswordAttempt string    `json:"passwordAttempt,omitempty"`
	At              time.Time `json:"-"`
}

// ErrNotConfigured is wrapped by senders that lack credentials.
var ErrNotConfigured = errors.New("notification channel not configured")

// NotificationError reports a failed delivery.
type NotificationError struct {
	Sender string
	Err    error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify via %s: %v", e.Sender, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// Sender delivers one attempt.
type Sender interface {
	Send(ctx context.Context, a Attempt) error
}

// NopSender drops every attempt.
type NopSender struct{}

func (NopSender) Send(context.Context, Attempt) error { return nil }

// MultiSender sends to every sender and joins their errors.
type MultiSender []Sender

func (m MultiSender) Send(ctx context.Context, a Attempt) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds the sender set for cfg. Mailgun is always included so a
// missing credential is logged on every attempt.
func FromConfig(cfg config.NotifyConfig) Sender {
	senders := MultiSender{NewMailgunSender(cfg.Mailgun)}
	if cfg.WebhookURL != "" {
		senders = append(senders, NewWebhookSender(cfg.WebhookURL, nil))
	}
	return senders
}

// Dispatcher hands attempts to a Sender without blocking the caller.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewDispatcher returns a Dispatcher. A nil sender drops every attempt.
func NewDispatcher(s Sender, timeout time.Duration, m *metrics.Metrics) *Dispatcher {
	if s == nil {
		s = NopSender{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{sender: s, timeout: timeout, metrics: m, now: time.Now}
}

// Dispatch sends a in the background and returns immediately.
func (d *Dispatcher) Dispatch(a Attempt) {
	if a.At.IsZero() {
		a.At = d.now()
	}
	if a.Success {
		a.PasswordAttempt = ""
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		err := d.sender.Send(ctx, a)
		d.metrics.Notification(err)
		if err != nil {
			var ne *NotificationError
			if !errors.As(err, &ne) {
				err = &NotificationError{Sender: fmt.Sprintf("%T", d.sender), Err: err}
			}
			logging.Errorf("%v", err)
			return
		}
		logging.Debugf("notify: delivered attempt (success=%t)", a.Success)
	}()
}

// Wait blocks until every dispatched attempt has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }
