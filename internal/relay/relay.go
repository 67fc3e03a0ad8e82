// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

// Package relay sends signed lock commands to the remote actuator.
//
// Each command is a single POST with an HMAC-SHA256 signature over the exact
// body bytes. There are no retries: a failed command leaves the recorded
// lock state unchanged and is reported to the caller. Only one command can
// be in flight at a time.
package relay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/smartsafe/safewatch/internal/config"
	"github.com/smartsafe/safewatch/internal/logging"
	"github.com/smartsafe/safewatch/internal/metrics"
	"github.com/smartsafe/safewatch/internal/model"
	"golang.org/x/sync/semaphore"
)

// SignatureHeader carries the hex HMAC of the request body.
const SignatureHeader = "X-Signature"

const defaultTimeout = 10 * time.Second

// ErrCommandPending is returned when a command is already in flight.
var ErrCommandPending = errors.New("relay: a lock command is already pending")

// ActuatorError reports a command the actuator did not confirm. Status is 0
// when no HTTP response was received.
type ActuatorError struct {
	Intent  model.Intent
	Status  int
	Message string
	Err     error
}

func (e *ActuatorError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("actuator %s failed: %s", e.Intent, e.Message)
	}
	return fmt.Sprintf("actuator %s failed with status %d: %s", e.Intent, e.Status, e.Message)
}

func (e *ActuatorError) Unwrap() error { return e.Err }

// Confirmation is a successful actuator reply.
type Confirmation struct {
	Intent model.Intent    `json:"intent"`
	State  model.LockState `json:"state"`
	Status int             `json:"status"`
	Body   map[string]any  `json:"body"`
}

type actionBody struct {
	Action string `json:"action"`
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a hex signature produced by Sign in constant time.
func Verify(body []byte, secret, signature string) bool {
	want, err := hex.DecodeString(signature)
	if err != nil || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return subtle.ConstantTimeCompare(mac.Sum(nil), want) == 1
}

// Body returns the canonical request body for intent.
func Body(intent model.Intent) []byte {
	b, _ := json.Marshal(actionBody{Action: intent.Action()})
	return b
}

// Option configures a Relay.
type Option func(*Relay)

// WithHTTPClient replaces the default client. The configured timeout is
// applied per request through the context either way.
func WithHTTPClient(c *http.Client) Option { return func(r *Relay) { r.client = c } }

func WithMetrics(m *metrics.Metrics) Option { return func(r *Relay) { r.metrics = m } }

// Relay is the command relay. The zero value is not usable; use New.
type Relay struct {
	cfg     config.ActuatorConfig
	client  *http.Client
	metrics *metrics.Metrics
	flight  *semaphore.Weighted

	mu      sync.RWMutex
	state   model.LockState
	pending model.Intent
}

// New returns a Relay in the Locked state. Missing URL or secret is only
// reported when a command is sent.
func New(cfg config.ActuatorConfig, opts ...Option) *Relay {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	r := &Relay{
		cfg:    cfg,
		client: &http.Client{},
		flight: semaphore.NewWeighted(1),
		state:  model.Locked,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// State returns the last confirmed lock state.
func (r *Relay) State() model.LockState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Pending returns the in-flight intent, if any.
func (r *Relay) Pending() (model.Intent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pending, r.pending != ""
}

// Send signs and posts intent to the actuator. It fails fast with
// ErrCommandPending while another command is in flight and with a
// *config.ConfigError when the actuator is not configured.
func (r *Relay) Send(ctx context.Context, intent model.Intent) (Confirmation, error) {
	if _, err := model.ParseIntent(string(intent)); err != nil {
		return Confirmation{}, err
	}
	if err := r.cfg.Require(); err != nil {
		return Confirmation{}, err
	}
	if !r.flight.TryAcquire(1) {
		r.metrics.RelayCommand(string(intent), "pending", 0)
		return Confirmation{}, ErrCommandPending
	}
	defer r.flight.Release(1)

	r.setPending(intent)
	defer r.setPending("")

	start := time.Now()
	conf, err := r.post(ctx, intent)
	elapsed := time.Since(start)
	if err != nil {
		outcome := "error"
		var ae *ActuatorError
		if errors.As(err, &ae) && ae.Status != 0 {
			outcome = "rejected"
		}
		r.metrics.RelayCommand(string(intent), outcome, elapsed)
		logging.Warnf("relay: %v", err)
		return Confirmation{}, err
	}

	r.mu.Lock()
	r.state = conf.State
	r.mu.Unlock()
	r.metrics.RelayCommand(string(intent), "ok", elapsed)
	logging.Infof("relay: actuator confirmed %s in %s", intent, elapsed.Round(time.Millisecond))
	return conf, nil
}

func (r *Relay) setPending(i model.Intent) {
	r.mu.Lock()
	r.pending = i
	r.mu.Unlock()
}

func (r *Relay) post(ctx context.Context, intent model.Intent) (Confirmation, error) {
	body := Body(intent)
	url := strings.TrimSuffix(r.cfg.URL, "/") + "/" + string(intent)

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Confirmation{}, &ActuatorError{Intent: intent, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(body, r.cfg.Secret))

	resp, err := r.client.Do(req)
	if err != nil {
		return Confirmation{}, &ActuatorError{Intent: intent, Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Confirmation{}, &ActuatorError{Intent: intent, Status: resp.StatusCode, Message: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return Confirmation{}, &ActuatorError{Intent: intent, Status: resp.StatusCode, Message: msg}
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Confirmation{}, &ActuatorError{Intent: intent, Status: resp.StatusCode, Message: "response is not a JSON object", Err: err}
	}
	return Confirmation{Intent: intent, State: intent.Target(), Status: resp.StatusCode, Body: parsed}, nil
}
