// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

// Package acquisition runs the periodic poll of the sensor store. Each cycle
// queries every configured source concurrently, merges the rows into one
// snapshot, evaluates it and records new warnings. Subscribers receive the
// resulting State; a slow subscriber only ever sees the latest one.
package acquisition

import (
	"context"
	"sync"
	"time"

	"github.com/smartsafe/safewatch/internal/fusion"
	"github.com/smartsafe/safewatch/internal/i18n"
	"github.com/smartsafe/safewatch/internal/ledger"
	"github.com/smartsafe/safewatch/internal/logging"
	"github.com/smartsafe/safewatch/internal/metrics"
	"github.com/smartsafe/safewatch/internal/model"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval     = 5 * time.Second
	DefaultQueryTimeout = 3 * time.Second
)

// State is what the loop publishes after every cycle. Snapshot, Verdict and
// Diagnostics come from the last successful cycle; Err is set when the most
// recent cycle failed and cleared by the next success.
type State struct {
	Snapshot    model.SensorSnapshot `json:"snapshot"`
	Verdict     model.SafetyVerdict  `json:"verdict"`
	Diagnostics fusion.Diagnostics   `json:"diagnostics"`
	Alerts      []fusion.Alert       `json:"alerts"`
	Err         error                `json:"-"`
	UpdatedAt   time.Time            `json:"updatedAt"`
	Cycle       uint64               `json:"cycle"`
}

// Ready reports whether at least one cycle has succeeded.
func (s State) Ready() bool { return s.Cycle > 0 }

func (s State) clone() State {
	c := s
	c.Snapshot = s.Snapshot.Clone()
	c.Alerts = append([]fusion.Alert(nil), s.Alerts...)
	return c
}

// Option configures a Loop.
type Option func(*Loop)

func WithInterval(d time.Duration) Option { return func(l *Loop) { l.interval = d } }

func WithQueryTimeout(d time.Duration) Option { return func(l *Loop) { l.queryTimeout = d } }

func WithMetrics(m *metrics.Metrics) Option { return func(l *Loop) { l.metrics = m } }

// WithClock replaces time.Now for the merge timestamp.
func WithClock(now func() time.Time) Option { return func(l *Loop) { l.now = now } }

// WithTimestampFormat replaces the localized display timestamp used as part
// of the ledger dedup key.
func WithTimestampFormat(f func(time.Time) string) Option {
	return func(l *Loop) { l.formatTS = f }
}

// Loop is the acquisition loop. It owns the ledger writes.
type Loop struct {
	sources      []Source
	engine       *fusion.Engine
	ledger       *ledger.Ledger
	interval     time.Duration
	queryTimeout time.Duration
	metrics      *metrics.Metrics
	now          func() time.Time
	formatTS     func(time.Time) string

	mu    sync.RWMutex
	state State

	subMu sync.Mutex
	subs  map[chan State]struct{}
}

// New returns a Loop over sources. engine and led must not be nil.
func New(sources []Source, engine *fusion.Engine, led *ledger.Ledger, opts ...Option) *Loop {
	l := &Loop{
		sources:      sources,
		engine:       engine,
		ledger:       led,
		interval:     DefaultInterval,
		queryTimeout: DefaultQueryTimeout,
		now:          time.Now,
		formatTS:     i18n.FormatTimestamp,
		subs:         make(map[chan State]struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	if l.interval <= 0 {
		l.interval = DefaultInterval
	}
	return l
}

// Ledger returns the ledger the loop writes to.
func (l *Loop) Ledger() *ledger.Ledger { return l.ledger }

// State returns a copy of the latest published state.
func (l *Loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.clone()
}

// Subscribe registers a receiver for published states. The channel holds at
// most one pending state; older undelivered states are replaced. Call the
// returned function to unsubscribe and close the channel.
func (l *Loop) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	l.subMu.Lock()
	l.subs[ch] = struct{}{}
	l.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.subMu.Lock()
			delete(l.subs, ch)
			close(ch)
			l.subMu.Unlock()
		})
	}
}

func (l *Loop) publish(s State) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	for ch := range l.subs {
		select {
		case ch <- s.clone():
			continue
		default:
		}
		// Drop the stale state and retry once. Only publish sends, and it
		// holds subMu, so the second send cannot block.
		select {
		case <-ch:
		default:
		}
		ch <- s.clone()
	}
}

// Run executes a cycle immediately and then once per interval until ctx is
// done. Cycle failures are logged and retried on the next tick.
func (l *Loop) Run(ctx context.Context) error {
	logging.Infof("acquisition: polling %d source(s) every %s", len(l.sources), l.interval)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		if _, err := l.Cycle(ctx); err != nil && ctx.Err() == nil {
			logging.Warnf("acquisition: cycle failed: %v", err)
		}
		select {
		case <-ctx.Done():
			logging.Infof("acquisition: stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Cycle runs one acquisition cycle and returns the resulting state. On a
// query failure the previous snapshot is kept and the error is published.
// If ctx is cancelled before the merge, the results are discarded and
// nothing is published.
func (l *Loop) Cycle(ctx context.Context) (State, error) {
	readings := make([]Reading, len(l.sources))

	// Queries run to completion even when ctx is cancelled mid-flight; the
	// per-query timeout still bounds them.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	for i, src := range l.sources {
		g.Go(func() error {
			qctx := gctx
			if l.queryTimeout > 0 {
				var cancel context.CancelFunc
				qctx, cancel = context.WithTimeout(gctx, l.queryTimeout)
				defer cancel()
			}
			start := time.Now()
			r, err := src.Fetch(qctx)
			l.metrics.ObserveSource(src.Name(), time.Since(start))
			if err != nil {
				return err
			}
			readings[i] = r
			return nil
		})
	}
	err := g.Wait()

	if ctx.Err() != nil {
		return l.State(), ctx.Err()
	}
	if err != nil {
		l.metrics.CycleFailed()
		l.mu.Lock()
		l.state.Err = err
		st := l.state.clone()
		l.mu.Unlock()
		l.publish(st)
		return st, err
	}

	snap := Merge(readings, l.now())
	res := l.engine.Evaluate(snap)

	display := l.formatTS(snap.Timestamp)
	for _, a := range res.Alerts {
		entry := model.WarningEntry{DisplayTimestamp: display, Message: describe(a)}
		if l.ledger.Record(entry) {
			l.metrics.Warning(string(a.Kind))
			logging.Warnf("%s %s", display, entry.Message)
		}
	}

	l.mu.Lock()
	l.state = State{
		Snapshot:    snap,
		Verdict:     res.Verdict,
		Diagnostics: res.Diagnostics,
		Alerts:      res.Alerts,
		UpdatedAt:   l.now(),
		Cycle:       l.state.Cycle + 1,
	}
	st := l.state.clone()
	l.mu.Unlock()

	l.metrics.CycleCompleted(res.Verdict.Safe, l.ledger.Len())
	l.publish(st)
	return st, nil
}

func describe(a fusion.Alert) string {
	switch a.Kind {
	case fusion.AlertMotion:
		return i18n.T("warning.moved")
	case fusion.AlertVibration:
		return i18n.T("warning.hit")
	case fusion.AlertLight:
		return i18n.T("warning.light", a.Value)
	}
	return string(a.Kind)
}
