// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

// Package app wires the monitor components from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/smartsafe/safewatch/internal/acquisition"
	"github.com/smartsafe/safewatch/internal/config"
	"github.com/smartsafe/safewatch/internal/db"
	"github.com/smartsafe/safewatch/internal/fusion"
	"github.com/smartsafe/safewatch/internal/gate"
	"github.com/smartsafe/safewatch/internal/ledger"
	"github.com/smartsafe/safewatch/internal/logging"
	"github.com/smartsafe/safewatch/internal/metrics"
	"github.com/smartsafe/safewatch/internal/model"
	"github.com/smartsafe/safewatch/internal/notify"
	"github.com/smartsafe/safewatch/internal/relay"
	"github.com/smartsafe/safewatch/internal/server"
	"golang.org/x/sync/errgroup"
)

// App holds one fully wired monitor.
type App struct {
	Config     config.Config
	Store      db.ReadingStore
	Engine     *fusion.Engine
	Ledger     *ledger.Ledger
	Loop       *acquisition.Loop
	Gate       *gate.Gate
	Relay      *relay.Relay
	Dispatcher *notify.Dispatcher
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry
}

// FusionConfig maps the safety section onto a resolved fusion.Config.
func FusionConfig(s config.SafetyConfig, hasAngularVelocity bool) (fusion.Config, error) {
	mode, err := fusion.ResolveMode(fusion.Mode(s.Mode), hasAngularVelocity)
	if err != nil {
		return fusion.Config{}, &config.ConfigError{Keys: []string{"safety.mode"}, Reason: err.Error()}
	}
	return fusion.Config{
		Mode:           mode,
		Reference:      model.Vector3{X: s.Reference.X, Y: s.Reference.Y, Z: s.Reference.Z},
		Tolerance:      s.Tolerance,
		Gravity:        s.Gravity,
		AccelThreshold: s.AccelThreshold,
		GyroThreshold:  s.GyroThreshold,
		LightThreshold: s.LightThreshold,
	}, nil
}

// New validates cfg, opens the configured store and wires every component.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := db.Open(ctx, cfg.Database.Type, cfg.Database.Dsn, cfg.Database.Name)
	if err != nil {
		return nil, err
	}
	a, err := NewWithStore(cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

// NewWithStore wires the components around an already opened store.
func NewWithStore(cfg config.Config, store db.ReadingStore) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fcfg, err := FusionConfig(cfg.Safety, cfg.HasAngularVelocity())
	if err != nil {
		return nil, err
	}
	engine, err := fusion.New(fcfg)
	if err != nil {
		return nil, &config.ConfigError{Keys: []string{"safety"}, Reason: err.Error()}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	led := ledger.New()
	loop := acquisition.New(
		acquisition.SourcesFromConfig(store, cfg.Sources),
		engine, led,
		acquisition.WithInterval(cfg.Poll.Interval),
		acquisition.WithQueryTimeout(cfg.Poll.QueryTimeout),
		acquisition.WithMetrics(m),
	)
	dispatcher := notify.NewDispatcher(notify.FromConfig(cfg.Notify), cfg.Notify.Timeout, m)

	logging.Debugf("app: fusion mode %s, %d source(s)", engine.Mode(), len(cfg.Sources))
	return &App{
		Config:     cfg,
		Store:      store,
		Engine:     engine,
		Ledger:     led,
		Loop:       loop,
		Gate:       gate.New(cfg.Gate.Password, dispatcher, m),
		Relay:      relay.New(cfg.Actuator, relay.WithMetrics(m)),
		Dispatcher: dispatcher,
		Metrics:    m,
		Registry:   reg,
	}, nil
}

// PrimaryTable returns the table of the primary source, or "".
func (a *App) PrimaryTable() string {
	for _, s := range a.Config.Sources {
		if s.Kind == config.SourcePrimary {
			return s.Table
		}
	}
	return ""
}

// Server returns the HTTP server bound to addr.
func (a *App) Server(addr string) *server.Server {
	return server.New(addr, server.Deps{
		Loop:         a.Loop,
		Ledger:       a.Ledger,
		Store:        a.Store,
		PrimaryTable: a.PrimaryTable(),
		Gate:         a.Gate,
		Relay:        a.Relay,
		Dispatcher:   a.Dispatcher,
		Gatherer:     a.Registry,
	})
}

// Serve runs the acquisition loop and the HTTP server until ctx is done or
// either of them fails.
func (a *App) Serve(ctx context.Context, addr string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Loop.Run(gctx) })
	g.Go(func() error { return a.Server(addr).Run(gctx) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Close waits for pending notifications and closes the store.
func (a *App) Close() error {
	a.Dispatcher.Wait()
	return a.Store.Close()
}
