// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

package acquisition

import (
	"context"
	"errors"

	"github.com/smartsafe/safewatch/internal/config"
	"github.com/smartsafe/safewatch/internal/db"
	"github.com/smartsafe/safewatch/internal/model"
)

// Reading is the result of one source query. Exactly one of Primary and
// Value is set when the source had a row; both are nil otherwise.
type Reading struct {
	Source  string
	Field   string
	Primary *model.SensorRow
	Value   *model.ValueRow
}

// Source is one table polled per cycle.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Reading, error)
}

type storeSource struct {
	cfg   config.SourceConfig
	store db.ReadingStore
}

// NewStoreSource returns a Source reading cfg.Table from store.
func NewStoreSource(store db.ReadingStore, cfg config.SourceConfig) Source {
	return &storeSource{cfg: cfg, store: store}
}

// SourcesFromConfig builds one Source per configured table.
func SourcesFromConfig(store db.ReadingStore, cfgs []config.SourceConfig) []Source {
	out := make([]Source, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, NewStoreSource(store, c))
	}
	return out
}

func (s *storeSource) Name() string { return s.cfg.Name }

func (s *storeSource) Fetch(ctx context.Context) (Reading, error) {
	r := Reading{Source: s.cfg.Name, Field: s.cfg.Field}
	var err error
	if s.cfg.Kind == config.SourcePrimary {
		r.Primary, err = s.store.LatestSensorRow(ctx, s.cfg.Table)
	} else {
		f := db.Filter{Column: s.cfg.DiscriminatorColumn, Value: s.cfg.Discriminator}
		r.Value, err = s.store.LatestValueRow(ctx, s.cfg.Table, f)
	}
	if err != nil {
		var qe *db.QueryError
		if !errors.As(err, &qe) {
			err = &db.QueryError{Source: s.cfg.Name, Err: err}
		}
		return Reading{}, err
	}
	return r, nil
}
