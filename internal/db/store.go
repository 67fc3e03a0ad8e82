// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"

	"github.com/smartsafe/safewatch/internal/model"
)

// Filter narrows a value-table lookup to rows whose Column equals Value,
// e.g. gpio_sensor_data rows with sensor_type = 'PIR'. The zero Filter
// matches every row.
type Filter struct {
	Column string
	Value  string
}

// IsZero reports whether the filter matches every row.
func (f Filter) IsZero() bool { return f.Column == "" }

// ReadingStore is the read side of the sensor database. Lookups for a table
// with no rows return (nil, nil); every other failure is a *QueryError.
type ReadingStore interface {
	// LatestSensorRow returns the newest row of a primary sensor table.
	LatestSensorRow(ctx context.Context, table string) (*model.SensorRow, error)
	// LatestValueRow returns the newest row of a single-value table.
	LatestValueRow(ctx context.Context, table string, f Filter) (*model.ValueRow, error)
	// RecentSensorRows returns up to limit rows, newest first.
	RecentSensorRows(ctx context.Context, table string, limit int) ([]model.SensorRow, error)
	Close() error
}
