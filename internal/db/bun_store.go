// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/smartsafe/safewatch/internal/model"
	"github.com/uptrace/bun"
)

// sensorRowModel maps sensor_data style tables. The table name is supplied
// per query so one model serves every configured primary source.
type sensorRowModel struct {
	bun.BaseModel `bun:"table:sensor_data,alias:r"`

	ID                int64           `bun:"id,pk,autoincrement"`
	Timestamp         time.Time       `bun:"timestamp"`
	VibrationDetected sql.NullBool    `bun:"vibration_detected"`
	MotionDetected    sql.NullBool    `bun:"motion_detected"`
	LDRValue          sql.NullFloat64 `bun:"ldr_value"`
	ReedSwitch        sql.NullInt64   `bun:"reed_switch"`
	Temperature       sql.NullFloat64 `bun:"temperature"`
	AccelX            sql.NullFloat64 `bun:"accel_x"`
	AccelY            sql.NullFloat64 `bun:"accel_y"`
	AccelZ            sql.NullFloat64 `bun:"accel_z"`
	GyroX             sql.NullFloat64 `bun:"gyro_x"`
	GyroY             sql.NullFloat64 `bun:"gyro_y"`
	GyroZ             sql.NullFloat64 `bun:"gyro_z"`
}

func (m sensorRowModel) toModel() model.SensorRow {
	return model.SensorRow{
		ID:                m.ID,
		Timestamp:         m.Timestamp,
		VibrationDetected: m.VibrationDetected,
		MotionDetected:    m.MotionDetected,
		LDRValue:          m.LDRValue,
		ReedSwitch:        m.ReedSwitch,
		Temperature:       m.Temperature,
		AccelX:            m.AccelX,
		AccelY:            m.AccelY,
		AccelZ:            m.AccelZ,
		GyroX:             m.GyroX,
		GyroY:             m.GyroY,
		GyroZ:             m.GyroZ,
	}
}

// valueRowModel maps vibration_data and gpio_sensor_data. sensor_type is
// only selected when a filter needs it, since vibration_data lacks it.
type valueRowModel struct {
	bun.BaseModel `bun:"table:vibration_data,alias:r"`

	ID        int64           `bun:"id,pk,autoincrement"`
	Timestamp time.Time       `bun:"timestamp"`
	Value     sql.NullFloat64 `bun:"value"`
}

// SQLStore is the ReadingStore for sqlite, postgres and mysql.
type SQLStore struct {
	bun *bun.DB
}

// NewSQLStore wraps an existing *bun.DB.
func NewSQLStore(b *bun.DB) *SQLStore { return &SQLStore{bun: b} }

// BunDB exposes the underlying handle, mainly for tests and migrations.
func (s *SQLStore) BunDB() *bun.DB { return s.bun }

// LatestSensorRow returns the newest row of table.
func (s *SQLStore) LatestSensorRow(ctx context.Context, table string) (*model.SensorRow, error) {
	var m sensorRowModel
	err := s.bun.NewSelect().
		Model(&m).
		ModelTableExpr("? AS r", bun.Ident(table)).
		OrderExpr("r.timestamp DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapQuery(table, err)
	}
	row := m.toModel()
	return &row, nil
}

// LatestValueRow returns the newest row of table matching f.
func (s *SQLStore) LatestValueRow(ctx context.Context, table string, f Filter) (*model.ValueRow, error) {
	var m valueRowModel
	q := s.bun.NewSelect().
		Model(&m).
		ModelTableExpr("? AS r", bun.Ident(table))
	if !f.IsZero() {
		q = q.Where("r.? = ?", bun.Ident(f.Column), f.Value)
	}
	err := q.OrderExpr("r.timestamp DESC").Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapQuery(table, err)
	}
	row := &model.ValueRow{ID: m.ID, Timestamp: m.Timestamp, Value: m.Value}
	if !f.IsZero() {
		row.SensorType = sql.NullString{String: f.Value, Valid: true}
	}
	return row, nil
}

// RecentSensorRows returns up to limit rows of table, newest first.
func (s *SQLStore) RecentSensorRows(ctx context.Context, table string, limit int) ([]model.SensorRow, error) {
	if limit <= 0 {
		return nil, nil
	}
	var ms []sensorRowModel
	err := s.bun.NewSelect().
		Model(&ms).
		ModelTableExpr("? AS r", bun.Ident(table)).
		OrderExpr("r.timestamp DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, wrapQuery(table, err)
	}
	out := make([]model.SensorRow, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.toModel())
	}
	return out, nil
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error { return s.bun.Close() }
