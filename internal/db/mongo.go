// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/smartsafe/safewatch/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// sensorDoc mirrors a sensor_data row stored as a document. Fields the
// collector did not write decode as nil. The detection flags are kept raw
// because collectors write them either as booleans or as 0/1 numbers.
type sensorDoc struct {
	ID                int64         `bson:"id,omitempty"`
	Timestamp         time.Time     `bson:"timestamp"`
	VibrationDetected bson.RawValue `bson:"vibration_detected,omitempty"`
	MotionDetected    bson.RawValue `bson:"motion_detected,omitempty"`
	LDRValue          *float64      `bson:"ldr_value,omitempty"`
	ReedSwitch        *int64        `bson:"reed_switch,omitempty"`
	Temperature       *float64      `bson:"temperature,omitempty"`
	AccelX            *float64      `bson:"accel_x,omitempty"`
	AccelY            *float64      `bson:"accel_y,omitempty"`
	AccelZ            *float64      `bson:"accel_z,omitempty"`
	GyroX             *float64      `bson:"gyro_x,omitempty"`
	GyroY             *float64      `bson:"gyro_y,omitempty"`
	GyroZ             *float64      `bson:"gyro_z,omitempty"`
}

func (d sensorDoc) toModel() model.SensorRow {
	return model.SensorRow{
		ID:                d.ID,
		Timestamp:         d.Timestamp,
		VibrationDetected: flagFromRaw(d.VibrationDetected),
		MotionDetected:    flagFromRaw(d.MotionDetected),
		LDRValue:          nullFloat(d.LDRValue),
		ReedSwitch:        nullInt(d.ReedSwitch),
		Temperature:       nullFloat(d.Temperature),
		AccelX:            nullFloat(d.AccelX),
		AccelY:            nullFloat(d.AccelY),
		AccelZ:            nullFloat(d.AccelZ),
		GyroX:             nullFloat(d.GyroX),
		GyroY:             nullFloat(d.GyroY),
		GyroZ:             nullFloat(d.GyroZ),
	}
}

type valueDoc struct {
	ID         int64     `bson:"id,omitempty"`
	Timestamp  time.Time `bson:"timestamp"`
	SensorType *string   `bson:"sensor_type,omitempty"`
	Value      *float64  `bson:"value,omitempty"`
}

func (d valueDoc) toModel() *model.ValueRow {
	row := &model.ValueRow{ID: d.ID, Timestamp: d.Timestamp, Value: nullFloat(d.Value)}
	if d.SensorType != nil {
		row.SensorType = sql.NullString{String: *d.SensorType, Valid: true}
	}
	return row
}

// flagFromRaw maps a boolean or numeric detection flag; any non-zero
// number counts as set. Missing, null and other types are NULL.
func flagFromRaw(v bson.RawValue) sql.NullBool {
	switch v.Type {
	case bson.TypeBoolean:
		b, ok := v.BooleanOK()
		return sql.NullBool{Bool: b, Valid: ok}
	case bson.TypeInt32:
		n, ok := v.Int32OK()
		return sql.NullBool{Bool: n != 0, Valid: ok}
	case bson.TypeInt64:
		n, ok := v.Int64OK()
		return sql.NullBool{Bool: n != 0, Valid: ok}
	case bson.TypeDouble:
		f, ok := v.DoubleOK()
		return sql.NullBool{Bool: f != 0, Valid: ok}
	}
	return sql.NullBool{}
}

// valueFilter turns a discriminator filter into a document query.
func valueFilter(f Filter) bson.D {
	if f.IsZero() {
		return bson.D{}
	}
	return bson.D{{Key: f.Column, Value: f.Value}}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// MongoStore is the ReadingStore for MongoDB. Each table name maps to a
// collection of the same name.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to uri and pings the primary before returning.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		database = "safewatch"
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	dbLogf("db: connected to MongoDB database %s", database)
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

var newestFirst = bson.D{{Key: "timestamp", Value: -1}}

// LatestSensorRow returns the newest document of collection table.
func (m *MongoStore) LatestSensorRow(ctx context.Context, table string) (*model.SensorRow, error) {
	var doc sensorDoc
	err := m.db.Collection(table).
		FindOne(ctx, bson.D{}, options.FindOne().SetSort(newestFirst)).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapQuery(table, err)
	}
	row := doc.toModel()
	return &row, nil
}

// LatestValueRow returns the newest document of collection table matching f.
func (m *MongoStore) LatestValueRow(ctx context.Context, table string, f Filter) (*model.ValueRow, error) {
	var doc valueDoc
	err := m.db.Collection(table).
		FindOne(ctx, valueFilter(f), options.FindOne().SetSort(newestFirst)).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapQuery(table, err)
	}
	return doc.toModel(), nil
}

// RecentSensorRows returns up to limit documents of table, newest first.
func (m *MongoStore) RecentSensorRows(ctx context.Context, table string, limit int) ([]model.SensorRow, error) {
	if limit <= 0 {
		return nil, nil
	}
	cursor, err := m.db.Collection(table).
		Find(ctx, bson.D{}, options.Find().SetSort(newestFirst).SetLimit(int64(limit)))
	if err != nil {
		return nil, wrapQuery(table, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []sensorDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrapQuery(table, err)
	}
	out := make([]model.SensorRow, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

// Close disconnects the client.
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
