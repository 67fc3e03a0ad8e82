package acquisition

import (
	"database/sql"
	"testing"
	"time"

	"github.com/smartsafe/safewatch/internal/config"
	"github.com/smartsafe/safewatch/internal/model"
)

func TestMerge_ValueRowsOverridePrimary(t *testing.T) {
	p := &model.SensorRow{
		Timestamp:         ts0,
		VibrationDetected: sql.NullBool{Bool: true, Valid: true},
		LDRValue:          sql.NullFloat64{Float64: 10, Valid: true},
		ReedSwitch:        sql.NullInt64{Int64: 0, Valid: true},
		GyroX:             sql.NullFloat64{Float64: 0.1, Valid: true},
		GyroY:             sql.NullFloat64{Float64: 0.1, Valid: true},
	}
	readings := []Reading{
		{Primary: p},
		{Field: config.FieldVibration, Value: &model.ValueRow{Value: sql.NullFloat64{Float64: 0, Valid: true}}},
		{Field: config.FieldReed, Value: &model.ValueRow{Value: sql.NullFloat64{Float64: 1, Valid: true}}},
		{Field: config.FieldTemperature, Value: &model.ValueRow{Value: sql.NullFloat64{}}},
		{Field: config.FieldMotion},
	}
	s := Merge(readings, time.Now())

	if !s.Timestamp.Equal(ts0) {
		t.Fatalf("primary timestamp should win, got %s", s.Timestamp)
	}
	if s.Vibration {
		t.Fatalf("vibration_data row should override the primary flag")
	}
	if s.Reed == nil || *s.Reed != model.ReedOpen {
		t.Fatalf("unexpected reed %v", s.Reed)
	}
	if s.LightLevel == nil || *s.LightLevel != 10 {
		t.Fatalf("unexpected light %v", s.LightLevel)
	}
	if s.Temperature != nil || s.Motion {
		t.Fatalf("NULL or missing rows must leave fields absent: %+v", s)
	}
	if s.AngularVelocity != nil {
		t.Fatalf("partial gyro axes must not produce a vector")
	}
}
