package model

import (
	"database/sql"
	"encoding/json"
	"time"
)

// SensorRow is one record of the primary environmental table. Every reading
// column is nullable; the acquisition loop maps NULL to "absent".
type SensorRow struct {
	ID                int64           `json:"id"`
	Timestamp         time.Time       `json:"timestamp"`
	VibrationDetected sql.NullBool    `json:"vibration_detected"`
	MotionDetected    sql.NullBool    `json:"motion_detected"`
	LDRValue          sql.NullFloat64 `json:"ldr_value"`
	ReedSwitch        sql.NullInt64   `json:"reed_switch"`
	Temperature       sql.NullFloat64 `json:"temperature"`
	AccelX            sql.NullFloat64 `json:"accel_x"`
	AccelY            sql.NullFloat64 `json:"accel_y"`
	AccelZ            sql.NullFloat64 `json:"accel_z"`
	GyroX             sql.NullFloat64 `json:"gyro_x"`
	GyroY             sql.NullFloat64 `json:"gyro_y"`
	GyroZ             sql.NullFloat64 `json:"gyro_z"`
}

// Acceleration returns the acceleration vector when all three axes are set.
func (r SensorRow) Acceleration() *Vector3 {
	return vectorOf(r.AccelX, r.AccelY, r.AccelZ)
}

// AngularVelocity returns the gyroscope vector when all three axes are set.
func (r SensorRow) AngularVelocity() *Vector3 {
	return vectorOf(r.GyroX, r.GyroY, r.GyroZ)
}

func vectorOf(x, y, z sql.NullFloat64) *Vector3 {
	if !x.Valid || !y.Valid || !z.Valid {
		return nil
	}
	return &Vector3{X: x.Float64, Y: y.Float64, Z: z.Float64}
}

// ValueRow is one record of a single-value event table such as
// vibration_data or gpio_sensor_data.
type ValueRow struct {
	ID         int64           `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	SensorType sql.NullString  `json:"sensor_type"`
	Value      sql.NullFloat64 `json:"value"`
}

func boolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	return &v.Bool
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

// MarshalJSON renders NULL columns as JSON null.
func (r SensorRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID                int64     `json:"id"`
		Timestamp         time.Time `json:"timestamp"`
		VibrationDetected *bool     `json:"vibration_detected"`
		MotionDetected    *bool     `json:"motion_detected"`
		LDRValue          *float64  `json:"ldr_value"`
		ReedSwitch        *int64    `json:"reed_switch"`
		Temperature       *float64  `json:"temperature"`
		AccelX            *float64  `json:"accel_x"`
		AccelY            *float64  `json:"accel_y"`
		AccelZ            *float64  `json:"accel_z"`
		GyroX             *float64  `json:"gyro_x"`
		GyroY             *float64  `json:"gyro_y"`
		GyroZ             *float64  `json:"gyro_z"`
	}{
		ID:                r.ID,
		Timestamp:         r.Timestamp,
		VibrationDetected: boolPtr(r.VibrationDetected),
		MotionDetected:    boolPtr(r.MotionDetected),
		LDRValue:          floatPtr(r.LDRValue),
		ReedSwitch:        intPtr(r.ReedSwitch),
		Temperature:       floatPtr(r.Temperature),
		AccelX:            floatPtr(r.AccelX),
		AccelY:            floatPtr(r.AccelY),
		AccelZ:            floatPtr(r.AccelZ),
		GyroX:             floatPtr(r.GyroX),
		GyroY:             floatPtr(r.GyroY),
		GyroZ:             floatPtr(r.GyroZ),
	})
}
