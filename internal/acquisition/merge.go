package acquisition

import (
	"time"

	"github.com/smartsafe/safewatch/internal/config"
	"github.com/smartsafe/safewatch/internal/model"
)

// Merge builds a snapshot from one cycle's readings. The primary row is the
// base; value rows then override the field they target. now is used as the
// timestamp when no primary row exists.
func Merge(readings []Reading, now time.Time) model.SensorSnapshot {
	s := model.SensorSnapshot{Timestamp: now}

	for _, r := range readings {
		if r.Primary == nil {
			continue
		}
		p := r.Primary
		s.Timestamp = p.Timestamp
		s.Vibration = p.VibrationDetected.Valid && p.VibrationDetected.Bool
		s.Motion = p.MotionDetected.Valid && p.MotionDetected.Bool
		if p.LDRValue.Valid {
			s.LightLevel = ptr(p.LDRValue.Float64)
		}
		if p.ReedSwitch.Valid {
			s.Reed = ptr(model.ReedFromValue(float64(p.ReedSwitch.Int64)))
		}
		if p.Temperature.Valid {
			s.Temperature = ptr(p.Temperature.Float64)
		}
		s.Acceleration = p.Acceleration()
		s.AngularVelocity = p.AngularVelocity()
		break
	}

	for _, r := range readings {
		if r.Value == nil || !r.Value.Value.Valid {
			continue
		}
		v := r.Value.Value.Float64
		switch r.Field {
		case config.FieldVibration:
			s.Vibration = v == 1
		case config.FieldMotion:
			s.Motion = v == 1
		case config.FieldLight:
			s.LightLevel = ptr(v)
		case config.FieldReed:
			s.Reed = ptr(model.ReedFromValue(v))
		case config.FieldTemperature:
			s.Temperature = ptr(v)
		}
	}
	return s
}

func ptr[T any](v T) *T { return &v }
