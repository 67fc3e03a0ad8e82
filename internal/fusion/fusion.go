// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

// Package fusion turns a merged sensor snapshot into a safety verdict.
//
// Two motion variants exist and exactly one is used per deployment:
//
//   - ModeBaseline compares each acceleration axis against a calibrated
//     at-rest reference within a tolerance. It assumes the safe is never
//     rotated and is used when the sensor set has no gyroscope.
//   - ModeMagnitude compares the acceleration magnitude against gravity and
//     the angular-velocity magnitude against a threshold. It does not depend
//     on orientation.
//
// A snapshot without acceleration is reported as safe so that a sensor
// dropout does not raise an alarm. Vibration and light checks are reported
// as separate alerts and never change the verdict.
package fusion

import (
	"fmt"
	"math"

	"github.com/smartsafe/safewatch/internal/model"
)

// Mode selects the motion variant.
type Mode string

const (
	ModeAuto      Mode = "auto"
	ModeBaseline  Mode = "baseline"
	ModeMagnitude Mode = "magnitude"
)

// ResolveMode picks the concrete variant for a deployment. Auto becomes
// magnitude when the configured sources provide angular velocity.
func ResolveMode(m Mode, hasAngularVelocity bool) (Mode, error) {
	switch m {
	case ModeBaseline, ModeMagnitude:
		return m, nil
	case ModeAuto, "":
		if hasAngularVelocity {
			return ModeMagnitude, nil
		}
		return ModeBaseline, nil
	}
	return "", fmt.Errorf("unknown fusion mode %q", m)
}

// Config holds the thresholds of both variants. Only the fields of the
// resolved mode are consulted.
type Config struct {
	Mode           Mode
	Reference      model.Vector3
	Tolerance      float64
	Gravity        float64
	AccelThreshold float64
	GyroThreshold  float64
	LightThreshold float64
}

// DefaultConfig returns the calibration of the reference installation.
func DefaultConfig() Config {
	return Config{
		Mode:           ModeBaseline,
		Reference:      model.Vector3{X: -2.32, Y: 0.45, Z: -9.22},
		Tolerance:      1.0,
		Gravity:        9.8,
		AccelThreshold: 2.0,
		GyroThreshold:  1.0,
		LightThreshold: 500,
	}
}

// AlertKind identifies an independent alarm condition.
type AlertKind string

const (
	AlertMotion    AlertKind = "motion"
	AlertVibration AlertKind = "vibration"
	AlertLight     AlertKind = "light"
)

// Alert is one alarm condition raised for a snapshot. Value carries the
// measured quantity where one exists (light level).
type Alert struct {
	Kind  AlertKind `json:"kind"`
	Value float64   `json:"value,omitempty"`
}

// Diagnostics exposes the magnitudes the verdict was computed from.
type Diagnostics struct {
	AccelMagnitude   float64 `json:"accelMagnitude"`
	AccelDeviation   float64 `json:"accelDeviation"`
	GyroMagnitude    float64 `json:"gyroMagnitude"`
	MaxAxisDeviation float64 `json:"maxAxisDeviation"`
	// GyroMissing is set in magnitude mode when the snapshot had no angular
	// velocity and only the acceleration check ran.
	GyroMissing      bool    `json:"gyroMissing,omitempty"`
}

// Result is the full output of one evaluation.
type Result struct {
	Verdict     model.SafetyVerdict
	Diagnostics Diagnostics
	Alerts      []Alert
}

// Engine evaluates snapshots with a fixed configuration. It holds no state
// between calls.
type Engine struct {
	cfg Config
}

// New returns an Engine. The mode must already be resolved.
func New(cfg Config) (*Engine, error) {
	if cfg.Mode != ModeBaseline && cfg.Mode != ModeMagnitude {
		return nil, fmt.Errorf("fusion mode must be resolved, got %q", cfg.Mode)
	}
	if cfg.Tolerance < 0 || cfg.AccelThreshold < 0 || cfg.GyroThreshold < 0 {
		return nil, fmt.Errorf("fusion thresholds must not be negative")
	}
	return &Engine{cfg: cfg}, nil
}

// Mode reports the variant in use.
func (e *Engine) Mode() Mode { return e.cfg.Mode }

// Evaluate computes the verdict and alerts for s.
func (e *Engine) Evaluate(s model.SensorSnapshot) Result {
	var res Result
	switch e.cfg.Mode {
	case ModeMagnitude:
		res.Verdict, res.Diagnostics = e.magnitude(s)
	default:
		res.Verdict, res.Diagnostics = e.baseline(s)
	}

	if !res.Verdict.Safe {
		res.Alerts = append(res.Alerts, Alert{Kind: AlertMotion})
	}
	if s.Vibration {
		res.Alerts = append(res.Alerts, Alert{Kind: AlertVibration})
	}
	if s.LightLevel != nil && *s.LightLevel > e.cfg.LightThreshold {
		res.Alerts = append(res.Alerts, Alert{Kind: AlertLight, Value: *s.LightLevel})
	}
	return res
}

func (e *Engine) baseline(s model.SensorSnapshot) (model.SafetyVerdict, Diagnostics) {
	if s.Acceleration == nil {
		return model.SafetyVerdict{Safe: true}, Diagnostics{}
	}
	a := *s.Acceleration
	d := a.Sub(e.cfg.Reference)
	diag := Diagnostics{AccelMagnitude: a.Norm()}

	axes := []struct {
		name string
		dev  float64
	}{{"x", math.Abs(d.X)}, {"y", math.Abs(d.Y)}, {"z", math.Abs(d.Z)}}

	verdict := model.SafetyVerdict{Safe: true}
	for _, ax := range axes {
		if ax.dev > diag.MaxAxisDeviation {
			diag.MaxAxisDeviation = ax.dev
		}
		if ax.dev > e.cfg.Tolerance && verdict.Safe {
			verdict = model.SafetyVerdict{
				Safe:   false,
				Reason: fmt.Sprintf("acceleration %s-axis off reference by %.2f (tolerance %.2f)", ax.name, ax.dev, e.cfg.Tolerance),
			}
		}
	}
	return verdict, diag
}

func (e *Engine) magnitude(s model.SensorSnapshot) (model.SafetyVerdict, Diagnostics) {
	if s.Acceleration == nil {
		return model.SafetyVerdict{Safe: true}, Diagnostics{}
	}
	diag := Diagnostics{AccelMagnitude: s.Acceleration.Norm()}
	diag.AccelDeviation = math.Abs(diag.AccelMagnitude - e.cfg.Gravity)
	if s.AngularVelocity != nil {
		diag.GyroMagnitude = s.AngularVelocity.Norm()
	} else {
		diag.GyroMissing = true
	}

	switch {
	case diag.AccelDeviation > e.cfg.AccelThreshold:
		return model.SafetyVerdict{
			Safe:   false,
			Reason: fmt.Sprintf("acceleration deviates from gravity by %.2f (threshold %.2f)", diag.AccelDeviation, e.cfg.AccelThreshold),
		}, diag
	case diag.GyroMagnitude > e.cfg.GyroThreshold:
		return model.SafetyVerdict{
			Safe:   false,
			Reason: fmt.Sprintf("angular velocity %.2f exceeds threshold %.2f", diag.GyroMagnitude, e.cfg.GyroThreshold),
		}, diag
	}
	return model.SafetyVerdict{Safe: true}, diag
}
