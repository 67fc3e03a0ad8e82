// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the core data structures shared by the acquisition
// loop, the fusion engine and the presentation layers.
package model // import "github.com/smartsafe/safewatch/internal/model"

import (
	"math"
	"time"
)

// Vector3 is a three-axis sensor reading (acceleration or angular velocity).
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm returns the Euclidean length of the vector.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sub returns v - o component-wise.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// ReedState is the position of the door reed switch.
type ReedState string

const (
	ReedOpen   ReedState = "open"
	ReedClosed ReedState = "closed"
)

// ReedFromValue maps a raw GPIO value onto a ReedState. A value of 1 means
// the magnet is away from the switch, i.e. the door is open.
func ReedFromValue(v float64) ReedState {
	if v == 1 {
		return ReedOpen
	}
	return ReedClosed
}

// SensorSnapshot is the merged, single-cycle view of all sensor sources.
// Optional readings are nil when no source provided them.
type SensorSnapshot struct {
	Timestamp       time.Time  `json:"timestamp"`
	Vibration       bool       `json:"vibration"`
	Motion          bool       `json:"motion"`
	LightLevel      *float64   `json:"lightLevel,omitempty"`
	Reed            *ReedState `json:"reedState,omitempty"`
	Temperature     *float64   `json:"temperature,omitempty"`
	Acceleration    *Vector3   `json:"acceleration,omitempty"`
	AngularVelocity *Vector3   `json:"angularVelocity,omitempty"`
}

// Clone returns a deep copy so that observers never share pointers with the
// loop that produced the snapshot.
func (s SensorSnapshot) Clone() SensorSnapshot {
	c := s
	if s.LightLevel != nil {
		v := *s.LightLevel
		c.LightLevel = &v
	}
	if s.Reed != nil {
		v := *s.Reed
		c.Reed = &v
	}
	if s.Temperature != nil {
		v := *s.Temperature
		c.Temperature = &v
	}
	if s.Acceleration != nil {
		v := *s.Acceleration
		c.Acceleration = &v
	}
	if s.AngularVelocity != nil {
		v := *s.AngularVelocity
		c.AngularVelocity = &v
	}
	return c
}

// SafetyVerdict is the derived safe/unsafe decision for one snapshot.
type SafetyVerdict struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
}
