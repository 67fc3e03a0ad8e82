// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads and validates Safewatch configuration.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the full application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Language string         `mapstructure:"language" yaml:"language"`
	LogLevel string         `mapstructure:"log_level" yaml:"log_level"`
	Poll     PollConfig     `mapstructure:"poll" yaml:"poll"`
	Sources  []SourceConfig `mapstructure:"sources" yaml:"sources"`
	Safety   SafetyConfig   `mapstructure:"safety" yaml:"safety"`
	Actuator ActuatorConfig `mapstructure:"actuator" yaml:"actuator"`
	Gate     GateConfig     `mapstructure:"gate" yaml:"gate"`
	Notify   NotifyConfig   `mapstructure:"notify" yaml:"notify"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
	// Name is the MongoDB database name; SQL backends ignore it.
	Name string `mapstructure:"name" yaml:"name"`
}

type PollConfig struct {
	Interval     time.Duration `mapstructure:"interval" yaml:"interval"`
	QueryTimeout time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
}

// Source kinds.
const (
	SourcePrimary = "primary"
	SourceValue   = "value"
)

// Value source target fields.
const (
	FieldVibration   = "vibration"
	FieldMotion      = "motion"
	FieldLight       = "light"
	FieldReed        = "reed"
	FieldTemperature = "temperature"
)

// SourceConfig describes one table (or collection) polled per cycle.
type SourceConfig struct {
	Name                string `mapstructure:"name" yaml:"name"`
	Table               string `mapstructure:"table" yaml:"table"`
	Kind                string `mapstructure:"kind" yaml:"kind"`
	Field               string `mapstructure:"field" yaml:"field,omitempty"`
	DiscriminatorColumn string `mapstructure:"discriminator_column" yaml:"discriminator_column,omitempty"`
	Discriminator       string `mapstructure:"discriminator" yaml:"discriminator,omitempty"`
	// AngularVelocity marks a primary source whose rows carry gyroscope
	// columns. It drives the "auto" fusion mode.
	AngularVelocity bool `mapstructure:"angular_velocity" yaml:"angular_velocity,omitempty"`
}

type VectorConfig struct {
	X float64 `mapstructure:"x" yaml:"x"`
	Y float64 `mapstructure:"y" yaml:"y"`
	Z float64 `mapstructure:"z" yaml:"z"`
}

type SafetyConfig struct {
	Mode           string       `mapstructure:"mode" yaml:"mode"`
	Reference      VectorConfig `mapstructure:"reference" yaml:"reference"`
	Tolerance      float64      `mapstructure:"tolerance" yaml:"tolerance"`
	Gravity        float64      `mapstructure:"gravity" yaml:"gravity"`
	AccelThreshold float64      `mapstructure:"accel_threshold" yaml:"accel_threshold"`
	GyroThreshold  float64      `mapstructure:"gyro_threshold" yaml:"gyro_threshold"`
	LightThreshold float64      `mapstructure:"light_threshold" yaml:"light_threshold"`
}

type ActuatorConfig struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	Secret  string        `mapstructure:"secret" yaml:"secret"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Require reports a ConfigError when the actuator path cannot be used.
func (a ActuatorConfig) Require() error {
	var missing []string
	if strings.TrimSpace(a.URL) == "" {
		missing = append(missing, "actuator.url")
	}
	if a.Secret == "" {
		missing = append(missing, "actuator.secret")
	}
	if len(missing) > 0 {
		return &ConfigError{Keys: missing, Reason: "required for lock commands"}
	}
	return nil
}

type GateConfig struct {
	Password string `mapstructure:"password" yaml:"password"`
}

type MailgunConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	Domain    string `mapstructure:"domain" yaml:"domain"`
	Recipient string `mapstructure:"recipient" yaml:"recipient"`
	Sender    string `mapstructure:"sender" yaml:"sender,omitempty"`
	// BaseURL overrides the Mailgun API endpoint (EU region, tests).
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

type NotifyConfig struct {
	Mailgun    MailgunConfig `mapstructure:"mailgun" yaml:"mailgun"`
	WebhookURL string        `mapstructure:"webhook_url" yaml:"webhook_url,omitempty"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Defaults returns the flat default map handed to LoadConfig.
func Defaults() map[string]any {
	return map[string]any{
		"database.type":            "sqlite",
		"database.dsn":             "./safewatch.db",
		"database.name":            "safewatch",
		"language":                 "en",
		"log_level":                "info",
		"poll.interval":            "5s",
		"poll.query_timeout":       "3s",
		"sources":                  DefaultSources(),
		"safety.mode":              "auto",
		"safety.reference.x":       -2.32,
		"safety.reference.y":       0.45,
		"safety.reference.z":       -9.22,
		"safety.tolerance":         1.0,
		"safety.gravity":           9.8,
		"safety.accel_threshold":   2.0,
		"safety.gyro_threshold":    1.0,
		"safety.light_threshold":   500.0,
		"actuator.url":             "",
		"actuator.secret":          "",
		"actuator.timeout":         "10s",
		"gate.password":            "",
		"notify.mailgun.api_key":   "",
		"notify.mailgun.domain":    "",
		"notify.mailgun.recipient": "",
		"notify.mailgun.sender":    "",
		"notify.mailgun.base_url":  "",
		"notify.webhook_url":       "",
		"notify.timeout":           "10s",
		"server.addr":              ":8080",
	}
}

// DefaultSources mirrors the three tables the safe firmware writes to. The
// gyroscope columns exist but are not trusted by default, so "auto" resolves
// to the baseline check; set angular_velocity to opt into magnitude mode.
func DefaultSources() []map[string]any {
	return []map[string]any{
		{"name": "sensor_data", "table": "sensor_data", "kind": SourcePrimary},
		{"name": "vibration", "table": "vibration_data", "kind": SourceValue, "field": FieldVibration},
		{"name": "pir", "table": "gpio_sensor_data", "kind": SourceValue, "field": FieldMotion,
			"discriminator_column": "sensor_type", "discriminator": "PIR"},
	}
}

// Validate checks everything except the actuator, which is only required
// on the command path.
func (c Config) Validate() error {
	if c.Poll.Interval <= 0 {
		return &ConfigError{Keys: []string{"poll.interval"}, Reason: "must be positive"}
	}
	if c.Poll.QueryTimeout < 0 {
		return &ConfigError{Keys: []string{"poll.query_timeout"}, Reason: "must not be negative"}
	}
	if len(c.Sources) == 0 {
		return &ConfigError{Keys: []string{"sources"}, Reason: "at least one source is required"}
	}
	primaries := 0
	names := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		key := fmt.Sprintf("sources[%d]", i)
		if s.Name == "" || s.Table == "" {
			return &ConfigError{Keys: []string{key}, Reason: "name and table are required"}
		}
		if names[s.Name] {
			return &ConfigError{Keys: []string{key}, Reason: fmt.Sprintf("duplicate source name %q", s.Name)}
		}
		names[s.Name] = true
		switch s.Kind {
		case SourcePrimary:
			primaries++
		case SourceValue:
			switch s.Field {
			case FieldVibration, FieldMotion, FieldLight, FieldReed, FieldTemperature:
			default:
				return &ConfigError{Keys: []string{key + ".field"}, Reason: fmt.Sprintf("unknown field %q", s.Field)}
			}
		default:
			return &ConfigError{Keys: []string{key + ".kind"}, Reason: fmt.Sprintf("unknown kind %q", s.Kind)}
		}
		if (s.Discriminator == "") != (s.DiscriminatorColumn == "") {
			return &ConfigError{Keys: []string{key}, Reason: "discriminator and discriminator_column go together"}
		}
	}
	if primaries > 1 {
		return &ConfigError{Keys: []string{"sources"}, Reason: "at most one primary source"}
	}
	switch c.Safety.Mode {
	case "", "auto", "baseline", "magnitude":
	default:
		return &ConfigError{Keys: []string{"safety.mode"}, Reason: fmt.Sprintf("unknown mode %q", c.Safety.Mode)}
	}
	if c.Safety.Tolerance < 0 || c.Safety.AccelThreshold < 0 || c.Safety.GyroThreshold < 0 {
		return &ConfigError{Keys: []string{"safety"}, Reason: "thresholds must not be negative"}
	}
	return nil
}

// HasAngularVelocity reports whether any configured source carries
// gyroscope readings.
func (c Config) HasAngularVelocity() bool {
	for _, s := range c.Sources {
		if s.Kind == SourcePrimary && s.AngularVelocity {
			return true
		}
	}
	return false
}
