package fusion

import (
	"testing"

	"github.com/smartsafe/safewatch/internal/model"
)

func ptr[T any](v T) *T { return &v }

func baselineEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestBaseline_AtReferenceIsSafe(t *testing.T) {
	e := baselineEngine(t)
	res := e.Evaluate(model.SensorSnapshot{Acceleration: &model.Vector3{X: -2.32, Y: 0.45, Z: -9.22}})
	if !res.Verdict.Safe {
		t.Fatalf("expected safe at reference, got %+v", res.Verdict)
	}
	if len(res.Alerts) != 0 {
		t.Fatalf("expected no alerts, got %v", res.Alerts)
	}
}

func TestBaseline_WithinToleranceIsSafe(t *testing.T) {
	e := baselineEngine(t)
	cases := []model.Vector3{
		{X: -2.32 + 0.99, Y: 0.45, Z: -9.22},
		{X: -2.32, Y: 0.45 - 0.99, Z: -9.22},
		{X: -1.5, Y: 1.2, Z: -8.5},
	}
	for _, a := range cases {
		a := a
		res := e.Evaluate(model.SensorSnapshot{Acceleration: &a})
		if !res.Verdict.Safe {
			t.Errorf("accel %+v: expected safe, got %+v", a, res.Verdict)
		}
	}
}

func TestBaseline_AnyAxisBeyondToleranceIsUnsafe(t *testing.T) {
	e := baselineEngine(t)
	cases := []model.Vector3{
		{X: 5.0, Y: 0.45, Z: -9.22},
		{X: -2.32, Y: 1.46, Z: -9.22},
		{X: -2.32, Y: 0.45, Z: -7.0},
	}
	for _, a := range cases {
		a := a
		res := e.Evaluate(model.SensorSnapshot{Acceleration: &a})
		if res.Verdict.Safe {
			t.Errorf("accel %+v: expected unsafe", a)
		}
		if res.Verdict.Reason == "" {
			t.Errorf("accel %+v: expected a reason", a)
		}
		if len(res.Alerts) != 1 || res.Alerts[0].Kind != AlertMotion {
			t.Errorf("accel %+v: expected single motion alert, got %v", a, res.Alerts)
		}
	}
}

func TestMissingAccelerationFailsOpen(t *testing.T) {
	for _, mode := range []Mode{ModeBaseline, ModeMagnitude} {
		cfg := DefaultConfig()
		cfg.Mode = mode
		e, err := New(cfg)
		if err != nil {
			t.Fatalf("New(%s): %v", mode, err)
		}
		res := e.Evaluate(model.SensorSnapshot{AngularVelocity: &model.Vector3{X: 50}})
		if !res.Verdict.Safe {
			t.Fatalf("%s: expected fail-open safe verdict", mode)
		}
	}
}

func TestMagnitude(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeMagnitude
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// At rest, tilted: magnitude ~9.8 regardless of orientation.
	res := e.Evaluate(model.SensorSnapshot{
		Acceleration:    &model.Vector3{X: 0, Y: 6.93, Z: 6.93},
		AngularVelocity: &model.Vector3{X: 0.01, Y: 0.02, Z: 0.01},
	})
	if !res.Verdict.Safe {
		t.Fatalf("expected safe at rest, got %+v (diag %+v)", res.Verdict, res.Diagnostics)
	}

	res = e.Evaluate(model.SensorSnapshot{
		Acceleration:    &model.Vector3{X: 0, Y: 0, Z: 14},
		AngularVelocity: &model.Vector3{},
	})
	if res.Verdict.Safe {
		t.Fatalf("expected unsafe on acceleration spike")
	}
	if res.Diagnostics.AccelDeviation < 4.1 || res.Diagnostics.AccelDeviation > 4.3 {
		t.Fatalf("unexpected deviation %f", res.Diagnostics.AccelDeviation)
	}

	res = e.Evaluate(model.SensorSnapshot{
		Acceleration:    &model.Vector3{X: 0, Y: 0, Z: 9.8},
		AngularVelocity: &model.Vector3{X: 1.5, Y: 0, Z: 0},
	})
	if res.Verdict.Safe {
		t.Fatalf("expected unsafe on rotation")
	}
	if res.Diagnostics.GyroMagnitude != 1.5 {
		t.Fatalf("expected gyro magnitude 1.5, got %f", res.Diagnostics.GyroMagnitude)
	}
}

func TestMagnitude_MissingGyroIsReported(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeMagnitude
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := e.Evaluate(model.SensorSnapshot{Acceleration: &model.Vector3{X: 0, Y: 0, Z: 9.8}})
	if !res.Verdict.Safe || !res.Diagnostics.GyroMissing {
		t.Fatalf("expected safe verdict flagged as gyro-less, got %+v %+v", res.Verdict, res.Diagnostics)
	}
	res = e.Evaluate(model.SensorSnapshot{
		Acceleration:    &model.Vector3{X: 0, Y: 0, Z: 9.8},
		AngularVelocity: &model.Vector3{},
	})
	if res.Diagnostics.GyroMissing {
		t.Fatalf("gyro present, diagnostics should not flag it")
	}
}

func TestIndependentAlerts(t *testing.T) {
	e := baselineEngine(t)
	res := e.Evaluate(model.SensorSnapshot{
		Vibration:    true,
		LightLevel:   ptr(720.0),
		Acceleration: &model.Vector3{X: -2.32, Y: 0.45, Z: -9.22},
	})
	if !res.Verdict.Safe {
		t.Fatalf("vibration and light must not change the verdict")
	}
	if len(res.Alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %v", res.Alerts)
	}
	if res.Alerts[0].Kind != AlertVibration || res.Alerts[1].Kind != AlertLight || res.Alerts[1].Value != 720 {
		t.Fatalf("unexpected alerts %v", res.Alerts)
	}

	// Exactly at the threshold does not alert.
	res = e.Evaluate(model.SensorSnapshot{LightLevel: ptr(500.0)})
	if len(res.Alerts) != 0 {
		t.Fatalf("expected no alert at threshold, got %v", res.Alerts)
	}
}

func TestResolveMode(t *testing.T) {
	cases := []struct {
		in   Mode
		gyro bool
		want Mode
	}{
		{ModeAuto, true, ModeMagnitude},
		{ModeAuto, false, ModeBaseline},
		{"", true, ModeMagnitude},
		{ModeBaseline, true, ModeBaseline},
		{ModeMagnitude, false, ModeMagnitude},
	}
	for _, c := range cases {
		got, err := ResolveMode(c.in, c.gyro)
		if err != nil || got != c.want {
			t.Errorf("ResolveMode(%q, %v) = %q, %v; want %q", c.in, c.gyro, got, err, c.want)
		}
	}
	if _, err := ResolveMode("tilt", false); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if _, err := New(Config{Mode: ModeAuto}); err == nil {
		t.Fatalf("expected New to reject unresolved mode")
	}
}
