package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cfg "github.com/smartsafe/safewatch/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// isolate points the user config dir at an empty temp dir and runs the test
// from there so no stray safewatch.yaml is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return tmp
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	isolate(t)

	c, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	var nf viper.ConfigFileNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected ConfigFileNotFoundError, got %T %v", err, err)
	}
	if c.Poll.Interval != 5*time.Second {
		t.Fatalf("expected 5s interval, got %s", c.Poll.Interval)
	}
	if c.Safety.Reference.X != -2.32 || c.Safety.Tolerance != 1.0 || c.Safety.LightThreshold != 500 {
		t.Fatalf("unexpected safety defaults: %+v", c.Safety)
	}
	if len(c.Sources) != 3 {
		t.Fatalf("expected 3 default sources, got %d", len(c.Sources))
	}
	if c.Sources[2].Discriminator != "PIR" || c.Sources[2].Field != cfg.FieldMotion {
		t.Fatalf("unexpected PIR source: %+v", c.Sources[2])
	}
	if c.HasAngularVelocity() {
		t.Fatalf("default sources must resolve auto mode to baseline")
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadConfig_FileEnvAndFlags(t *testing.T) {
	tmp := isolate(t)

	path := filepath.Join(tmp, "custom.yaml")
	content := `
poll:
  interval: 7s
safety:
  tolerance: 0.5
gate:
  password: from-file
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PI_SERVO_URL", "http://pi.local:8000/")
	t.Setenv("SAFEWATCH_ACTUATOR_SECRET", "s3cret")
	t.Setenv("SAFEWATCH_GATE_PASSWORD", "from-env")

	cmd := &cobra.Command{}
	cmd.Flags().String("interval", "5s", "")
	if err := cmd.Flags().Set("interval", "2s"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	c, err := cfg.LoadConfig[cfg.Config](cmd, cfg.Defaults(), &path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Poll.Interval != 2*time.Second {
		t.Fatalf("flag should win over file, got %s", c.Poll.Interval)
	}
	if c.Safety.Tolerance != 0.5 {
		t.Fatalf("file value not applied: %v", c.Safety.Tolerance)
	}
	if c.Actuator.URL != "http://pi.local:8000/" || c.Actuator.Secret != "s3cret" {
		t.Fatalf("env not applied: %+v", c.Actuator)
	}
	if c.Gate.Password != "from-env" {
		t.Fatalf("env should win over file, got %q", c.Gate.Password)
	}
}

func TestWriteConfigFile_CreatesFile(t *testing.T) {
	isolate(t)

	c := cfg.Config{Language: "de"}
	c.Database.Type = "sqlite"
	c.Database.Dsn = "./safewatch.db"
	c.Poll.Interval = 5 * time.Second

	path, err := cfg.WriteConfigFile(&c, false)
	if err != nil {
		t.Fatalf("WriteConfigFile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "language: de") {
		t.Fatalf("unexpected config content:\n%s", data)
	}
}

func TestValidate(t *testing.T) {
	base := func() cfg.Config {
		return cfg.Config{
			Poll: cfg.PollConfig{Interval: time.Second},
			Sources: []cfg.SourceConfig{
				{Name: "main", Table: "sensor_data", Kind: cfg.SourcePrimary},
				{Name: "hit", Table: "vibration_data", Kind: cfg.SourceValue, Field: cfg.FieldVibration},
			},
		}
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	cases := map[string]func(c *cfg.Config){
		"zero interval":      func(c *cfg.Config) { c.Poll.Interval = 0 },
		"no sources":         func(c *cfg.Config) { c.Sources = nil },
		"two primaries":      func(c *cfg.Config) { c.Sources[1] = cfg.SourceConfig{Name: "b", Table: "t", Kind: cfg.SourcePrimary} },
		"duplicate name":     func(c *cfg.Config) { c.Sources[1].Name = "main" },
		"unknown field":      func(c *cfg.Config) { c.Sources[1].Field = "smell" },
		"unknown kind":       func(c *cfg.Config) { c.Sources[1].Kind = "stream" },
		"half discriminator": func(c *cfg.Config) { c.Sources[1].Discriminator = "PIR" },
		"unknown mode":       func(c *cfg.Config) { c.Safety.Mode = "tilt" },
		"negative tolerance": func(c *cfg.Config) { c.Safety.Tolerance = -1 },
	}
	for name, mutate := range cases {
		c := base()
		mutate(&c)
		err := c.Validate()
		var ce *cfg.ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("%s: expected *ConfigError, got %v", name, err)
		}
	}
}

func TestActuatorRequire(t *testing.T) {
	err := cfg.ActuatorConfig{}.Require()
	var ce *cfg.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if len(ce.Keys) != 2 {
		t.Fatalf("expected both keys reported, got %v", ce.Keys)
	}
	if err := (cfg.ActuatorConfig{URL: "http://x", Secret: "s"}).Require(); err != nil {
		t.Fatalf("complete actuator config should pass: %v", err)
	}
}
