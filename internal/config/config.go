package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flagBindings maps CLI flag names onto config keys. Only flags that exist on
// the command are bound.
var flagBindings = map[string]string{
	"db-type":   "database.type",
	"db-dsn":    "database.dsn",
	"lang":      "language",
	"log-level": "log_level",
	"interval":  "poll.interval",
	"addr":      "server.addr",
}

// envAliases keeps the legacy PI_SERVO_* and MAILGUN_* variable names
// working alongside the SAFEWATCH_* names.
var envAliases = map[string][]string{
	"actuator.url":           {"SAFEWATCH_ACTUATOR_URL", "PI_SERVO_URL"},
	"actuator.secret":        {"SAFEWATCH_ACTUATOR_SECRET", "PI_SERVO_SECRET"},
	"notify.mailgun.api_key": {"SAFEWATCH_NOTIFY_MAILGUN_API_KEY", "MAILGUN_API_KEY"},
	"notify.mailgun.domain":  {"SAFEWATCH_NOTIFY_MAILGUN_DOMAIN", "MAILGUN_DOMAIN"},
	"gate.password":          {"SAFEWATCH_GATE_PASSWORD"},
}

// getConfigPath returns the full path for the configuration file.
func getConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Safewatch")
		default:
			configDir = "/etc/safewatch"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "safewatch")
	}

	return filepath.Join(configDir, "safewatch.yaml"), nil
}

// ConfigPath returns the per-user configuration file path.
func ConfigPath() (string, error) {
	return getConfigPath(false)
}

// LoadConfig layers defaults, the first safewatch.yaml found (or the explicit
// file), SAFEWATCH_* environment variables and bound flags, then decodes the
// result into T. A viper.ConfigFileNotFoundError is returned together with a
// fully decoded T so callers can continue on defaults.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, additionalConfigFilePath *string) (T, error) {
	var c T
	v := viper.New()

	// 1. Defaults
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// 2. File search paths
	v.SetConfigName("safewatch")
	v.SetConfigType("yaml")
	if additionalConfigFilePath != nil && *additionalConfigFilePath != "" {
		v.SetConfigFile(*additionalConfigFilePath)
	}
	if userConfigPath, err := getConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := getConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	// 3. Primary config file. Not found is reported after decoding.
	var notFound error
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return c, err
		}
		notFound = err
	}

	// 4. Environment
	v.SetEnvPrefix("safewatch")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return c, err
		}
	}

	// 5. Flags
	if cmd != nil {
		for name, key := range flagBindings {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return c, err
				}
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, notFound
}

// WriteConfigFile writes c as YAML to the user (or system) config path.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := getConfigPath(system)
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600: the file carries the actuator secret and gate password.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", err
	}
	return path, nil
}
