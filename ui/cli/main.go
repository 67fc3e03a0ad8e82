// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface for Safewatch using Cobra. It
// defines the root command, the shared flags and configuration bootstrap,
// and the version handling. The subcommands live in commands.go.

package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/charmbracelet/log"
	"github.com/smartsafe/safewatch/internal/config"
	"github.com/smartsafe/safewatch/internal/db"
	"github.com/smartsafe/safewatch/internal/i18n"
	"github.com/smartsafe/safewatch/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"   // set by the linker
var gitCommit = "dev" // short commit SHA, set at build time
var buildDate = ""    // RFC3339, set at build time

var cfgFile string
var verbose bool
var showVersionFlag bool

var appConfig config.Config

func setupDefaultServices(cmd *cobra.Command, args []string) error {
	configPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, config.Defaults(), configPath)
	// No config file is expected on first run; persist the defaults so the
	// user has something to edit.
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		if path, writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			log.Warnf("could not write default config file: %v", writeErr)
		} else {
			log.Infof("wrote default config to %s", path)
		}
	} else if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if appConfig.Language == "" {
		appConfig.Language = "en"
	}
	i18n.Init(appConfig.Language)

	level := appConfig.LogLevel
	if verbose {
		level = "debug"
		db.SetDebug(true)
	}
	if level != "" {
		if err := logging.SetLevel(level); err != nil {
			return &config.ConfigError{Keys: []string{"log_level"}, Reason: err.Error()}
		}
	}
	return nil
}

// Execute runs the CLI entrypoint. The main package calls it and handles
// the process exit.
func Execute() error {
	return NewRootCmd().Execute()
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}

// NewRootCmd creates a fresh root command with all subcommands attached.
// Tests call it once per case.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "safewatch",
		Short: "Safewatch monitors a smart safe and relays lock commands.",
		Long: `Safewatch polls the sensor tables of a smart safe, fuses the readings
into a safety verdict, keeps a log of security warnings and relays signed
lock/unlock commands to the actuator.

Running without a subcommand launches the terminal dashboard.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if showVersionFlag {
				fmt.Fprintln(cmd.OutOrStdout(), compositeVersion())
				os.Exit(0)
			}
			return setupDefaultServices(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd)
		},
	}
	cmd.Version = compositeVersion()

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging (including store queries)")
	pf.BoolVarP(&showVersionFlag, "version", "V", false, "Print version and exit")
	pf.StringVar(&cfgFile, "config", "", "config file")
	pf.String("db-type", "", `Database type ("sqlite", "postgres", "mysql", "mongodb")`)
	pf.String("db-dsn", "", "Database connection string (DSN)")
	pf.String("lang", "", `Language ("en", "de")`)
	pf.String("log-level", "", `Log level ("debug", "info", "warn", "error")`)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", v)
			fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}

	cmd.AddCommand(
		newServeCmd(),
		newWatchCmd(),
		newStatusCmd(),
		newLockCmd(),
		newUnlockCmd(),
		newLogCmd(),
		newMigrateCmd(),
		newConfigCmd(),
		newDebugCmd(),
		versionCmd,
	)
	return cmd
}

// resolveBuildVersion computes the best-available version, commit and build
// date. A nil info reads the build info of the running binary.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	versionOut, commitOut, dateOut = version, gitCommit, buildDate

	if info == nil {
		local, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		info = local
	}

	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		versionOut = info.Main.Version
	}
	if versionOut == "dev" || versionOut == "(devel)" {
		for _, dep := range info.Deps {
			if dep.Path == "github.com/smartsafe/safewatch" && dep.Version != "" {
				versionOut = dep.Version
				break
			}
		}
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if s.Value != "" && commitOut == "dev" {
				commitOut = s.Value
				if len(commitOut) > 7 {
					commitOut = commitOut[:7]
				}
			}
		case "vcs.time":
			if s.Value != "" && dateOut == "" {
				dateOut = s.Value
			}
		}
	}
	return
}
