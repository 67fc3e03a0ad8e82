// Copyright (c) 2026 Safewatch Team
// Safewatch - smart safe monitoring
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/smartsafe/safewatch/internal/acquisition"
	"github.com/smartsafe/safewatch/internal/app"
	"github.com/smartsafe/safewatch/internal/config"
	"github.com/smartsafe/safewatch/internal/db"
	"github.com/smartsafe/safewatch/internal/gate"
	"github.com/smartsafe/safewatch/internal/i18n"
	"github.com/smartsafe/safewatch/internal/logging"
	"github.com/smartsafe/safewatch/internal/model"
	"github.com/smartsafe/safewatch/internal/notify"
	"github.com/smartsafe/safewatch/internal/relay"
	"github.com/smartsafe/safewatch/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the acquisition loop and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := app.New(ctx, appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return a.Serve(ctx, appConfig.Server.Addr)
		},
	}
	cmd.Flags().Duration("interval", 0, "Polling interval (e.g. 5s)")
	cmd.Flags().String("addr", "", "HTTP listen address (e.g. :8080)")
	return cmd
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open the terminal dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd)
		},
	}
	cmd.Flags().Duration("interval", 0, "Polling interval (e.g. 5s)")
	return cmd
}

// runWatch drives the dashboard. Logging is moved off the terminal while the
// dashboard owns the screen.
func runWatch(cmd *cobra.Command) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := app.New(ctx, appConfig)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	logging.SetOutput(io.Discard)
	defer logging.SetOutput(os.Stderr)

	states, unsubscribe := a.Loop.Subscribe()
	defer unsubscribe()

	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()
	go func() { _ = a.Loop.Run(loopCtx) }()

	m := tui.New(states, a.Loop.State(), a.Ledger, a.Gate, a.Relay, appConfig.Actuator.Timeout+5*time.Second)
	return tui.Run(ctx, m)
}

func newStatusCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Run one acquisition cycle and print the verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			st, err := a.Loop.Cycle(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					acquisition.State
					Warnings []model.WarningEntry `json:"warnings"`
				}{st, a.Ledger.Entries()})
			}
			printStatus(out, st, a.Ledger.Entries())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the state as JSON")
	return cmd
}

func printStatus(w io.Writer, st acquisition.State, warnings []model.WarningEntry) {
	if st.Verdict.Safe {
		fmt.Fprintln(w, i18n.T("cli.status_safe"))
	} else {
		fmt.Fprintln(w, i18n.T("cli.status_unsafe", st.Verdict.Reason))
	}

	s := st.Snapshot
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", i18n.T("dashboard.hit_sensor"), yesNo(s.Vibration, "dashboard.hit", "dashboard.ok"))
	fmt.Fprintf(tw, "%s\t%s\n", i18n.T("dashboard.pir_sensor"), yesNo(s.Motion, "dashboard.motion", "dashboard.no_motion"))
	fmt.Fprintf(tw, "%s\t%s\n", i18n.T("dashboard.ldr_sensor"), optFloat(s.LightLevel, "%.0f"))
	reed := i18n.T("dashboard.not_available")
	if s.Reed != nil {
		reed = yesNo(*s.Reed == model.ReedOpen, "dashboard.open", "dashboard.closed")
	}
	fmt.Fprintf(tw, "%s\t%s\n", i18n.T("dashboard.reed_switch"), reed)
	fmt.Fprintf(tw, "%s\t%s\n", i18n.T("dashboard.temperature"), optFloat(s.Temperature, "%.1f °C"))
	_ = tw.Flush()

	for _, e := range warnings {
		fmt.Fprintf(w, "%s  %s\n", e.DisplayTimestamp, e.Message)
	}
}

func yesNo(b bool, yes, no string) string {
	if b {
		return i18n.T(yes)
	}
	return i18n.T(no)
}

func optFloat(v *float64, format string) string {
	if v == nil {
		return i18n.T("dashboard.not_available")
	}
	return fmt.Sprintf(format, *v)
}

// readPassword prompts on stderr. Input is not echoed when stdin is a
// terminal; otherwise one line is read.
var readPassword = func(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), i18n.T("cli.password_prompt"))
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(b), err
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLockCmd() *cobra.Command   { return newIntentCmd(model.IntentLock, "Lock the safe") }
func newUnlockCmd() *cobra.Command { return newIntentCmd(model.IntentUnlock, "Unlock the safe") }

// newIntentCmd builds lock/unlock. The password gate runs first; the
// attempt is reported through the notification side channel either way.
func newIntentCmd(intent model.Intent, short string) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   string(intent),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appConfig.Actuator.Require(); err != nil {
				return err
			}
			if password == "" {
				var err error
				if password, err = readPassword(cmd); err != nil {
					return fmt.Errorf("could not read password: %w", err)
				}
			}

			d := notify.NewDispatcher(notify.FromConfig(appConfig.Notify), appConfig.Notify.Timeout, nil)
			defer d.Wait()

			g := gate.New(appConfig.Gate.Password, d, nil)
			if err := g.Submit(password); err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			conf, err := relay.New(appConfig.Actuator).Send(ctx, intent)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("lock.sent", stateLabel(conf.State)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Gate password (prompted when omitted)")
	return cmd
}

func stateLabel(s model.LockState) string {
	if s == model.Unlocked {
		return i18n.T("lock.unlocked")
	}
	return i18n.T("lock.locked")
}

func newLogCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the most recent primary sensor records",
		RunE: func(cmd *cobra.Command, args []string) error {
			table := ""
			for _, s := range appConfig.Sources {
				if s.Kind == config.SourcePrimary {
					table = s.Table
				}
			}
			if table == "" {
				return &config.ConfigError{Keys: []string{"sources"}, Reason: "no primary source configured"}
			}

			store, err := db.Open(cmd.Context(), appConfig.Database.Type, appConfig.Database.Dsn, appConfig.Database.Name)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rows, err := store.RecentSensorRows(cmd.Context(), table, limit)
			if err != nil {
				return err
			}
			printSensorLog(cmd.OutOrStdout(), rows, limit)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of records to show")
	return cmd
}

func printSensorLog(w io.Writer, rows []model.SensorRow, limit int) {
	fmt.Fprintln(w, i18n.T("cli.log_title", limit))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIMESTAMP\tVIBRATION\tMOTION\tLDR\tREED\tTEMP\tACCEL\tGYRO")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			i18n.FormatTimestamp(r.Timestamp),
			nullBool(r.VibrationDetected.Valid, r.VibrationDetected.Bool),
			nullBool(r.MotionDetected.Valid, r.MotionDetected.Bool),
			nullFloat(r.LDRValue.Valid, r.LDRValue.Float64, "%.0f"),
			nullReed(r),
			nullFloat(r.Temperature.Valid, r.Temperature.Float64, "%.1f"),
			vector(r.Acceleration()),
			vector(r.AngularVelocity()),
		)
	}
	_ = tw.Flush()
}

func nullBool(valid, v bool) string {
	if !valid {
		return "-"
	}
	if v {
		return "1"
	}
	return "0"
}

func nullFloat(valid bool, v float64, format string) string {
	if !valid {
		return "-"
	}
	return fmt.Sprintf(format, v)
}

func nullReed(r model.SensorRow) string {
	if !r.ReedSwitch.Valid {
		return "-"
	}
	return string(model.ReedFromValue(float64(r.ReedSwitch.Int64)))
}

func vector(v *model.Vector3) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f/%.2f/%.2f", v.X, v.Y, v.Z)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the sensor tables in the configured SQL database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.Migrate(appConfig.Database.Type, appConfig.Database.Dsn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.migrated", appConfig.Database.Type))
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var system bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteConfigFile(&appConfig, system)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.config_written", path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&system, "system", false, "Write the system-wide file instead of the per-user one")
	cmd.AddCommand(initCmd)
	return cmd
}
