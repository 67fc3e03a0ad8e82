package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	log "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const redacted = "<redacted>"

// debugEnvPrefixes selects the environment variables that can influence the
// configuration.
var debugEnvPrefixes = []string{"SAFEWATCH_", "PI_SERVO_", "MAILGUN_"}

func isSecretKey(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "secret") || strings.Contains(n, "password") || strings.Contains(n, "api_key") || strings.Contains(n, "apikey")
}

func newDebugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debug",
		Short: "Dump debug information about config, env and flags",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "--- SAFEWATCH DEBUG ---")
			fmt.Fprintf(out, "Config file flag: %s\n", cfgFile)

			c := appConfig
			if c.Actuator.Secret != "" {
				c.Actuator.Secret = redacted
			}
			if c.Gate.Password != "" {
				c.Gate.Password = redacted
			}
			if c.Notify.Mailgun.APIKey != "" {
				c.Notify.Mailgun.APIKey = redacted
			}
			b, err := json.MarshalIndent(c, "", "  ")
			if err != nil {
				log.Errorf("could not marshal settings: %v", err)
			} else {
				fmt.Fprintln(out, "-- effective settings --")
				fmt.Fprintln(out, string(b))
			}

			fmt.Fprintln(out, "-- flags --")
			cmd.Flags().VisitAll(func(f *pflag.Flag) {
				val := f.Value.String()
				if isSecretKey(f.Name) && val != "" {
					val = redacted
				}
				fmt.Fprintf(out, "%s = %s\n", f.Name, val)
			})

			fmt.Fprintf(out, "-- environment (%s) --\n", strings.Join(debugEnvPrefixes, ", "))
			for _, e := range os.Environ() {
				for _, p := range debugEnvPrefixes {
					if !strings.HasPrefix(e, p) {
						continue
					}
					if name, _, ok := strings.Cut(e, "="); ok && isSecretKey(name) {
						e = name + "=" + redacted
					}
					fmt.Fprintln(out, e)
					break
				}
			}
			fmt.Fprintln(out, "--- END DEBUG ---")
		},
	}
}
