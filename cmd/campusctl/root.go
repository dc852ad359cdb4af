package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	serverURL  string
	stateDir   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "campusctl",
		Short:        "Campus Connect operator and client commands",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "server config file (operator commands)")
	cmd.PersistentFlags().StringVar(&opts.serverURL, "server", envOr("CAMPUS_SERVER", "http://localhost:5000"), "API base URL")
	cmd.PersistentFlags().StringVar(&opts.stateDir, "state-dir", defaultStateDir(), "where the session and offline registrations are kept")

	cmd.AddCommand(
		newSeedCmd(opts),
		newAdminCmd(opts),
		newStudentCmd(opts),
		newLoginCmd(opts),
		newAdminLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoAmICmd(opts),
		newEventsCmd(opts),
		newRegisterCmd(opts),
		newMineCmd(opts),
	)
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".campusctl"
	}
	return filepath.Join(dir, "campusctl")
}
