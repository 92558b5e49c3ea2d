// Package commands wires the sshbotctl CLI.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	installDir  string
	logDir      string
	serviceUser string
	unitName    string
	stateDB     string
)

// DefaultStateDB is where provisioning run history is kept.
const DefaultStateDB = "/var/lib/sshbotctl/runs.db"

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sshbotctl",
		Short: "sshbotctl - SSHBot service provisioner",
		Long: `sshbotctl provisions the SSHBot Telegram SSH bridge as a systemd
service on a Debian-family Linux host.

It creates a locked-down service user, lays out the install tree, builds a
Python virtualenv with pinned dependencies, deploys the bot artifact, writes
the secret environment file, registers a sandboxed systemd unit, and
verifies the service comes up. Every step is idempotent: re-running after a
failure converges the host to the same target state.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVar(&installDir, "install-dir", "", "install root (default /opt/sshbot)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "log directory (default /var/log/ssh-bot)")
	rootCmd.PersistentFlags().StringVar(&serviceUser, "service-user", "", "service account name (default sshbot)")
	rootCmd.PersistentFlags().StringVar(&unitName, "unit-name", "", "systemd unit name (default sshbot)")
	rootCmd.PersistentFlags().StringVar(&stateDB, "state-db", DefaultStateDB, "provisioning history database path")

	rootCmd.AddCommand(newInstallCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newUninstallCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
