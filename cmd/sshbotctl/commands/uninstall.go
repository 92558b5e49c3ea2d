package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/sshbot/sshbotctl/pkg/host"
	"github.com/sshbot/sshbotctl/pkg/provision"
)

func newUninstallCommand() *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the SSHBot service registration",
		Long: `Stop and disable the SSHBot unit, remove its descriptor, and reload
systemd.

The service user and installed system packages are left in place. With
--purge the install root and log directory are removed as well.`,
		Example: `  # Deregister the service, keep its files
  sudo sshbotctl uninstall

  # Deregister and delete all bot data and logs
  sudo sshbotctl uninstall --purge`,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := provision.NewTarget(installDir, logDir, serviceUser, unitName)

			err := provision.Uninstall(cmd.Context(), host.NewLocal(), target,
				provision.UninstallOptions{Purge: purge}, log.Logger)
			if err != nil {
				return err
			}

			log.Info().Str("unit", target.UnitName).Bool("purged", purge).Msg("SSHBot uninstalled")
			return nil
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "also remove the install root and log directory")

	return cmd
}
