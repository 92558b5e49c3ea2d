package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sshbot/sshbotctl/pkg/host"
	"github.com/sshbot/sshbotctl/pkg/provision"
)

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the SSHBot service state",
		Long: `Show the supervisor-reported state of the SSHBot unit.

This is a read-only probe: nothing on the host is mutated.`,
		Example: `  sshbotctl status
  sshbotctl status --unit-name mybot`,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := provision.NewTarget(installDir, logDir, serviceUser, unitName)
			status := provision.Status(cmd.Context(), host.NewLocal(), target.UnitName)

			fmt.Printf("unit:     %s\n", target.UnitName)
			fmt.Printf("state:    %s\n", status.State)
			fmt.Printf("substate: %s\n", status.SubState)
			fmt.Printf("enabled:  %v\n", status.Enabled)

			if status.State != "active" {
				return fmt.Errorf("service %s is %s", target.UnitName, status.State)
			}
			return nil
		},
	}

	return cmd
}
