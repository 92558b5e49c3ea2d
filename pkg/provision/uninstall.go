package provision

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sshbot/sshbotctl/pkg/host"
)

// UninstallOptions tune what Uninstall removes.
type UninstallOptions struct {
	// Purge also removes the install root and log directory. The service
	// user and installed packages are always left in place.
	Purge bool
}

// Uninstall stops and disables the unit, removes its descriptor, and
// reloads the supervisor. Stop/disable failures are tolerated: the unit may
// never have been registered on this host.
func Uninstall(ctx context.Context, env host.Environment, target Target, opts UninstallOptions, log zerolog.Logger) error {
	if _, err := env.Supervisor(ctx, "stop", target.UnitName); err != nil {
		log.Warn().Err(err).Msg("could not stop unit")
	}
	if _, err := env.Supervisor(ctx, "disable", target.UnitName); err != nil {
		log.Warn().Err(err).Msg("could not disable unit")
	}

	if err := env.RemoveFile(target.UnitPath); err != nil {
		return err
	}

	if _, err := env.Supervisor(ctx, "daemon-reload"); err != nil {
		return err
	}

	if opts.Purge {
		if err := env.RemoveAll(target.InstallDir); err != nil {
			return err
		}
		if err := env.RemoveAll(target.LogDir); err != nil {
			return err
		}
	}

	return nil
}
