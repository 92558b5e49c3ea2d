package commands

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/sshbot/sshbotctl/pkg/botconfig"
	"github.com/sshbot/sshbotctl/pkg/host"
	"github.com/sshbot/sshbotctl/pkg/provision"
	"github.com/sshbot/sshbotctl/pkg/stores"
)

func newInstallCommand() *cobra.Command {
	var (
		configFile    string
		artifactPath  string
		artifactURL   string
		tokenAttempts int
		settleSec     int
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Provision the SSHBot service",
		Long: `Provision the SSHBot service on this host.

This command:
  1. Verifies root privilege and acquires the bot token
  2. Installs system packages (python3, venv, pip)
  3. Creates the sshbot service user if missing
  4. Lays out the install tree with correct ownership
  5. Builds the virtualenv and installs pinned Python dependencies
  6. Deploys the bot artifact (local copy or pinned remote fetch)
  7. Writes the secret environment file (mode 600, full overwrite)
  8. Registers and enables the sandboxed systemd unit
  9. Restarts the service and verifies it reaches active

The token is taken from the BOT_TOKEN environment variable when set,
otherwise prompted for. All steps are idempotent; re-running converges the
host without duplicate side effects.`,
		Example: `  # Interactive install with defaults
  sudo sshbotctl install

  # Non-interactive, with operator overrides
  sudo BOT_TOKEN=123:ABC sshbotctl install --config sshbot.yaml

  # Install into a custom root from a local artifact
  sudo sshbotctl install --install-dir /opt/bot --artifact ./ssh-bot.py`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := botconfig.Defaults()
			if configFile != "" {
				if err := botconfig.LoadOverrides(configFile, &params); err != nil {
					return err
				}
			}
			if err := params.Validate(); err != nil {
				return err
			}

			target := provision.NewTarget(installDir, logDir, serviceUser, unitName)
			env := host.NewLocal()

			pipeline := provision.New(env, target, params, provision.Options{
				LocalArtifact: artifactPath,
				ArtifactURL:   artifactURL,
				TokenAttempts: tokenAttempts,
				SettleDelay:   time.Duration(settleSec) * time.Second,
			})

			// History is best-effort: a missing or unwritable state
			// database never blocks provisioning.
			if store := openStore(cmd.Context(), env); store != nil {
				defer store.Close()
				pipeline.WithRecorder(store)
			}

			result, err := pipeline.Run(cmd.Context())
			if err != nil {
				if class, ok := provision.ClassOf(err); ok {
					log.Error().Str("class", string(class)).Msg("installation aborted")
				}
				return err
			}

			log.Info().
				Str("run_id", result.RunID).
				Str("artifact_source", result.ArtifactSource).
				Bool("user_created", result.UserCreated).
				Bool("venv_created", result.VenvCreated).
				Str("service_state", result.ServiceState).
				Msg("SSHBot installed and running")

			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML file with runtime parameter overrides")
	cmd.Flags().StringVar(&artifactPath, "artifact", "", "local bot artifact to deploy (default ./ssh-bot.py)")
	cmd.Flags().StringVar(&artifactURL, "artifact-url", "", "remote artifact source (default pinned release URL)")
	cmd.Flags().IntVar(&tokenAttempts, "token-attempts", 3, "max interactive token prompt attempts")
	cmd.Flags().IntVar(&settleSec, "settle", 3, "seconds to wait before verifying the service state")

	return cmd
}

// openStore opens the run-history store, creating its directory first.
// Failures are logged and swallowed.
func openStore(ctx context.Context, env host.Environment) *stores.SQLiteStore {
	if err := env.EnsureDir(filepath.Dir(stateDB), 0o755); err != nil {
		log.Warn().Err(err).Msg("run history disabled")
		return nil
	}
	store, err := stores.Open(ctx, stateDB)
	if err != nil {
		log.Warn().Err(err).Msg("run history disabled")
		return nil
	}
	return store
}
