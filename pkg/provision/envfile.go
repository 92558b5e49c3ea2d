package provision

import (
	"context"

	"github.com/sshbot/sshbotctl/pkg/botconfig"
)

// materializeConfig renders the complete environment file (token plus every
// tunable) and writes it owner-only. The file is fully regenerated on every
// run: operator edits to a previous version are replaced, which is the
// documented behavior, not an accident. The consumer is not running yet at
// this point in the pipeline, so write-then-chmod is sufficient.
func (p *Pipeline) materializeConfig(ctx context.Context) error {
	data := botconfig.Render(p.token, p.params, p.target.ConfigPaths())

	if err := p.host.WriteFile(p.target.EnvFilePath, data, 0o600); err != nil {
		return stepError(ClassInternal, stepConfig, err)
	}

	if err := p.host.SetOwnership(p.target.EnvFilePath, p.target.ServiceUser, p.target.ServiceGroup, false); err != nil {
		return stepError(ClassInternal, stepConfig, err)
	}

	return nil
}
