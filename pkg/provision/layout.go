package provision

import (
	"context"
	"os"
)

// ensureLayout creates the install tree and the log directory, hands the
// tree to the service user, and locks down the key store. The keys
// directory holds SSH credentials and is owner-only; a chmod failure on an
// already-compliant directory is tolerated.
func (p *Pipeline) ensureLayout(ctx context.Context) error {
	dirs := []struct {
		path string
		mode os.FileMode
	}{
		{p.target.InstallDir, 0o755},
		{p.target.DataDir, 0o755},
		{p.target.KeysDir, 0o700},
		{p.target.LogDir, 0o755},
	}

	for _, d := range dirs {
		if err := p.host.EnsureDir(d.path, d.mode); err != nil {
			return stepError(ClassInternal, stepLayout, err)
		}
	}

	for _, root := range []string{p.target.InstallDir, p.target.LogDir} {
		if err := p.host.SetOwnership(root, p.target.ServiceUser, p.target.ServiceGroup, true); err != nil {
			return stepError(ClassInternal, stepLayout, err)
		}
	}

	if err := p.host.SetPermissions(p.target.KeysDir, 0o700); err != nil {
		p.log.Warn().Err(err).Str("path", p.target.KeysDir).Msg("could not restrict key store permissions")
	}

	return nil
}
