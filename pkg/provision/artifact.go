package provision

import (
	"context"
	"fmt"
)

// deployArtifact places the bot program into the install root: a local copy
// when one is present next to the operator, otherwise a fetch from the
// pinned remote source. The result must exist and be non-empty before the
// pipeline is allowed to register a service around it.
func (p *Pipeline) deployArtifact(ctx context.Context) error {
	local, err := p.host.PathExists(p.opts.LocalArtifact)
	if err != nil {
		return stepError(ClassInternal, stepArtifact, err)
	}

	if local {
		if err := p.host.CopyFile(p.opts.LocalArtifact, p.target.ArtifactPath); err != nil {
			return stepError(ClassArtifact, stepArtifact, err)
		}
		p.result.ArtifactSource = "local"
	} else {
		p.log.Info().Str("url", p.opts.ArtifactURL).Msg("no local artifact, fetching remote")
		if err := p.host.Download(ctx, p.opts.ArtifactURL, p.target.ArtifactPath); err != nil {
			return stepError(ClassArtifact, stepArtifact, err)
		}
		p.result.ArtifactSource = "remote"
	}

	exists, err := p.host.PathExists(p.target.ArtifactPath)
	if err != nil {
		return stepError(ClassInternal, stepArtifact, err)
	}
	if !exists {
		return stepError(ClassArtifact, stepArtifact,
			fmt.Errorf("no deployable artifact at %s after copy/fetch", p.target.ArtifactPath))
	}

	size, err := p.host.FileSize(p.target.ArtifactPath)
	if err != nil {
		return stepError(ClassInternal, stepArtifact, err)
	}
	if size == 0 {
		return stepError(ClassArtifact, stepArtifact,
			fmt.Errorf("artifact at %s is empty", p.target.ArtifactPath))
	}

	if err := p.host.SetPermissions(p.target.ArtifactPath, 0o755); err != nil {
		return stepError(ClassInternal, stepArtifact, err)
	}
	if err := p.host.SetOwnership(p.target.ArtifactPath, p.target.ServiceUser, p.target.ServiceGroup, false); err != nil {
		return stepError(ClassInternal, stepArtifact, err)
	}

	return nil
}
