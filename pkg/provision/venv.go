package provision

import "context"

// pinnedRuntimeDeps is the converged Python dependency set for the bot.
// python-telegram-bot 13.x fails against urllib3 2.x, so the 1.26 line is
// pinned explicitly rather than left to dependency resolution.
var pinnedRuntimeDeps = []string{
	"python-telegram-bot==13.15",
	"paramiko==3.4.0",
	"pyte==0.8.2",
	"urllib3==1.26.18",
}

// ensureRuntimeEnv creates the virtualenv under the service user if absent
// and converges its installed package set. Dependency installation runs on
// every pass, including reuse of an existing environment, so a re-run
// repairs a drifted venv.
func (p *Pipeline) ensureRuntimeEnv(ctx context.Context) error {
	exists, err := p.host.PathExists(p.target.PythonBin())
	if err != nil {
		return stepError(ClassInternal, stepRuntimeEnv, err)
	}

	if !exists {
		if err := p.host.RunAs(ctx, p.target.ServiceUser, "python3", "-m", "venv", p.target.VenvDir); err != nil {
			return stepError(ClassDependency, stepRuntimeEnv, err)
		}
		p.result.VenvCreated = true
	} else {
		p.log.Debug().Str("venv", p.target.VenvDir).Msg("reusing existing virtualenv")
	}

	pip := p.target.PipBin()
	if err := p.host.RunAs(ctx, p.target.ServiceUser, pip, "install", "--upgrade", "pip"); err != nil {
		return stepError(ClassDependency, stepRuntimeEnv, err)
	}

	args := append([]string{"install"}, pinnedRuntimeDeps...)
	if err := p.host.RunAs(ctx, p.target.ServiceUser, pip, args...); err != nil {
		return stepError(ClassDependency, stepRuntimeEnv, err)
	}

	return nil
}
