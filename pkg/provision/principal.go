package provision

import "context"

// ensurePrincipal creates the dedicated service account if it does not
// exist: a system user with its own group, no interactive shell, and its
// home bound to the install root. An existing account is left untouched.
func (p *Pipeline) ensurePrincipal(ctx context.Context) error {
	exists, err := p.host.UserExists(p.target.ServiceUser)
	if err != nil {
		return stepError(ClassInternal, stepPrincipal, err)
	}
	if exists {
		p.log.Debug().Str("user", p.target.ServiceUser).Msg("service user already exists")
		return nil
	}

	if err := p.host.CreateSystemUser(p.target.ServiceUser, p.target.InstallDir, nologinShell); err != nil {
		return stepError(ClassInternal, stepPrincipal, err)
	}
	p.result.UserCreated = true

	return nil
}
