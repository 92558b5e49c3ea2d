package provision

import "context"

// systemPackages are the host packages the bot runtime needs. apt treats
// already-installed packages as success, so the step is safe to re-run.
var systemPackages = []string{
	"python3",
	"python3-venv",
	"python3-pip",
	"curl",
}

// installSystemPackages refreshes the package index and converges the
// system package set. Any package-manager failure aborts the run.
func (p *Pipeline) installSystemPackages(ctx context.Context) error {
	if err := p.host.UpdatePackageIndex(ctx); err != nil {
		return stepError(ClassDependency, stepPackages, err)
	}

	if err := p.host.InstallPackages(ctx, systemPackages...); err != nil {
		return stepError(ClassDependency, stepPackages, err)
	}

	return nil
}
