// Package host exposes the mutable host surface — filesystem, user
// database, package manager and systemd — behind a capability interface.
// Every side effect the provisioner performs goes through an Environment, so
// the pipeline can run against a recording fake in tests and against the
// real host in production.
package host

import (
	"context"
	"os"
)

// Environment is the set of host mutations and probes the provisioner needs.
// All methods return an explicit error; nothing is silently ambient.
type Environment interface {
	// EffectiveUID returns the effective user ID of the running process.
	EffectiveUID() int

	// PathExists reports whether path exists.
	PathExists(path string) (bool, error)

	// FileSize returns the size of the file at path.
	FileSize(path string) (int64, error)

	// EnsureDir creates path and any missing ancestors. Existing
	// directories are left untouched.
	EnsureDir(path string, mode os.FileMode) error

	// WriteFile writes data to path with the given mode, replacing any
	// previous content.
	WriteFile(path string, data []byte, mode os.FileMode) error

	// CopyFile copies src over dst, replacing dst if it exists.
	CopyFile(src, dst string) error

	// RemoveFile deletes a single file. Missing files are not an error.
	RemoveFile(path string) error

	// RemoveAll deletes path and everything under it.
	RemoveAll(path string) error

	// SetPermissions sets the permission bits on path.
	SetPermissions(path string, mode os.FileMode) error

	// SetOwnership assigns user/group ownership, optionally recursively.
	SetOwnership(path, owner, group string, recursive bool) error

	// UserExists reports whether a user account with the given name exists.
	UserExists(name string) (bool, error)

	// CreateSystemUser creates a system account with the given home
	// directory and login shell.
	CreateSystemUser(name, homeDir, shell string) error

	// UpdatePackageIndex refreshes the system package index.
	UpdatePackageIndex(ctx context.Context) error

	// InstallPackages installs system packages. Already-installed packages
	// are a no-op for the package manager, not an error.
	InstallPackages(ctx context.Context, names ...string) error

	// RunAs executes a command as another user.
	RunAs(ctx context.Context, user, name string, args ...string) error

	// Supervisor runs a systemctl command and returns its trimmed output.
	Supervisor(ctx context.Context, args ...string) (string, error)

	// Download fetches url into dst via a plain GET.
	Download(ctx context.Context, url, dst string) error
}
