package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
)

// Runner executes external commands. It exists so Local's command-driven
// operations can be exercised without touching the real host.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// execRunner runs commands via os/exec, capturing stdout and surfacing
// stderr in the returned error.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	// Stdout is returned even on failure: systemctl prints the unit state
	// to stdout while exiting non-zero.
	out := strings.TrimSpace(stdout.String())

	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return out, fmt.Errorf("%s: %w (stderr: %s)", name, err, msg)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}

	return out, nil
}

// Local is the real-host implementation of Environment. Filesystem
// operations use the os package directly; user, package and service
// operations shell out the same way a root operator would.
type Local struct {
	runner Runner
	client *http.Client
}

// NewLocal returns an Environment bound to the local host.
func NewLocal() *Local {
	return &Local{
		runner: execRunner{},
		client: http.DefaultClient,
	}
}

// NewLocalWithRunner returns a Local host with a custom command runner.
func NewLocalWithRunner(r Runner) *Local {
	return &Local{
		runner: r,
		client: http.DefaultClient,
	}
}

// EffectiveUID returns the effective user ID of the running process.
func (l *Local) EffectiveUID() int {
	return os.Geteuid()
}

// PathExists reports whether path exists.
func (l *Local) PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

// FileSize returns the size of the file at path.
func (l *Local) FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// EnsureDir creates path and any missing ancestors.
func (l *Local) EnsureDir(path string, mode os.FileMode) error {
	if err := os.MkdirAll(path, mode); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// WriteFile writes data to path with the given mode, replacing any previous
// content. The mode is re-applied after the write so a pre-existing file
// does not keep looser bits.
func (l *Local) WriteFile(path string, data []byte, mode os.FileMode) error {
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("failed to set mode on %s: %w", path, err)
	}
	return nil
}

// CopyFile copies src over dst, preserving src's permission bits.
func (l *Local) CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	return os.Chmod(dst, info.Mode())
}

// RemoveFile deletes a single file. Missing files are not an error.
func (l *Local) RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// RemoveAll deletes path and everything under it.
func (l *Local) RemoveAll(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// SetPermissions sets the permission bits on path.
func (l *Local) SetPermissions(path string, mode os.FileMode) error {
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("failed to set mode on %s: %w", path, err)
	}
	return nil
}

// SetOwnership assigns user/group ownership via chown, optionally
// recursively.
func (l *Local) SetOwnership(path, owner, group string, recursive bool) error {
	spec := owner
	if group != "" {
		spec = owner + ":" + group
	}

	args := []string{spec, path}
	if recursive {
		args = append([]string{"-R"}, args...)
	}

	if _, err := l.runner.Run(context.Background(), "chown", args...); err != nil {
		return fmt.Errorf("failed to set ownership on %s: %w", path, err)
	}
	return nil
}

// UserExists probes the user database with getent.
func (l *Local) UserExists(name string) (bool, error) {
	_, err := l.runner.Run(context.Background(), "getent", "passwd", name)
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// getent exits non-zero when the key is not found.
		return false, nil
	}

	return false, fmt.Errorf("failed to probe user %s: %w", name, err)
}

// CreateSystemUser creates a system account with no interactive shell.
func (l *Local) CreateSystemUser(name, homeDir, shell string) error {
	_, err := l.runner.Run(context.Background(), "useradd",
		"--system",
		"--user-group",
		"--home-dir", homeDir,
		"--no-create-home",
		"--shell", shell,
		name,
	)
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", name, err)
	}
	return nil
}

// UpdatePackageIndex refreshes the apt package index.
func (l *Local) UpdatePackageIndex(ctx context.Context) error {
	if _, err := l.runner.Run(ctx, "apt-get", "update"); err != nil {
		return fmt.Errorf("failed to update package index: %w", err)
	}
	return nil
}

// InstallPackages installs system packages with apt. apt treats
// already-installed packages as success.
func (l *Local) InstallPackages(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}

	args := append([]string{"install", "-y"}, names...)
	if _, err := l.runner.Run(ctx, "apt-get", args...); err != nil {
		return fmt.Errorf("failed to install packages %s: %w", strings.Join(names, " "), err)
	}
	return nil
}

// RunAs executes a command as another user via runuser.
func (l *Local) RunAs(ctx context.Context, user, name string, args ...string) error {
	full := append([]string{"-u", user, "--", name}, args...)
	if _, err := l.runner.Run(ctx, "runuser", full...); err != nil {
		return fmt.Errorf("failed to run %s as %s: %w", name, user, err)
	}
	return nil
}

// Supervisor runs a systemctl command and returns its trimmed output.
func (l *Local) Supervisor(ctx context.Context, args ...string) (string, error) {
	out, err := l.runner.Run(ctx, "systemctl", args...)
	if err != nil {
		return out, fmt.Errorf("systemctl %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// Download fetches url into dst via a plain GET. The response body is
// streamed to disk; callers verify the result is non-empty.
func (l *Local) Download(ctx context.Context, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch %s: unexpected status %s", url, resp.Status)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
