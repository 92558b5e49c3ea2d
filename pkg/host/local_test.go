package host

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRunner records every command and replays scripted results.
type fakeRunner struct {
	calls   [][]string
	outputs map[string]string
	errs    map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: map[string]string{},
		errs:    map[string]error{},
	}
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	argv := append([]string{name}, args...)
	f.calls = append(f.calls, argv)
	key := strings.Join(argv, " ")
	for prefix, err := range f.errs {
		if strings.HasPrefix(key, prefix) {
			return "", err
		}
	}
	for prefix, out := range f.outputs {
		if strings.HasPrefix(key, prefix) {
			return out, nil
		}
	}
	return "", nil
}

func (f *fakeRunner) commandLines() []string {
	lines := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		lines = append(lines, strings.Join(c, " "))
	}
	return lines
}

func TestEnsureDirCreatesTree(t *testing.T) {
	l := NewLocal()
	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	if err := l.EnsureDir(dir, 0o755); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected a directory")
	}

	// Idempotent on re-run.
	if err := l.EnsureDir(dir, 0o755); err != nil {
		t.Errorf("EnsureDir re-run: %v", err)
	}
}

func TestWriteFileReappliesMode(t *testing.T) {
	l := NewLocal()
	path := filepath.Join(t.TempDir(), "secret.env")

	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := l.WriteFile(path, []byte("new"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("content = %q, want %q", data, "new")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode = %o, want 600", perm)
	}
}

func TestCopyFileOverwrites(t *testing.T) {
	l := NewLocal()
	dir := t.TempDir()
	src := filepath.Join(dir, "src.py")
	dst := filepath.Join(dir, "dst.py")

	if err := os.WriteFile(src, []byte("payload"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := l.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	data, _ := os.ReadFile(dst)
	if string(data) != "payload" {
		t.Errorf("content = %q, want %q", data, "payload")
	}
}

func TestPathExistsAndFileSize(t *testing.T) {
	l := NewLocal()
	dir := t.TempDir()
	path := filepath.Join(dir, "f")

	ok, err := l.PathExists(path)
	if err != nil || ok {
		t.Errorf("PathExists(missing) = %v, %v", ok, err)
	}

	if err := os.WriteFile(path, []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}

	ok, err = l.PathExists(path)
	if err != nil || !ok {
		t.Errorf("PathExists(present) = %v, %v", ok, err)
	}

	size, err := l.FileSize(path)
	if err != nil {
		t.Fatalf("FileSize: %v", err)
	}
	if size != 5 {
		t.Errorf("size = %d, want 5", size)
	}
}

func TestRemoveFileMissingIsNoError(t *testing.T) {
	l := NewLocal()
	if err := l.RemoveFile(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("RemoveFile(missing): %v", err)
	}
}

func TestInstallPackagesCommand(t *testing.T) {
	r := newFakeRunner()
	l := NewLocalWithRunner(r)

	if err := l.InstallPackages(context.Background(), "python3", "python3-venv"); err != nil {
		t.Fatalf("InstallPackages: %v", err)
	}

	want := "apt-get install -y python3 python3-venv"
	if got := r.commandLines(); len(got) != 1 || got[0] != want {
		t.Errorf("commands = %v, want [%q]", got, want)
	}
}

func TestInstallPackagesEmptyIsNoop(t *testing.T) {
	r := newFakeRunner()
	l := NewLocalWithRunner(r)

	if err := l.InstallPackages(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 0 {
		t.Errorf("expected no commands, got %v", r.commandLines())
	}
}

func TestCreateSystemUserCommand(t *testing.T) {
	r := newFakeRunner()
	l := NewLocalWithRunner(r)

	if err := l.CreateSystemUser("sshbot", "/opt/sshbot", "/usr/sbin/nologin"); err != nil {
		t.Fatalf("CreateSystemUser: %v", err)
	}

	want := "useradd --system --user-group --home-dir /opt/sshbot --no-create-home --shell /usr/sbin/nologin sshbot"
	if got := r.commandLines(); len(got) != 1 || got[0] != want {
		t.Errorf("commands = %v, want [%q]", got, want)
	}
}

func TestUserExists(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		r := newFakeRunner()
		r.outputs["getent passwd sshbot"] = "sshbot:x:998:998::/opt/sshbot:/usr/sbin/nologin"
		l := NewLocalWithRunner(r)

		ok, err := l.UserExists("sshbot")
		if err != nil {
			t.Fatalf("UserExists: %v", err)
		}
		if !ok {
			t.Error("expected user to exist")
		}
	})

	t.Run("absent", func(t *testing.T) {
		r := newFakeRunner()
		r.errs["getent passwd sshbot"] = fmt.Errorf("getent: %w", &exec.ExitError{})
		l := NewLocalWithRunner(r)

		ok, err := l.UserExists("sshbot")
		if err != nil {
			t.Fatalf("UserExists: %v", err)
		}
		if ok {
			t.Error("expected user to be absent")
		}
	})
}

func TestSetOwnershipRecursive(t *testing.T) {
	r := newFakeRunner()
	l := NewLocalWithRunner(r)

	if err := l.SetOwnership("/opt/sshbot", "sshbot", "sshbot", true); err != nil {
		t.Fatalf("SetOwnership: %v", err)
	}

	want := "chown -R sshbot:sshbot /opt/sshbot"
	if got := r.commandLines(); len(got) != 1 || got[0] != want {
		t.Errorf("commands = %v, want [%q]", got, want)
	}
}

func TestRunAsCommand(t *testing.T) {
	r := newFakeRunner()
	l := NewLocalWithRunner(r)

	if err := l.RunAs(context.Background(), "sshbot", "python3", "-m", "venv", "/opt/sshbot/venv"); err != nil {
		t.Fatalf("RunAs: %v", err)
	}

	want := "runuser -u sshbot -- python3 -m venv /opt/sshbot/venv"
	if got := r.commandLines(); len(got) != 1 || got[0] != want {
		t.Errorf("commands = %v, want [%q]", got, want)
	}
}

func TestSupervisorPassesThroughOutput(t *testing.T) {
	r := newFakeRunner()
	r.outputs["systemctl is-active sshbot"] = "active"
	l := NewLocalWithRunner(r)

	out, err := l.Supervisor(context.Background(), "is-active", "sshbot")
	if err != nil {
		t.Fatalf("Supervisor: %v", err)
	}
	if out != "active" {
		t.Errorf("output = %q, want %q", out, "active")
	}
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#!/usr/bin/env python3\n")
	}))
	defer srv.Close()

	l := NewLocal()
	dst := filepath.Join(t.TempDir(), "ssh-bot.py")

	if err := l.Download(context.Background(), srv.URL, dst); err != nil {
		t.Fatalf("Download: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "#!/usr/bin/env python3") {
		t.Errorf("unexpected content %q", data)
	}
}

func TestDownloadNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	l := NewLocal()
	err := l.Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "f"))
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
}
