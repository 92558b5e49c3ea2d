package provision

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sshbot/sshbotctl/pkg/botconfig"
)

func testParams() botconfig.Params {
	return botconfig.Defaults()
}

// fakeHost is a recording in-memory host.Environment. Every mutation is
// appended to ops so tests can assert ordering and absence of side effects.
type fakeHost struct {
	uid int

	files  map[string][]byte
	dirs   map[string]bool
	users  map[string]bool
	modes  map[string]os.FileMode
	owners map[string]string

	supervisorOut map[string]string
	supervisorErr map[string]error

	downloadContent []byte
	downloadErr     error

	failOn map[string]error

	ops         []string
	userCreates int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		files:         map[string][]byte{},
		dirs:          map[string]bool{},
		users:         map[string]bool{},
		modes:         map[string]os.FileMode{},
		owners:        map[string]string{},
		supervisorOut: map[string]string{},
		supervisorErr: map[string]error{},
		failOn:        map[string]error{},
	}
}

func (f *fakeHost) record(format string, args ...any) {
	f.ops = append(f.ops, fmt.Sprintf(format, args...))
}

func (f *fakeHost) fail(op string) error {
	for prefix, err := range f.failOn {
		if strings.HasPrefix(op, prefix) {
			return err
		}
	}
	return nil
}

func (f *fakeHost) opsWithPrefix(prefix string) []string {
	var out []string
	for _, op := range f.ops {
		if strings.HasPrefix(op, prefix) {
			out = append(out, op)
		}
	}
	return out
}

func (f *fakeHost) EffectiveUID() int { return f.uid }

func (f *fakeHost) PathExists(path string) (bool, error) {
	if _, ok := f.files[path]; ok {
		return true, nil
	}
	return f.dirs[path], nil
}

func (f *fakeHost) FileSize(path string) (int64, error) {
	data, ok := f.files[path]
	if !ok {
		return 0, fmt.Errorf("stat %s: no such file", path)
	}
	return int64(len(data)), nil
}

func (f *fakeHost) EnsureDir(path string, mode os.FileMode) error {
	op := fmt.Sprintf("mkdir %s", path)
	f.record(op)
	if err := f.fail(op); err != nil {
		return err
	}
	f.dirs[path] = true
	f.modes[path] = mode
	return nil
}

func (f *fakeHost) WriteFile(path string, data []byte, mode os.FileMode) error {
	op := fmt.Sprintf("write %s", path)
	f.record(op)
	if err := f.fail(op); err != nil {
		return err
	}
	f.files[path] = append([]byte(nil), data...)
	f.modes[path] = mode
	return nil
}

func (f *fakeHost) CopyFile(src, dst string) error {
	op := fmt.Sprintf("copy %s %s", src, dst)
	f.record(op)
	if err := f.fail(op); err != nil {
		return err
	}
	data, ok := f.files[src]
	if !ok {
		return fmt.Errorf("copy %s: no such file", src)
	}
	f.files[dst] = append([]byte(nil), data...)
	return nil
}

func (f *fakeHost) RemoveFile(path string) error {
	f.record("rm %s", path)
	delete(f.files, path)
	return nil
}

func (f *fakeHost) RemoveAll(path string) error {
	f.record("rm-rf %s", path)
	delete(f.dirs, path)
	for p := range f.files {
		if strings.HasPrefix(p, path) {
			delete(f.files, p)
		}
	}
	return nil
}

func (f *fakeHost) SetPermissions(path string, mode os.FileMode) error {
	op := fmt.Sprintf("chmod %o %s", mode, path)
	f.record(op)
	if err := f.fail(op); err != nil {
		return err
	}
	f.modes[path] = mode
	return nil
}

func (f *fakeHost) SetOwnership(path, owner, group string, recursive bool) error {
	flag := ""
	if recursive {
		flag = "-R "
	}
	op := fmt.Sprintf("chown %s%s:%s %s", flag, owner, group, path)
	f.record(op)
	if err := f.fail(op); err != nil {
		return err
	}
	f.owners[path] = owner + ":" + group
	return nil
}

func (f *fakeHost) UserExists(name string) (bool, error) {
	return f.users[name], nil
}

func (f *fakeHost) CreateSystemUser(name, homeDir, shell string) error {
	op := fmt.Sprintf("useradd %s %s %s", name, homeDir, shell)
	f.record(op)
	if err := f.fail(op); err != nil {
		return err
	}
	f.users[name] = true
	f.userCreates++
	return nil
}

func (f *fakeHost) UpdatePackageIndex(_ context.Context) error {
	op := "apt-update"
	f.record(op)
	return f.fail(op)
}

func (f *fakeHost) InstallPackages(_ context.Context, names ...string) error {
	op := "apt-install " + strings.Join(names, " ")
	f.record(op)
	return f.fail(op)
}

func (f *fakeHost) RunAs(_ context.Context, user, name string, args ...string) error {
	op := fmt.Sprintf("runas %s %s %s", user, name, strings.Join(args, " "))
	f.record(op)
	if err := f.fail(op); err != nil {
		return err
	}
	// Creating the venv makes its interpreter appear.
	if name == "python3" && len(args) >= 2 && args[0] == "-m" && args[1] == "venv" {
		f.files[args[2]+"/bin/python3"] = []byte("interpreter")
	}
	return nil
}

func (f *fakeHost) Supervisor(_ context.Context, args ...string) (string, error) {
	key := strings.Join(args, " ")
	f.record("systemctl %s", key)
	if err, ok := f.supervisorErr[key]; ok {
		return f.supervisorOut[key], err
	}
	if out, ok := f.supervisorOut[key]; ok {
		return out, nil
	}
	if args[0] == "is-active" {
		return "active", nil
	}
	return "", nil
}

func (f *fakeHost) Download(_ context.Context, url, dst string) error {
	f.record("download %s %s", url, dst)
	if f.downloadErr != nil {
		return f.downloadErr
	}
	f.files[dst] = append([]byte(nil), f.downloadContent...)
	return nil
}

// staticTokenReader replays a scripted sequence of token candidates.
type staticTokenReader struct {
	values []string
	calls  int
}

func (r *staticTokenReader) ReadToken(_ context.Context) (string, error) {
	r.calls++
	if len(r.values) == 0 {
		return "", nil
	}
	v := r.values[0]
	if len(r.values) > 1 {
		r.values = r.values[1:]
	}
	return v, nil
}
