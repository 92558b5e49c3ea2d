// Package provision implements the idempotent installation pipeline for the
// SSHBot service: privilege and token preflight, system and Python runtime
// dependencies, the dedicated service user, the /opt install tree, the
// virtualenv, the bot artifact, the secret environment file, the systemd
// unit, and the final restart-and-verify gate. Steps run strictly in
// dependency order and the pipeline stops at the first failure.
package provision

import (
	"path/filepath"
	"time"

	"github.com/sshbot/sshbotctl/pkg/botconfig"
)

// Defaults for the installation target and pipeline options.
const (
	DefaultInstallDir  = "/opt/sshbot"
	DefaultLogDir      = "/var/log/ssh-bot"
	DefaultServiceUser = "sshbot"
	DefaultUnitName    = "sshbot"
	DefaultUnitDir     = "/etc/systemd/system"

	// DefaultLocalArtifact is the conventional relative location checked
	// before falling back to the remote fetch.
	DefaultLocalArtifact = "ssh-bot.py"

	// DefaultArtifactURL is the pinned remote source for the bot artifact.
	// The fetch is a plain GET with no checksum verification.
	DefaultArtifactURL = "https://raw.githubusercontent.com/ItzGlace/SSHBot/v1.2.0/ssh-bot.py"

	// nologinShell keeps the service account non-interactive.
	nologinShell = "/usr/sbin/nologin"
)

// Target is the immutable installation layout, computed once per run. All
// subpaths are descendants of InstallDir except the log directory and the
// unit file.
type Target struct {
	InstallDir string
	DataDir    string
	KeysDir    string
	VenvDir    string
	LogDir     string
	LogFile    string

	ArtifactPath string
	EnvFilePath  string
	ServerDB     string

	UnitName string
	UnitPath string

	ServiceUser  string
	ServiceGroup string
}

// NewTarget computes the full layout from the four operator-facing knobs.
func NewTarget(installDir, logDir, serviceUser, unitName string) Target {
	if installDir == "" {
		installDir = DefaultInstallDir
	}
	if logDir == "" {
		logDir = DefaultLogDir
	}
	if serviceUser == "" {
		serviceUser = DefaultServiceUser
	}
	if unitName == "" {
		unitName = DefaultUnitName
	}

	dataDir := filepath.Join(installDir, "data")

	return Target{
		InstallDir:   installDir,
		DataDir:      dataDir,
		KeysDir:      filepath.Join(installDir, "keys"),
		VenvDir:      filepath.Join(installDir, "venv"),
		LogDir:       logDir,
		LogFile:      filepath.Join(logDir, "ssh-bot.log"),
		ArtifactPath: filepath.Join(installDir, "ssh-bot.py"),
		EnvFilePath:  filepath.Join(installDir, "sshbot.env"),
		ServerDB:     filepath.Join(dataDir, "servers.json"),
		UnitName:     unitName,
		UnitPath:     filepath.Join(DefaultUnitDir, unitName+".service"),
		ServiceUser:  serviceUser,
		ServiceGroup: serviceUser,
	}
}

// PythonBin is the interpreter inside the virtualenv.
func (t Target) PythonBin() string {
	return filepath.Join(t.VenvDir, "bin", "python3")
}

// PipBin is the package installer inside the virtualenv.
func (t Target) PipBin() string {
	return filepath.Join(t.VenvDir, "bin", "pip")
}

// ConfigPaths returns the path references rendered into the bot's
// environment file.
func (t Target) ConfigPaths() botconfig.Paths {
	return botconfig.Paths{
		InstallDir: t.InstallDir,
		DataDir:    t.DataDir,
		ServerDB:   t.ServerDB,
		LogDir:     t.LogDir,
		LogFile:    t.LogFile,
	}
}

// Options tune pipeline behavior without changing its ordering.
type Options struct {
	// LocalArtifact is the local file copied into the install root when
	// present. Empty means DefaultLocalArtifact.
	LocalArtifact string

	// ArtifactURL is the remote fallback source. Empty means
	// DefaultArtifactURL.
	ArtifactURL string

	// TokenAttempts bounds the interactive token prompt retries.
	TokenAttempts int

	// SettleDelay is how long the service gets to come up after restart
	// before its state is checked.
	SettleDelay time.Duration

	// TokenReader overrides the interactive token source. Nil means a
	// terminal prompt.
	TokenReader TokenReader
}

func (o Options) withDefaults() Options {
	if o.LocalArtifact == "" {
		o.LocalArtifact = DefaultLocalArtifact
	}
	if o.ArtifactURL == "" {
		o.ArtifactURL = DefaultArtifactURL
	}
	if o.TokenAttempts <= 0 {
		o.TokenAttempts = 3
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = 3 * time.Second
	}
	if o.TokenReader == nil {
		o.TokenReader = &TerminalTokenReader{}
	}
	return o
}

// Result reports what the run changed and where the service ended up.
type Result struct {
	RunID          string    `json:"run_id"`
	UserCreated    bool      `json:"user_created"`
	VenvCreated    bool      `json:"venv_created"`
	ArtifactSource string    `json:"artifact_source"`
	UnitRegistered bool      `json:"unit_registered"`
	ServiceState   string    `json:"service_state"`
	CompletedAt    time.Time `json:"completed_at"`
}
