// Package botconfig defines the runtime configuration record for the SSHBot
// service: every tunable the bot reads from its environment file, with its
// documented default, plus the renderer that turns a record into the
// key=value file the unit points at.
package botconfig

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Params holds every tunable of the bot runtime. An empty allow-list means
// unrestricted access, and PrivateOnly defaults to off; both are the bot's
// documented defaults, not omissions.
type Params struct {
	// AllowedUsers is the Telegram user ID allow-list. Empty = any user.
	AllowedUsers []int64 `yaml:"allowed_users"`

	// AllowedChats is the Telegram chat ID allow-list. Empty = any chat.
	AllowedChats []int64 `yaml:"allowed_chats"`

	// PrivateOnly restricts the bot to private chats.
	PrivateOnly bool `yaml:"private_only"`

	// StrictHostKey enables strict SSH host key checking in the bot.
	StrictHostKey bool `yaml:"strict_host_key"`

	// SessionTimeout is the idle session timeout in seconds. 0 disables it.
	SessionTimeout int `yaml:"session_timeout" validate:"min=0"`

	// KeepaliveSec is the SSH keepalive interval in seconds.
	KeepaliveSec int `yaml:"keepalive_sec" validate:"min=1"`

	// TermCols and TermLines size the emulated terminal.
	TermCols  int `yaml:"term_cols" validate:"min=20,max=500"`
	TermLines int `yaml:"term_lines" validate:"min=20,max=1000"`

	// UpdateInterval is the screen refresh interval in seconds.
	UpdateInterval float64 `yaml:"update_interval" validate:"gt=0"`

	// MaxMessageChars caps the size of a single rendered Telegram message.
	MaxMessageChars int `yaml:"max_message_chars" validate:"min=256,max=4096"`
}

// Paths are the filesystem references rendered into the configuration file.
// They are derived from the installation target, not operator-tunable.
type Paths struct {
	InstallDir string
	DataDir    string
	ServerDB   string
	LogDir     string
	LogFile    string
}

// Defaults returns the documented default for every parameter.
func Defaults() Params {
	return Params{
		AllowedUsers:    nil,
		AllowedChats:    nil,
		PrivateOnly:     false,
		StrictHostKey:   false,
		SessionTimeout:  0,
		KeepaliveSec:    30,
		TermCols:        120,
		TermLines:       200,
		UpdateInterval:  1.0,
		MaxMessageChars: 3900,
	}
}

// LoadOverrides reads a YAML override file on top of p. Keys absent from the
// file keep their current value.
func LoadOverrides(path string, p *Params) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read override file: %w", err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return fmt.Errorf("failed to parse override file: %w", err)
	}

	return nil
}

// Validate checks the record against its declared constraints.
func (p Params) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Render produces the complete environment file for the given token, record
// and path references. It is a pure function of its inputs: deterministic
// key order, no defaults applied here, trailing newline. The token is the
// only secret in the output; callers are responsible for file permissions.
func Render(token string, p Params, paths Paths) []byte {
	var b strings.Builder

	writeKV := func(key, value string) {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(value)
		b.WriteByte('\n')
	}

	writeKV("BOT_TOKEN", token)
	writeKV("ALLOWED_USERS", joinIDs(p.AllowedUsers))
	writeKV("ALLOWED_CHATS", joinIDs(p.AllowedChats))
	writeKV("PRIVATE_ONLY", formatBool(p.PrivateOnly))
	writeKV("STRICT_HOST_KEY", formatBool(p.StrictHostKey))
	writeKV("SESSION_TIMEOUT", strconv.Itoa(p.SessionTimeout))
	writeKV("KEEPALIVE_SEC", strconv.Itoa(p.KeepaliveSec))
	writeKV("TERM_COLS", strconv.Itoa(p.TermCols))
	writeKV("TERM_LINES", strconv.Itoa(p.TermLines))
	writeKV("UPDATE_INTERVAL", formatInterval(p.UpdateInterval))
	writeKV("MAX_TG_CHARS", strconv.Itoa(p.MaxMessageChars))
	writeKV("INSTALL_DIR", paths.InstallDir)
	writeKV("DATA_DIR", paths.DataDir)
	writeKV("SERVER_DB", paths.ServerDB)
	writeKV("LOG_DIR", paths.LogDir)
	writeKV("LOG_FILE", paths.LogFile)

	return []byte(b.String())
}

// joinIDs renders an allow-list as comma-separated numeric IDs. The bot
// parses the empty string as "unrestricted".
func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}

// formatBool renders booleans as 0/1, the form the bot parses.
func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// formatInterval renders a fractional-seconds value, keeping one decimal for
// whole numbers so the default reads as "1.0".
func formatInterval(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
