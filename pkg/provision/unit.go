package provision

import (
	"context"
	"fmt"
	"strings"
	"text/template"
)

// unitTemplate is the systemd unit for the bot. The service runs as the
// dedicated user with restart-always and a fixed backoff, and is sandboxed:
// no new privileges, private /tmp, and filesystem writes limited to the
// install root and log directory.
var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=SSHBot Telegram SSH bridge
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
User={{.ServiceUser}}
Group={{.ServiceGroup}}
WorkingDirectory={{.InstallDir}}
EnvironmentFile={{.EnvFilePath}}
ExecStart={{.PythonBin}} {{.ArtifactPath}}
Restart=always
RestartSec=5
NoNewPrivileges=true
PrivateTmp=true
ProtectSystem=full
ProtectHome=true
ReadWritePaths={{.InstallDir}} {{.LogDir}}

[Install]
WantedBy=multi-user.target
`))

// RenderUnit produces the unit text for a target. It is a pure function of
// the target; the descriptor is regenerated fully on every run rather than
// merged with prior content.
func RenderUnit(t Target) (string, error) {
	var b strings.Builder
	if err := unitTemplate.Execute(&b, t); err != nil {
		return "", fmt.Errorf("failed to render unit: %w", err)
	}
	return b.String(), nil
}

// registerUnit writes the unit descriptor, reloads systemd's definitions,
// and enables the unit for boot-time start.
func (p *Pipeline) registerUnit(ctx context.Context) error {
	text, err := RenderUnit(p.target)
	if err != nil {
		return stepError(ClassInternal, stepUnit, err)
	}

	if err := p.host.WriteFile(p.target.UnitPath, []byte(text), 0o644); err != nil {
		return stepError(ClassInternal, stepUnit, err)
	}

	if _, err := p.host.Supervisor(ctx, "daemon-reload"); err != nil {
		return stepError(ClassInternal, stepUnit, err)
	}

	if _, err := p.host.Supervisor(ctx, "enable", p.target.UnitName); err != nil {
		return stepError(ClassInternal, stepUnit, err)
	}

	p.result.UnitRegistered = true
	return nil
}
