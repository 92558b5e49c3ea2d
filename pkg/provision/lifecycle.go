package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/sshbot/sshbotctl/pkg/host"
)

// startService (re)starts the unit, waits a short settle delay, then checks
// the supervisor-reported state exactly once. A non-active state is fatal;
// any further restarting is the unit's own Restart= policy, not ours.
func (p *Pipeline) startService(ctx context.Context) error {
	if _, err := p.host.Supervisor(ctx, "restart", p.target.UnitName); err != nil {
		return stepError(ClassVerification, stepService, err)
	}

	select {
	case <-time.After(p.opts.SettleDelay):
	case <-ctx.Done():
		return stepError(ClassInternal, stepService, ctx.Err())
	}

	state, err := p.host.Supervisor(ctx, "is-active", p.target.UnitName)
	if state == "" && err != nil {
		state = "unknown"
	}
	p.result.ServiceState = state

	if state != "active" {
		return stepError(ClassVerification, stepService,
			fmt.Errorf("service %s is %s after restart; inspect logs with: journalctl -u %s -n 50 --no-pager",
				p.target.UnitName, state, p.target.UnitName))
	}

	return nil
}

// UnitStatus is a read-only snapshot of the registered unit.
type UnitStatus struct {
	State    string `json:"state"`
	Enabled  bool   `json:"enabled"`
	SubState string `json:"sub_state"`
}

// Status queries the supervisor for the unit's active state, enablement and
// substate. Probe commands exit non-zero for inactive units, so their
// errors are folded into the reported state rather than returned.
func Status(ctx context.Context, env host.Environment, unitName string) UnitStatus {
	state, err := env.Supervisor(ctx, "is-active", unitName)
	if state == "" && err != nil {
		state = "unknown"
	}

	enabled, _ := env.Supervisor(ctx, "is-enabled", unitName)

	subState, _ := env.Supervisor(ctx, "show", unitName, "--property=SubState", "--value")

	return UnitStatus{
		State:    state,
		Enabled:  enabled == "enabled",
		SubState: subState,
	}
}
