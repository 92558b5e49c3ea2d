package provision

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sshbot/sshbotctl/pkg/botconfig"
	"github.com/sshbot/sshbotctl/pkg/host"
	"github.com/sshbot/sshbotctl/pkg/telemetry"
)

// Step names, in execution order. They key run-history events and error
// attribution.
const (
	stepPreflight  = "preflight"
	stepPackages   = "packages"
	stepPrincipal  = "principal"
	stepLayout     = "layout"
	stepRuntimeEnv = "runtime-env"
	stepArtifact   = "artifact"
	stepConfig     = "config"
	stepUnit       = "unit"
	stepService    = "service"
)

// RunRecorder persists provisioning run history. Recording is best-effort:
// implementations may fail without affecting the provisioning outcome.
type RunRecorder interface {
	BeginRun(ctx context.Context, id, unitName, installDir string, startedAt time.Time) error
	RecordStep(ctx context.Context, runID, step, status string, stepErr error, startedAt, completedAt time.Time) error
	FinishRun(ctx context.Context, runID, status, errMsg string, completedAt time.Time) error
}

// Pipeline executes the provisioning steps strictly in dependency order:
// the principal must exist before ownership is applied, directories before
// files are written into them, the virtualenv before dependencies are
// installed into it, the artifact before the unit is registered, and the
// unit before lifecycle control is attempted.
type Pipeline struct {
	host     host.Environment
	target   Target
	params   botconfig.Params
	opts     Options
	recorder RunRecorder
	log      zerolog.Logger

	token  string
	result Result
}

// New builds a pipeline for the given host, target and configuration.
func New(env host.Environment, target Target, params botconfig.Params, opts Options) *Pipeline {
	return &Pipeline{
		host:   env,
		target: target,
		params: params,
		opts:   opts.withDefaults(),
		log:    telemetry.Component("provision"),
	}
}

// WithRecorder attaches a run-history recorder.
func (p *Pipeline) WithRecorder(r RunRecorder) *Pipeline {
	p.recorder = r
	return p
}

// WithLogger overrides the pipeline logger.
func (p *Pipeline) WithLogger(log zerolog.Logger) *Pipeline {
	p.log = log
	return p
}

type step struct {
	name string
	run  func(context.Context) error
}

func (p *Pipeline) steps() []step {
	return []step{
		{stepPreflight, p.preflight},
		{stepPackages, p.installSystemPackages},
		{stepPrincipal, p.ensurePrincipal},
		{stepLayout, p.ensureLayout},
		{stepRuntimeEnv, p.ensureRuntimeEnv},
		{stepArtifact, p.deployArtifact},
		{stepConfig, p.materializeConfig},
		{stepUnit, p.registerUnit},
		{stepService, p.startService},
	}
}

// Run executes the pipeline, stopping at the first failure. The returned
// Result is valid on success and partially filled on failure; the error is
// a classified *Error naming the failed step.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	p.result = Result{RunID: uuid.New().String()}
	started := time.Now()

	p.log.Info().
		Str("run_id", p.result.RunID).
		Str("install_dir", p.target.InstallDir).
		Str("unit", p.target.UnitName).
		Msg("starting provisioning run")

	if p.recorder != nil {
		if err := p.recorder.BeginRun(ctx, p.result.RunID, p.target.UnitName, p.target.InstallDir, started); err != nil {
			p.log.Warn().Err(err).Msg("could not record run start")
			p.recorder = nil
		}
	}

	for _, s := range p.steps() {
		stepStart := time.Now()
		p.log.Info().Str("step", s.name).Msg("running step")

		err := s.run(ctx)
		p.recordStep(ctx, s.name, err, stepStart)

		if err != nil {
			p.log.Error().Err(err).Str("step", s.name).Msg("provisioning failed")
			p.finishRun(ctx, "failed", err)
			return &p.result, err
		}

		p.log.Info().
			Str("step", s.name).
			Dur("elapsed", time.Since(stepStart)).
			Msg("step complete")
	}

	p.result.CompletedAt = time.Now()
	p.finishRun(ctx, "succeeded", nil)

	p.log.Info().
		Str("run_id", p.result.RunID).
		Str("service_state", p.result.ServiceState).
		Dur("elapsed", time.Since(started)).
		Msg("provisioning complete")

	return &p.result, nil
}

func (p *Pipeline) recordStep(ctx context.Context, name string, stepErr error, startedAt time.Time) {
	if p.recorder == nil {
		return
	}
	status := "succeeded"
	if stepErr != nil {
		status = "failed"
	}
	if err := p.recorder.RecordStep(ctx, p.result.RunID, name, status, stepErr, startedAt, time.Now()); err != nil {
		p.log.Warn().Err(err).Str("step", name).Msg("could not record step event")
	}
}

func (p *Pipeline) finishRun(ctx context.Context, status string, runErr error) {
	if p.recorder == nil {
		return
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	if err := p.recorder.FinishRun(ctx, p.result.RunID, status, msg, time.Now()); err != nil {
		p.log.Warn().Err(err).Msg("could not record run completion")
	}
}
