// Package deploy runs the tenant deploy pipeline in-process.
package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/instance-deploy/internal/activity"
	"github.com/edvin/instance-deploy/internal/model"
)

// Stages are the provisioning steps of a deploy, in order.
type Stages interface {
	CreateEnvironment(ctx context.Context, req model.ProvisionRequest) (*model.ProvisionedEnvironment, error)
	AwaitNetworkResources(ctx context.Context, env model.ProvisionedEnvironment) (string, error)
	ConfigureLoadBalancer(ctx context.Context, balancerArn string) (*model.LoadBalancerConfig, error)
	ConfigureDomain(ctx context.Context, env model.ProvisionedEnvironment) (*model.DomainBinding, error)
}

// Notifier reports pipeline results to the origin system.
type Notifier interface {
	SendCallback(ctx context.Context, params activity.SendCallbackParams) error
	SendFailureCallback(ctx context.Context, params activity.SendFailureCallbackParams) error
}

// Pipeline drives one deploy strictly sequentially: no stage starts before
// the previous one returned its resource.
type Pipeline struct {
	stages         Stages
	notifier       Notifier
	reporter       StatusReporter
	notifyFailures bool
	now            func() time.Time
	logger         zerolog.Logger
}

// NewPipeline creates a Pipeline. When notifyFailures is set a failed run
// also posts a fail-callback; otherwise failures are only logged.
func NewPipeline(stages Stages, notifier Notifier, reporter StatusReporter, notifyFailures bool, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		stages:         stages,
		notifier:       notifier,
		reporter:       reporter,
		notifyFailures: notifyFailures,
		now:            time.Now,
		logger:         logger.With().Str("component", "pipeline").Logger(),
	}
}

// progress is the per-run record of the last stage boundary reached.
type progress struct {
	req       model.ProvisionRequest
	envID     string
	reached   model.ProvisioningStatus
	stageFrom time.Time
}

// Run executes every stage for req and, on success, posts the callback.
// The returned binding is non-nil once the domain is bound, even when the
// callback itself fails.
func (p *Pipeline) Run(ctx context.Context, req model.ProvisionRequest) (*model.DomainBinding, error) {
	logger := p.logger.With().Str("instance_id", req.InstanceID).Str("account_id", req.AccountID).Logger()
	ctx = logger.WithContext(ctx)

	pr := &progress{req: req, stageFrom: p.now()}
	p.advance(pr, model.StatusPending)

	env, err := p.stages.CreateEnvironment(ctx, req)
	if err != nil {
		return nil, p.fail(ctx, pr, fmt.Errorf("create environment: %w", err))
	}
	pr.envID = env.EnvironmentID
	logger = logger.With().Str("env_id", env.EnvironmentID).Str("env_name", env.EnvironmentName).Logger()

	balancer, err := p.stages.AwaitNetworkResources(ctx, *env)
	if err != nil {
		return nil, p.fail(ctx, pr, fmt.Errorf("await network resources: %w", err))
	}
	p.advance(pr, model.StatusResourcesReady)

	if _, err := p.stages.ConfigureLoadBalancer(ctx, balancer); err != nil {
		return nil, p.fail(ctx, pr, fmt.Errorf("configure load balancer: %w", err))
	}
	p.advance(pr, model.StatusConfigured)

	binding, err := p.stages.ConfigureDomain(ctx, *env)
	if err != nil {
		return nil, p.fail(ctx, pr, fmt.Errorf("configure domain: %w", err))
	}
	p.advance(pr, model.StatusDomainBound)

	err = p.notifier.SendCallback(ctx, activity.SendCallbackParams{
		InstanceID: req.InstanceID,
		Token:      req.JWT,
		Payload: model.CallbackPayload{
			EnvID:     env.EnvironmentID,
			URL:       binding.FQDN,
			AccountID: req.AccountID,
		},
	})
	if err != nil {
		logger.Error().Err(err).Str("fqdn", binding.FQDN).Msg("environment ready but callback failed")
		p.reporter.Report(StatusUpdate{
			InstanceID:    req.InstanceID,
			AccountID:     req.AccountID,
			EnvironmentID: pr.envID,
			Status:        model.StatusFailed,
			Reached:       pr.reached,
			Elapsed:       p.now().Sub(pr.stageFrom),
			Err:           err,
		})
		return binding, fmt.Errorf("send callback: %w", err)
	}
	p.advance(pr, model.StatusCompleted)
	return binding, nil
}

func (p *Pipeline) advance(pr *progress, status model.ProvisioningStatus) {
	now := p.now()
	p.reporter.Report(StatusUpdate{
		InstanceID:    pr.req.InstanceID,
		AccountID:     pr.req.AccountID,
		EnvironmentID: pr.envID,
		Status:        status,
		Reached:       status,
		Elapsed:       now.Sub(pr.stageFrom),
	})
	pr.reached = status
	pr.stageFrom = now
}

// fail records a failed run. No compensating action is taken for the
// resources already created.
func (p *Pipeline) fail(ctx context.Context, pr *progress, err error) error {
	p.reporter.Report(StatusUpdate{
		InstanceID:    pr.req.InstanceID,
		AccountID:     pr.req.AccountID,
		EnvironmentID: pr.envID,
		Status:        model.StatusFailed,
		Reached:       pr.reached,
		Elapsed:       p.now().Sub(pr.stageFrom),
		Err:           err,
	})

	if p.notifyFailures {
		notifyErr := p.notifier.SendFailureCallback(ctx, activity.SendFailureCallbackParams{
			InstanceID: pr.req.InstanceID,
			Token:      pr.req.JWT,
			Payload: model.FailureCallbackPayload{
				AccountID: pr.req.AccountID,
				EnvID:     pr.envID,
				Stage:     pr.reached,
				Message:   err.Error(),
			},
		})
		if notifyErr != nil {
			zerolog.Ctx(ctx).Error().Err(notifyErr).Msg("failed to send failure callback")
		}
	}
	return err
}
