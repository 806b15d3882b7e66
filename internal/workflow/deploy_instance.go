package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/instance-deploy/internal/activity"
	"github.com/edvin/instance-deploy/internal/config"
	"github.com/edvin/instance-deploy/internal/model"
)

// DeployInstanceWorkflowName is the registered name of DeployInstanceWorkflow.
const DeployInstanceWorkflowName = "DeployInstanceWorkflow"

// The waiter enforces the worker's PROVISION_TIMEOUT itself. Its Temporal
// deadline sits past the largest timeout any worker accepts, so the waiter's
// own deadline and cleanup always fire first; the heartbeat catches a worker
// that dies mid-wait.
const (
	resourceWaitSlack     = 5 * time.Minute
	resourceWaitDeadline  = config.MaxProvisionTimeout + resourceWaitSlack
	resourceWaitHeartbeat = 2 * time.Minute
	statusReportTimeout   = 30 * time.Second
)

// DeployInstanceParams is the workflow input. The activation token travels
// separately because ProvisionRequest never serializes it.
type DeployInstanceParams struct {
	Request        model.ProvisionRequest `json:"request"`
	Token          string                 `json:"token"`
	NotifyFailures bool                   `json:"notify_failures"`
}

// noRetry runs every stage exactly once. A failed stage ends the deploy.
var noRetry = &temporal.RetryPolicy{MaximumAttempts: 1}

// DeployInstanceWorkflow runs the deploy stages as activities, in order, and
// posts the callback once the domain is bound.
func DeployInstanceWorkflow(ctx workflow.Context, params DeployInstanceParams) (*model.DomainBinding, error) {
	logger := workflow.GetLogger(ctx)
	req := params.Request

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         noRetry,
	})
	waitCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: resourceWaitDeadline,
		HeartbeatTimeout:    resourceWaitHeartbeat,
		RetryPolicy:         noRetry,
	})
	statusCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: statusReportTimeout,
		RetryPolicy:         noRetry,
	})

	reached := model.StatusPending
	stageFrom := workflow.Now(ctx)
	var envID string
	// report never fails the deploy; a lost transition only costs a log line
	// and a metric sample.
	report := func(status model.ProvisioningStatus, cause error) {
		now := workflow.Now(ctx)
		r := StatusReport{
			InstanceID:    req.InstanceID,
			AccountID:     req.AccountID,
			EnvironmentID: envID,
			Status:        status,
			Reached:       status,
			Elapsed:       now.Sub(stageFrom),
		}
		if cause != nil {
			r.Reached = reached
			r.Error = cause.Error()
		}
		if err := workflow.ExecuteActivity(statusCtx, ReportStatusActivityName, r).Get(ctx, nil); err != nil {
			logger.Warn("status report failed", "instanceId", req.InstanceID, "status", string(status), "error", err)
		}
		if cause == nil {
			reached = status
			stageFrom = now
		}
	}
	fail := func(stage string, err error) error {
		logger.Error("deploy failed", "instanceId", req.InstanceID, "envId", envID,
			"reached", string(reached), "stage", stage, "kind", string(ErrorKind(err)), "error", err)
		report(model.StatusFailed, fmt.Errorf("%s: %w", stage, err))
		if params.NotifyFailures {
			notifyErr := workflow.ExecuteActivity(ctx, "SendFailureCallback", activity.SendFailureCallbackParams{
				InstanceID: req.InstanceID,
				Token:      params.Token,
				Payload: model.FailureCallbackPayload{
					AccountID: req.AccountID,
					EnvID:     envID,
					Stage:     reached,
					Message:   err.Error(),
				},
			}).Get(ctx, nil)
			if notifyErr != nil {
				logger.Error("failure callback failed", "instanceId", req.InstanceID, "error", notifyErr)
			}
		}
		return fmt.Errorf("%s: %w", stage, err)
	}
	advance := func(status model.ProvisioningStatus) {
		report(status, nil)
	}

	advance(model.StatusPending)

	var env model.ProvisionedEnvironment
	if err := workflow.ExecuteActivity(ctx, "CreateEnvironment", req).Get(ctx, &env); err != nil {
		return nil, fail("create environment", err)
	}
	envID = env.EnvironmentID

	var balancer string
	if err := workflow.ExecuteActivity(waitCtx, "AwaitNetworkResources", env).Get(ctx, &balancer); err != nil {
		return nil, fail("await network resources", err)
	}
	advance(model.StatusResourcesReady)

	if err := workflow.ExecuteActivity(ctx, "ConfigureLoadBalancer", balancer).Get(ctx, nil); err != nil {
		return nil, fail("configure load balancer", err)
	}
	advance(model.StatusConfigured)

	var binding model.DomainBinding
	if err := workflow.ExecuteActivity(ctx, "ConfigureDomain", env).Get(ctx, &binding); err != nil {
		return nil, fail("configure domain", err)
	}
	advance(model.StatusDomainBound)

	err := workflow.ExecuteActivity(ctx, "SendCallback", activity.SendCallbackParams{
		InstanceID: req.InstanceID,
		Token:      params.Token,
		Payload: model.CallbackPayload{
			EnvID:     env.EnvironmentID,
			URL:       binding.FQDN,
			AccountID: req.AccountID,
		},
	}).Get(ctx, nil)
	if err != nil {
		logger.Error("environment ready but callback failed", "instanceId", req.InstanceID,
			"fqdn", binding.FQDN, "error", err)
		report(model.StatusFailed, fmt.Errorf("send callback: %w", err))
		return &binding, fmt.Errorf("send callback: %w", err)
	}
	advance(model.StatusCompleted)
	return &binding, nil
}
