package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk"
	"go.temporal.io/sdk/activity"

	"github.com/edvin/instance-deploy/internal/model"
)

const cleanupTimeout = 30 * time.Second

// AwaitNetworkResources polls the environment's resources until both a load
// balancer and at least one compute instance are attached, and returns the
// balancer identifier. The wait is bounded by the configured provision
// timeout; when it elapses the environment is force-terminated exactly once
// and a provisioning timeout error is returned. Under Temporal every poll
// heartbeats, so a lost worker surfaces within the heartbeat timeout rather
// than at the activity deadline.
func (a *Deploy) AwaitNetworkResources(ctx context.Context, env model.ProvisionedEnvironment) (string, error) {
	logger := a.logger.With().Str("environment_id", env.EnvironmentID).Logger()
	started := a.clock.Now()

	for attempt := 1; ; attempt++ {
		if activity.IsActivity(ctx) {
			activity.RecordHeartbeat(ctx, attempt)
		}
		if a.clock.Now().Sub(started) >= a.settings.ProvisionTimeout {
			return "", a.abandonEnvironment(ctx, env)
		}

		out, err := a.compute.DescribeEnvironmentResources(ctx, &elasticbeanstalk.DescribeEnvironmentResourcesInput{
			EnvironmentId: aws.String(env.EnvironmentID),
		})
		if err != nil {
			return "", remoteErr(fmt.Sprintf("describe resources of %s", env.EnvironmentID), err)
		}

		if res := out.EnvironmentResources; res != nil && len(res.LoadBalancers) > 0 && len(res.Instances) > 0 {
			balancer := aws.ToString(res.LoadBalancers[0].Name)
			if balancer != "" {
				logger.Info().Int("attempts", attempt).Str("balancer", balancer).
					Dur("waited", a.clock.Now().Sub(started)).Msg("network resources ready")
				return balancer, nil
			}
		}

		logger.Debug().Int("attempt", attempt).Msg("network resources not ready")
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("await network resources of %s: %w", env.EnvironmentID, ctx.Err())
		case <-a.clock.After(a.settings.PollInterval):
		}
	}
}

// abandonEnvironment force-terminates an environment that never became ready.
// The cleanup runs on its own deadline so a caller-side cancellation cannot
// skip it.
func (a *Deploy) abandonEnvironment(ctx context.Context, env model.ProvisionedEnvironment) error {
	timeoutErr := model.NewError(model.KindProvisioningTimeout,
		fmt.Sprintf("environment %s not ready after %s", env.EnvironmentID, a.settings.ProvisionTimeout))

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	_, err := a.compute.TerminateEnvironment(cleanupCtx, &elasticbeanstalk.TerminateEnvironmentInput{
		EnvironmentId:      aws.String(env.EnvironmentID),
		ForceTerminate:     aws.Bool(true),
		TerminateResources: aws.Bool(true),
	})
	if err != nil {
		a.logger.Error().Err(err).Str("environment_id", env.EnvironmentID).
			Msg("failed to terminate environment after provisioning timeout")
		return errors.Join(timeoutErr, fmt.Errorf("terminate environment %s: %w", env.EnvironmentID, err))
	}

	a.logger.Warn().Str("environment_id", env.EnvironmentID).
		Msg("environment terminated after provisioning timeout")
	return timeoutErr
}
