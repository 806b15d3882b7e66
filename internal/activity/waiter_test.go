package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/testsuite"

	"github.com/edvin/instance-deploy/internal/model"
)

var waitingEnv = model.ProvisionedEnvironment{EnvironmentID: "e-abc123", EnvironmentName: "acme-acct123"}

func resources(balancers, instances int) *elasticbeanstalk.DescribeEnvironmentResourcesOutput {
	res := &ebtypes.EnvironmentResourceDescription{}
	for range balancers {
		res.LoadBalancers = append(res.LoadBalancers, ebtypes.LoadBalancer{
			Name: aws.String("arn:aws:elasticloadbalancing:eu-central-1:111:loadbalancer/app/awseb/abc"),
		})
	}
	for range instances {
		res.Instances = append(res.Instances, ebtypes.Instance{Id: aws.String("i-0123")})
	}
	return &elasticbeanstalk.DescribeEnvironmentResourcesOutput{EnvironmentResources: res}
}

func TestAwaitNetworkResources_ReadyAfterPolling(t *testing.T) {
	td := newTestDeploy(t, nil)
	td.compute.On("DescribeEnvironmentResources", mock.Anything, mock.MatchedBy(func(in *elasticbeanstalk.DescribeEnvironmentResourcesInput) bool {
		return aws.ToString(in.EnvironmentId) == "e-abc123"
	})).Return(resources(0, 0), nil).Once()
	td.compute.On("DescribeEnvironmentResources", mock.Anything, mock.Anything).Return(resources(1, 0), nil).Once()
	td.compute.On("DescribeEnvironmentResources", mock.Anything, mock.Anything).Return(resources(1, 2), nil).Once()

	balancer, err := td.deploy.AwaitNetworkResources(context.Background(), waitingEnv)

	require.NoError(t, err)
	assert.Equal(t, "arn:aws:elasticloadbalancing:eu-central-1:111:loadbalancer/app/awseb/abc", balancer)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, td.clock.sleeps)
	td.compute.AssertNotCalled(t, "TerminateEnvironment", mock.Anything, mock.Anything)
	td.assertExpectations(t)
}

func TestAwaitNetworkResources_InstancesWithoutBalancerKeepsWaiting(t *testing.T) {
	td := newTestDeploy(t, nil)
	td.compute.On("DescribeEnvironmentResources", mock.Anything, mock.Anything).Return(resources(0, 3), nil).Once()
	td.compute.On("DescribeEnvironmentResources", mock.Anything, mock.Anything).Return(resources(1, 3), nil).Once()

	_, err := td.deploy.AwaitNetworkResources(context.Background(), waitingEnv)

	require.NoError(t, err)
	td.compute.AssertNumberOfCalls(t, "DescribeEnvironmentResources", 2)
}

func TestAwaitNetworkResources_TimeoutTerminatesOnce(t *testing.T) {
	td := newTestDeploy(t, nil)
	td.compute.On("DescribeEnvironmentResources", mock.Anything, mock.Anything).Return(resources(0, 0), nil)
	td.compute.On("TerminateEnvironment", mock.Anything, mock.MatchedBy(func(in *elasticbeanstalk.TerminateEnvironmentInput) bool {
		return aws.ToString(in.EnvironmentId) == "e-abc123" &&
			aws.ToBool(in.ForceTerminate) &&
			aws.ToBool(in.TerminateResources)
	})).Return(&elasticbeanstalk.TerminateEnvironmentOutput{}, nil)

	balancer, err := td.deploy.AwaitNetworkResources(context.Background(), waitingEnv)

	require.Error(t, err)
	assert.Empty(t, balancer)
	assert.True(t, model.IsKind(err, model.KindProvisioningTimeout))
	td.compute.AssertNumberOfCalls(t, "TerminateEnvironment", 1)
	// 30s bound at a 5s interval: polls at 0,5,...,25.
	td.compute.AssertNumberOfCalls(t, "DescribeEnvironmentResources", 6)
}

func TestAwaitNetworkResources_TimeoutReportsCleanupFailure(t *testing.T) {
	td := newTestDeploy(t, nil)
	td.compute.On("DescribeEnvironmentResources", mock.Anything, mock.Anything).Return(resources(1, 0), nil)
	cleanupErr := errors.New("terminate throttled")
	td.compute.On("TerminateEnvironment", mock.Anything, mock.Anything).Return(nil, cleanupErr)

	_, err := td.deploy.AwaitNetworkResources(context.Background(), waitingEnv)

	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindProvisioningTimeout))
	assert.ErrorIs(t, err, cleanupErr)
	td.compute.AssertNumberOfCalls(t, "TerminateEnvironment", 1)
}

func TestAwaitNetworkResources_TimeoutCleanupSurvivesCancelledCaller(t *testing.T) {
	td := newTestDeploy(t, nil)
	td.deploy.settings.ProvisionTimeout = 0
	td.compute.On("TerminateEnvironment", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			assert.NoError(t, args.Get(0).(context.Context).Err())
		}).
		Return(&elasticbeanstalk.TerminateEnvironmentOutput{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := td.deploy.AwaitNetworkResources(ctx, waitingEnv)

	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindProvisioningTimeout))
	td.compute.AssertNumberOfCalls(t, "TerminateEnvironment", 1)
}

func TestAwaitNetworkResources_DescribeFailureAborts(t *testing.T) {
	td := newTestDeploy(t, nil)
	td.compute.On("DescribeEnvironmentResources", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset"))

	_, err := td.deploy.AwaitNetworkResources(context.Background(), waitingEnv)

	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindRemoteAPI))
	td.compute.AssertNotCalled(t, "TerminateEnvironment", mock.Anything, mock.Anything)
}

func TestAwaitNetworkResources_HeartbeatsUnderTemporal(t *testing.T) {
	td := newTestDeploy(t, nil)
	td.compute.On("DescribeEnvironmentResources", mock.Anything, mock.Anything).Return(resources(0, 0), nil).Once()
	td.compute.On("DescribeEnvironmentResources", mock.Anything, mock.Anything).Return(resources(1, 1), nil).Once()

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(td.deploy)

	var first int
	heartbeats := 0
	env.SetOnActivityHeartbeatListener(func(_ *activity.Info, details converter.EncodedValues) {
		heartbeats++
		if heartbeats == 1 {
			require.NoError(t, details.Get(&first))
		}
	})

	val, err := env.ExecuteActivity(td.deploy.AwaitNetworkResources, waitingEnv)
	require.NoError(t, err)

	var balancer string
	require.NoError(t, val.Get(&balancer))
	assert.Equal(t, "arn:aws:elasticloadbalancing:eu-central-1:111:loadbalancer/app/awseb/abc", balancer)
	assert.GreaterOrEqual(t, heartbeats, 1)
	assert.Equal(t, 1, first, "the first poll heartbeats its attempt number")
}
