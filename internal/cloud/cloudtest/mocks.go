// Package cloudtest provides testify mocks for the cloud capability
// interfaces.
package cloudtest

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/instance-deploy/internal/cloud"
)

var (
	_ cloud.ComputeAPI      = (*Compute)(nil)
	_ cloud.LoadBalancerAPI = (*LoadBalancer)(nil)
	_ cloud.DNSAPI          = (*DNS)(nil)
)

// --- Compute ---

type Compute struct {
	mock.Mock
}

func (m *Compute) CreateEnvironment(ctx context.Context, in *elasticbeanstalk.CreateEnvironmentInput, _ ...func(*elasticbeanstalk.Options)) (*elasticbeanstalk.CreateEnvironmentOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*elasticbeanstalk.CreateEnvironmentOutput), args.Error(1)
}

func (m *Compute) DescribeEnvironments(ctx context.Context, in *elasticbeanstalk.DescribeEnvironmentsInput, _ ...func(*elasticbeanstalk.Options)) (*elasticbeanstalk.DescribeEnvironmentsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*elasticbeanstalk.DescribeEnvironmentsOutput), args.Error(1)
}

func (m *Compute) DescribeEnvironmentResources(ctx context.Context, in *elasticbeanstalk.DescribeEnvironmentResourcesInput, _ ...func(*elasticbeanstalk.Options)) (*elasticbeanstalk.DescribeEnvironmentResourcesOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*elasticbeanstalk.DescribeEnvironmentResourcesOutput), args.Error(1)
}

func (m *Compute) TerminateEnvironment(ctx context.Context, in *elasticbeanstalk.TerminateEnvironmentInput, _ ...func(*elasticbeanstalk.Options)) (*elasticbeanstalk.TerminateEnvironmentOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*elasticbeanstalk.TerminateEnvironmentOutput), args.Error(1)
}

func (m *Compute) ListAvailableSolutionStacks(ctx context.Context, in *elasticbeanstalk.ListAvailableSolutionStacksInput, _ ...func(*elasticbeanstalk.Options)) (*elasticbeanstalk.ListAvailableSolutionStacksOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*elasticbeanstalk.ListAvailableSolutionStacksOutput), args.Error(1)
}

func (m *Compute) DescribeApplicationVersions(ctx context.Context, in *elasticbeanstalk.DescribeApplicationVersionsInput, _ ...func(*elasticbeanstalk.Options)) (*elasticbeanstalk.DescribeApplicationVersionsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*elasticbeanstalk.DescribeApplicationVersionsOutput), args.Error(1)
}

func (m *Compute) UpdateEnvironment(ctx context.Context, in *elasticbeanstalk.UpdateEnvironmentInput, _ ...func(*elasticbeanstalk.Options)) (*elasticbeanstalk.UpdateEnvironmentOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*elasticbeanstalk.UpdateEnvironmentOutput), args.Error(1)
}

// --- LoadBalancer ---

type LoadBalancer struct {
	mock.Mock
}

func (m *LoadBalancer) DescribeListeners(ctx context.Context, in *elbv2.DescribeListenersInput, _ ...func(*elbv2.Options)) (*elbv2.DescribeListenersOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*elbv2.DescribeListenersOutput), args.Error(1)
}

func (m *LoadBalancer) DescribeTargetGroups(ctx context.Context, in *elbv2.DescribeTargetGroupsInput, _ ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*elbv2.DescribeTargetGroupsOutput), args.Error(1)
}

func (m *LoadBalancer) CreateListener(ctx context.Context, in *elbv2.CreateListenerInput, _ ...func(*elbv2.Options)) (*elbv2.CreateListenerOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*elbv2.CreateListenerOutput), args.Error(1)
}

func (m *LoadBalancer) ModifyListener(ctx context.Context, in *elbv2.ModifyListenerInput, _ ...func(*elbv2.Options)) (*elbv2.ModifyListenerOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*elbv2.ModifyListenerOutput), args.Error(1)
}

func (m *LoadBalancer) SetSecurityGroups(ctx context.Context, in *elbv2.SetSecurityGroupsInput, _ ...func(*elbv2.Options)) (*elbv2.SetSecurityGroupsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*elbv2.SetSecurityGroupsOutput), args.Error(1)
}

// --- DNS ---

type DNS struct {
	mock.Mock
}

func (m *DNS) ChangeResourceRecordSets(ctx context.Context, in *route53.ChangeResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*route53.ChangeResourceRecordSetsOutput), args.Error(1)
}

// Clients returns a bundle wired to fresh mocks.
func Clients() (*cloud.Clients, *Compute, *LoadBalancer, *DNS) {
	compute := &Compute{}
	lb := &LoadBalancer{}
	dns := &DNS{}
	return &cloud.Clients{Compute: compute, LoadBalancer: lb, DNS: dns}, compute, lb, dns
}
