package activity

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk/types"
	"github.com/rs/zerolog"

	"github.com/edvin/instance-deploy/internal/cloud/cloudtest"
)

// fakeClock advances instantly whenever After is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func testSettings() Settings {
	return Settings{
		ApplicationName:         "backend",
		BaseDomain:              "example-base-domain",
		HostedZoneID:            "ZHOSTED",
		ELBZoneID:               "Z117KPS5GTRQ2G",
		CertificateArn:          "arn:aws:acm:eu-central-1:111:certificate/abc",
		SSLPolicy:               "ELBSecurityPolicy-TLS13-1-2-2021-06",
		BalancerSecurityGroupID: "sg-balancer",
		InstanceSecurityGroup:   "sg-instance",
		InstanceKeyName:         "deploy-key",
		InstanceProfile:         "aws-elasticbeanstalk-ec2-role",
		PollInterval:            5 * time.Second,
		ProvisionTimeout:        30 * time.Second,
	}
}

type testDeploy struct {
	deploy  *Deploy
	compute *cloudtest.Compute
	lb      *cloudtest.LoadBalancer
	dns     *cloudtest.DNS
	clock   *fakeClock
}

func newTestDeploy(t *testing.T, logOut io.Writer, opts ...Option) *testDeploy {
	t.Helper()
	if logOut == nil {
		logOut = io.Discard
	}
	clients, compute, lb, dns := cloudtest.Clients()
	clock := newFakeClock()
	opts = append([]Option{WithClock(clock)}, opts...)
	return &testDeploy{
		deploy:  NewDeploy(clients, testSettings(), zerolog.New(logOut), opts...),
		compute: compute,
		lb:      lb,
		dns:     dns,
		clock:   clock,
	}
}

func (td *testDeploy) assertExpectations(t *testing.T) {
	t.Helper()
	td.compute.AssertExpectations(t)
	td.lb.AssertExpectations(t)
	td.dns.AssertExpectations(t)
}

func findOption(opts []ebtypes.ConfigurationOptionSetting, namespace, name string) (string, bool) {
	for _, o := range opts {
		if aws.ToString(o.Namespace) == namespace && aws.ToString(o.OptionName) == name {
			return aws.ToString(o.Value), true
		}
	}
	return "", false
}
