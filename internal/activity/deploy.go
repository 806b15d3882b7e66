package activity

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/instance-deploy/internal/cloud"
	"github.com/edvin/instance-deploy/internal/config"
	"github.com/edvin/instance-deploy/internal/model"
	"github.com/edvin/instance-deploy/internal/platform"
)

// Settings holds the fixed, pre-provisioned identifiers the deploy stages
// apply to every tenant environment.
type Settings struct {
	ApplicationName         string
	BaseDomain              string
	HostedZoneID            string
	ELBZoneID               string
	CertificateArn          string
	SSLPolicy               string
	BalancerSecurityGroupID string
	InstanceSecurityGroup   string
	InstanceKeyName         string
	InstanceProfile         string
	PollInterval            time.Duration
	ProvisionTimeout        time.Duration
}

// SettingsFromConfig copies the deploy settings out of the process config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		ApplicationName:         cfg.ApplicationName,
		BaseDomain:              cfg.BaseDomain,
		HostedZoneID:            cfg.HostedZoneID,
		ELBZoneID:               cfg.ELBZoneID,
		CertificateArn:          cfg.CertificateArn,
		SSLPolicy:               cfg.SSLPolicy,
		BalancerSecurityGroupID: cfg.BalancerSecurityGroupID,
		InstanceSecurityGroup:   cfg.InstanceSecurityGroup,
		InstanceKeyName:         cfg.InstanceKeyName,
		InstanceProfile:         cfg.InstanceProfile,
		PollInterval:            cfg.PollInterval,
		ProvisionTimeout:        cfg.ProvisionTimeout,
	}
}

// Deploy contains the provisioning stages of a tenant deploy: environment
// creation, the network resource wait, load balancer configuration and the
// DNS binding. Every exported method is registered as a Temporal activity
// and is also called directly by the in-process pipeline.
type Deploy struct {
	compute  cloud.ComputeAPI
	lb       cloud.LoadBalancerAPI
	dns      cloud.DNSAPI
	settings Settings
	logger   zerolog.Logger

	clock     Clock
	newSecret func() string
}

// Option customizes a Deploy.
type Option func(*Deploy)

// WithClock replaces the wall clock used by the resource waiter.
func WithClock(c Clock) Option {
	return func(d *Deploy) { d.clock = c }
}

// WithSecretGenerator replaces the random secret source.
func WithSecretGenerator(fn func() string) Option {
	return func(d *Deploy) { d.newSecret = fn }
}

// NewDeploy creates a new Deploy activity struct.
func NewDeploy(clients *cloud.Clients, settings Settings, logger zerolog.Logger, opts ...Option) *Deploy {
	d := &Deploy{
		compute:   clients.Compute,
		lb:        clients.LoadBalancer,
		dns:       clients.DNS,
		settings:  settings,
		logger:    logger.With().Str("component", "deploy").Logger(),
		clock:     realClock{},
		newSecret: platform.NewSecret,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func remoteErr(op string, err error) error {
	return model.WrapError(err, model.KindRemoteAPI, op)
}
