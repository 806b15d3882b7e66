package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Dispatcher modes.
const (
	DispatcherInline   = "inline"
	DispatcherTemporal = "temporal"
)

// defaultELBZoneID is the alias-target zone of us-east-1 environment CNAMEs.
// Every other region must set ELB_ZONE_ID explicitly.
const (
	defaultRegion    = "us-east-1"
	defaultELBZoneID = "Z117KPS5GTRQ2G"
)

// Upper bounds on the resource wait. The durable workflow sizes the waiter
// activity's deadline and heartbeat from these, so a worker's own
// PROVISION_TIMEOUT and POLL_INTERVAL always fit inside them.
const (
	MaxProvisionTimeout = 2 * time.Hour
	MaxPollInterval     = time.Minute
)

type Config struct {
	ServiceName       string
	HTTPListenAddr    string
	MetricsListenAddr string
	LogLevel          string

	// Cloud credentials and placement. Empty keys fall back to the SDK's
	// default credential chain.
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

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

	// ActivationSecret verifies the inbound jwt header.
	ActivationSecret string
	// APIURI is the origin system's base URL for callbacks.
	APIURI string

	PollInterval         time.Duration
	ProvisionTimeout     time.Duration
	CallbackTimeout      time.Duration
	ShutdownTimeout      time.Duration
	MaxConcurrentDeploys int
	NotifyFailures       bool

	Dispatcher            string
	TemporalAddress       string
	TemporalTaskQueue     string
	TemporalTLSCert       string
	TemporalTLSKey        string
	TemporalTLSCACert     string
	TemporalTLSServerName string
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:       getEnv("SERVICE_NAME", "instance-deploy"),
		HTTPListenAddr:    getEnv("HTTP_LISTEN_ADDR", ":3001"),
		MetricsListenAddr: getEnv("METRICS_LISTEN_ADDR", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),

		AWSRegion:          getEnv("AWS_REGION", defaultRegion),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),

		ApplicationName:         getEnv("APPLICATION_NAME", ""),
		BaseDomain:              getEnv("BASE_DOMAIN", ""),
		HostedZoneID:            getEnv("HOSTED_ZONE_ID", ""),
		ELBZoneID:               getEnv("ELB_ZONE_ID", ""),
		CertificateArn:          getEnv("CERTIFICATE_ARN", ""),
		SSLPolicy:               getEnv("SSL_POLICY", "ELBSecurityPolicy-2016-08"),
		BalancerSecurityGroupID: getEnv("BALANCER_SECURITY_GROUP_ID", ""),
		InstanceSecurityGroup:   getEnv("INSTANCE_SECURITY_GROUP", ""),
		InstanceKeyName:         getEnv("INSTANCE_KEY_NAME", ""),
		InstanceProfile:         getEnv("INSTANCE_PROFILE", "aws-elasticbeanstalk-ec2-role"),

		ActivationSecret: getEnv("ACTIVATION_SECRET", ""),
		APIURI:           strings.TrimRight(getEnv("API_URI", ""), "/"),

		Dispatcher:            getEnv("DISPATCHER", DispatcherInline),
		TemporalAddress:       getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalTaskQueue:     getEnv("TEMPORAL_TASK_QUEUE", "instance-deploy"),
		TemporalTLSCert:       getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:        getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:     getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName: getEnv("TEMPORAL_TLS_SERVER_NAME", ""),
	}

	if cfg.ELBZoneID == "" && cfg.AWSRegion == defaultRegion {
		cfg.ELBZoneID = defaultELBZoneID
	}

	var err error
	if cfg.PollInterval, err = getEnvDuration("POLL_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ProvisionTimeout, err = getEnvDuration("PROVISION_TIMEOUT", 14*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CallbackTimeout, err = getEnvDuration("CALLBACK_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrentDeploys, err = getEnvInt("MAX_CONCURRENT_DEPLOYS", 16); err != nil {
		return nil, err
	}
	if cfg.NotifyFailures, err = getEnvBool("NOTIFY_FAILURES", false); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the variables required by the given role are set.
// Roles: "server", "worker", "rollout", "teardown".
func (c *Config) Validate(role string) error {
	var missing []string
	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	// Every role talks to the compute platform.
	require("AWS_REGION", c.AWSRegion)
	require("APPLICATION_NAME", c.ApplicationName)

	pipeline := func() {
		require("BASE_DOMAIN", c.BaseDomain)
		require("HOSTED_ZONE_ID", c.HostedZoneID)
		require("ELB_ZONE_ID", c.ELBZoneID)
		require("CERTIFICATE_ARN", c.CertificateArn)
		require("BALANCER_SECURITY_GROUP_ID", c.BalancerSecurityGroupID)
		require("INSTANCE_SECURITY_GROUP", c.InstanceSecurityGroup)
		require("API_URI", c.APIURI)
	}

	switch role {
	case "server":
		require("HTTP_LISTEN_ADDR", c.HTTPListenAddr)
		require("ACTIVATION_SECRET", c.ActivationSecret)
		switch c.Dispatcher {
		case DispatcherInline:
			pipeline()
		case DispatcherTemporal:
			require("TEMPORAL_ADDRESS", c.TemporalAddress)
			require("TEMPORAL_TASK_QUEUE", c.TemporalTaskQueue)
		default:
			return fmt.Errorf("invalid config for %s: DISPATCHER must be %q or %q, got %q",
				role, DispatcherInline, DispatcherTemporal, c.Dispatcher)
		}
	case "worker":
		pipeline()
		require("TEMPORAL_ADDRESS", c.TemporalAddress)
		require("TEMPORAL_TASK_QUEUE", c.TemporalTaskQueue)
	case "rollout":
	case "teardown":
		require("BASE_DOMAIN", c.BaseDomain)
		require("HOSTED_ZONE_ID", c.HostedZoneID)
		require("ELB_ZONE_ID", c.ELBZoneID)
	default:
		return fmt.Errorf("unknown config role %q", role)
	}

	if (c.TemporalTLSCert == "") != (c.TemporalTLSKey == "") {
		return fmt.Errorf("invalid config for %s: TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set", role)
	}
	if c.PollInterval <= 0 || c.ProvisionTimeout <= 0 {
		return fmt.Errorf("invalid config for %s: POLL_INTERVAL and PROVISION_TIMEOUT must be positive", role)
	}
	if c.ProvisionTimeout > MaxProvisionTimeout || c.PollInterval > MaxPollInterval {
		return fmt.Errorf("invalid config for %s: PROVISION_TIMEOUT must not exceed %s and POLL_INTERVAL must not exceed %s",
			role, MaxProvisionTimeout, MaxPollInterval)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config for %s: %s", role, strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}
