package activity

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk/types"
)

// Option namespaces understood by the compute platform.
const (
	nsDBInstance     = "aws:rds:dbinstance"
	nsAppEnvironment = "aws:elasticbeanstalk:application:environment"
	nsEnvironment    = "aws:elasticbeanstalk:environment"
	nsCommand        = "aws:elasticbeanstalk:command"
	nsInstances      = "aws:ec2:instances"
	nsLaunchConfig   = "aws:autoscaling:launchconfiguration"
	nsDefaultProcess = "aws:elasticbeanstalk:environment:process:default"
)

// Environment variables injected into every tenant environment.
const (
	EnvSigningSecret = "JWT_SECRET"
	EnvActivationKey = "KEY"
	EnvInstanceID    = "ID"
	EnvAccountID     = "ACCOUNT_ID"
	EnvTenantName    = "NAME"
)

// healthyRedirectCodes are the responses the health check treats as healthy;
// tenant apps redirect plaintext probes rather than answering 200.
const healthyRedirectCodes = "308,301,307,302"

func optionSetting(namespace, name, value string) ebtypes.ConfigurationOptionSetting {
	return ebtypes.ConfigurationOptionSetting{
		Namespace:  aws.String(namespace),
		OptionName: aws.String(name),
		Value:      aws.String(value),
	}
}

func namespaceSetter(namespace string) func(name, value string) ebtypes.ConfigurationOptionSetting {
	return func(name, value string) ebtypes.ConfigurationOptionSetting {
		return optionSetting(namespace, name, value)
	}
}

var (
	setDB     = namespaceSetter(nsDBInstance)
	setEnvVar = namespaceSetter(nsAppEnvironment)
)

// baselineOptions are the tier, scaling and health settings shared by every
// tenant environment.
func baselineOptions(s Settings) []ebtypes.ConfigurationOptionSetting {
	opts := []ebtypes.ConfigurationOptionSetting{
		optionSetting(nsEnvironment, "LoadBalancerType", "application"),
		optionSetting(nsCommand, "DeploymentPolicy", "RollingWithAdditionalBatch"),
		optionSetting(nsInstances, "InstanceTypes", "t2.micro,t3.micro"),
		optionSetting(nsLaunchConfig, "IamInstanceProfile", s.InstanceProfile),
		optionSetting(nsLaunchConfig, "SecurityGroups", s.InstanceSecurityGroup),
		optionSetting(nsDefaultProcess, "HealthCheckPath", "/health"),
		optionSetting(nsDefaultProcess, "MatcherHTTPCode", healthyRedirectCodes),
	}
	if s.InstanceKeyName != "" {
		opts = append(opts, optionSetting(nsLaunchConfig, "EC2KeyName", s.InstanceKeyName))
	}
	return opts
}

// databaseOptions couple a managed Postgres instance to the environment.
// The password is platform-managed and never exposed as an env var.
func databaseOptions(password string) []ebtypes.ConfigurationOptionSetting {
	return []ebtypes.ConfigurationOptionSetting{
		setDB("HasCoupledDatabase", "true"),
		setDB("DBEngine", "postgres"),
		setDB("DBEngineVersion", "14.2"),
		setDB("DBInstanceClass", "db.t4g.micro"),
		setDB("DBAllocatedStorage", "10"),
		setDB("DBDeletionPolicy", "Delete"),
		setDB("DBUser", "backend"),
		setDB("DBPassword", password),
	}
}

type tenantEnv struct {
	signingSecret string
	key           string
	instanceID    string
	accountID     string
	name          string
}

func environmentVariables(e tenantEnv) []ebtypes.ConfigurationOptionSetting {
	return []ebtypes.ConfigurationOptionSetting{
		setEnvVar(EnvSigningSecret, e.signingSecret),
		setEnvVar(EnvActivationKey, e.key),
		setEnvVar(EnvInstanceID, e.instanceID),
		setEnvVar(EnvAccountID, e.accountID),
		setEnvVar(EnvTenantName, e.name),
	}
}
