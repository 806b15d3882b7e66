package activity

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk/types"

	"github.com/edvin/instance-deploy/internal/cloud"
	"github.com/edvin/instance-deploy/internal/crypto"
	"github.com/edvin/instance-deploy/internal/model"
	"github.com/edvin/instance-deploy/internal/platform"
)

// containerStackMarker identifies the container-capable solution stacks.
const containerStackMarker = "running Docker"

// CreateEnvironment resolves the runtime image and application version, mints
// the tenant's database password and signing secret, and submits a new
// environment. It does not wait for the environment to become ready.
func (a *Deploy) CreateEnvironment(ctx context.Context, req model.ProvisionRequest) (*model.ProvisionedEnvironment, error) {
	stack, err := a.resolveSolutionStack(ctx)
	if err != nil {
		return nil, err
	}
	version, err := a.resolveVersionLabel(ctx)
	if err != nil {
		return nil, err
	}

	dbPassword := a.newSecret()
	signingSecret := a.newSecret()
	if dbPassword == signingSecret {
		return nil, fmt.Errorf("secret generator returned identical secrets")
	}

	envName := platform.EnvironmentName(req.Name, req.AccountID)

	options := baselineOptions(a.settings)
	options = append(options, databaseOptions(dbPassword)...)
	options = append(options, environmentVariables(tenantEnv{
		signingSecret: signingSecret,
		key:           req.Key,
		instanceID:    req.InstanceID,
		accountID:     req.AccountID,
		name:          req.Name,
	})...)

	out, err := a.compute.CreateEnvironment(ctx, &elasticbeanstalk.CreateEnvironmentInput{
		ApplicationName:   aws.String(a.settings.ApplicationName),
		EnvironmentName:   aws.String(envName),
		SolutionStackName: aws.String(stack),
		VersionLabel:      aws.String(version),
		Tier: &ebtypes.EnvironmentTier{
			Name: aws.String("WebServer"),
			Type: aws.String("Standard"),
		},
		OptionSettings: options,
	})
	if err != nil {
		if cloud.IsAlreadyExists(err) {
			a.logger.Warn().
				Str("instance_id", req.InstanceID).
				Str("account_id", req.AccountID).
				Str("environment_name", envName).
				Str("provider_code", cloud.ErrorCode(err)).
				Msg("environment name already in use, duplicate deploy rejected")
			return nil, remoteErr(fmt.Sprintf("create environment %s: name already in use", envName), err)
		}
		return nil, remoteErr(fmt.Sprintf("create environment %s", envName), err)
	}
	envID := aws.ToString(out.EnvironmentId)
	if envID == "" {
		return nil, model.NewError(model.KindRemoteAPI, fmt.Sprintf("create environment %s: no environment id returned", envName))
	}

	a.logger.Info().
		Str("instance_id", req.InstanceID).
		Str("account_id", req.AccountID).
		Str("environment_id", envID).
		Str("environment_name", envName).
		Str("solution_stack", stack).
		Str("version_label", version).
		Str("db_password_fp", crypto.Fingerprint(dbPassword)).
		Str("signing_secret_fp", crypto.Fingerprint(signingSecret)).
		Msg("environment creation submitted")

	return &model.ProvisionedEnvironment{
		EnvironmentID:   envID,
		EnvironmentName: envName,
		ApplicationName: a.settings.ApplicationName,
		VersionLabel:    version,
		SolutionStack:   stack,
		DBPassword:      dbPassword,
		SigningSecret:   signingSecret,
	}, nil
}

func (a *Deploy) resolveSolutionStack(ctx context.Context) (string, error) {
	out, err := a.compute.ListAvailableSolutionStacks(ctx, &elasticbeanstalk.ListAvailableSolutionStacksInput{})
	if err != nil {
		return "", remoteErr("list solution stacks", err)
	}
	for _, name := range out.SolutionStacks {
		if strings.Contains(name, containerStackMarker) {
			return name, nil
		}
	}
	return "", model.NewError(model.KindPrerequisite, "no container runtime solution stack available")
}

func (a *Deploy) resolveVersionLabel(ctx context.Context) (string, error) {
	return latestVersionLabel(ctx, a.compute, a.settings.ApplicationName)
}

// latestVersionLabel returns the most recently published version of the
// application. The platform lists versions newest first.
func latestVersionLabel(ctx context.Context, compute cloud.ComputeAPI, application string) (string, error) {
	out, err := compute.DescribeApplicationVersions(ctx, &elasticbeanstalk.DescribeApplicationVersionsInput{
		ApplicationName: aws.String(application),
	})
	if err != nil {
		return "", remoteErr("describe application versions", err)
	}
	for _, v := range out.ApplicationVersions {
		if label := aws.ToString(v.VersionLabel); label != "" {
			return label, nil
		}
	}
	return "", model.NewError(model.KindPrerequisite,
		fmt.Sprintf("application %s has no deployable version", application))
}
