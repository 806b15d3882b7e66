package activity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/edvin/instance-deploy/internal/model"
	"github.com/edvin/instance-deploy/internal/platform"
)

// ConfigureDomain publishes {environment name}.{base domain} as an alias of
// the environment's canonical network name. Creating a record that already
// exists is rejected by the DNS provider and surfaces as a remote API error.
func (a *Deploy) ConfigureDomain(ctx context.Context, env model.ProvisionedEnvironment) (*model.DomainBinding, error) {
	cname, err := a.canonicalName(ctx, env.EnvironmentID)
	if err != nil {
		return nil, err
	}
	fqdn := platform.TenantHostname(env.EnvironmentName, a.settings.BaseDomain)

	_, err = a.dns.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(a.settings.HostedZoneID),
		ChangeBatch: &r53types.ChangeBatch{
			Changes: []r53types.Change{a.aliasChange(r53types.ChangeActionCreate, fqdn, cname)},
		},
	})
	if err != nil {
		a.logger.Error().Err(err).Str("fqdn", fqdn).Str("canonical_name", cname).
			Msg("failed to create tenant dns record")
		return nil, remoteErr(fmt.Sprintf("create dns record %s", fqdn), err)
	}

	a.logger.Info().Str("environment_id", env.EnvironmentID).Str("fqdn", fqdn).
		Str("canonical_name", cname).Msg("tenant domain bound")
	return &model.DomainBinding{FQDN: fqdn, CanonicalName: cname}, nil
}

func (a *Deploy) canonicalName(ctx context.Context, envID string) (string, error) {
	out, err := a.compute.DescribeEnvironments(ctx, &elasticbeanstalk.DescribeEnvironmentsInput{
		ApplicationName: aws.String(a.settings.ApplicationName),
		EnvironmentIds:  []string{envID},
	})
	if err != nil {
		return "", remoteErr(fmt.Sprintf("describe environment %s", envID), err)
	}
	if len(out.Environments) == 0 || aws.ToString(out.Environments[0].CNAME) == "" {
		return "", model.NewError(model.KindRemoteAPI, fmt.Sprintf("environment %s has no canonical name", envID))
	}
	return aws.ToString(out.Environments[0].CNAME), nil
}

func (a *Deploy) aliasChange(action r53types.ChangeAction, fqdn, target string) r53types.Change {
	return aliasRecordChange(action, fqdn, target, a.settings.ELBZoneID)
}

func aliasRecordChange(action r53types.ChangeAction, fqdn, target, aliasZoneID string) r53types.Change {
	return r53types.Change{
		Action: action,
		ResourceRecordSet: &r53types.ResourceRecordSet{
			Name: aws.String(fqdn),
			Type: r53types.RRTypeA,
			AliasTarget: &r53types.AliasTarget{
				DNSName:              aws.String(target),
				HostedZoneId:         aws.String(aliasZoneID),
				EvaluateTargetHealth: false,
			},
		},
	}
}
