package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk/types"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/instance-deploy/internal/cloud"
	"github.com/edvin/instance-deploy/internal/model"
	"github.com/edvin/instance-deploy/internal/platform"
)

const (
	rolloutBatches = 10
	rolloutPause   = 200 * time.Millisecond
)

// Maintenance holds operator-driven operations on already provisioned
// environments. None of them run as part of a deploy.
type Maintenance struct {
	compute  cloud.ComputeAPI
	dns      cloud.DNSAPI
	settings Settings
	clock    Clock
	logger   zerolog.Logger
}

// NewMaintenance creates a Maintenance. A nil clock uses wall-clock time.
func NewMaintenance(clients *cloud.Clients, settings Settings, logger zerolog.Logger, clock Clock) *Maintenance {
	if clock == nil {
		clock = realClock{}
	}
	return &Maintenance{
		compute:  clients.Compute,
		dns:      clients.DNS,
		settings: settings,
		clock:    clock,
		logger:   logger.With().Str("component", "maintenance").Logger(),
	}
}

// RolloutResult summarizes a version rollout.
type RolloutResult struct {
	VersionLabel string   `json:"version_label"`
	Updated      []string `json:"updated"`
	Failed       []string `json:"failed"`
}

// Rollout updates every live environment of the application to the latest
// published version. Environments are updated in ceil(n/10)-sized batches
// with a short pause between batches. A failed update is recorded and does
// not stop the rollout.
func (m *Maintenance) Rollout(ctx context.Context) (*RolloutResult, error) {
	version, err := latestVersionLabel(ctx, m.compute, m.settings.ApplicationName)
	if err != nil {
		return nil, err
	}

	out, err := m.compute.DescribeEnvironments(ctx, &elasticbeanstalk.DescribeEnvironmentsInput{
		ApplicationName: aws.String(m.settings.ApplicationName),
		IncludeDeleted:  aws.Bool(false),
	})
	if err != nil {
		return nil, remoteErr("list environments", err)
	}

	var envIDs []string
	for _, env := range out.Environments {
		if env.Status == ebtypes.EnvironmentStatusTerminating || env.Status == ebtypes.EnvironmentStatusTerminated {
			continue
		}
		envIDs = append(envIDs, aws.ToString(env.EnvironmentId))
	}

	result := &RolloutResult{VersionLabel: version}
	var mu sync.Mutex

	for i, batch := range rolloutBatchesOf(envIDs) {
		if i > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-m.clock.After(rolloutPause):
			}
		}

		var g errgroup.Group
		for _, envID := range batch {
			g.Go(func() error {
				_, err := m.compute.UpdateEnvironment(ctx, &elasticbeanstalk.UpdateEnvironmentInput{
					EnvironmentId: aws.String(envID),
					VersionLabel:  aws.String(version),
				})
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					m.logger.Error().Err(err).Str("environment_id", envID).Str("version_label", version).
						Msg("environment update failed")
					result.Failed = append(result.Failed, envID)
					return nil
				}
				result.Updated = append(result.Updated, envID)
				return nil
			})
		}
		_ = g.Wait()
	}

	m.logger.Info().Str("version_label", version).Int("updated", len(result.Updated)).
		Int("failed", len(result.Failed)).Msg("rollout finished")
	if len(result.Failed) > 0 {
		return result, fmt.Errorf("rollout of %s failed for %d of %d environments",
			version, len(result.Failed), len(envIDs))
	}
	return result, nil
}

// rolloutBatchesOf splits ids into batches of ceil(n/10).
func rolloutBatchesOf(ids []string) [][]string {
	if len(ids) == 0 {
		return nil
	}
	size := (len(ids) + rolloutBatches - 1) / rolloutBatches
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}

// TeardownParams identifies the environment to remove.
type TeardownParams struct {
	EnvironmentID   string `json:"environment_id"`
	EnvironmentName string `json:"environment_name"`
}

// Teardown force-terminates an environment together with its resources and
// deletes the tenant alias record that points at it.
func (m *Maintenance) Teardown(ctx context.Context, params TeardownParams) error {
	out, err := m.compute.TerminateEnvironment(ctx, &elasticbeanstalk.TerminateEnvironmentInput{
		EnvironmentId:      aws.String(params.EnvironmentID),
		ForceTerminate:     aws.Bool(true),
		TerminateResources: aws.Bool(true),
	})
	if err != nil {
		return remoteErr(fmt.Sprintf("terminate environment %s", params.EnvironmentID), err)
	}

	envName := params.EnvironmentName
	if envName == "" {
		envName = aws.ToString(out.EnvironmentName)
	}
	cname := aws.ToString(out.CNAME)
	logger := m.logger.With().Str("environment_id", params.EnvironmentID).Str("env_name", envName).Logger()
	if cname == "" || envName == "" {
		logger.Warn().Msg("environment terminated without a canonical name, dns record left in place")
		return nil
	}

	fqdn := platform.TenantHostname(envName, m.settings.BaseDomain)
	_, err = m.dns.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(m.settings.HostedZoneID),
		ChangeBatch: &r53types.ChangeBatch{
			Changes: []r53types.Change{
				aliasRecordChange(r53types.ChangeActionDelete, fqdn, cname, m.settings.ELBZoneID),
			},
		},
	})
	if err != nil {
		logger.Error().Err(err).Str("fqdn", fqdn).Msg("failed to delete tenant dns record")
		return model.WrapError(err, model.KindRemoteAPI, fmt.Sprintf("delete dns record %s", fqdn))
	}

	logger.Info().Str("fqdn", fqdn).Msg("environment torn down")
	return nil
}
