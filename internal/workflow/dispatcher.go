package workflow

import (
	"context"
	"fmt"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/instance-deploy/internal/model"
	"github.com/edvin/instance-deploy/internal/platform"
)

// Dispatcher starts a DeployInstanceWorkflow per accepted deploy. The run
// survives restarts of this process.
type Dispatcher struct {
	tc             temporalclient.Client
	taskQueue      string
	notifyFailures bool
}

func NewDispatcher(tc temporalclient.Client, taskQueue string, notifyFailures bool) *Dispatcher {
	return &Dispatcher{
		tc:             tc,
		taskQueue:      taskQueue,
		notifyFailures: notifyFailures,
	}
}

// workflowID is unique per submission; deploys are not deduplicated.
func workflowID(instanceID string) string {
	return fmt.Sprintf("deploy-%s-%s", instanceID, platform.NewID())
}

// Dispatch starts the workflow and returns once Temporal has accepted it.
func (d *Dispatcher) Dispatch(ctx context.Context, req model.ProvisionRequest) error {
	_, err := d.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        workflowID(req.InstanceID),
		TaskQueue: d.taskQueue,
	}, DeployInstanceWorkflowName, DeployInstanceParams{
		Request:        req,
		Token:          req.JWT,
		NotifyFailures: d.notifyFailures,
	})
	if err != nil {
		return fmt.Errorf("start deploy workflow for %s: %w", req.InstanceID, err)
	}
	return nil
}
