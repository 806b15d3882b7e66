package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	temporalclient "go.temporal.io/sdk/client"
	temporalmocks "go.temporal.io/sdk/mocks"

	"github.com/edvin/instance-deploy/internal/model"
)

func TestDispatcher_StartsWorkflow(t *testing.T) {
	tc := &temporalmocks.Client{}
	req := model.ProvisionRequest{InstanceID: "inst1", AccountID: "acct123", Name: "acme", Key: "tok", JWT: "activation-token"}

	tc.On("ExecuteWorkflow", mock.Anything,
		mock.MatchedBy(func(opts temporalclient.StartWorkflowOptions) bool {
			return strings.HasPrefix(opts.ID, "deploy-inst1-") && opts.TaskQueue == "instance-deploy"
		}),
		DeployInstanceWorkflowName,
		DeployInstanceParams{
			Request:        req,
			Token:          "activation-token",
			NotifyFailures: true,
		},
	).Return(&temporalmocks.WorkflowRun{}, nil)

	d := NewDispatcher(tc, "instance-deploy", true)
	require.NoError(t, d.Dispatch(context.Background(), req))
	tc.AssertExpectations(t)
}

func TestDispatcher_StartError(t *testing.T) {
	tc := &temporalmocks.Client{}
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("temporal down"))

	d := NewDispatcher(tc, "instance-deploy", false)
	err := d.Dispatch(context.Background(), model.ProvisionRequest{InstanceID: "inst1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temporal down")
}

func TestWorkflowID_UniquePerSubmission(t *testing.T) {
	id := workflowID("inst1")
	assert.NotEqual(t, id, workflowID("inst1"))

	_, err := uuid.Parse(strings.TrimPrefix(id, "deploy-inst1-"))
	assert.NoError(t, err, "suffix is a platform id")
}
