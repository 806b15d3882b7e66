package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/edvin/instance-deploy/internal/deploy"
	"github.com/edvin/instance-deploy/internal/model"
)

// ReportStatusActivityName is the registered name of StatusActivity.ReportStatus.
const ReportStatusActivityName = "ReportStatus"

// StatusReport is one stage transition of a durable deploy run.
type StatusReport struct {
	InstanceID    string                   `json:"instance_id"`
	AccountID     string                   `json:"account_id"`
	EnvironmentID string                   `json:"env_id,omitempty"`
	Status        model.ProvisioningStatus `json:"status"`
	Reached       model.ProvisioningStatus `json:"reached"`
	Elapsed       time.Duration            `json:"elapsed"`
	Error         string                   `json:"error,omitempty"`
}

// StatusActivity hands workflow transitions to a worker-side reporter, so
// durable runs land in the same logs and metrics as inline ones.
type StatusActivity struct {
	reporter deploy.StatusReporter
}

func NewStatusActivity(reporter deploy.StatusReporter) *StatusActivity {
	return &StatusActivity{reporter: reporter}
}

func (a *StatusActivity) ReportStatus(ctx context.Context, report StatusReport) error {
	update := deploy.StatusUpdate{
		InstanceID:    report.InstanceID,
		AccountID:     report.AccountID,
		EnvironmentID: report.EnvironmentID,
		Status:        report.Status,
		Reached:       report.Reached,
		Elapsed:       report.Elapsed,
	}
	if report.Error != "" {
		update.Err = errors.New(report.Error)
	}
	a.reporter.Report(update)
	return nil
}
