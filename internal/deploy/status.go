package deploy

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/instance-deploy/internal/cloud"
	"github.com/edvin/instance-deploy/internal/metrics"
	"github.com/edvin/instance-deploy/internal/model"
)

// StatusUpdate describes one pipeline stage transition.
type StatusUpdate struct {
	InstanceID    string
	AccountID     string
	EnvironmentID string
	Status        model.ProvisioningStatus
	// Reached is the last boundary passed; for a failure it names the stage
	// the run failed after.
	Reached model.ProvisioningStatus
	Elapsed time.Duration
	Err     error
}

// StatusReporter observes pipeline transitions.
type StatusReporter interface {
	Report(update StatusUpdate)
}

// LogReporter writes transitions to the log and, when configured, to the
// pipeline metrics.
type LogReporter struct {
	logger  zerolog.Logger
	metrics *metrics.Pipeline
}

// NewLogReporter creates a LogReporter. m may be nil.
func NewLogReporter(logger zerolog.Logger, m *metrics.Pipeline) *LogReporter {
	return &LogReporter{
		logger:  logger.With().Str("component", "pipeline_status").Logger(),
		metrics: m,
	}
}

func (r *LogReporter) Report(u StatusUpdate) {
	if r.metrics != nil {
		switch {
		case u.Status == model.StatusPending:
			r.metrics.RunStarted()
		case u.Status.Terminal():
			r.metrics.RunFinished(u.Status)
		}
		if u.Status != model.StatusPending && u.Status != model.StatusFailed {
			r.metrics.ObserveStage(u.Status, u.Elapsed)
		}
	}

	ev := r.logger.Info()
	if u.Err != nil {
		ev = r.logger.Error().Err(u.Err).Str("reached", string(u.Reached))
		if code := cloud.ErrorCode(u.Err); code != "" {
			ev = ev.Str("provider_code", code)
		}
	}
	ev.Str("instance_id", u.InstanceID).
		Str("account_id", u.AccountID).
		Str("env_id", u.EnvironmentID).
		Str("status", string(u.Status)).
		Dur("elapsed", u.Elapsed).
		Msg("deploy status changed")
}
