package workflow

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/testsuite"

	"github.com/edvin/instance-deploy/internal/activity"
	"github.com/edvin/instance-deploy/internal/deploy"
	"github.com/edvin/instance-deploy/internal/metrics"
	"github.com/edvin/instance-deploy/internal/model"
)

// registerActivities registers activity structs with the test workflow
// environment so that parameter and return types can be deserialized
// correctly. Pipeline stages are mocked via OnActivity in unit tests; status
// reports run for real against the returned recorder.
func registerActivities(env *testsuite.TestWorkflowEnvironment) (*statusRecorder, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	rec := &statusRecorder{next: deploy.NewLogReporter(zerolog.Nop(), metrics.NewPipeline(reg))}

	env.RegisterActivity(&activity.Deploy{})
	env.RegisterActivity(&activity.Callback{})
	env.RegisterActivity(NewStatusActivity(rec))
	return rec, reg
}

// statusRecorder keeps every update it forwards.
type statusRecorder struct {
	mu      sync.Mutex
	updates []deploy.StatusUpdate
	next    deploy.StatusReporter
}

func (r *statusRecorder) Report(u deploy.StatusUpdate) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
	r.next.Report(u)
}

func (r *statusRecorder) statuses() []model.ProvisioningStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ProvisioningStatus, 0, len(r.updates))
	for _, u := range r.updates {
		out = append(out, u.Status)
	}
	return out
}

func (r *statusRecorder) last() deploy.StatusUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[len(r.updates)-1]
}
