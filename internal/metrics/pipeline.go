package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/edvin/instance-deploy/internal/model"
)

// Pipeline holds the deploy pipeline collectors.
type Pipeline struct {
	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	inflight      prometheus.Gauge
}

// NewPipeline registers the pipeline collectors with reg.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	factory := promauto.With(reg)
	return &Pipeline{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instance_deploy_pipeline_runs_total",
			Help: "Finished deploy pipeline runs by terminal status",
		}, []string{"status"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "instance_deploy_stage_duration_seconds",
			Help: "Time taken to reach each pipeline stage boundary",
			// Environment creation and the resource wait take minutes.
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 900},
		}, []string{"stage"}),
		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "instance_deploy_inflight",
			Help: "Deploy pipeline runs currently in progress",
		}),
	}
}

func (p *Pipeline) RunStarted() {
	p.inflight.Inc()
}

func (p *Pipeline) RunFinished(status model.ProvisioningStatus) {
	p.inflight.Dec()
	p.runs.WithLabelValues(string(status)).Inc()
}

func (p *Pipeline) ObserveStage(stage model.ProvisioningStatus, d time.Duration) {
	p.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}
