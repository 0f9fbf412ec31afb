package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"Sentinela/internal/ports"
)

// Pusher sends per-run gauges to a Prometheus pushgateway, grouped by pipeline.
// Each push replaces the previous values of that pipeline.
type Pusher struct {
	url string
	job string
	now func() time.Time
}

var _ ports.RunRecorder = (*Pusher)(nil)

func NewPusher(url, job string) *Pusher {
	if job == "" {
		job = "sentinela"
	}
	return &Pusher{url: url, job: job, now: time.Now}
}

// RecordRun pushes the summary of one finished run.
func (p *Pusher) RecordRun(ctx context.Context, pipeline string, s ports.RunSummary) error {
	reg := prometheus.NewRegistry()

	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sentinela_last_run_timestamp_seconds",
		Help: "Unix time the last run finished",
	})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sentinela_run_duration_seconds",
		Help: "Duration of the last run",
	})
	candidates := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sentinela_run_candidates",
		Help: "Items gathered from all sources in the last run",
	})
	novel := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sentinela_run_novel_items",
		Help: "Items not yet in the ledger in the last run",
	})
	committed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sentinela_run_committed",
		Help: "1 when the last run saved the ledger",
	})
	outcome := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sentinela_run_outcome",
		Help: "Outcome of the last run, 1 for the observed value",
	}, []string{"outcome"})

	reg.MustRegister(lastRun, duration, candidates, novel, committed, outcome)

	lastRun.Set(float64(p.now().Unix()))
	duration.Set(s.Duration.Seconds())
	candidates.Set(float64(s.Candidates))
	novel.Set(float64(s.Novel))
	if s.Committed {
		committed.Set(1)
	}
	outcome.WithLabelValues(s.Outcome).Set(1)

	err := push.New(p.url, p.job).
		Gatherer(reg).
		Grouping("pipeline", pipeline).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
