// Package metrics 는 분석 파이프라인과 알림 전송의 Prometheus 지표를 정의한다.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sage"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics - nil 이어도 모든 메서드는 안전하게 동작
type Metrics struct {
	PipelineRuns     *prometheus.CounterVec
	PipelineDuration *prometheus.HistogramVec
	StageDuration    *prometheus.HistogramVec
	PipelinesActive  prometheus.Gauge
	Notifications    *prometheus.CounterVec
}

// New - reg 에 지표 등록 (테스트는 prometheus.NewRegistry() 사용)
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Total number of incident analysis pipeline runs by result",
			},
			[]string{"result"},
		),
		PipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_duration_seconds",
				Help:      "End-to-end pipeline duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"result"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of a single pipeline stage in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 180},
			},
			[]string{"stage", "result"},
		),
		PipelinesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pipelines_active",
				Help:      "Number of pipelines currently running",
			},
		),
		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Notification deliveries by channel and result",
			},
			[]string{"channel", "result"},
		),
	}
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}

func (m *Metrics) PipelineStarted() {
	if m == nil {
		return
	}
	m.PipelinesActive.Inc()
}

func (m *Metrics) PipelineFinished(ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.PipelinesActive.Dec()
	m.PipelineRuns.WithLabelValues(result(ok)).Inc()
	m.PipelineDuration.WithLabelValues(result(ok)).Observe(d.Seconds())
}

func (m *Metrics) ObserveStage(stage string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage, result(ok)).Observe(d.Seconds())
}

func (m *Metrics) ObserveNotification(channel string, ok bool) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(channel, result(ok)).Inc()
}
