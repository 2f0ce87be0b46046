package capture

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const metricsNamespace = "glimpse"

// runMetrics are collected into a registry private to one run.
type runMetrics struct {
	registry *prometheus.Registry

	stepDuration  *prometheus.GaugeVec
	artifactBytes *prometheus.GaugeVec
	success       prometheus.Gauge
	runDuration   prometheus.Gauge
}

func newRunMetrics() *runMetrics {
	m := &runMetrics{
		registry: prometheus.NewRegistry(),
		stepDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "step_duration_seconds",
			Help:      "Time spent in each step of the capture run.",
		}, []string{"step"}),
		artifactBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "artifact_size_bytes",
			Help:      "Size of each file produced by the capture run.",
		}, []string{"rel"}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "success",
			Help:      "Whether the capture run succeeded.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "duration_seconds",
			Help:      "Total time of the capture run.",
		}),
	}

	m.registry.MustRegister(m.stepDuration, m.artifactBytes, m.success, m.runDuration)
	return m
}

// observe returns a func recording the time elapsed since the call.
func (m *runMetrics) observe(step string) func() {
	start := time.Now()
	return func() {
		m.stepDuration.WithLabelValues(step).Set(time.Since(start).Seconds())
	}
}

func (m *runMetrics) artifact(a Artifact) {
	m.artifactBytes.WithLabelValues(a.Rel).Set(float64(a.Size))
}

func (m *runMetrics) finish(err error, elapsed time.Duration) {
	if err == nil {
		m.success.Set(1)
	} else {
		m.success.Set(0)
	}
	m.runDuration.Set(elapsed.Seconds())
}

// EncodeMetrics writes the registry in the Prometheus text exposition format.
func EncodeMetrics(registry *prometheus.Registry) ([]byte, string, error) {
	gatherer := prometheus.ToTransactionalGatherer(registry)
	mfs, done, err := gatherer.Gather()
	if err != nil {
		return nil, "", err
	}
	defer done()

	var headers http.Header
	contentType := expfmt.Negotiate(headers)

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, contentType)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return nil, "", fmt.Errorf("failed to encode metrics family %q: %w", mf.GetName(), err)
		}
	}

	return buf.Bytes(), string(contentType), nil
}
