package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "rvlink"

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var knownFrameTypes = map[string]bool{
	"MESSAGE": true, "PING": true, "PONG": true, "GREETING": true,
	"NEWGREETING": true, "PINGPONGCONTROL": true, "RETURN": true,
}

// Metrics holds the Prometheus collectors shared by the client, the peer and
// the dispatcher. A nil *Metrics records nothing.
type Metrics struct {
	connectAttempts *prometheus.CounterVec
	framesReceived  *prometheus.CounterVec
	framesSent      *prometheus.CounterVec
	loads           *prometheus.CounterVec
	unmatched       prometheus.Counter
	replyWait       prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		connectAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "connect_attempts_total",
			Help:      "Connection attempts to the control port by result",
		}, []string{"result"}),

		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_received_total",
			Help:      "Frames read from the control port by type",
		}, []string{"type"}),

		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_sent_total",
			Help:      "Frames written to the control port by type",
		}, []string{"type"}),

		loads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "loads_total",
			Help:      "Loader invocations by category and result",
		}, []string{"category", "result"}),

		unmatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "unmatched_total",
			Help:      "Load requests skipped because no category matched their extension",
		}),

		replyWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "reply_wait_seconds",
			Help:      "Time spent waiting for a RETURN frame",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func frameLabel(frameType string) string {
	if knownFrameTypes[frameType] {
		return frameType
	}
	return "other"
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

// ConnectAttempt records the outcome of one connection attempt.
func (m *Metrics) ConnectAttempt(err error) {
	if m == nil {
		return
	}
	m.connectAttempts.WithLabelValues(result(err)).Inc()
}

// FrameReceived counts one decoded frame.
func (m *Metrics) FrameReceived(frameType string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(frameLabel(frameType)).Inc()
}

// FrameSent counts one written frame.
func (m *Metrics) FrameSent(frameType string) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(frameLabel(frameType)).Inc()
}

// Load records one loader invocation.
func (m *Metrics) Load(category string, err error) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(category, result(err)).Inc()
}

// Unmatched counts one skipped load request.
func (m *Metrics) Unmatched() {
	if m == nil {
		return
	}
	m.unmatched.Inc()
}

// ReplyWait observes how long a caller blocked on RETURN.
func (m *Metrics) ReplyWait(d time.Duration) {
	if m == nil {
		return
	}
	m.replyWait.Observe(d.Seconds())
}
