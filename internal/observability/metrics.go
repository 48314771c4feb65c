package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxlate_active_sessions",
		Help: "Number of translation sessions past the idle state",
	})

	sessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxlate_sessions_total",
		Help: "Total number of translation sessions started",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxlate_session_duration_seconds",
		Help:    "Duration of translation sessions in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	})

	framesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxlate_audio_frames_sent_total",
		Help: "Total WAV frames sent to the streaming endpoint",
	})

	audioBytesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxlate_audio_bytes_sent_total",
		Help: "Total WAV bytes sent to the streaming endpoint",
	})

	keepalivesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxlate_keepalives_sent_total",
		Help: "Total keepalive frames sent",
	})

	sendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxlate_send_failures_total",
		Help: "Total failed sends by frame kind",
	}, []string{"kind"})

	inboundMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxlate_inbound_messages_total",
		Help: "Inbound messages by classification",
	}, []string{"class"})

	alertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxlate_alerts_total",
		Help: "User-visible alerts by code",
	}, []string{"code"})

	urlRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxlate_stream_url_requests_total",
		Help: "Signed streaming URL requests by status",
	}, []string{"status"})
)

// SessionMetrics tracks metrics for a single session.
type SessionMetrics struct {
	startTime time.Time
}

// StartSessionMetrics records the start of a session.
func StartSessionMetrics() *SessionMetrics {
	activeSessions.Inc()
	sessionsTotal.Inc()
	return &SessionMetrics{startTime: time.Now()}
}

// End records the end of the session.
func (m *SessionMetrics) End() {
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordFrameSent records one audio frame of n bytes.
func RecordFrameSent(n int) {
	framesSent.Inc()
	audioBytesSent.Add(float64(n))
}

func RecordKeepalive() {
	keepalivesSent.Inc()
}

// RecordSendFailure records a failed send; kind is "audio", "keepalive" or "end".
func RecordSendFailure(kind string) {
	sendFailures.WithLabelValues(kind).Inc()
}

// RecordInbound records an inbound message classification.
func RecordInbound(class string) {
	inboundMessages.WithLabelValues(class).Inc()
}

func RecordAlert(code string) {
	alertsTotal.WithLabelValues(code).Inc()
}

// RecordURLRequest records a signing request outcome ("success" or "error").
func RecordURLRequest(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	urlRequests.WithLabelValues(status).Inc()
}
