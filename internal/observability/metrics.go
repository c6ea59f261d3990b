// Package observability provides Prometheus metrics for the interview backend.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_interview"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsStarted prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionsEnded   *prometheus.CounterVec
	TurnsAppended   *prometheus.CounterVec
	Notices         *prometheus.CounterVec

	// AI metrics
	AIRequests *prometheus.CounterVec
	AILatency  *prometheus.HistogramVec

	// Speech metrics
	SynthesisTotal     prometheus.Counter
	SynthesisErrors    prometheus.Counter
	SynthesisLatency   prometheus.Histogram
	TranscriptsPartial prometheus.Counter
	TranscriptsFinal   prometheus.Counter
	STTErrors          *prometheus.CounterVec
	AudioBytesReceived prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// Summary jobs
	SummaryJobs *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of live interview sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of live interview sessions",
		}),
		SessionsEnded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Total number of sessions ended, by reason",
		}, []string{"reason"}),
		TurnsAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_appended_total",
			Help:      "Total number of conversation turns, by role",
		}, []string{"role"}),
		Notices: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notices_total",
			Help:      "Degraded turns surfaced to the candidate",
		}, []string{"notice"}),

		AIRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_requests_total",
			Help:      "AI requests by kind and outcome",
		}, []string{"kind", "outcome"}),
		AILatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_latency_seconds",
			Help:      "AI request latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 45},
		}, []string{"kind"}),

		SynthesisTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_requests_total",
			Help:      "Total number of speech synthesis requests",
		}),
		SynthesisErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_errors_total",
			Help:      "Total number of speech synthesis failures",
		}),
		SynthesisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tts_latency_seconds",
			Help:      "Speech synthesis latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		TranscriptsPartial: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_partial_total",
			Help:      "Total number of partial transcripts received",
		}),
		TranscriptsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_total",
			Help:      "Total number of recognized segments received",
		}),
		STTErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "error_type"}),
		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total microphone audio bytes received",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		SummaryJobs: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_jobs_total",
			Help:      "Summary jobs by final status",
		}, []string{"status"}),
	}
}

func (m *Metrics) RecordSessionStart() {
	m.SessionsStarted.Inc()
	m.SessionsActive.Inc()
}

func (m *Metrics) RecordSessionEnd(reason string) {
	m.SessionsActive.Dec()
	m.SessionsEnded.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordTurn(role string) { m.TurnsAppended.WithLabelValues(role).Inc() }

func (m *Metrics) RecordNotice(notice string) { m.Notices.WithLabelValues(notice).Inc() }

// RecordAIRequest records one AI call. outcome is ok|failed|malformed|forced|fallback.
func (m *Metrics) RecordAIRequest(kind, outcome string, latencySeconds float64) {
	m.AIRequests.WithLabelValues(kind, outcome).Inc()
	if latencySeconds > 0 {
		m.AILatency.WithLabelValues(kind).Observe(latencySeconds)
	}
}

func (m *Metrics) RecordSynthesis(err error, latencySeconds float64) {
	m.SynthesisTotal.Inc()
	m.SynthesisLatency.Observe(latencySeconds)
	if err != nil {
		m.SynthesisErrors.Inc()
	}
}

func (m *Metrics) RecordPartialTranscript() { m.TranscriptsPartial.Inc() }

func (m *Metrics) RecordFinalTranscript() { m.TranscriptsFinal.Inc() }

func (m *Metrics) RecordSTTError(provider, errorType string) {
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

func (m *Metrics) RecordAudioReceived(bytes int) { m.AudioBytesReceived.Add(float64(bytes)) }

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

func (m *Metrics) RecordSummaryJob(status string) { m.SummaryJobs.WithLabelValues(status).Inc() }
