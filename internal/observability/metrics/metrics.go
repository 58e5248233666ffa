package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics exposes counters/histograms for the inbound message flow.
type WebhookMetrics struct {
	inboundTotal  *prometheus.CounterVec
	outboundTotal *prometheus.CounterVec
	aiLatency     *prometheus.HistogramVec
	aiErrors      *prometheus.CounterVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "webhook",
			Name:      "inbound_total",
			Help:      "Total inbound Twilio webhooks",
		}, []string{"status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound WhatsApp sends",
		}, []string{"status"}),
		aiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "concierge",
			Subsystem: "ai",
			Name:      "dispatch_latency_seconds",
			Help:      "Latency of AI dispatch attempts",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 15, 20, 25, 30},
		}, []string{"provider"}),
		aiErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "ai",
			Name:      "dispatch_errors_total",
			Help:      "Total failed AI dispatch attempts",
		}, []string{"provider", "timeout"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.aiLatency, m.aiErrors)
	return m
}

func (m *WebhookMetrics) ObserveInbound(status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(status).Inc()
}

func (m *WebhookMetrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

func (m *WebhookMetrics) ObserveAIDispatch(provider string, latency time.Duration, failed, timeout bool) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "none"
	}
	m.aiLatency.WithLabelValues(provider).Observe(latency.Seconds())
	if failed {
		label := "false"
		if timeout {
			label = "true"
		}
		m.aiErrors.WithLabelValues(provider, label).Inc()
	}
}
