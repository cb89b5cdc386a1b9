package metrics

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	generationRequests *prometheus.CounterVec
	generationDenied   *prometheus.CounterVec
	wordsGenerated     *prometheus.CounterVec
	ledgerWrites       *prometheus.CounterVec
	pushDeliveries     *prometheus.CounterVec
}

// New registers the domain instruments on the default registry.
func New() (*Metrics, error) {
	m := &Metrics{
		generationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_generation_requests_total",
			Help: "Metered generation attempts by service and outcome.",
		}, []string{"service", "outcome"}),
		generationDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_generation_denied_total",
			Help: "Quota denials by service and reason.",
		}, []string{"service", "reason"}),
		wordsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_words_generated_total",
			Help: "Words produced by successful generations.",
		}, []string{"service"}),
		ledgerWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_usage_records_total",
			Help: "Usage ledger writes by success flag.",
		}, []string{"service", "success"}),
		pushDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_push_deliveries_total",
			Help: "Live notification delivery attempts by event and delivery result.",
		}, []string{"event", "delivered"}),
	}

	for _, collector := range []prometheus.Collector{
		m.generationRequests,
		m.generationDenied,
		m.wordsGenerated,
		m.ledgerWrites,
		m.pushDeliveries,
	} {
		if err := prometheus.Register(collector); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
		}
	}

	return m, nil
}

func (m *Metrics) RecordGeneration(service, outcome string) {
	if m == nil {
		return
	}
	m.generationRequests.WithLabelValues(label(service), label(outcome)).Inc()
}

func (m *Metrics) RecordDenial(service, reason string) {
	if m == nil {
		return
	}
	m.generationDenied.WithLabelValues(label(service), label(reason)).Inc()
}

func (m *Metrics) RecordWords(service string, words int64) {
	if m == nil || words <= 0 {
		return
	}
	m.wordsGenerated.WithLabelValues(label(service)).Add(float64(words))
}

func (m *Metrics) RecordLedgerWrite(service string, success bool) {
	if m == nil {
		return
	}
	m.ledgerWrites.WithLabelValues(label(service), boolLabel(success)).Inc()
}

func (m *Metrics) RecordPushDelivery(event string, delivered bool) {
	if m == nil {
		return
	}
	m.pushDeliveries.WithLabelValues(label(event), boolLabel(delivered)).Inc()
}

func label(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}

func boolLabel(value bool) string {
	if value {
		return "true"
	}
	return "false"
}
