package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics counts checkout, reconciliation and reaper outcomes.
type PipelineMetrics struct {
	authorizations *prometheus.CounterVec
	compensations  *prometheus.CounterVec
	confirmations  *prometheus.CounterVec
	webhookEvents  *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	reaped         prometheus.Counter
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	m := &PipelineMetrics{
		authorizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "authorizations_total",
			Help:      "Payment authorizations opened, by outcome.",
		}, []string{"outcome"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "compensations_total",
			Help:      "Sibling authorizations voided after a partial checkout failure, by outcome.",
		}, []string{"outcome"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "confirmations_total",
			Help:      "Order confirmations, by outcome.",
		}, []string{"outcome"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhooks",
			Name:      "events_total",
			Help:      "Payment provider webhook events, by type and outcome.",
		}, []string{"type", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order state machine decisions, by machine and result.",
		}, []string{"machine", "result"}),
		reaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "stale_orders_canceled_total",
			Help:      "Pending orders canceled by the stale order reaper.",
		}),
	}
	reg.MustRegister(m.authorizations, m.compensations, m.confirmations, m.webhookEvents, m.transitions, m.reaped)
	return m
}

func (m *PipelineMetrics) Authorization(outcome string) {
	if m == nil || m.authorizations == nil {
		return
	}
	m.authorizations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *PipelineMetrics) Compensation(outcome string) {
	if m == nil || m.compensations == nil {
		return
	}
	m.compensations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *PipelineMetrics) Confirmation(outcome string) {
	if m == nil || m.confirmations == nil {
		return
	}
	m.confirmations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *PipelineMetrics) WebhookEvent(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// Transition records an fsm decision: applied, noop or rejected.
func (m *PipelineMetrics) Transition(machine, result string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(machine), normalizeLabel(result)).Inc()
}

func (m *PipelineMetrics) StaleOrderCanceled() {
	if m == nil || m.reaped == nil {
		return
	}
	m.reaped.Inc()
}
