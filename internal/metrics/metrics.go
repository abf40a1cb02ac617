package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics exposes the prometheus instruments shared across services.
type Metrics struct {
	PaymentEvents       *prometheus.CounterVec
	CreditsDebited      prometheus.Counter
	CreditsGranted      prometheus.Counter
	ToolInvocations     *prometheus.CounterVec
	ReconcileInconsists prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PaymentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rankforge_payment_events_total",
			Help: "Payment provider webhook events processed, by provider and event type.",
		}, []string{"provider", "type"}),
		CreditsDebited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rankforge_credits_debited_total",
			Help: "Credits debited from user balances.",
		}),
		CreditsGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rankforge_credits_granted_total",
			Help: "Credits granted to user balances.",
		}),
		ToolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rankforge_tool_invocations_total",
			Help: "Charged tool invocations, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		ReconcileInconsists: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rankforge_reconciliation_inconsistencies_total",
			Help: "Webhook events acknowledged with partially applied side effects.",
		}),
	}

	reg.MustRegister(
		m.PaymentEvents,
		m.CreditsDebited,
		m.CreditsGranted,
		m.ToolInvocations,
		m.ReconcileInconsists,
	)
	return m
}

func (m *Metrics) RecordPaymentEvent(provider, eventType string) {
	if m == nil {
		return
	}
	m.PaymentEvents.WithLabelValues(provider, eventType).Inc()
}

func (m *Metrics) RecordDebit(amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.CreditsDebited.Add(float64(amount))
}

func (m *Metrics) RecordGrant(amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.CreditsGranted.Add(float64(amount))
}

func (m *Metrics) RecordToolInvocation(tool string, success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.ToolInvocations.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) RecordInconsistency() {
	if m == nil {
		return
	}
	m.ReconcileInconsists.Inc()
}

var Module = fx.Module("metrics",
	fx.Provide(func() prometheus.Registerer { return prometheus.DefaultRegisterer }),
	fx.Provide(New),
)
