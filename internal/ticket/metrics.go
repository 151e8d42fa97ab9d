package ticket

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the ticket pipeline.
type Metrics struct {
	TicketsTotal      *prometheus.CounterVec
	TicketDuration    *prometheus.HistogramVec
	TicketAttempts    prometheus.Histogram
	TicketTokensIn    prometheus.Histogram
	TicketTokensOut   prometheus.Histogram
	LLMCallsTotal     *prometheus.CounterVec
	LLMTokensIn       prometheus.Counter
	LLMTokensOut      prometheus.Counter
	LLMDuration       *prometheus.HistogramVec
	TransitionsTotal  *prometheus.CounterVec
	ReviewsTotal      *prometheus.CounterVec
	RetrievedDocs     *prometheus.HistogramVec
	EscalationWrites  *prometheus.CounterVec
	EscalationTries   prometheus.Histogram
	SubmitsTotal      *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec
}

// NewMetrics registers and returns ticket metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicketsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_tickets_total",
			Help: "Total ticket runs by final status and category.",
		}, []string{"status", "category"}),
		TicketDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_ticket_duration_seconds",
			Help:    "Duration of ticket runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		}, []string{"status", "model"}),
		TicketAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "helpdesk_ticket_attempts",
			Help:    "Draft/review attempts per ticket run.",
			Buckets: prometheus.LinearBuckets(0, 1, MaxAttempts+1),
		}),
		TicketTokensIn: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "helpdesk_ticket_tokens_input",
			Help:    "Input tokens consumed per ticket run.",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100 .. ~51200
		}),
		TicketTokensOut: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "helpdesk_ticket_tokens_output",
			Help:    "Output tokens consumed per ticket run.",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100 .. ~51200
		}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_llm_calls_total",
			Help: "Total text-generation calls by pipeline step and outcome.",
		}, []string{"step", "outcome"}),
		LLMTokensIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_llm_tokens_input_total",
			Help: "Total LLM input tokens consumed.",
		}),
		LLMTokensOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_llm_tokens_output_total",
			Help: "Total LLM output tokens consumed.",
		}),
		LLMDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_llm_call_duration_seconds",
			Help:    "Duration of individual LLM calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}, []string{"step"}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_state_transitions_total",
			Help: "State machine transitions taken.",
		}, []string{"from", "to"}),
		ReviewsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_reviews_total",
			Help: "Review verdicts by attempt number.",
		}, []string{"attempt", "verdict"}),
		RetrievedDocs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_retrieved_documents",
			Help:    "Documents selected per retrieval.",
			Buckets: prometheus.LinearBuckets(0, 1, 4), // 0 .. 3
		}, []string{"category", "fallback"}),
		EscalationWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_escalation_writes_total",
			Help: "Escalation record writes by outcome (logged, partial, lost).",
		}, []string{"outcome"}),
		EscalationTries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "helpdesk_escalation_write_tries",
			Help:    "Sink attempts needed per escalation record.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_submits_total",
			Help: "Total ticket submissions by result.",
		}, []string{"result"}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_notifications_total",
			Help: "Notifications by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	reg.MustRegister(
		m.TicketsTotal,
		m.TicketDuration,
		m.TicketAttempts,
		m.TicketTokensIn,
		m.TicketTokensOut,
		m.LLMCallsTotal,
		m.LLMTokensIn,
		m.LLMTokensOut,
		m.LLMDuration,
		m.TransitionsTotal,
		m.ReviewsTotal,
		m.RetrievedDocs,
		m.EscalationWrites,
		m.EscalationTries,
		m.SubmitsTotal,
		m.NotificationsSent,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnLLMCall: func(step State, inputTokens, outputTokens int, duration float64, err error) {
			outcome := "success"
			if err != nil {
				outcome = "error"
			}
			m.LLMCallsTotal.WithLabelValues(string(step), outcome).Inc()
			m.LLMTokensIn.Add(float64(inputTokens))
			m.LLMTokensOut.Add(float64(outputTokens))
			m.LLMDuration.WithLabelValues(string(step)).Observe(duration)
		},
		OnTransition: func(from, to State) {
			m.TransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
		},
		OnRetrieve: func(category Category, documents int, fallback bool) {
			fb := "false"
			if fallback {
				fb = "true"
			}
			m.RetrievedDocs.WithLabelValues(string(category), fb).Observe(float64(documents))
		},
		OnReview: func(attempt int, verdict Verdict) {
			label := "1"
			if attempt > 1 {
				label = "2"
			}
			m.ReviewsTotal.WithLabelValues(label, string(verdict)).Inc()
		},
		OnEscalationWrite: func(tries int, err error) {
			var secondary *SecondarySinkError
			outcome := "logged"
			switch {
			case errors.As(err, &secondary):
				outcome = "partial"
			case err != nil:
				outcome = "lost"
			}
			m.EscalationWrites.WithLabelValues(outcome).Inc()
			m.EscalationTries.Observe(float64(tries))
		},
		OnComplete: func(e *CompleteEvent) {
			m.TicketsTotal.WithLabelValues(string(e.Status), string(e.Category)).Inc()
			m.TicketDuration.WithLabelValues(string(e.Status), e.Model).Observe(e.Duration)
			m.TicketAttempts.Observe(float64(e.Attempts))
			m.TicketTokensIn.Observe(float64(e.TokensIn))
			m.TicketTokensOut.Observe(float64(e.TokensOut))
		},
	}
}
