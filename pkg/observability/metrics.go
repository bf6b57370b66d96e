package observability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/journey/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "journey"

// Metrics holds the Prometheus collectors fed by lifecycle hooks.
type Metrics struct {
	NodeVisits     *prometheus.CounterVec
	BlocksExecuted *prometheus.CounterVec
	ActionCalls    *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
	SessionsEnded  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Collectors already registered by a previous call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_visits_total",
			Help:      "Total number of node entries.",
		}, []string{"workflow_id", "node_id"}),
		BlocksExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_executed_total",
			Help:      "Total number of blocks executed, by kind.",
		}, []string{"workflow_id", "kind"}),
		ActionCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_calls_total",
			Help:      "Total number of delegated action calls, by outcome.",
		}, []string{"action", "outcome"}),
		ActionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Duration of delegated action calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		SessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Total number of sessions that completed or failed.",
		}, []string{"workflow_id", "status", "code"}),
	}

	var err error
	m.NodeVisits, err = register(reg, m.NodeVisits)
	if err != nil {
		return nil, err
	}
	m.BlocksExecuted, err = register(reg, m.BlocksExecuted)
	if err != nil {
		return nil, err
	}
	m.ActionCalls, err = register(reg, m.ActionCalls)
	if err != nil {
		return nil, err
	}
	m.ActionDuration, err = register(reg, m.ActionDuration)
	if err != nil {
		return nil, err
	}
	m.SessionsEnded, err = register(reg, m.SessionsEnded)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.WorkflowID, e.NodeID).Inc()
		},
		OnBlock: func(_ context.Context, e *domain.BlockEvent) {
			m.BlocksExecuted.WithLabelValues(e.WorkflowID, string(e.Kind)).Inc()
		},
		OnActionReturn: func(_ context.Context, e *domain.ActionEvent) {
			outcome := "ok"
			if e.IsError {
				outcome = "error"
			}
			m.ActionCalls.WithLabelValues(e.Action, outcome).Inc()
			m.ActionDuration.WithLabelValues(e.Action).Observe(e.Duration.Seconds())
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			code := ""
			if e.Error != nil {
				code = string(e.Error.Code)
			}
			m.SessionsEnded.WithLabelValues(e.WorkflowID, string(e.Status), code).Inc()
		},
	}
}

// LogHooks returns lifecycle hooks that log each event at Debug, action
// returns at Info and failed sessions at Warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "session_id", e.SessionID, "node_id", e.NodeID)
		},
		OnActionCall: func(ctx context.Context, e *domain.ActionEvent) {
			logger.DebugContext(ctx, "action_call", "session_id", e.SessionID, "action", e.Action)
		},
		OnActionReturn: func(ctx context.Context, e *domain.ActionEvent) {
			logger.InfoContext(ctx, "action_return",
				"session_id", e.SessionID,
				"action", e.Action,
				"is_error", e.IsError,
				"duration", e.Duration,
			)
		},
		OnSessionEnd: func(ctx context.Context, e *domain.SessionEvent) {
			if e.Error != nil {
				logger.WarnContext(ctx, "session_end", "session_id", e.SessionID, "status", e.Status, "err", e.Error)
				return
			}
			logger.InfoContext(ctx, "session_end", "session_id", e.SessionID, "status", e.Status)
		},
	}
}

// Chain combines several hook sets; each callback runs in order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnNodeEnter = chain(out.OnNodeEnter, h.OnNodeEnter)
		out.OnBlock = chain(out.OnBlock, h.OnBlock)
		out.OnActionCall = chain(out.OnActionCall, h.OnActionCall)
		out.OnActionReturn = chain(out.OnActionReturn, h.OnActionReturn)
		out.OnSessionEnd = chain(out.OnSessionEnd, h.OnSessionEnd)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
