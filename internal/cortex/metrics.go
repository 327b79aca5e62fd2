package cortex

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"subcon/internal/logging"
)

// Metrics exposes orchestrator activity.
type Metrics struct {
	Running     prometheus.Gauge
	Tracked     prometheus.Gauge
	Scheduled   prometheus.Counter
	Completed   prometheus.Counter
	Abandoned   prometheus.Counter
	Flushed     *prometheus.CounterVec
	FlushErrors prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg. When reg
// already holds an equal collector, that one is reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	const ns, sub = "subcon", "cortex"
	m := &Metrics{
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "dialogues_running",
			Help: "Self-play dialogues currently holding a pool slot.",
		}),
		Tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "tasks_tracked",
			Help: "Dialogue tasks in the registry after the last sweep.",
		}),
		Scheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "dialogues_scheduled_total",
			Help: "Self-play dialogues scheduled.",
		}),
		Completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "dialogues_completed_total",
			Help: "Self-play dialogues that produced a result.",
		}),
		Abandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "dialogues_abandoned_total",
			Help: "Self-play dialogues that ended without a result.",
		}),
		Flushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "records_flushed_total",
			Help: "Records persisted by the flush loop.",
		}, []string{"kind"}),
		FlushErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "flush_errors_total",
			Help: "Failed record writes; the data stays in memory for the next tick.",
		}),
	}
	m.Running = register(reg, m.Running)
	m.Tracked = register(reg, m.Tracked)
	m.Scheduled = register(reg, m.Scheduled)
	m.Completed = register(reg, m.Completed)
	m.Abandoned = register(reg, m.Abandoned)
	m.Flushed = register(reg, m.Flushed)
	m.FlushErrors = register(reg, m.FlushErrors)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	logging.CortexWarn("metrics registration failed, collector stays unregistered: %v", err)
	return c
}
