package connection

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics метрики RTP соединений
type Metrics struct {
	connections *prometheus.GaugeVec
	failures    *prometheus.CounterVec
}

// NewMetrics создает и регистрирует метрики. Повторная регистрация в том же
// реестре переиспользует уже зарегистрированные коллекторы.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtp_connections",
			Help: "Number of RTP connections by state.",
		}, []string{"state"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtp_negotiation_failures_total",
			Help: "Failed RTP connection operations by cause.",
		}, []string{"cause"}),
	}
	if reg != nil {
		m.connections = register(reg, m.connections)
		m.failures = register(reg, m.failures)
	}
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) transition(from, to State) {
	if m == nil {
		return
	}
	// закрытые соединения не учитываются
	if from != "" && from != StateClosed {
		m.connections.WithLabelValues(string(from)).Dec()
	}
	if to != StateClosed {
		m.connections.WithLabelValues(string(to)).Inc()
	}
}

func (m *Metrics) failure(cause Cause) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(cause.String()).Inc()
}
