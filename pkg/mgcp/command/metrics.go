package command

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hl2dod/mediaserver/pkg/mgcp/message"
)

// Metrics наблюдатель, считающий запросы по глаголам и ответы по кодам
type Metrics struct {
	requests  *prometheus.CounterVec
	responses *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mgcp_requests_total",
			Help: "Incoming MGCP requests by verb.",
		}, []string{"verb"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mgcp_responses_total",
			Help: "Outgoing MGCP responses by code.",
		}, []string{"code"}),
	}
	if reg != nil {
		m.requests = register(reg, m.requests)
		m.responses = register(reg, m.responses)
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

func (m *Metrics) OnMessage(msg message.Message, direction message.Direction) {
	switch v := msg.(type) {
	case *message.Request:
		if direction == message.DirectionIncoming {
			m.requests.WithLabelValues(string(v.Verb())).Inc()
		}
	case *message.Response:
		if direction == message.DirectionOutgoing {
			m.responses.WithLabelValues(strconv.Itoa(v.Code().Code())).Inc()
		}
	}
}
