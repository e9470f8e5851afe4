package command

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hl2dod/mediaserver/pkg/mgcp/endpoint"
	"github.com/hl2dod/mediaserver/pkg/mgcp/message"
	"github.com/hl2dod/mediaserver/pkg/mgcp/packages"
)

func TestDispatcherUnknownVerb(t *testing.T) {
	d := NewDispatcher(Deps{Endpoints: endpoint.NewRegistry(nil), Packages: packages.DefaultRegistry()})
	observer := new(collector)
	d.Observe(observer)

	req := message.NewRequest(message.VerbAuditEndpoint, 77, "mobicents/ivr/1@host")
	resp := d.Dispatch(context.Background(), req)

	assert.Equal(t, message.UnknownOrUnsupportedCommand, resp.Code())
	assert.Equal(t, 77, resp.TransactionID())
	require.Equal(t, 2, observer.count())
	assert.Same(t, req, observer.messages[0])
	assert.Equal(t, message.DirectionIncoming, observer.dirs[0])
	assert.Same(t, resp, observer.messages[1])
	assert.Equal(t, message.DirectionOutgoing, observer.dirs[1])
}

func TestDispatcherSharesObservers(t *testing.T) {
	d := NewDispatcher(Deps{Endpoints: endpoint.NewRegistry(nil), Packages: packages.DefaultRegistry()})
	observer := new(collector)
	forget := d.Observe(observer)

	req := message.NewRequest(message.VerbRequestNotification, 5, "mobicents/ivr/1@host")
	resp := d.Dispatch(context.Background(), req)
	assert.Equal(t, message.ProtocolError, resp.Code())
	require.Equal(t, 2, observer.count())
	assert.Same(t, resp, observer.messages[1])

	forget()
	forget()
	d.Dispatch(context.Background(), req)
	assert.Equal(t, 2, observer.count())
}

func TestDispatcherRegisterReplaces(t *testing.T) {
	d := NewDispatcher(Deps{})
	d.Register(message.VerbAuditEndpoint, commandFunc(func(ctx context.Context, req *message.Request) *message.Response {
		return message.NewResponse(message.TransactionWasExecuted, req.TransactionID())
	}))

	resp := d.Dispatch(context.Background(), message.NewRequest(message.VerbAuditEndpoint, 1, "a/b@c"))
	assert.Equal(t, message.TransactionWasExecuted, resp.Code())
}

type commandFunc func(ctx context.Context, req *message.Request) *message.Response

func (f commandFunc) Execute(ctx context.Context, req *message.Request) *message.Response {
	return f(ctx, req)
}

func TestObserversConcurrentRegistration(t *testing.T) {
	observers := NewObservers()
	resp := message.NewResponse(message.TransactionWasExecuted, 1)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			forget := observers.Observe(new(collector))
			forget()
		}()
		go func() {
			defer wg.Done()
			observers.Notify(resp, message.DirectionOutgoing)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, observers.Len())
}

func TestObserversFanOut(t *testing.T) {
	observers := NewObservers()
	first, second := new(collector), new(collector)
	observers.Observe(first)
	forget := observers.Observe(second)

	resp := message.NewResponse(message.TransactionWasExecuted, 1)
	observers.Notify(resp, message.DirectionOutgoing)
	forget()
	observers.Notify(resp, message.DirectionOutgoing)

	assert.Equal(t, 2, first.count())
	assert.Equal(t, 1, second.count())
}

func TestMetricsObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	// повторная регистрация использует существующие счетчики
	again := NewMetrics(reg)

	d := NewDispatcher(Deps{Endpoints: endpoint.NewRegistry(nil), Packages: packages.DefaultRegistry()})
	d.Observe(metrics)

	d.Dispatch(context.Background(), message.NewRequest(message.VerbAuditEndpoint, 1, "a/b@c"))
	d.Dispatch(context.Background(), message.NewRequest(message.VerbRequestNotification, 2, "a/b@c"))
	d.Dispatch(context.Background(), message.NewRequest(message.VerbRequestNotification, 3, "a/b@c"))

	assert.Equal(t, 1.0, testutil.ToFloat64(again.requests.WithLabelValues("AUEP")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.requests.WithLabelValues("RQNT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.responses.WithLabelValues("504")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.responses.WithLabelValues("510")))
}
