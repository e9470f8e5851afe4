package admin

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hl2dod/mediaserver/pkg/mgcp/endpoint"
	"github.com/hl2dod/mediaserver/pkg/rtp"
	"github.com/hl2dod/mediaserver/pkg/rtp/connection"
)

func newRegistry(t *testing.T) *endpoint.Registry {
	t.Helper()
	registry := endpoint.NewRegistry(nil)
	t.Cleanup(func() { registry.Close() })

	bridge := endpoint.NewGenericEndpoint("ms/bridge/1", endpoint.GenericConfig{
		Sessions: func() connection.Session { return rtp.NewSession(rtp.SessionConfig{}) },
	})
	require.NoError(t, registry.Register(bridge))
	require.NoError(t, registry.Register(endpoint.NewGenericEndpoint("ms/ivr/1", endpoint.GenericConfig{})))

	conn, err := bridge.CreateConnection("call-7")
	require.NoError(t, err)
	result, err := conn.Open(&connection.OpenContext{Mode: rtp.ModeRecvOnly, Address: "127.0.0.1"}).Wait(context.Background())
	require.NoError(t, err)
	require.NoError(t, result.Err)
	return registry
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestEndpointsListing(t *testing.T) {
	router := NewRouter(newRegistry(t), prometheus.NewRegistry(), nil)

	rec := get(t, router, "/endpoints")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var views []EndpointView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	assert.Equal(t, []EndpointView{
		{ID: "ms/bridge/1", Active: true},
		{ID: "ms/ivr/1", Active: false},
	}, views)
}

func TestEndpointDetails(t *testing.T) {
	router := NewRouter(newRegistry(t), prometheus.NewRegistry(), nil)

	rec := get(t, router, "/endpoints/ms/bridge/1")
	require.Equal(t, http.StatusOK, rec.Code)

	var view EndpointView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "ms/bridge/1", view.ID)
	require.Len(t, view.Connections, 1)
	assert.Equal(t, "call-7", view.Connections[0].CallID)
	assert.Equal(t, "open", view.Connections[0].State)
	assert.Equal(t, "recvonly", view.Connections[0].Mode)
	assert.NotEmpty(t, view.Connections[0].Local)
	assert.Empty(t, view.Connections[0].Remote)

	rec = get(t, router, "/endpoints/ms/bridge/9")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "mgcp_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	router := NewRouter(newRegistry(t), reg, nil)

	rec := get(t, router, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = get(t, router, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mgcp_test_total 1")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServerStopsOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := NewServer("", NewRouter(newRegistry(t), prometheus.NewRegistry(), nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, listener) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("admin server did not stop")
	}
}
