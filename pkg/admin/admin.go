// Package admin HTTP интерфейс обслуживания: метрики Prometheus,
// состояние конечных точек и проверка живости.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hl2dod/mediaserver/pkg/mgcp/endpoint"
)

// Endpoints источник сведений о точках. Реализуется *endpoint.Registry.
type Endpoints interface {
	Endpoints() []endpoint.Endpoint
	GetEndpoint(name string) (endpoint.Endpoint, error)
}

type ConnectionView struct {
	ID     string `json:"id"`
	CallID string `json:"call_id,omitempty"`
	State  string `json:"state"`
	Local  string `json:"local,omitempty"`
	Remote string `json:"remote,omitempty"`
	Mode   string `json:"mode"`
}

type EndpointView struct {
	ID          string           `json:"id"`
	Active      bool             `json:"active"`
	Connections []ConnectionView `json:"connections,omitempty"`
}

// NewRouter маршруты /metrics, /healthz, /endpoints и /endpoints/{name}
func NewRouter(endpoints Endpoints, gatherer prometheus.Gatherer, logger *slog.Logger) *mux.Router {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{endpoints: endpoints, logger: logger.With("component", "admin")}

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	router.HandleFunc("/endpoints", h.list).Methods(http.MethodGet)
	router.HandleFunc("/endpoints/{name:.+}", h.get).Methods(http.MethodGet)
	return router
}

type handlers struct {
	endpoints Endpoints
	logger    *slog.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	all := h.endpoints.Endpoints()
	views := make([]EndpointView, 0, len(all))
	for _, ep := range all {
		views = append(views, EndpointView{ID: ep.ID(), Active: ep.IsActive()})
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	ep, err := h.endpoints.GetEndpoint(name)
	if errors.Is(err, endpoint.ErrEndpointNotFound) {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, describe(ep))
}

func describe(ep endpoint.Endpoint) EndpointView {
	view := EndpointView{ID: ep.ID(), Active: ep.IsActive()}
	ce, ok := ep.(endpoint.ConnectionEndpoint)
	if !ok {
		return view
	}
	for _, conn := range ce.Connections() {
		callID, _ := ce.CallID(conn.ID())
		session := conn.Session()
		cv := ConnectionView{
			ID:     conn.ID(),
			CallID: callID,
			State:  string(conn.State()),
			Mode:   session.Mode().String(),
		}
		if addr := session.LocalAddr(); addr != nil {
			cv.Local = addr.String()
		}
		if addr := session.RemoteAddr(); addr != nil {
			cv.Remote = addr.String()
		}
		view.Connections = append(view.Connections, cv)
	}
	return view
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("admin response not written", "error", err)
	}
}

// Server HTTP сервер обслуживания
type Server struct {
	http   *http.Server
	logger *slog.Logger
}

func NewServer(address string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		http: &http.Server{
			Addr:              address,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With("component", "admin"),
	}
}

// Listen открывает TCP слушатель на адресе сервера
func (s *Server) Listen() (net.Listener, error) {
	return net.Listen("tcp", s.http.Addr)
}

// Serve обслуживает запросы на готовом слушателе до отмены ctx
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("admin listening", "address", listener.Addr().String())
		errc <- s.http.Serve(listener)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
