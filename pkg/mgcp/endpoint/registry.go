package endpoint

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/hl2dod/mediaserver/pkg/mgcp/param"
)

// maxAllocationAttempts ограничивает пропуск занятых имен при выделении "$"
const maxAllocationAttempts = 1000

// Registry отображение идентификаторов на конечные точки
type Registry struct {
	mu        sync.RWMutex
	endpoints map[string]Endpoint
	providers map[string]Provider
	logger    *slog.Logger
}

// NewRegistry создает пустой реестр
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		endpoints: make(map[string]Endpoint),
		providers: make(map[string]Provider),
		logger:    logger.With("component", "endpoint_registry"),
	}
}

func key(name string) string {
	return strings.ToLower(name)
}

// RegisterProvider подключает провайдер для шаблона "$" в его пространстве имен
func (r *Registry) RegisterProvider(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ns := key(p.Namespace())
	if _, exists := r.providers[ns]; exists {
		return fmt.Errorf("provider for namespace %s already registered", p.Namespace())
	}
	r.providers[ns] = p
	return nil
}

// Register добавляет конечную точку с фиксированным именем
func (r *Registry) Register(ep Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(ep.ID())
	if _, exists := r.endpoints[k]; exists {
		return fmt.Errorf("%w: %s", ErrEndpointExists, ep.ID())
	}
	r.endpoints[k] = ep
	return nil
}

// GetEndpoint ищет конечную точку по имени без домена
func (r *Registry) GetEndpoint(name string) (Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.endpoints[key(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEndpointNotFound, name)
	}
	return ep, nil
}

// ResolveEndpoint разрешает идентификатор из команды: "*" отклоняется,
// "$" выделяет новую конечную точку, остальное ищется по имени.
func (r *Registry) ResolveEndpoint(id param.EndpointID) (Endpoint, error) {
	switch {
	case id.IsAllWildcard():
		return nil, fmt.Errorf("%w: %s", ErrWildcardTooComplicated, id)
	case id.IsAnyWildcard():
		return r.allocate(id.Namespace())
	default:
		return r.GetEndpoint(id.Name)
	}
}

func (r *Registry) allocate(namespace string) (Endpoint, error) {
	r.mu.RLock()
	provider, ok := r.providers[key(namespace)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, namespace)
	}

	for i := 0; i < maxAllocationAttempts; i++ {
		ep := provider.Provide()

		r.mu.Lock()
		k := key(ep.ID())
		if _, exists := r.endpoints[k]; exists {
			r.mu.Unlock()
			continue
		}
		r.endpoints[k] = ep
		r.mu.Unlock()

		r.logger.Debug("endpoint allocated", "endpoint", ep.ID())
		return ep, nil
	}
	return nil, fmt.Errorf("%w: no free name in %s", ErrEndpointNotFound, namespace)
}

// Unregister удаляет конечную точку из реестра
func (r *Registry) Unregister(name string) (Endpoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(name)
	ep, ok := r.endpoints[k]
	if ok {
		delete(r.endpoints, k)
	}
	return ep, ok
}

// Endpoints снимок всех конечных точек, отсортированный по имени
func (r *Registry) Endpoints() []Endpoint {
	r.mu.RLock()
	list := make([]Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		list = append(list, ep)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID() < list[j].ID() })
	return list
}

// Close закрывает все конечные точки, поддерживающие io.Closer
func (r *Registry) Close() error {
	var firstErr error
	for _, ep := range r.Endpoints() {
		closer, ok := ep.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			r.logger.Warn("endpoint close failed", "endpoint", ep.ID(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
