package packages

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry реестр пакетов. Безопасен для конкурентного использования.
type Registry struct {
	packages map[string]Package
	mu       sync.RWMutex
}

// NewRegistry создает реестр с указанными пакетами
func NewRegistry(pkgs ...Package) *Registry {
	r := &Registry{packages: make(map[string]Package)}
	for _, p := range pkgs {
		r.Register(p)
	}
	return r
}

// DefaultRegistry реестр со всеми встроенными пакетами
func DefaultRegistry() *Registry {
	return NewRegistry(NewAdvancedAudioPackage())
}

// Register добавляет или заменяет пакет
func (r *Registry) Register(p Package) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packages[strings.ToLower(p.Name())] = p
}

// Package возвращает пакет по имени без учета регистра
func (r *Registry) Package(name string) (Package, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.packages[strings.ToLower(name)]
	return p, ok
}

// Names возвращает имена зарегистрированных пакетов
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.packages))
	for _, p := range r.packages {
		names = append(names, p.Name())
	}
	sort.Strings(names)
	return names
}

// ProvideSignal разрешает сигнал. Сигнал не выполняется.
func (r *Registry) ProvideSignal(pkg, name string, params map[string]string, mg MediaGroup) (Signal, error) {
	p, ok := r.Package(pkg)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedPackage, pkg)
	}
	return p.Signal(name, params, mg)
}

// ResolveSignal проверяет пакет и имя сигнала без разбора параметров
func (r *Registry) ResolveSignal(pkg, name string) error {
	p, ok := r.Package(pkg)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnrecognizedPackage, pkg)
	}
	if !p.HasSignal(name) {
		return fmt.Errorf("%w: %s/%s", ErrUnsupportedSignal, p.Name(), name)
	}
	return nil
}

// ResolveEvent проверяет, что событие известно
func (r *Registry) ResolveEvent(pkg, name string) (EventType, error) {
	p, ok := r.Package(pkg)
	if !ok {
		return EventType{}, fmt.Errorf("%w: %s", ErrUnrecognizedPackage, pkg)
	}
	if !p.HasEvent(name) {
		return EventType{}, fmt.Errorf("%w: %s/%s", ErrUnsupportedEvent, p.Name(), name)
	}
	return EventType{Package: p.Name(), Name: strings.ToLower(name)}, nil
}
