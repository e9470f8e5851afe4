package endpoint

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// Provider создает новые конечные точки пространства имен для шаблона "$"
type Provider interface {
	Namespace() string
	Provide() Endpoint
}

// Factory создает конечную точку с заданным идентификатором
type Factory func(id string) Endpoint

// NamespaceProvider выдает идентификаторы namespace+1, namespace+2, ...
// Суффиксы не переиспользуются в течение жизни процесса.
type NamespaceProvider struct {
	namespace string
	factory   Factory
	counter   atomic.Uint64
}

// NewNamespaceProvider создает провайдер; к namespace добавляется '/' при отсутствии
func NewNamespaceProvider(namespace string, factory Factory) *NamespaceProvider {
	if !strings.HasSuffix(namespace, "/") {
		namespace += "/"
	}
	return &NamespaceProvider{namespace: namespace, factory: factory}
}

func (p *NamespaceProvider) Namespace() string {
	return p.namespace
}

// Provide создает конечную точку со следующим суффиксом
func (p *NamespaceProvider) Provide() Endpoint {
	n := p.counter.Add(1)
	return p.factory(p.namespace + strconv.FormatUint(n, 10))
}
