// Package param разбирает значения параметров MGCP: идентификаторы конечных точек,
// notified entity, списки запрошенных событий и сигналов.
package param

import (
	"fmt"
	"strings"
)

const (
	// WildcardAll "все экземпляры" - операция над неограниченным набором конечных точек
	WildcardAll = "*"
	// WildcardAny "любой экземпляр" - реестр выделяет новую конечную точку
	WildcardAny = "$"
)

// EndpointID идентификатор конечной точки: namespace/localName[@domain]
type EndpointID struct {
	Name   string // например "mobicents/ivr/10"
	Domain string // например "127.0.0.1:2427"
}

// ParseEndpointID разбирает идентификатор из строки команды
func ParseEndpointID(s string) (EndpointID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return EndpointID{}, fmt.Errorf("%w: empty endpoint id", ErrMalformed)
	}

	name, domain := s, ""
	if at := strings.LastIndexByte(s, '@'); at >= 0 {
		name, domain = s[:at], s[at+1:]
	}
	if name == "" || strings.HasSuffix(name, "/") {
		return EndpointID{}, fmt.Errorf("%w: endpoint id without local name: %q", ErrMalformed, s)
	}

	return EndpointID{Name: name, Domain: domain}, nil
}

// Namespace часть имени до последнего '/' включительно
func (id EndpointID) Namespace() string {
	if slash := strings.LastIndexByte(id.Name, '/'); slash >= 0 {
		return id.Name[:slash+1]
	}
	return ""
}

// LocalName последний компонент имени
func (id EndpointID) LocalName() string {
	if slash := strings.LastIndexByte(id.Name, '/'); slash >= 0 {
		return id.Name[slash+1:]
	}
	return id.Name
}

// IsAllWildcard true для "ns/*"
func (id EndpointID) IsAllWildcard() bool {
	return id.LocalName() == WildcardAll
}

// IsAnyWildcard true для "ns/$"
func (id EndpointID) IsAnyWildcard() bool {
	return id.LocalName() == WildcardAny
}

// WithName возвращает идентификатор в том же домене с другим именем
func (id EndpointID) WithName(name string) EndpointID {
	return EndpointID{Name: name, Domain: id.Domain}
}

func (id EndpointID) String() string {
	if id.Domain == "" {
		return id.Name
	}
	return id.Name + "@" + id.Domain
}
