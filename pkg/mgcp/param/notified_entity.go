package param

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultCallAgentPort порт агента вызовов по умолчанию (RFC 3435)
const DefaultCallAgentPort = 2727

// NotifiedEntity адрес, на который отправляются уведомления: [name@]host[:port]
type NotifiedEntity struct {
	Name   string
	Domain string
	Port   int
}

// ParseNotifiedEntity разбирает значение параметра N
func ParseNotifiedEntity(s string) (*NotifiedEntity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty notified entity", ErrMalformed)
	}

	ne := &NotifiedEntity{Port: DefaultCallAgentPort}
	hostPort := s
	if at := strings.IndexByte(s, '@'); at >= 0 {
		ne.Name = s[:at]
		hostPort = s[at+1:]
	}

	if colon := strings.LastIndexByte(hostPort, ':'); colon >= 0 && !strings.HasSuffix(hostPort, "]") {
		port, err := strconv.Atoi(hostPort[colon+1:])
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("%w: invalid notified entity port in %q", ErrMalformed, s)
		}
		ne.Port = port
		hostPort = hostPort[:colon]
	}

	ne.Domain = strings.Trim(hostPort, "[]")
	if ne.Domain == "" {
		return nil, fmt.Errorf("%w: notified entity without domain: %q", ErrMalformed, s)
	}
	return ne, nil
}

// Address возвращает "host:port" для отправки UDP датаграмм
func (ne *NotifiedEntity) Address() string {
	return net.JoinHostPort(ne.Domain, strconv.Itoa(ne.Port))
}

func (ne *NotifiedEntity) String() string {
	host := ne.Domain
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	s := host + ":" + strconv.Itoa(ne.Port)
	if ne.Name != "" {
		s = ne.Name + "@" + s
	}
	return s
}
