// Package endpoint содержит конечные точки шлюза и их реестр с поддержкой
// шаблонов "$" и "*".
package endpoint

import (
	"github.com/hl2dod/mediaserver/pkg/mgcp/packages"
	"github.com/hl2dod/mediaserver/pkg/rtp/connection"
)

// Endpoint конечная точка, принимающая запросы уведомлений
type Endpoint interface {
	ID() string
	IsActive() bool
	MediaGroup() packages.MediaGroup
	// RequestNotification заменяет текущий запрос уведомлений и запускает сигналы
	RequestNotification(req *NotificationRequest) error
}

// ConnectionEndpoint конечная точка с RTP соединениями (CRCX/MDCX/DLCX)
type ConnectionEndpoint interface {
	Endpoint
	// CreateConnection создает соединение в состоянии idle
	CreateConnection(callID string) (*connection.Connection, error)
	Connection(id string) (*connection.Connection, error)
	CallID(connectionID string) (string, bool)
	// DeleteConnection удаляет соединение из эндпоинта, закрытие остается вызывающему
	DeleteConnection(id string) (*connection.Connection, error)
	// DeleteConnections удаляет соединения вызова, все при пустом callID
	DeleteConnections(callID string) []*connection.Connection
	Connections() []*connection.Connection
}

// EventObserver получает события, о которых нужно уведомить агента вызовов
type EventObserver interface {
	OnEvent(ep Endpoint, req *NotificationRequest, event packages.Event)
}
