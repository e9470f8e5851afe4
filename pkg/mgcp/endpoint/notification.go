package endpoint

import (
	"strings"
	"sync"

	"github.com/hl2dod/mediaserver/pkg/mgcp/packages"
	"github.com/hl2dod/mediaserver/pkg/mgcp/param"
)

// RequestedEvent событие, о котором агент вызовов просит сообщать
type RequestedEvent struct {
	packages.EventType
	Actions []param.EventAction
	// Connection идентификатор соединения из "pkg/event@conn", пусто для эндпоинта
	Connection string
}

// HasAction проверяет наличие действия
func (e RequestedEvent) HasAction(action param.EventAction) bool {
	for _, a := range e.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// NotificationRequest результат разбора RQNT. Поля не меняются после
// создания, изменяется только очередь сигналов через PollSignal.
type NotificationRequest struct {
	transactionID  int
	requestID      string
	notifiedEntity *param.NotifiedEntity
	events         []RequestedEvent

	mu      sync.Mutex
	signals []packages.Signal
}

// NewNotificationRequest создает запрос. Срезы копируются.
func NewNotificationRequest(
	transactionID int,
	requestID string,
	notifiedEntity *param.NotifiedEntity,
	events []RequestedEvent,
	signals []packages.Signal,
) *NotificationRequest {
	return &NotificationRequest{
		transactionID:  transactionID,
		requestID:      requestID,
		notifiedEntity: notifiedEntity,
		events:         append([]RequestedEvent(nil), events...),
		signals:        append([]packages.Signal(nil), signals...),
	}
}

func (r *NotificationRequest) TransactionID() int {
	return r.transactionID
}

// RequestIdentifier значение параметра X
func (r *NotificationRequest) RequestIdentifier() string {
	return r.requestID
}

// NotifiedEntity адрес для NTFY, nil если не задан в запросе
func (r *NotificationRequest) NotifiedEntity() *param.NotifiedEntity {
	return r.notifiedEntity
}

// RequestedEvents копия списка событий в порядке объявления
func (r *NotificationRequest) RequestedEvents() []RequestedEvent {
	return append([]RequestedEvent(nil), r.events...)
}

// IsListening проверяет, запрошено ли событие "pkg/name" (без учета регистра)
func (r *NotificationRequest) IsListening(event string) bool {
	_, ok := r.find(event)
	return ok
}

// Actions действия для события, nil если событие не запрошено
func (r *NotificationRequest) Actions(event string) []param.EventAction {
	e, ok := r.find(event)
	if !ok {
		return nil
	}
	return append([]param.EventAction(nil), e.Actions...)
}

func (r *NotificationRequest) find(event string) (RequestedEvent, bool) {
	for _, e := range r.events {
		if strings.EqualFold(e.EventType.String(), event) {
			return e, true
		}
	}
	return RequestedEvent{}, false
}

// CountSignals количество сигналов, оставшихся в очереди
func (r *NotificationRequest) CountSignals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signals)
}

// PollSignal извлекает первый сигнал очереди
func (r *NotificationRequest) PollSignal() (packages.Signal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.signals) == 0 {
		return nil, false
	}
	s := r.signals[0]
	r.signals[0] = nil
	r.signals = r.signals[1:]
	return s, true
}
