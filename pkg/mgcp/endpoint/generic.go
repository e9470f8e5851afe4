package endpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/looplab/fsm"

	"github.com/hl2dod/mediaserver/pkg/mgcp/packages"
	"github.com/hl2dod/mediaserver/pkg/mgcp/param"
	"github.com/hl2dod/mediaserver/pkg/rtp/connection"
)

const (
	stateInactive = "inactive"
	stateActive   = "active"
)

// SessionFactory создает RTP канал для нового соединения
type SessionFactory func() connection.Session

// GenericConfig зависимости GenericEndpoint
type GenericConfig struct {
	MediaGroup packages.MediaGroup
	Sessions   SessionFactory
	Connection connection.Config
	// Observers подписываются на события каждой созданной точки
	Observers []EventObserver
	Logger    *slog.Logger
}

type connectionEntry struct {
	conn   *connection.Connection
	callID string
}

// GenericEndpoint конечная точка с медиа-группой и RTP соединениями.
// Активна, пока у нее есть хотя бы одно соединение.
type GenericEndpoint struct {
	id         string
	mediaGroup packages.MediaGroup
	sessions   SessionFactory
	connConfig connection.Config
	logger     *slog.Logger
	machine    *fsm.FSM

	// notifyMu упорядочивает запросы уведомлений к одной точке
	notifyMu sync.Mutex

	mu          sync.Mutex
	request     *NotificationRequest
	stopSignals context.CancelFunc
	signalsDone chan struct{}
	connections map[string]connectionEntry

	observersMu    sync.RWMutex
	nextObserverID uint64
	observers      []observerEntry
}

type observerEntry struct {
	id       uint64
	observer EventObserver
}

// NewGenericEndpoint создает неактивную конечную точку
func NewGenericEndpoint(id string, config GenericConfig) *GenericEndpoint {
	mg := config.MediaGroup
	if mg == nil {
		mg = NullMediaGroup{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &GenericEndpoint{
		id:          id,
		mediaGroup:  mg,
		sessions:    config.Sessions,
		connConfig:  config.Connection,
		logger:      logger.With("component", "endpoint", "endpoint", id),
		connections: make(map[string]connectionEntry),
	}
	for _, o := range config.Observers {
		e.Observe(o)
	}
	e.machine = fsm.NewFSM(
		stateInactive,
		fsm.Events{
			{Name: "activate", Src: []string{stateInactive}, Dst: stateActive},
			{Name: "deactivate", Src: []string{stateActive}, Dst: stateInactive},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, ev *fsm.Event) {
				e.logger.Debug("endpoint state changed", "from", ev.Src, "to", ev.Dst)
			},
		},
	)
	return e
}

// GenericFactory фабрика для NamespaceProvider
func GenericFactory(config GenericConfig) Factory {
	return func(id string) Endpoint {
		return NewGenericEndpoint(id, config)
	}
}

func (e *GenericEndpoint) ID() string {
	return e.id
}

func (e *GenericEndpoint) IsActive() bool {
	return e.machine.Current() == stateActive
}

func (e *GenericEndpoint) MediaGroup() packages.MediaGroup {
	return e.mediaGroup
}

// Observe подписывает наблюдателя на события с действием Notify и
// возвращает функцию отписки
func (e *GenericEndpoint) Observe(o EventObserver) (forget func()) {
	e.observersMu.Lock()
	e.nextObserverID++
	id := e.nextObserverID
	e.observers = append(e.observers, observerEntry{id: id, observer: o})
	e.observersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.forget(id) })
	}
}

func (e *GenericEndpoint) forget(id uint64) {
	e.observersMu.Lock()
	defer e.observersMu.Unlock()
	for i, entry := range e.observers {
		if entry.id == id {
			e.observers = append(e.observers[:i:i], e.observers[i+1:]...)
			return
		}
	}
}

// NotificationRequest текущий запрос уведомлений
func (e *GenericEndpoint) NotificationRequest() *NotificationRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.request
}

// RequestNotification прерывает текущие сигналы и запускает очередь нового
// запроса последовательно в отдельной горутине
func (e *GenericEndpoint) RequestNotification(req *NotificationRequest) error {
	if req == nil {
		return errors.New("nil notification request")
	}

	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	e.stopCurrentSignals()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	e.request = req
	e.stopSignals = cancel
	e.signalsDone = done
	e.mu.Unlock()

	e.logger.Debug("notification request accepted",
		"request_id", req.RequestIdentifier(),
		"signals", req.CountSignals(),
		"events", len(req.RequestedEvents()))

	go e.runSignals(ctx, req, done)
	return nil
}

func (e *GenericEndpoint) stopCurrentSignals() {
	e.mu.Lock()
	cancel, done := e.stopSignals, e.signalsDone
	e.stopSignals, e.signalsDone = nil, nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	e.mediaGroup.Stop()
	<-done
}

func (e *GenericEndpoint) runSignals(ctx context.Context, req *NotificationRequest, done chan struct{}) {
	defer close(done)

	for {
		signal, ok := req.PollSignal()
		if !ok {
			return
		}

		event, err := signal.Execute(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			e.logger.Warn("signal failed",
				"signal", signal.Package()+"/"+signal.Name(), "error", err)
			event = &packages.Event{
				EventType: packages.EventType{Package: signal.Package(), Name: packages.EventOperationFailed},
				Params:    map[string]string{"rc": packages.ReturnCodeFailure},
			}
		}
		if event != nil {
			e.report(req, *event)
		}
	}
}

// report передает событие наблюдателям, если оно запрошено с действием Notify
func (e *GenericEndpoint) report(req *NotificationRequest, event packages.Event) {
	actions := req.Actions(event.EventType.String())
	notify := false
	for _, a := range actions {
		if a == param.ActionNotify {
			notify = true
			break
		}
	}
	if !notify {
		e.logger.Debug("event not requested for notify", "event", event.String())
		return
	}

	e.observersMu.RLock()
	observers := append([]observerEntry(nil), e.observers...)
	e.observersMu.RUnlock()

	for _, entry := range observers {
		entry.observer.OnEvent(e, req, event)
	}
}

// CreateConnection создает соединение и активирует точку
func (e *GenericEndpoint) CreateConnection(callID string) (*connection.Connection, error) {
	if e.sessions == nil {
		return nil, fmt.Errorf("%w: %s", ErrConnectionsUnsupported, e.id)
	}
	if callID == "" {
		return nil, errors.New("empty call id")
	}

	conn := connection.New(e.sessions(), e.connConfig)

	e.mu.Lock()
	e.connections[conn.ID()] = connectionEntry{conn: conn, callID: callID}
	if len(e.connections) == 1 {
		_ = e.machine.Event(context.Background(), "activate")
	}
	e.mu.Unlock()

	return conn, nil
}

// Connection ищет соединение по идентификатору
func (e *GenericEndpoint) Connection(id string) (*connection.Connection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.connections[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	return entry.conn, nil
}

// CallID идентификатор вызова соединения
func (e *GenericEndpoint) CallID(connectionID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.connections[connectionID]
	return entry.callID, ok
}

func (e *GenericEndpoint) DeleteConnection(id string) (*connection.Connection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.connections[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	e.removeLocked(id)
	return entry.conn, nil
}

func (e *GenericEndpoint) DeleteConnections(callID string) []*connection.Connection {
	e.mu.Lock()
	defer e.mu.Unlock()

	var removed []*connection.Connection
	for id, entry := range e.connections {
		if callID == "" || entry.callID == callID {
			removed = append(removed, entry.conn)
			e.removeLocked(id)
		}
	}
	return removed
}

func (e *GenericEndpoint) removeLocked(id string) {
	delete(e.connections, id)
	if len(e.connections) == 0 {
		_ = e.machine.Event(context.Background(), "deactivate")
	}
}

// Connections снимок соединений, отсортированный по идентификатору
func (e *GenericEndpoint) Connections() []*connection.Connection {
	e.mu.Lock()
	list := make([]*connection.Connection, 0, len(e.connections))
	for _, entry := range e.connections {
		list = append(list, entry.conn)
	}
	e.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID() < list[j].ID() })
	return list
}

// Close останавливает сигналы и закрывает все соединения
func (e *GenericEndpoint) Close() error {
	e.notifyMu.Lock()
	e.stopCurrentSignals()
	e.notifyMu.Unlock()

	for _, conn := range e.DeleteConnections("") {
		if _, err := conn.Close(nil).Wait(context.Background()); err != nil {
			return err
		}
	}
	return nil
}
