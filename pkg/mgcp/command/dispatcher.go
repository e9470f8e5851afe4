package command

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hl2dod/mediaserver/pkg/mgcp/message"
)

// Dispatcher направляет запросы обработчикам по глаголу
type Dispatcher struct {
	mu        sync.RWMutex
	commands  map[message.Verb]Command
	observers *Observers
	logger    *slog.Logger
}

// NewDispatcher создает диспетчер с обработчиками RQNT, CRCX, MDCX и DLCX.
// Наблюдатели диспетчера общие для всех его команд.
func NewDispatcher(deps Deps) *Dispatcher {
	if deps.Observers == nil {
		deps.Observers = NewObservers()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	d := &Dispatcher{
		commands:  make(map[message.Verb]Command),
		observers: deps.Observers,
		logger:    deps.Logger.With("component", "mgcp_dispatcher"),
	}
	d.Register(message.VerbRequestNotification, NewRequestNotificationCommand(deps))
	d.Register(message.VerbCreateConnection, NewCreateConnectionCommand(deps))
	d.Register(message.VerbModifyConnection, NewModifyConnectionCommand(deps))
	d.Register(message.VerbDeleteConnection, NewDeleteConnectionCommand(deps))
	return d
}

// Register назначает обработчик глаголу, заменяя прежний
func (d *Dispatcher) Register(verb message.Verb, cmd Command) {
	d.mu.Lock()
	d.commands[verb] = cmd
	d.mu.Unlock()
}

// Observe подписывает наблюдателя на входящие запросы и исходящие ответы
func (d *Dispatcher) Observe(o message.Observer) (forget func()) {
	return d.observers.Observe(o)
}

// Dispatch выполняет запрос. Неизвестный глагол дает 504.
func (d *Dispatcher) Dispatch(ctx context.Context, req *message.Request) *message.Response {
	d.observers.Notify(req, message.DirectionIncoming)

	d.mu.RLock()
	cmd, ok := d.commands[req.Verb()]
	d.mu.RUnlock()

	if !ok {
		d.logger.Info("unsupported command", "verb", req.Verb(), "transaction", req.TransactionID())
		resp := message.NewResponse(message.UnknownOrUnsupportedCommand, req.TransactionID())
		d.observers.Notify(resp, message.DirectionOutgoing)
		return resp
	}
	return cmd.Execute(ctx, req)
}
