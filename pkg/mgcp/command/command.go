// Package command выполняет команды MGCP: проверяет параметры запроса,
// обращается к конечным точкам и формирует ровно один ответ на каждый запрос.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hl2dod/mediaserver/pkg/mgcp/endpoint"
	"github.com/hl2dod/mediaserver/pkg/mgcp/message"
	"github.com/hl2dod/mediaserver/pkg/mgcp/packages"
	"github.com/hl2dod/mediaserver/pkg/mgcp/param"
)

// Command обработчик одной команды MGCP. Execute никогда не возвращает nil
// и не паникует наружу.
type Command interface {
	Execute(ctx context.Context, req *message.Request) *message.Response
}

// Endpoints реестр конечных точек. Реализуется *endpoint.Registry.
type Endpoints interface {
	GetEndpoint(name string) (endpoint.Endpoint, error)
	ResolveEndpoint(id param.EndpointID) (endpoint.Endpoint, error)
	Unregister(name string) (endpoint.Endpoint, bool)
}

// PackageRegistry разрешение сигналов и событий. Реализуется *packages.Registry.
type PackageRegistry interface {
	// ResolveSignal проверяет пакет и имя сигнала
	ResolveSignal(pkg, name string) error
	ProvideSignal(pkg, name string, params map[string]string, mg packages.MediaGroup) (packages.Signal, error)
	ResolveEvent(pkg, name string) (packages.EventType, error)
}

// ConnectionConfig параметры RTP соединений для CRCX/MDCX/DLCX
type ConnectionConfig struct {
	// BindAddress локальный IP для RTP сокетов
	BindAddress string
	// ExternalAddress адрес в локальном SDP, пустой означает BindAddress
	ExternalAddress string
	// Timeout ожидание завершения операции над соединением
	Timeout time.Duration
}

// DefaultConnectionTimeout ожидание согласования по умолчанию
const DefaultConnectionTimeout = 5 * time.Second

// Deps зависимости команд
type Deps struct {
	Endpoints   Endpoints
	Packages    PackageRegistry
	Connections ConnectionConfig
	// Observers общий список наблюдателей, по умолчанию у команды свой
	Observers *Observers
	Logger    *slog.Logger
}

// Error ошибка выполнения команды с кодом ответа
type Error struct {
	Code message.ResponseCode
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %v", e.Code.Code(), e.Code.Message(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fail(code message.ResponseCode, err error) *Error {
	return &Error{Code: code, Err: err}
}

func failf(code message.ResponseCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// codeOf код ответа для ошибки; неклассифицированные ошибки дают 510
func codeOf(err error) message.ResponseCode {
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return cmdErr.Code
	}
	return message.ProtocolError
}

// base общая часть команд: наблюдатели, журнал и защита от паник
type base struct {
	name      string
	observers *Observers
	logger    *slog.Logger
}

func newBase(name string, deps Deps) base {
	observers := deps.Observers
	if observers == nil {
		observers = NewObservers()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return base{
		name:      name,
		observers: observers,
		logger:    logger.With("component", "mgcp_command", "command", name),
	}
}

// Observe подписывает наблюдателя на ответы команды
func (b *base) Observe(o message.Observer) (forget func()) {
	return b.observers.Observe(o)
}

// run выполняет fn и превращает любой исход в ответ, отправляемый наблюдателям
func (b *base) run(req *message.Request, fn func() (*message.Response, error)) (resp *message.Response) {
	txID := req.TransactionID()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("command panicked", "transaction", txID, "panic", r)
			resp = message.NewResponse(message.ProtocolError, txID)
		}
		b.observers.Notify(resp, message.DirectionOutgoing)
	}()

	resp, err := fn()
	if err != nil {
		code := codeOf(err)
		b.logger.Info("command rejected",
			"transaction", txID,
			"endpoint", req.EndpointID(),
			"code", code.Code(),
			"error", err)
		return message.NewResponse(code, txID)
	}
	return resp
}

// requireParameter значение обязательного параметра или 510
func requireParameter(req *message.Request, p message.Parameter) (string, error) {
	v, ok := req.Parameter(p)
	if !ok || v == "" {
		return "", failf(message.ProtocolError, "missing parameter %s", p)
	}
	return v, nil
}

// endpointID разбирает идентификатор из строки запроса
func endpointID(req *message.Request) (param.EndpointID, error) {
	id, err := param.ParseEndpointID(req.EndpointID())
	if err != nil {
		return param.EndpointID{}, fail(message.ProtocolError, err)
	}
	return id, nil
}

// lookupEndpoint ищет существующую точку; шаблоны отклоняются без обращения к реестру
func lookupEndpoint(endpoints Endpoints, id param.EndpointID) (endpoint.Endpoint, error) {
	if id.IsAllWildcard() || id.IsAnyWildcard() {
		return nil, failf(message.WildcardTooComplicated, "wildcard endpoint %s", id)
	}
	ep, err := endpoints.GetEndpoint(id.Name)
	if errors.Is(err, endpoint.ErrEndpointNotFound) || (err == nil && ep == nil) {
		return nil, failf(message.EndpointUnknown, "endpoint %s", id.Name)
	}
	if err != nil {
		return nil, err
	}
	return ep, nil
}
