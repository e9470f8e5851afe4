package command

import (
	"context"
	"errors"

	"github.com/hl2dod/mediaserver/pkg/mgcp/endpoint"
	"github.com/hl2dod/mediaserver/pkg/mgcp/message"
	"github.com/hl2dod/mediaserver/pkg/mgcp/packages"
	"github.com/hl2dod/mediaserver/pkg/mgcp/param"
)

// RequestNotificationCommand обработчик RQNT. Проверки выполняются по порядку,
// первая неудачная определяет код ответа.
type RequestNotificationCommand struct {
	base
	endpoints Endpoints
	packages  PackageRegistry
}

func NewRequestNotificationCommand(deps Deps) *RequestNotificationCommand {
	return &RequestNotificationCommand{
		base:      newBase(string(message.VerbRequestNotification), deps),
		endpoints: deps.Endpoints,
		packages:  deps.Packages,
	}
}

func (c *RequestNotificationCommand) Execute(ctx context.Context, req *message.Request) *message.Response {
	return c.run(req, func() (*message.Response, error) {
		if err := c.execute(req); err != nil {
			return nil, err
		}
		return message.NewResponse(message.TransactionWasExecuted, req.TransactionID()), nil
	})
}

func (c *RequestNotificationCommand) execute(req *message.Request) error {
	requestID, err := requireParameter(req, message.ParamRequestID)
	if err != nil {
		return err
	}

	id, err := endpointID(req)
	if err != nil {
		return err
	}
	ep, err := lookupEndpoint(c.endpoints, id)
	if err != nil {
		return err
	}

	events, err := c.requestedEvents(req)
	if err != nil {
		return err
	}

	signals, err := c.signals(req, ep.MediaGroup())
	if err != nil {
		return err
	}

	var notifiedEntity *param.NotifiedEntity
	if raw, ok := req.Parameter(message.ParamNotifiedEntity); ok && raw != "" {
		notifiedEntity, err = param.ParseNotifiedEntity(raw)
		if err != nil {
			return fail(message.ProtocolError, err)
		}
	}

	nr := endpoint.NewNotificationRequest(req.TransactionID(), requestID, notifiedEntity, events, signals)
	if err := ep.RequestNotification(nr); err != nil {
		return fail(message.ProtocolError, err)
	}

	c.logger.Debug("notification requested",
		"transaction", req.TransactionID(),
		"endpoint", ep.ID(),
		"request_id", requestID,
		"events", len(events),
		"signals", len(signals))
	return nil
}

// requestedEvents разбирает параметр R
func (c *RequestNotificationCommand) requestedEvents(req *message.Request) ([]endpoint.RequestedEvent, error) {
	raw, ok := req.Parameter(message.ParamRequestedEvents)
	if !ok || raw == "" {
		return nil, nil
	}

	tokens, err := param.ParseTokens(raw)
	if err != nil {
		return nil, fail(message.ProtocolError, err)
	}

	events := make([]endpoint.RequestedEvent, 0, len(tokens))
	for _, tok := range tokens {
		eventType, err := c.packages.ResolveEvent(tok.Package, tok.Name)
		if err != nil {
			return nil, fail(packageErrorCode(err), err)
		}
		actions, err := param.ParseEventActions(tok.Args)
		if err != nil {
			return nil, fail(message.EventOrSignalParameterError, err)
		}
		events = append(events, endpoint.RequestedEvent{
			EventType:  eventType,
			Actions:    actions,
			Connection: tok.Connection,
		})
	}
	return events, nil
}

// signals разбирает параметр S и создает сигналы для медиагруппы точки
func (c *RequestNotificationCommand) signals(req *message.Request, mg packages.MediaGroup) ([]packages.Signal, error) {
	raw, ok := req.Parameter(message.ParamSignalRequests)
	if !ok || raw == "" {
		return nil, nil
	}

	tokens, err := param.ParseTokens(raw)
	if err != nil {
		return nil, fail(message.ProtocolError, err)
	}

	signals := make([]packages.Signal, 0, len(tokens))
	for _, tok := range tokens {
		params, perr := param.ParseSignalParameters(tok.Args)
		if perr != nil {
			// неизвестный пакет или сигнал важнее ошибки в аргументах
			if err := c.packages.ResolveSignal(tok.Package, tok.Name); err != nil {
				return nil, fail(packageErrorCode(err), err)
			}
			return nil, fail(message.EventOrSignalParameterError, perr)
		}
		signal, err := c.packages.ProvideSignal(tok.Package, tok.Name, params, mg)
		if err != nil {
			return nil, fail(packageErrorCode(err), err)
		}
		signals = append(signals, signal)
	}
	return signals, nil
}

// packageErrorCode код ответа для ошибок разрешения сигналов и событий
func packageErrorCode(err error) message.ResponseCode {
	switch {
	case errors.Is(err, packages.ErrUnrecognizedPackage):
		return message.UnknownPackage
	case errors.Is(err, packages.ErrUnsupportedSignal), errors.Is(err, packages.ErrUnsupportedEvent):
		return message.NoSuchEventOrSignal
	case errors.Is(err, packages.ErrInvalidParameter):
		return message.EventOrSignalParameterError
	default:
		return message.ProtocolError
	}
}
