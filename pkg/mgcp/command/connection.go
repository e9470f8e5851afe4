package command

import (
	"context"
	"errors"
	"io"

	"github.com/hl2dod/mediaserver/pkg/mgcp/endpoint"
	"github.com/hl2dod/mediaserver/pkg/mgcp/message"
	"github.com/hl2dod/mediaserver/pkg/rtp"
	"github.com/hl2dod/mediaserver/pkg/rtp/connection"
)

// connectionCommand общая часть CRCX, MDCX и DLCX
type connectionCommand struct {
	base
	endpoints Endpoints
	config    ConnectionConfig
}

func newConnectionCommand(verb message.Verb, deps Deps) connectionCommand {
	config := deps.Connections
	if config.Timeout <= 0 {
		config.Timeout = DefaultConnectionTimeout
	}
	return connectionCommand{
		base:      newBase(string(verb), deps),
		endpoints: deps.Endpoints,
		config:    config,
	}
}

// connectionEndpoint приводит точку к ConnectionEndpoint
func connectionEndpoint(ep endpoint.Endpoint) (endpoint.ConnectionEndpoint, error) {
	ce, ok := ep.(endpoint.ConnectionEndpoint)
	if !ok {
		return nil, failf(message.UnsupportedFunctionality, "endpoint %s has no connections", ep.ID())
	}
	return ce, nil
}

// lookupConnection находит соединение и сверяет идентификатор вызова, если он указан
func lookupConnection(ce endpoint.ConnectionEndpoint, req *message.Request) (*connection.Connection, error) {
	connID, err := requireParameter(req, message.ParamConnectionID)
	if err != nil {
		return nil, err
	}
	conn, err := ce.Connection(connID)
	if err != nil {
		return nil, fail(message.IncorrectConnectionID, err)
	}
	if callID, ok := req.Parameter(message.ParamCallID); ok && callID != "" {
		if owner, _ := ce.CallID(connID); owner != callID {
			return nil, failf(message.UnknownCallID, "connection %s belongs to call %s", connID, owner)
		}
	}
	return conn, nil
}

// parseMode разбирает параметр M
func parseMode(raw string) (rtp.Mode, error) {
	mode, err := rtp.ParseMode(raw)
	if err != nil {
		return 0, fail(message.UnsupportedOrInvalidMode, err)
	}
	return mode, nil
}

// await ждет завершения операции не дольше таймаута команды
func (c *connectionCommand) await(ctx context.Context, f *connection.Future) (connection.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	result, err := f.Wait(ctx)
	if err != nil {
		return connection.Result{}, fail(message.TransactionTimedOut, err)
	}
	if result.Err != nil {
		return result, fail(causeCode(connection.CauseOf(result.Err)), result.Err)
	}
	return result, nil
}

// causeCode код ответа для причины неудачи соединения
func causeCode(cause connection.Cause) message.ResponseCode {
	switch cause {
	case connection.CauseMalformedDescription:
		return message.UnsupportedRemoteConnectionDescriptor
	case connection.CauseNoCommonCapability:
		return message.CodecNegotiationFailure
	case connection.CauseResourceExhausted:
		return message.InsufficientResources
	case connection.CauseUnsupportedMode:
		return message.UnsupportedOrInvalidMode
	case connection.CauseAborted:
		return message.TransactionAborted
	case connection.CauseInvalidState:
		return message.TransientError
	default:
		return message.ProtocolError
	}
}

// closeConnections закрывает соединения и ждет завершения в пределах таймаута
// release убирает из реестра точку, выделенную по "$" для неудачного CRCX
func (c *connectionCommand) release(ep endpoint.Endpoint) {
	if _, ok := c.endpoints.Unregister(ep.ID()); !ok {
		return
	}
	if closer, ok := ep.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			c.logger.Warn("released endpoint close failed", "endpoint", ep.ID(), "error", err)
		}
	}
	c.logger.Debug("allocated endpoint released", "endpoint", ep.ID())
}

func (c *connectionCommand) closeConnections(ctx context.Context, conns []*connection.Connection) error {
	futures := make([]*connection.Future, 0, len(conns))
	for _, conn := range conns {
		futures = append(futures, conn.Close(nil))
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	for _, f := range futures {
		if _, err := f.Wait(ctx); err != nil {
			return fail(message.TransactionTimedOut, err)
		}
	}
	return nil
}

// CreateConnectionCommand обработчик CRCX
type CreateConnectionCommand struct {
	connectionCommand
}

func NewCreateConnectionCommand(deps Deps) *CreateConnectionCommand {
	return &CreateConnectionCommand{newConnectionCommand(message.VerbCreateConnection, deps)}
}

func (c *CreateConnectionCommand) Execute(ctx context.Context, req *message.Request) *message.Response {
	return c.run(req, func() (*message.Response, error) {
		return c.execute(ctx, req)
	})
}

func (c *CreateConnectionCommand) execute(ctx context.Context, req *message.Request) (resp *message.Response, err error) {
	callID, err := requireParameter(req, message.ParamCallID)
	if err != nil {
		return nil, err
	}
	rawMode, err := requireParameter(req, message.ParamMode)
	if err != nil {
		return nil, err
	}
	mode, err := parseMode(rawMode)
	if err != nil {
		return nil, err
	}

	id, err := endpointID(req)
	if err != nil {
		return nil, err
	}
	ep, err := c.endpoints.ResolveEndpoint(id)
	switch {
	case errors.Is(err, endpoint.ErrWildcardTooComplicated):
		return nil, fail(message.WildcardTooComplicated, err)
	case errors.Is(err, endpoint.ErrEndpointNotFound), errors.Is(err, endpoint.ErrNoProvider):
		return nil, fail(message.EndpointUnknown, err)
	case err != nil:
		return nil, err
	}
	if id.IsAnyWildcard() {
		defer func() {
			if resp == nil {
				c.release(ep)
			}
		}()
	}
	ce, err := connectionEndpoint(ep)
	if err != nil {
		return nil, err
	}

	conn, err := ce.CreateConnection(callID)
	if errors.Is(err, endpoint.ErrConnectionsUnsupported) {
		return nil, fail(message.UnsupportedFunctionality, err)
	}
	if err != nil {
		return nil, fail(message.InsufficientResources, err)
	}

	future := conn.Open(&connection.OpenContext{
		Mode:              mode,
		Address:           c.config.BindAddress,
		ExternalAddress:   c.config.ExternalAddress,
		RemoteDescription: req.Body(),
	})
	result, err := c.await(ctx, future)
	if err != nil {
		// полуоткрытое соединение не должно пережить транзакцию
		_, _ = ce.DeleteConnection(conn.ID())
		conn.Close(nil)
		return nil, err
	}

	resp = message.NewResponse(message.TransactionWasExecuted, req.TransactionID())
	resp.SetParameter(message.ParamConnectionID, conn.ID())
	if id.IsAnyWildcard() {
		resp.SetParameter(message.ParamSpecificEndpointID, id.WithName(ep.ID()).String())
	}
	resp.SetBody(result.LocalDescription)

	c.logger.Info("connection created",
		"transaction", req.TransactionID(),
		"endpoint", ep.ID(),
		"connection", conn.ID(),
		"call", callID,
		"mode", mode.String())
	return resp, nil
}

// ModifyConnectionCommand обработчик MDCX
type ModifyConnectionCommand struct {
	connectionCommand
}

func NewModifyConnectionCommand(deps Deps) *ModifyConnectionCommand {
	return &ModifyConnectionCommand{newConnectionCommand(message.VerbModifyConnection, deps)}
}

func (c *ModifyConnectionCommand) Execute(ctx context.Context, req *message.Request) *message.Response {
	return c.run(req, func() (*message.Response, error) {
		return c.execute(ctx, req)
	})
}

func (c *ModifyConnectionCommand) execute(ctx context.Context, req *message.Request) (*message.Response, error) {
	if _, err := requireParameter(req, message.ParamCallID); err != nil {
		return nil, err
	}

	id, err := endpointID(req)
	if err != nil {
		return nil, err
	}
	ep, err := lookupEndpoint(c.endpoints, id)
	if err != nil {
		return nil, err
	}
	ce, err := connectionEndpoint(ep)
	if err != nil {
		return nil, err
	}
	conn, err := lookupConnection(ce, req)
	if err != nil {
		return nil, err
	}

	mc := &connection.ModifyContext{RemoteDescription: req.Body()}
	if raw, ok := req.Parameter(message.ParamMode); ok && raw != "" {
		mode, err := parseMode(raw)
		if err != nil {
			return nil, err
		}
		mc.Mode = &mode
	}

	result, err := c.await(ctx, conn.Modify(mc))
	if err != nil {
		return nil, err
	}

	resp := message.NewResponse(message.TransactionWasExecuted, req.TransactionID())
	if req.Body() != "" {
		resp.SetBody(result.LocalDescription)
	}
	return resp, nil
}

// DeleteConnectionCommand обработчик DLCX. Без I удаляет соединения вызова C,
// без I и C удаляет все соединения точки.
type DeleteConnectionCommand struct {
	connectionCommand
}

func NewDeleteConnectionCommand(deps Deps) *DeleteConnectionCommand {
	return &DeleteConnectionCommand{newConnectionCommand(message.VerbDeleteConnection, deps)}
}

func (c *DeleteConnectionCommand) Execute(ctx context.Context, req *message.Request) *message.Response {
	return c.run(req, func() (*message.Response, error) {
		return c.execute(ctx, req)
	})
}

func (c *DeleteConnectionCommand) execute(ctx context.Context, req *message.Request) (*message.Response, error) {
	id, err := endpointID(req)
	if err != nil {
		return nil, err
	}
	ep, err := lookupEndpoint(c.endpoints, id)
	if err != nil {
		return nil, err
	}
	ce, err := connectionEndpoint(ep)
	if err != nil {
		return nil, err
	}

	var removed []*connection.Connection
	if _, ok := req.Parameter(message.ParamConnectionID); ok {
		conn, err := lookupConnection(ce, req)
		if err != nil {
			return nil, err
		}
		if _, err := ce.DeleteConnection(conn.ID()); err != nil {
			return nil, fail(message.IncorrectConnectionID, err)
		}
		removed = append(removed, conn)
	} else {
		callID, _ := req.Parameter(message.ParamCallID)
		removed = ce.DeleteConnections(callID)
	}

	if err := c.closeConnections(ctx, removed); err != nil {
		return nil, err
	}

	c.logger.Info("connections deleted",
		"transaction", req.TransactionID(),
		"endpoint", ep.ID(),
		"count", len(removed))
	return message.NewResponse(message.ConnectionWasDeleted, req.TransactionID()), nil
}
