package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/hl2dod/mediaserver/pkg/media_sdp"
	"github.com/hl2dod/mediaserver/pkg/rtp"
)

// Config зависимости соединения
type Config struct {
	// Builder общий построитель SDP, по умолчанию создается свой
	Builder *media_sdp.Builder
	Metrics *Metrics
	Logger  *slog.Logger
}

// Connection RTP соединение эндпоинта. Операции Open, Modify и Close
// асинхронны и сообщают результат только через Future.
type Connection struct {
	id      string
	session Session
	builder *media_sdp.Builder
	metrics *Metrics
	logger  *slog.Logger

	mu               sync.Mutex
	machine          *fsm.FSM
	advertised       string
	ptime            time.Duration
	localDescription string
	closing          *Future
}

// New создает соединение в состоянии idle
func New(session Session, config Config) *Connection {
	builder := config.Builder
	if builder == nil {
		builder = media_sdp.NewBuilder("mediaserver")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Connection{
		id:      newConnectionID(),
		session: session,
		builder: builder,
		metrics: config.Metrics,
	}
	c.logger = logger.With("component", "rtp_connection", "connection", c.id)
	c.machine = newStateMachine(func(from, to State) {
		c.metrics.transition(from, to)
		c.logger.Debug("connection state changed", "from", from, "to", to)
	})
	c.metrics.transition("", StateIdle)
	return c
}

// newConnectionID идентификатор для параметра I: 32 шестнадцатеричных символа
func newConnectionID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// ID уникальный идентификатор соединения
func (c *Connection) ID() string {
	return c.id
}

// State текущее состояние
func (c *Connection) State() State {
	return State(c.machine.Current())
}

// Session RTP канал соединения
func (c *Connection) Session() Session {
	return c.session
}

// LocalDescription последний выданный локальный SDP
func (c *Connection) LocalDescription() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localDescription
}

// Open привязывает сессию и согласует описание удаленной стороны, если оно есть
func (c *Connection) Open(oc *OpenContext) *Future {
	f := newFuture(oc.Callback)

	if oc.Mode.String() == "unknown" {
		go c.reject(f, CauseUnsupportedMode, fmt.Errorf("%w: %d", rtp.ErrUnsupportedMode, oc.Mode))
		return f
	}

	c.mu.Lock()
	if err := c.machine.Event(context.Background(), eventOpen); err != nil {
		c.mu.Unlock()
		go c.reject(f, CauseInvalidState, fmt.Errorf("open in state %s", c.State()))
		return f
	}
	c.mu.Unlock()

	go c.open(oc, f)
	return f
}

func (c *Connection) open(oc *OpenContext, f *Future) {
	var negotiation *media_sdp.Negotiation
	if oc.RemoteDescription != "" {
		if !c.advance(eventNegotiate) {
			c.abort(f)
			return
		}
		n, cause, err := negotiate(oc.RemoteDescription, c.session.SupportedCodecs())
		if err != nil {
			c.failOpen(f, cause, err)
			return
		}
		negotiation = n
	}

	if err := c.session.Bind(oc.Address); err != nil {
		if errors.Is(err, rtp.ErrSessionClosed) {
			c.abort(f)
			return
		}
		c.failOpen(f, CauseResourceExhausted, err)
		return
	}

	codecs := c.session.SupportedCodecs()
	if negotiation != nil {
		codecs = negotiation.Codecs
		c.session.SetRemoteAddr(negotiation.RemoteAddr)
	}
	c.session.SetCodecs(codecs)
	c.session.SetMode(oc.Mode)

	advertised := oc.ExternalAddress
	if advertised == "" {
		advertised = oc.Address
	}
	if advertised == "" || net.ParseIP(advertised).IsUnspecified() {
		if local := c.session.LocalAddr(); local != nil {
			advertised = local.IP.String()
		}
	}

	ptime := media_sdp.DefaultPtime
	if negotiation != nil {
		ptime = negotiation.Ptime
	}

	local, err := c.describe(advertised, codecs, oc.Mode, ptime)
	if err != nil {
		c.failOpen(f, CauseResourceExhausted, err)
		return
	}

	c.mu.Lock()
	if err := c.machine.Event(context.Background(), eventOpened); err != nil {
		c.mu.Unlock()
		c.abort(f)
		return
	}
	c.advertised = advertised
	c.ptime = ptime
	c.localDescription = local
	c.mu.Unlock()

	c.logger.Info("rtp connection opened",
		"local", c.session.LocalAddr().String(),
		"remote", addrString(c.session.RemoteAddr()),
		"mode", oc.Mode.String())
	f.resolve(Result{LocalDescription: local})
}

// Modify меняет режим и/или удаленное описание открытого соединения.
// При ошибке соединение остается open с прежними параметрами.
func (c *Connection) Modify(mc *ModifyContext) *Future {
	f := newFuture(mc.Callback)

	if mc.Mode != nil && mc.Mode.String() == "unknown" {
		go c.reject(f, CauseUnsupportedMode, fmt.Errorf("%w: %d", rtp.ErrUnsupportedMode, *mc.Mode))
		return f
	}

	c.mu.Lock()
	if err := c.machine.Event(context.Background(), eventModify); err != nil {
		c.mu.Unlock()
		go c.reject(f, CauseInvalidState, fmt.Errorf("modify in state %s", c.State()))
		return f
	}
	advertised, ptime := c.advertised, c.ptime
	c.mu.Unlock()

	go c.modify(mc, advertised, ptime, f)
	return f
}

func (c *Connection) modify(mc *ModifyContext, advertised string, ptime time.Duration, f *Future) {
	mode := c.session.Mode()
	if mc.Mode != nil {
		mode = *mc.Mode
	}

	codecs := c.session.Codecs()
	remote := c.session.RemoteAddr()
	if mc.RemoteDescription != "" {
		n, cause, err := negotiate(mc.RemoteDescription, c.session.SupportedCodecs())
		if err != nil {
			c.rollback(f, cause, err)
			return
		}
		codecs, remote, ptime = n.Codecs, n.RemoteAddr, n.Ptime
	}

	local, err := c.describe(advertised, codecs, mode, ptime)
	if err != nil {
		c.rollback(f, CauseMalformedDescription, err)
		return
	}

	c.mu.Lock()
	if c.State() != StateModifying {
		c.mu.Unlock()
		c.abort(f)
		return
	}
	// все проверки пройдены, изменения применяются целиком
	c.session.SetCodecs(codecs)
	c.session.SetRemoteAddr(remote)
	c.session.SetMode(mode)
	c.ptime = ptime
	c.localDescription = local
	_ = c.machine.Event(context.Background(), eventModified)
	c.mu.Unlock()

	c.logger.Info("rtp connection modified", "remote", addrString(remote), "mode", mode.String())
	f.resolve(Result{LocalDescription: local})
}

// Close освобождает ресурсы соединения. Закрытие неоткрытого или уже
// закрытого соединения завершается успешно без действий.
func (c *Connection) Close(cc *CloseContext) *Future {
	var callback Callback
	if cc != nil {
		callback = cc.Callback
	}
	f := newFuture(callback)

	c.mu.Lock()
	switch c.State() {
	case StateIdle, StateClosed:
		c.mu.Unlock()
		go f.resolve(Result{})
		return f
	case StateClosing:
		inflight := c.closing
		c.mu.Unlock()
		go func() {
			<-inflight.Done()
			f.resolve(Result{})
		}()
		return f
	}
	_ = c.machine.Event(context.Background(), eventClose)
	c.closing = f
	c.mu.Unlock()

	go func() {
		if err := c.session.Close(); err != nil {
			c.logger.Warn("rtp session close failed", "error", err)
		}
		c.mu.Lock()
		_ = c.machine.Event(context.Background(), eventClosed)
		c.mu.Unlock()

		c.logger.Info("rtp connection closed")
		f.resolve(Result{})
	}()
	return f
}

func (c *Connection) describe(address string, codecs []media_sdp.Codec, mode rtp.Mode, ptime time.Duration) (string, error) {
	local := c.session.LocalAddr()
	if local == nil {
		return "", rtp.ErrNotBound
	}
	desc, err := c.builder.Build(media_sdp.BuildParams{
		Address:   address,
		Port:      local.Port,
		Codecs:    codecs,
		Direction: mode.Direction(),
		Ptime:     ptime,
	})
	if err != nil {
		return "", err
	}
	return media_sdp.Marshal(desc)
}

// advance выполняет переход под блокировкой, false если переход невозможен
func (c *Connection) advance(event string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Event(context.Background(), event) == nil
}

// failOpen переводит соединение в closed и освобождает сессию
func (c *Connection) failOpen(f *Future, cause Cause, err error) {
	if !c.advance(eventFail) {
		c.abort(f)
		return
	}
	if cerr := c.session.Close(); cerr != nil {
		c.logger.Warn("rtp session close failed", "error", cerr)
	}
	c.reject(f, cause, err)
}

// rollback возвращает соединение в open без изменений
func (c *Connection) rollback(f *Future, cause Cause, err error) {
	if !c.advance(eventModified) {
		c.abort(f)
		return
	}
	c.reject(f, cause, err)
}

// abort соединение закрыто во время операции
func (c *Connection) abort(f *Future) {
	c.reject(f, CauseAborted, fmt.Errorf("connection %s", c.State()))
}

func (c *Connection) reject(f *Future, cause Cause, err error) {
	c.metrics.failure(cause)
	c.logger.Warn("rtp connection operation failed", "cause", cause.String(), "error", err)
	f.resolve(Result{Err: &NegotiationError{Cause: cause, Err: err}})
}

// negotiate разбирает и согласует удаленное описание
func negotiate(raw string, supported []media_sdp.Codec) (*media_sdp.Negotiation, Cause, error) {
	desc, err := media_sdp.Parse(raw)
	if err != nil {
		return nil, CauseMalformedDescription, err
	}
	n, err := media_sdp.Negotiate(desc, supported)
	switch {
	case errors.Is(err, media_sdp.ErrNoCommonCodec):
		return nil, CauseNoCommonCapability, err
	case err != nil:
		return nil, CauseMalformedDescription, err
	}
	return n, 0, nil
}

func addrString(addr *net.UDPAddr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
