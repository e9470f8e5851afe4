// Package transport принимает команды MGCP по UDP, передает их диспетчеру
// и отправляет ответы и уведомления NTFY.
package transport

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/hl2dod/mediaserver/pkg/mgcp/message"
	"github.com/hl2dod/mediaserver/pkg/rtp"
)

const (
	// DefaultAddress стандартный порт шлюза
	DefaultAddress = ":2427"
	// MaxDatagramSize максимальный размер сообщения MGCP
	MaxDatagramSize = 65507
	// DefaultMaxInFlight ограничение одновременно обрабатываемых команд
	DefaultMaxInFlight = 256
)

// Handler обработчик запросов. Реализуется *command.Dispatcher.
type Handler interface {
	Dispatch(ctx context.Context, req *message.Request) *message.Response
}

// ResponseHandler получает ответы на отправленные шлюзом запросы
type ResponseHandler func(resp *message.Response, from *net.UDPAddr)

// Config параметры UDP сервера
type Config struct {
	Address     string
	Socket      rtp.SocketOptions
	MaxInFlight int64
	Parser      *message.Parser
	Logger      *slog.Logger
}

// Stats счетчики транспорта
type Stats struct {
	Received  uint64
	Sent      uint64
	Malformed uint64
	Errors    uint64
}

// Server UDP транспорт MGCP
type Server struct {
	config   Config
	handler  Handler
	parser   *message.Parser
	inFlight *semaphore.Weighted
	logger   *slog.Logger

	mu         sync.RWMutex
	conn       *net.UDPConn
	onResponse ResponseHandler

	closed    atomic.Bool
	wg        sync.WaitGroup
	received  atomic.Uint64
	sent      atomic.Uint64
	malformed atomic.Uint64
	failures  atomic.Uint64
}

func NewServer(config Config, handler Handler) *Server {
	if config.Address == "" {
		config.Address = DefaultAddress
	}
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = DefaultMaxInFlight
	}
	parser := config.Parser
	if parser == nil {
		parser = message.NewParser()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		config:   config,
		handler:  handler,
		parser:   parser,
		inFlight: semaphore.NewWeighted(config.MaxInFlight),
		logger:   logger.With("component", "mgcp_transport"),
	}
}

// Listen открывает сокет. Прием начинается в Serve.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrTransportClosed
	}
	if s.conn != nil {
		return errors.New("already listening")
	}

	addr, err := net.ResolveUDPAddr("udp", s.config.Address)
	if err != nil {
		return &TransportError{Operation: "resolve address", Err: err}
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return &TransportError{Operation: "listen", Err: err}
	}
	if err := rtp.ApplySocketOptions(conn, s.config.Socket); err != nil {
		s.logger.Warn("socket options not applied", "error", err)
	}

	s.conn = conn
	s.logger.Info("mgcp transport listening", "address", conn.LocalAddr().String())
	return nil
}

// LocalAddr адрес сокета, nil до Listen
func (s *Server) LocalAddr() *net.UDPAddr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// OnResponse назначает обработчик входящих ответов
func (s *Server) OnResponse(handler ResponseHandler) {
	s.mu.Lock()
	s.onResponse = handler
	s.mu.Unlock()
}

// Serve читает датаграммы до отмены ctx или Close. Каждая команда
// обрабатывается в отдельной горутине.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return ErrNotListening
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		s.Close()
	}()

	buf := make([]byte, MaxDatagramSize)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			s.failures.Add(1)
			s.logger.Warn("mgcp read failed", "error", err)
			continue
		}
		s.received.Add(1)

		for _, part := range message.SplitPiggyback(buf[:n]) {
			data := append([]byte(nil), part...)
			if err := s.inFlight.Acquire(ctx, 1); err != nil {
				s.wg.Wait()
				return nil
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer s.inFlight.Release(1)
				s.handle(ctx, data, from)
			}()
		}
	}
}

func (s *Server) handle(ctx context.Context, data []byte, from *net.UDPAddr) {
	msg, err := s.parser.Parse(data)
	if err != nil {
		s.malformed.Add(1)
		var parseErr *message.ParseError
		if errors.As(err, &parseErr) && parseErr.TransactionID > 0 {
			s.reply(message.NewResponse(message.ProtocolError, parseErr.TransactionID), from)
			return
		}
		s.logger.Debug("malformed datagram dropped", "from", from.String(), "error", err)
		return
	}

	switch m := msg.(type) {
	case *message.Request:
		s.reply(s.handler.Dispatch(ctx, m), from)
	case *message.Response:
		s.mu.RLock()
		handler := s.onResponse
		s.mu.RUnlock()
		if handler != nil {
			handler(m, from)
		}
	}
}

func (s *Server) reply(resp *message.Response, to *net.UDPAddr) {
	if err := s.Send(resp, to); err != nil {
		s.logger.Warn("mgcp response not sent",
			"transaction", resp.TransactionID(),
			"to", to.String(),
			"error", err)
	}
}

// Send отправляет сообщение по адресу
func (s *Server) Send(msg message.Message, to *net.UDPAddr) error {
	if s.closed.Load() {
		return ErrTransportClosed
	}
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return ErrNotListening
	}

	data := []byte(msg.String())
	if len(data) > MaxDatagramSize {
		return &TransportError{Operation: "send", Err: ErrMessageTooLarge}
	}
	if _, err := conn.WriteToUDP(data, to); err != nil {
		s.failures.Add(1)
		return &TransportError{Operation: "send", Err: err}
	}
	s.sent.Add(1)
	return nil
}

func (s *Server) Stats() Stats {
	return Stats{
		Received:  s.received.Load(),
		Sent:      s.sent.Load(),
		Malformed: s.malformed.Load(),
		Errors:    s.failures.Load(),
	}
}

// Close закрывает сокет; Serve завершается после обработки принятых команд
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}
