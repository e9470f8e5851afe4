package rtp

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pion/rtp"

	"github.com/hl2dod/mediaserver/pkg/media_sdp"
)

// Ограничения на размер RTP пакета (RFC 3550, MTU)
const (
	MinRTPPacketSize   = 12
	MaxRTPPacketSize   = 1500
	ExpectedRTPVersion = 2
)

var (
	ErrSessionClosed = errors.New("rtp session closed")
	ErrAlreadyBound  = errors.New("rtp session already bound")
	ErrNotBound      = errors.New("rtp session not bound")
	ErrNoRemoteAddr  = errors.New("remote address not set")
	ErrSendForbidden = errors.New("mode does not allow sending")
)

// PacketHandler получает входящие пакеты в режимах с приемом
type PacketHandler func(packet *rtp.Packet, from *net.UDPAddr)

// SessionConfig параметры RTP сессии
type SessionConfig struct {
	// Codecs поддерживаемые кодеки, по умолчанию media_sdp.DefaultCodecs()
	Codecs []media_sdp.Codec
	// Ports аллокатор портов. Без него порт выбирает система.
	Ports  *PortAllocator
	Socket SocketOptions
	Logger *slog.Logger
}

// Stats счетчики пакетов сессии
type Stats struct {
	PacketsReceived uint64
	PacketsSent     uint64
	BytesReceived   uint64
	BytesSent       uint64
	PacketsDropped  uint64
	PacketsInvalid  uint64
}

// Session UDP канал одного RTP соединения
type Session struct {
	id     string
	config SessionConfig
	logger *slog.Logger

	mutex     sync.RWMutex
	conn      *net.UDPConn
	port      int
	codecs    []media_sdp.Codec
	remote    *net.UDPAddr
	mode      Mode
	handler   PacketHandler
	closed    bool
	closeOnce sync.Once
	wg        sync.WaitGroup

	packetsReceived atomic.Uint64
	packetsSent     atomic.Uint64
	bytesReceived   atomic.Uint64
	bytesSent       atomic.Uint64
	packetsDropped  atomic.Uint64
	packetsInvalid  atomic.Uint64
}

// NewSession создает несвязанную сессию в режиме inactive
func NewSession(config SessionConfig) *Session {
	if len(config.Codecs) == 0 {
		config.Codecs = media_sdp.DefaultCodecs()
	}
	id := uuid.NewString()
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:     id,
		config: config,
		logger: logger.With("component", "rtp", "session", id),
		mode:   ModeInactive,
	}
}

// ID уникальный идентификатор сессии
func (s *Session) ID() string {
	return s.id
}

// Bind открывает UDP сокет на адресе и запускает прием
func (s *Session) Bind(address string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.conn != nil {
		return ErrAlreadyBound
	}

	ip := net.ParseIP(address)
	if address != "" && ip == nil {
		return fmt.Errorf("неверный адрес для RTP: %s", address)
	}

	port := 0
	if s.config.Ports != nil {
		p, err := s.config.Ports.Allocate()
		if err != nil {
			return err
		}
		port = p
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: port})
	if err != nil {
		if s.config.Ports != nil {
			s.config.Ports.Release(port)
		}
		return fmt.Errorf("ошибка создания UDP соединения: %w", err)
	}

	if err := ApplySocketOptions(conn, s.config.Socket); err != nil {
		s.logger.Warn("socket options not applied", "error", err)
	}

	s.conn = conn
	s.port = port
	s.wg.Add(1)
	go s.receiveLoop(conn)

	s.logger.Debug("rtp session bound", "local", conn.LocalAddr().String())
	return nil
}

// LocalAddr адрес локального сокета, nil до Bind
func (s *Session) LocalAddr() *net.UDPAddr {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.conn == nil {
		return nil
	}
	addr, _ := s.conn.LocalAddr().(*net.UDPAddr)
	return addr
}

// SupportedCodecs кодеки, которые сессия умеет обрабатывать
func (s *Session) SupportedCodecs() []media_sdp.Codec {
	return append([]media_sdp.Codec(nil), s.config.Codecs...)
}

// Codecs согласованные кодеки
func (s *Session) Codecs() []media_sdp.Codec {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]media_sdp.Codec(nil), s.codecs...)
}

// SetCodecs устанавливает согласованные кодеки
func (s *Session) SetCodecs(codecs []media_sdp.Codec) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.codecs = append([]media_sdp.Codec(nil), codecs...)
}

// RemoteAddr адрес удаленной стороны
func (s *Session) RemoteAddr() *net.UDPAddr {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.remote
}

// SetRemoteAddr устанавливает адрес отправки RTP
func (s *Session) SetRemoteAddr(addr *net.UDPAddr) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.remote = addr
}

// Mode текущий режим
func (s *Session) Mode() Mode {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.mode
}

// SetMode меняет режим обработки пакетов
func (s *Session) SetMode(mode Mode) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.mode = mode
}

// SetPacketHandler устанавливает обработчик входящих пакетов
func (s *Session) SetPacketHandler(handler PacketHandler) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.handler = handler
}

// WritePacket отправляет пакет удаленной стороне
func (s *Session) WritePacket(packet *rtp.Packet) error {
	s.mutex.RLock()
	conn, remote, mode, closed := s.conn, s.remote, s.mode, s.closed
	s.mutex.RUnlock()

	switch {
	case closed:
		return ErrSessionClosed
	case conn == nil:
		return ErrNotBound
	case !mode.CanSend():
		return fmt.Errorf("%w: %s", ErrSendForbidden, mode)
	case remote == nil:
		return ErrNoRemoteAddr
	}

	if err := validateRTPHeader(&packet.Header); err != nil {
		return err
	}
	data, err := packet.Marshal()
	if err != nil {
		return fmt.Errorf("ошибка маршалинга RTP пакета: %w", err)
	}

	n, err := conn.WriteToUDP(data, remote)
	if err != nil {
		return fmt.Errorf("UDP write: %w", err)
	}
	s.packetsSent.Add(1)
	s.bytesSent.Add(uint64(n))
	return nil
}

// Stats снимок счетчиков
func (s *Session) Stats() Stats {
	return Stats{
		PacketsReceived: s.packetsReceived.Load(),
		PacketsSent:     s.packetsSent.Load(),
		BytesReceived:   s.bytesReceived.Load(),
		BytesSent:       s.bytesSent.Load(),
		PacketsDropped:  s.packetsDropped.Load(),
		PacketsInvalid:  s.packetsInvalid.Load(),
	}
}

// Close закрывает сокет и освобождает порт. Повторный вызов безопасен.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mutex.Lock()
		s.closed = true
		conn, port := s.conn, s.port
		s.mutex.Unlock()

		if conn != nil {
			err = conn.Close()
			s.wg.Wait()
		}
		if s.config.Ports != nil && port != 0 {
			s.config.Ports.Release(port)
		}
		s.logger.Debug("rtp session closed", "stats", s.Stats())
	})
	return err
}

func (s *Session) receiveLoop(conn *net.UDPConn) {
	defer s.wg.Done()

	buffer := make([]byte, MaxRTPPacketSize)
	for {
		n, from, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Debug("rtp read failed", "error", err)
			continue
		}
		s.handleDatagram(conn, buffer[:n], from)
	}
}

func (s *Session) handleDatagram(conn *net.UDPConn, data []byte, from *net.UDPAddr) {
	if n := len(data); n < MinRTPPacketSize || n > MaxRTPPacketSize {
		s.packetsInvalid.Add(1)
		return
	}

	packet := &rtp.Packet{}
	if err := packet.Unmarshal(data); err != nil {
		s.packetsInvalid.Add(1)
		return
	}
	if err := validateRTPHeader(&packet.Header); err != nil {
		s.packetsInvalid.Add(1)
		return
	}

	s.packetsReceived.Add(1)
	s.bytesReceived.Add(uint64(len(data)))

	s.mutex.RLock()
	mode, handler := s.mode, s.handler
	s.mutex.RUnlock()

	switch {
	case mode.IsLoopback():
		if _, err := conn.WriteToUDP(data, from); err == nil {
			s.packetsSent.Add(1)
			s.bytesSent.Add(uint64(len(data)))
		}
	case mode.CanReceive() && handler != nil:
		handler(packet, from)
	default:
		s.packetsDropped.Add(1)
	}
}

// validateRTPHeader проверяет корректность RTP заголовка согласно RFC 3550
func validateRTPHeader(header *rtp.Header) error {
	if header.Version != ExpectedRTPVersion {
		return fmt.Errorf("неподдерживаемая версия RTP: %d (ожидается %d)", header.Version, ExpectedRTPVersion)
	}
	if header.PayloadType > 127 {
		return fmt.Errorf("невалидный payload type: %d (максимум 127)", header.PayloadType)
	}
	return nil
}
