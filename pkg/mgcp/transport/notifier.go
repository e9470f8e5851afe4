package transport

import (
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hl2dod/mediaserver/pkg/mgcp/endpoint"
	"github.com/hl2dod/mediaserver/pkg/mgcp/message"
	"github.com/hl2dod/mediaserver/pkg/mgcp/packages"
	"github.com/hl2dod/mediaserver/pkg/mgcp/param"
)

const (
	// DefaultRetransmit начальный интервал повтора NTFY (RFC 3435, 3.5)
	DefaultRetransmit = 200 * time.Millisecond
	// DefaultMaxAttempts число отправок NTFY без ответа
	DefaultMaxAttempts = 5
	// maxTransactionID транзакции MGCP ограничены девятью цифрами
	maxTransactionID = 999999999
)

// Sender отправка сообщений. Реализуется *Server.
type Sender interface {
	Send(msg message.Message, to *net.UDPAddr) error
}

type localAddresser interface {
	LocalAddr() *net.UDPAddr
}

// NotifierConfig параметры отправки NTFY
type NotifierConfig struct {
	// Domain доменная часть идентификатора точки в NTFY. Пустая заменяется
	// адресом сокета отправителя.
	Domain string
	// CallAgent получатель, если в RQNT не указан N
	CallAgent   *param.NotifiedEntity
	Retransmit  time.Duration
	MaxAttempts int
	Logger      *slog.Logger
}

type pendingNotify struct {
	request  *message.Request
	to       *net.UDPAddr
	attempts int
	timer    *time.Timer
}

// Notifier отправляет наблюдаемые события агенту вызовов и повторяет
// NTFY до получения ответа с тем же идентификатором транзакции.
type Notifier struct {
	sender Sender
	config NotifierConfig
	logger *slog.Logger

	nextTxID atomic.Uint32

	mu      sync.Mutex
	pending map[int]*pendingNotify
	closed  bool
}

func NewNotifier(sender Sender, config NotifierConfig) *Notifier {
	if config.Retransmit <= 0 {
		config.Retransmit = DefaultRetransmit
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		sender:  sender,
		config:  config,
		logger:  logger.With("component", "mgcp_notifier"),
		pending: make(map[int]*pendingNotify),
	}
}

func (n *Notifier) transactionID() int {
	return int(n.nextTxID.Add(1)-1)%maxTransactionID + 1
}

// domain доменная часть для NTFY: из конфигурации, иначе адрес сокета
// отправителя; неуказанный IP заменяется именем хоста
func (n *Notifier) domain() string {
	if n.config.Domain != "" {
		return n.config.Domain
	}
	la, ok := n.sender.(localAddresser)
	if !ok {
		return "localhost"
	}
	addr := la.LocalAddr()
	if addr == nil {
		return "localhost"
	}
	if !addr.IP.IsUnspecified() {
		return addr.String()
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(addr.Port))
}

// OnEvent формирует NTFY для события точки
func (n *Notifier) OnEvent(ep endpoint.Endpoint, req *endpoint.NotificationRequest, event packages.Event) {
	target := req.NotifiedEntity()
	if target == nil {
		target = n.config.CallAgent
	}
	if target == nil {
		n.logger.Warn("event dropped, no notified entity", "endpoint", ep.ID(), "event", event.String())
		return
	}

	to, err := net.ResolveUDPAddr("udp", target.Address())
	if err != nil {
		n.logger.Warn("notified entity unresolvable", "entity", target.String(), "error", err)
		return
	}

	ntfy := message.NewRequest(message.VerbNotify, n.transactionID(), ep.ID()+"@"+n.domain())
	ntfy.SetParameter(message.ParamNotifiedEntity, target.String())
	ntfy.SetParameter(message.ParamRequestID, req.RequestIdentifier())
	ntfy.SetParameter(message.ParamObservedEvents, event.String())

	p := &pendingNotify{request: ntfy, to: to}
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.pending[ntfy.TransactionID()] = p
	n.mu.Unlock()

	n.logger.Info("notify",
		"transaction", ntfy.TransactionID(),
		"endpoint", ep.ID(),
		"request_id", req.RequestIdentifier(),
		"event", event.String(),
		"to", to.String())
	n.transmit(p, n.config.Retransmit)
}

// transmit планирует следующий повтор под блокировкой, отправка идет без нее
func (n *Notifier) transmit(p *pendingNotify, interval time.Duration) {
	txID := p.request.TransactionID()

	n.mu.Lock()
	if n.closed || n.pending[txID] != p {
		n.mu.Unlock()
		return
	}
	if p.attempts >= n.config.MaxAttempts {
		delete(n.pending, txID)
		attempts := p.attempts
		n.mu.Unlock()
		n.logger.Warn("notify not acknowledged", "transaction", txID, "attempts", attempts)
		return
	}
	p.attempts++
	p.timer = time.AfterFunc(interval, func() {
		n.transmit(p, interval*2)
	})
	n.mu.Unlock()

	if err := n.sender.Send(p.request, p.to); err != nil {
		n.logger.Warn("notify send failed", "transaction", txID, "error", err)
	}
}

// HandleResponse подтверждает NTFY. Подходит как ResponseHandler сервера.
func (n *Notifier) HandleResponse(resp *message.Response, from *net.UDPAddr) {
	n.mu.Lock()
	p, ok := n.pending[resp.TransactionID()]
	if ok {
		delete(n.pending, resp.TransactionID())
		if p.timer != nil {
			p.timer.Stop()
		}
	}
	n.mu.Unlock()

	if !ok {
		n.logger.Debug("unexpected response", "transaction", resp.TransactionID(), "from", from.String())
		return
	}
	if !resp.Code().IsSuccess() {
		n.logger.Warn("notify rejected", "transaction", resp.TransactionID(), "code", resp.Code().Code())
	}
}

// Pending число неподтвержденных NTFY
func (n *Notifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

// Close прекращает повторы
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for txID, p := range n.pending {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(n.pending, txID)
	}
	return nil
}
