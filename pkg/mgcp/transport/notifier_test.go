package transport

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hl2dod/mediaserver/pkg/mgcp/endpoint"
	"github.com/hl2dod/mediaserver/pkg/mgcp/message"
	"github.com/hl2dod/mediaserver/pkg/mgcp/packages"
	"github.com/hl2dod/mediaserver/pkg/mgcp/param"
)

func readRequest(t *testing.T, agent *net.UDPConn) (*message.Request, *net.UDPAddr) {
	t.Helper()
	require.NoError(t, agent.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, MaxDatagramSize)
	n, from, err := agent.ReadFromUDP(buf)
	require.NoError(t, err)

	req, err := message.NewParser().ParseRequest(buf[:n])
	require.NoError(t, err)
	return req, from
}

func notificationFor(t *testing.T, agent *net.UDPConn) *endpoint.NotificationRequest {
	t.Helper()
	ne, err := param.ParseNotifiedEntity("ca@127.0.0.1:" + strconv.Itoa(agent.LocalAddr().(*net.UDPAddr).Port))
	require.NoError(t, err)
	return endpoint.NewNotificationRequest(10, "abc", ne, nil, nil)
}

var operationComplete = packages.Event{
	EventType: packages.EventType{Package: "AU", Name: "oc"},
	Params:    map[string]string{"rc": "100"},
}

func TestNotifierSendsNotify(t *testing.T) {
	server := startServer(t)
	agent := newCallAgent(t)

	notifier := NewNotifier(server, NotifierConfig{Domain: "mgw", Retransmit: time.Second})
	defer notifier.Close()
	server.OnResponse(notifier.HandleResponse)

	ep := endpoint.NewGenericEndpoint("ms/ivr/1", endpoint.GenericConfig{})
	notifier.OnEvent(ep, notificationFor(t, agent), operationComplete)

	ntfy, from := readRequest(t, agent)
	assert.Equal(t, message.VerbNotify, ntfy.Verb())
	assert.Equal(t, "ms/ivr/1@mgw", ntfy.EndpointID())
	x, _ := ntfy.Parameter(message.ParamRequestID)
	assert.Equal(t, "abc", x)
	o, _ := ntfy.Parameter(message.ParamObservedEvents)
	assert.Equal(t, "AU/oc(rc=100)", o)
	n, _ := ntfy.Parameter(message.ParamNotifiedEntity)
	assert.Contains(t, n, "ca@127.0.0.1:")
	assert.Equal(t, 1, notifier.Pending())

	ack := message.NewResponse(message.TransactionWasExecuted, ntfy.TransactionID())
	_, err := agent.WriteToUDP([]byte(ack.String()), from)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return notifier.Pending() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestNotifierRetransmitsUntilAcknowledged(t *testing.T) {
	server := startServer(t)
	agent := newCallAgent(t)

	notifier := NewNotifier(server, NotifierConfig{Domain: "mgw", Retransmit: 20 * time.Millisecond, MaxAttempts: 3})
	defer notifier.Close()

	ep := endpoint.NewGenericEndpoint("ms/ivr/1", endpoint.GenericConfig{})
	notifier.OnEvent(ep, notificationFor(t, agent), operationComplete)

	first, _ := readRequest(t, agent)
	second, _ := readRequest(t, agent)
	third, _ := readRequest(t, agent)
	assert.Equal(t, first.TransactionID(), second.TransactionID())
	assert.Equal(t, first.TransactionID(), third.TransactionID())

	assert.Eventually(t, func() bool { return notifier.Pending() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestNotifierFallsBackToCallAgent(t *testing.T) {
	server := startServer(t)
	agent := newCallAgent(t)

	ca, err := param.ParseNotifiedEntity("ca@127.0.0.1:" + strconv.Itoa(agent.LocalAddr().(*net.UDPAddr).Port))
	require.NoError(t, err)
	notifier := NewNotifier(server, NotifierConfig{CallAgent: ca})
	defer notifier.Close()

	ep := endpoint.NewGenericEndpoint("ms/ivr/1", endpoint.GenericConfig{})
	notifier.OnEvent(ep, endpoint.NewNotificationRequest(1, "r1", nil, nil, nil), operationComplete)

	ntfy, _ := readRequest(t, agent)
	assert.Equal(t, "ms/ivr/1@"+server.LocalAddr().String(), ntfy.EndpointID())
}

func TestNotifierDomainWithoutSocket(t *testing.T) {
	assert.Equal(t, "mgw", NewNotifier(nil, NotifierConfig{Domain: "mgw"}).domain())
	assert.Equal(t, "localhost", NewNotifier(nil, NotifierConfig{}).domain())
	assert.Equal(t, "localhost", NewNotifier(NewServer(Config{}, nil), NotifierConfig{}).domain())
}

type blockingSender struct {
	sent    chan *message.Request
	release chan struct{}
}

func (s *blockingSender) Send(msg message.Message, to *net.UDPAddr) error {
	s.sent <- msg.(*message.Request)
	<-s.release
	return nil
}

func TestNotifierAcknowledgesDuringSlowSend(t *testing.T) {
	sender := &blockingSender{sent: make(chan *message.Request, 1), release: make(chan struct{})}
	defer close(sender.release)

	ca, err := param.ParseNotifiedEntity("ca@127.0.0.1:2727")
	require.NoError(t, err)
	notifier := NewNotifier(sender, NotifierConfig{Domain: "mgw", CallAgent: ca, Retransmit: time.Hour})
	defer notifier.Close()

	ep := endpoint.NewGenericEndpoint("ms/ivr/1", endpoint.GenericConfig{})
	go notifier.OnEvent(ep, endpoint.NewNotificationRequest(1, "r1", nil, nil, nil), operationComplete)

	var ntfy *message.Request
	select {
	case ntfy = <-sender.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("notify was not sent")
	}

	acked := make(chan struct{})
	go func() {
		notifier.HandleResponse(message.NewResponse(message.TransactionWasExecuted, ntfy.TransactionID()), &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 2727})
		close(acked)
	}()
	select {
	case <-acked:
	case <-time.After(time.Second):
		t.Fatal("response handling blocked by send")
	}
	assert.Equal(t, 0, notifier.Pending())
}

func TestNotifierWithoutTargetDropsEvent(t *testing.T) {
	server := startServer(t)
	notifier := NewNotifier(server, NotifierConfig{})
	defer notifier.Close()

	ep := endpoint.NewGenericEndpoint("ms/ivr/1", endpoint.GenericConfig{})
	notifier.OnEvent(ep, endpoint.NewNotificationRequest(1, "r1", nil, nil, nil), operationComplete)
	assert.Equal(t, 0, notifier.Pending())
}

func TestNotifierTransactionIDsWrap(t *testing.T) {
	notifier := NewNotifier(nil, NotifierConfig{})
	notifier.nextTxID.Store(maxTransactionID - 1)

	assert.Equal(t, maxTransactionID, notifier.transactionID())
	assert.Equal(t, 1, notifier.transactionID())
}
