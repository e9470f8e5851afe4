package rtp

import (
	"net"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPacket(seq uint16) *rtp.Packet {
	return &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    0,
			SequenceNumber: seq,
			Timestamp:      uint32(seq) * 160,
			SSRC:           0x1234,
		},
		Payload: make([]byte, 160),
	}
}

func newBoundSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(SessionConfig{})
	require.NoError(t, s.Bind("127.0.0.1"))
	t.Cleanup(func() { s.Close() })
	return s
}

func newPeer(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendTo(t *testing.T, peer *net.UDPConn, to *net.UDPAddr, p *rtp.Packet) {
	t.Helper()
	data, err := p.Marshal()
	require.NoError(t, err)
	_, err = peer.WriteToUDP(data, to)
	require.NoError(t, err)
}

func TestSessionLoopbackEchoes(t *testing.T) {
	s := newBoundSession(t)
	s.SetMode(ModeLoopback)
	peer := newPeer(t)

	sendTo(t, peer, s.LocalAddr(), testPacket(7))

	require.NoError(t, peer.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, MaxRTPPacketSize)
	n, _, err := peer.ReadFromUDP(buf)
	require.NoError(t, err)

	echoed := &rtp.Packet{}
	require.NoError(t, echoed.Unmarshal(buf[:n]))
	assert.Equal(t, uint16(7), echoed.SequenceNumber)
	assert.Equal(t, uint64(1), s.Stats().PacketsSent)
}

func TestSessionDeliversInRecvOnly(t *testing.T) {
	s := newBoundSession(t)
	s.SetMode(ModeRecvOnly)

	received := make(chan *rtp.Packet, 1)
	s.SetPacketHandler(func(p *rtp.Packet, _ *net.UDPAddr) { received <- p })

	peer := newPeer(t)
	sendTo(t, peer, s.LocalAddr(), testPacket(42))

	select {
	case p := <-received:
		assert.Equal(t, uint16(42), p.SequenceNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("packet was not delivered")
	}
}

func TestSessionDropsInSendOnly(t *testing.T) {
	s := newBoundSession(t)
	s.SetMode(ModeSendOnly)
	s.SetPacketHandler(func(*rtp.Packet, *net.UDPAddr) { t.Error("handler must not be called") })

	peer := newPeer(t)
	sendTo(t, peer, s.LocalAddr(), testPacket(1))

	assert.Eventually(t, func() bool { return s.Stats().PacketsDropped == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSessionCountsInvalidPackets(t *testing.T) {
	s := newBoundSession(t)
	peer := newPeer(t)

	_, err := peer.WriteToUDP([]byte{0x00, 0x01, 0x02}, s.LocalAddr())
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return s.Stats().PacketsInvalid == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, s.Stats().PacketsReceived)
}

func TestSessionWritePacket(t *testing.T) {
	s := newBoundSession(t)
	peer := newPeer(t)

	s.SetMode(ModeRecvOnly)
	assert.ErrorIs(t, s.WritePacket(testPacket(1)), ErrSendForbidden)

	s.SetMode(ModeSendRecv)
	assert.ErrorIs(t, s.WritePacket(testPacket(1)), ErrNoRemoteAddr)

	s.SetRemoteAddr(peer.LocalAddr().(*net.UDPAddr))
	require.NoError(t, s.WritePacket(testPacket(9)))

	require.NoError(t, peer.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, MaxRTPPacketSize)
	n, _, err := peer.ReadFromUDP(buf)
	require.NoError(t, err)
	got := &rtp.Packet{}
	require.NoError(t, got.Unmarshal(buf[:n]))
	assert.Equal(t, uint16(9), got.SequenceNumber)
}

func TestSessionLifecycle(t *testing.T) {
	pa := newTestAllocator(t, 50000, 50003)
	pa.probe = canBindPort

	s := NewSession(SessionConfig{Ports: pa})
	assert.Nil(t, s.LocalAddr())
	assert.ErrorIs(t, s.WritePacket(testPacket(1)), ErrNotBound)
	assert.NotEmpty(t, s.ID())
	assert.Len(t, s.SupportedCodecs(), 3)

	if err := s.Bind("127.0.0.1"); err != nil {
		t.Skipf("ports in test range are busy: %v", err)
	}
	assert.Equal(t, 1, pa.InUse())
	assert.Zero(t, s.LocalAddr().Port%2)
	assert.ErrorIs(t, s.Bind("127.0.0.1"), ErrAlreadyBound)

	require.NoError(t, s.Close())
	assert.Zero(t, pa.InUse())
	assert.NoError(t, s.Close())
	assert.ErrorIs(t, s.Bind("127.0.0.1"), ErrSessionClosed)
}

func TestSessionBindInvalidAddress(t *testing.T) {
	s := NewSession(SessionConfig{})
	assert.Error(t, s.Bind("not-an-ip"))
}
