package endpoint

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hl2dod/mediaserver/pkg/mgcp/packages"
	"github.com/hl2dod/mediaserver/pkg/mgcp/param"
	"github.com/hl2dod/mediaserver/pkg/rtp"
	"github.com/hl2dod/mediaserver/pkg/rtp/connection"
)

// recordingMediaGroup запоминает вызовы; block задерживает Play до отмены
type recordingMediaGroup struct {
	mu     sync.Mutex
	played [][]string
	stops  int
	block  bool
}

func (m *recordingMediaGroup) Play(ctx context.Context, req packages.PlayRequest) error {
	m.mu.Lock()
	m.played = append(m.played, req.Announcements)
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (m *recordingMediaGroup) Collect(ctx context.Context, req packages.CollectRequest) (string, error) {
	return "12", nil
}

func (m *recordingMediaGroup) Record(ctx context.Context, req packages.RecordRequest) (string, error) {
	return "rec-1", nil
}

func (m *recordingMediaGroup) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
}

func (m *recordingMediaGroup) playedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.played)
}

type collectingObserver struct {
	mu     sync.Mutex
	events []packages.Event
}

func (o *collectingObserver) OnEvent(ep Endpoint, req *NotificationRequest, event packages.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *collectingObserver) snapshot() []packages.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]packages.Event(nil), o.events...)
}

func playSignal(t *testing.T, mg packages.MediaGroup, an string) packages.Signal {
	t.Helper()
	s, err := packages.DefaultRegistry().ProvideSignal("AU", "pa", map[string]string{"an": an}, mg)
	require.NoError(t, err)
	return s
}

func notifyOn(events ...string) []RequestedEvent {
	var list []RequestedEvent
	for _, e := range events {
		list = append(list, RequestedEvent{
			EventType: packages.EventType{Package: "AU", Name: e},
			Actions:   []param.EventAction{param.ActionNotify},
		})
	}
	return list
}

func TestGenericEndpointRunsSignalsInOrder(t *testing.T) {
	mg := &recordingMediaGroup{}
	ep := NewGenericEndpoint("ms/ivr/1", GenericConfig{MediaGroup: mg})
	observer := &collectingObserver{}
	ep.Observe(observer)

	req := NewNotificationRequest(1, "A1", nil, notifyOn("oc", "of"), []packages.Signal{
		playSignal(t, mg, "one.wav"),
		playSignal(t, mg, "two.wav"),
	})
	require.NoError(t, ep.RequestNotification(req))

	assert.Eventually(t, func() bool { return len(observer.snapshot()) == 2 }, 2*time.Second, 5*time.Millisecond)
	events := observer.snapshot()
	assert.Equal(t, "AU/oc(rc=100)", events[0].String())

	mg.mu.Lock()
	assert.Equal(t, [][]string{{"one.wav"}, {"two.wav"}}, mg.played)
	mg.mu.Unlock()
	assert.Zero(t, req.CountSignals())
	assert.Same(t, req, ep.NotificationRequest())
}

func TestGenericEndpointSkipsEventsWithoutNotify(t *testing.T) {
	mg := &recordingMediaGroup{}
	ep := NewGenericEndpoint("ms/ivr/1", GenericConfig{MediaGroup: mg})
	observer := &collectingObserver{}
	forget := ep.Observe(observer)

	events := []RequestedEvent{{
		EventType: packages.EventType{Package: "AU", Name: "oc"},
		Actions:   []param.EventAction{param.ActionIgnore},
	}}
	req := NewNotificationRequest(1, "A1", nil, events, []packages.Signal{playSignal(t, mg, "x.wav")})
	require.NoError(t, ep.RequestNotification(req))

	assert.Eventually(t, func() bool { return mg.playedCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, observer.snapshot())

	forget()
}

type channelObserver struct {
	labels []string
	events chan packages.Event
}

func (o channelObserver) OnEvent(ep Endpoint, req *NotificationRequest, event packages.Event) {
	o.events <- event
}

func TestGenericEndpointForgetsUncomparableObserver(t *testing.T) {
	mg := &recordingMediaGroup{}
	ep := NewGenericEndpoint("ms/ivr/1", GenericConfig{MediaGroup: mg})

	gone := channelObserver{labels: []string{"gone"}, events: make(chan packages.Event, 1)}
	kept := channelObserver{labels: []string{"kept"}, events: make(chan packages.Event, 1)}
	forget := ep.Observe(gone)
	ep.Observe(kept)

	forget()
	forget()

	req := NewNotificationRequest(1, "A1", nil, notifyOn("oc"), []packages.Signal{playSignal(t, mg, "x.wav")})
	require.NoError(t, ep.RequestNotification(req))

	select {
	case ev := <-kept.events:
		assert.Equal(t, "AU/oc(rc=100)", ev.String())
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	assert.Empty(t, gone.events)
}

func TestGenericEndpointNewRequestStopsSignals(t *testing.T) {
	mg := &recordingMediaGroup{block: true}
	ep := NewGenericEndpoint("ms/ivr/1", GenericConfig{MediaGroup: mg})
	observer := &collectingObserver{}
	ep.Observe(observer)

	first := NewNotificationRequest(1, "A1", nil, notifyOn("oc", "of"), []packages.Signal{
		playSignal(t, mg, "long.wav"),
		playSignal(t, mg, "never.wav"),
	})
	require.NoError(t, ep.RequestNotification(first))
	assert.Eventually(t, func() bool { return mg.playedCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	second := NewNotificationRequest(2, "A2", nil, nil, nil)
	require.NoError(t, ep.RequestNotification(second))

	assert.Equal(t, 1, mg.playedCount())
	assert.Equal(t, 1, first.CountSignals())
	mg.mu.Lock()
	assert.Equal(t, 1, mg.stops)
	mg.mu.Unlock()
	assert.Empty(t, observer.snapshot())
	assert.NoError(t, ep.Close())
}

func TestGenericEndpointConnections(t *testing.T) {
	ep := NewGenericEndpoint("ms/ivr/1", GenericConfig{
		Sessions: func() connection.Session { return rtp.NewSession(rtp.SessionConfig{}) },
	})
	assert.False(t, ep.IsActive())

	c1, err := ep.CreateConnection("call-1")
	require.NoError(t, err)
	c2, err := ep.CreateConnection("call-2")
	require.NoError(t, err)
	assert.True(t, ep.IsActive())
	assert.Len(t, ep.Connections(), 2)

	got, err := ep.Connection(c1.ID())
	require.NoError(t, err)
	assert.Same(t, c1, got)
	callID, ok := ep.CallID(c2.ID())
	assert.True(t, ok)
	assert.Equal(t, "call-2", callID)

	removed := ep.DeleteConnections("call-1")
	require.Len(t, removed, 1)
	assert.Same(t, c1, removed[0])
	assert.True(t, ep.IsActive())

	_, err = ep.DeleteConnection(c1.ID())
	assert.ErrorIs(t, err, ErrConnectionNotFound)

	_, err = ep.DeleteConnection(c2.ID())
	require.NoError(t, err)
	assert.False(t, ep.IsActive())

	_, err = ep.CreateConnection("")
	assert.Error(t, err)
}

func TestGenericEndpointWithoutSessions(t *testing.T) {
	ep := NewGenericEndpoint("ms/ann/1", GenericConfig{})
	_, err := ep.CreateConnection("call")
	assert.ErrorIs(t, err, ErrConnectionsUnsupported)
	assert.IsType(t, NullMediaGroup{}, ep.MediaGroup())
}
