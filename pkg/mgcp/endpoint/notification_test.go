package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hl2dod/mediaserver/pkg/mgcp/packages"
	"github.com/hl2dod/mediaserver/pkg/mgcp/param"
)

func TestNotificationRequestQueue(t *testing.T) {
	mg := NullMediaGroup{}
	signals := []packages.Signal{
		playSignal(t, mg, "a.wav"),
		playSignal(t, mg, "b.wav"),
		playSignal(t, mg, "a.wav"),
	}
	ne, err := param.ParseNotifiedEntity("ca@127.0.0.1:2727")
	require.NoError(t, err)

	req := NewNotificationRequest(12345, "1", ne, notifyOn("oc", "of"), signals)
	signals[0] = nil

	assert.Equal(t, 12345, req.TransactionID())
	assert.Equal(t, "1", req.RequestIdentifier())
	assert.Equal(t, "ca@127.0.0.1:2727", req.NotifiedEntity().String())
	assert.True(t, req.IsListening("AU/oc"))
	assert.True(t, req.IsListening("au/OF"))
	assert.False(t, req.IsListening("AU/xx"))
	assert.Equal(t, []param.EventAction{param.ActionNotify}, req.Actions("AU/oc"))
	assert.Nil(t, req.Actions("AU/xx"))

	assert.Equal(t, 3, req.CountSignals())
	var announced []string
	for {
		s, ok := req.PollSignal()
		if !ok {
			break
		}
		announced = append(announced, s.Parameters()["an"])
	}
	assert.Equal(t, []string{"a.wav", "b.wav", "a.wav"}, announced)
	assert.Zero(t, req.CountSignals())

	s, ok := req.PollSignal()
	assert.False(t, ok)
	assert.Nil(t, s)
}

func TestRequestedEventHasAction(t *testing.T) {
	e := RequestedEvent{Actions: []param.EventAction{param.ActionAccumulate, param.ActionKeepSignalsActive}}
	assert.True(t, e.HasAction(param.ActionKeepSignalsActive))
	assert.False(t, e.HasAction(param.ActionNotify))
}
