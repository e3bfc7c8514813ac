package websocket

import (
	"context"
	"testing"

	"geoassist-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, target string) *Client {
	return &Client{Hub: hub, Target: target, Send: make(chan []byte, 1)}
}

func TestHubDeliversToUserAndGateways(t *testing.T) {
	hub := NewHub(nil, "bot_replies", logger.NewNopLogger())
	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	gateway := newTestClient(hub, AllUsers)
	hub.Register(alice)
	hub.Register(bob)
	hub.Register(gateway)

	require.NoError(t, hub.Publish(context.Background(), "alice", []byte(`{"text":"hi"}`)))

	assert.Equal(t, `{"text":"hi"}`, string(<-alice.Send))
	assert.Equal(t, `{"text":"hi"}`, string(<-gateway.Send))
	assert.Empty(t, bob.Send)
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(nil, "bot_replies", logger.NewNopLogger())
	c := newTestClient(hub, "alice")
	hub.Register(c)

	assert.Equal(t, 1, hub.Deliver("alice", []byte("one")))
	assert.Equal(t, 0, hub.Deliver("alice", []byte("two")))
	assert.Equal(t, "one", string(<-c.Send))
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := NewHub(nil, "bot_replies", logger.NewNopLogger())
	c := newTestClient(hub, "alice")
	hub.Register(c)
	assert.Equal(t, 1, hub.Connections())

	hub.Unregister(c)
	_, open := <-c.Send
	assert.False(t, open)
	assert.Equal(t, 0, hub.Connections())
	assert.Equal(t, 0, hub.Deliver("alice", []byte("late")))
}

func TestNewClientDefaultsToGateway(t *testing.T) {
	c := NewClient(nil, nil, "")
	assert.Equal(t, AllUsers, c.Target)
}
