package nats

import (
	"testing"
	"time"

	"geoassist-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventCodec(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	ev := events.NewModeSwitched("user-1", "LOCATION", "KML", "entered", at)

	data, err := encode(ev)
	require.NoError(t, err)

	decoded, err := decode(Subject(ev.EventType()), data)
	require.NoError(t, err)
	assert.Equal(t, events.TypeModeSwitched, decoded.EventType())
	assert.True(t, at.Equal(decoded.Timestamp()))
	assert.Equal(t, "KML", events.StringField(decoded, "new_mode"))
	assert.NotContains(t, decoded.Payload(), occurredAtKey)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decode("events.X", []byte("{"))
	assert.Error(t, err)
}
