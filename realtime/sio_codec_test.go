package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOpenPacket(t *testing.T) {
	hs, err := parseOpenPacket([]byte(`0{"sid":"abc123","upgrades":["websocket"],"pingInterval":25000,"pingTimeout":20000}`))
	require.NoError(t, err)
	assert.Equal(t, "abc123", hs.SID)
	assert.Equal(t, 25000, hs.PingInterval)
}

func TestParseOpenPacketRejectsOtherTypes(t *testing.T) {
	_, err := parseOpenPacket([]byte(`2probe`))
	assert.Error(t, err)
}

func TestParseSocketIOPacketDefaultNamespace(t *testing.T) {
	pkt, err := parseSocketIOPacket([]byte(`0{"sid":"ns-1"}`))
	require.NoError(t, err)
	assert.Equal(t, sioConnect, pkt.Type)
	assert.Equal(t, "/", pkt.Namespace)
}

func TestParseSocketIOPacketExplicitNamespace(t *testing.T) {
	pkt, err := parseSocketIOPacket([]byte(`0/ws,{"sid":"ns-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "/ws", pkt.Namespace)
	assert.JSONEq(t, `{"sid":"ns-1"}`, string(pkt.Data))
}

func TestEncodeConnectOmitsDefaultNamespace(t *testing.T) {
	assert.Equal(t, "40", string(encodeConnect("/")))
	assert.Equal(t, "40/ws", string(encodeConnect("/ws")))
}

func TestEncodeAndDecodeEvent(t *testing.T) {
	frame, err := encodeEvent("/ws", "app:modules:parameters:listen", subscribePayload{Modules: []string{"dev1"}})
	require.NoError(t, err)

	typ, body := parseEnginePacket(frame)
	assert.Equal(t, eioMessage, typ)

	pkt, err := parseSocketIOPacket(body)
	require.NoError(t, err)
	assert.Equal(t, "/ws", pkt.Namespace)

	name, payload, err := decodeEventPayload(pkt.Data)
	require.NoError(t, err)
	assert.Equal(t, "app:modules:parameters:listen", name)
	assert.JSONEq(t, `{"modules":["dev1"]}`, string(payload))
}

func TestDecodeEventPayloadNumericAlias(t *testing.T) {
	name, payload, err := decodeEventPayload([]byte(`[60,{"task":"t1"}]`))
	require.NoError(t, err)
	assert.Equal(t, "60", name)
	assert.JSONEq(t, `{"task":"t1"}`, string(payload))
	assert.Equal(t, "app:module:task:status:changed", canonicalEventName(name))
}

func TestCanonicalEventNameAliases(t *testing.T) {
	assert.Equal(t, "app:module:task:created", canonicalEventName("61"))
	assert.Equal(t, "app:module:task:completed", canonicalEventName("63"))
	assert.Equal(t, "snapshot", canonicalEventName("snapshot"))
}

func TestSubscribeFramesShapesAndGroupID(t *testing.T) {
	gid := 42
	frames := subscribeFrames([]string{"dev2", "dev1"}, &gid)
	require.Len(t, frames, 4)

	assert.Equal(t, "app:modules:parameters:listen", frames[0].Event)
	assert.Equal(t, []string{"dev2", "dev1"}, frames[0].Payload.Modules)
	assert.Equal(t, 42, *frames[0].Payload.GroupID)

	assert.Equal(t, "app:modules:parameters:listen", frames[1].Event)
	assert.Nil(t, frames[1].Payload.Modules)
	assert.Equal(t, []string{"dev2", "dev1"}, frames[1].Payload.DevIDs)

	assert.Equal(t, "app:modules:activity:quantity:listen", frames[2].Event)
	assert.Equal(t, "app:modules:activity:quantity:listen", frames[3].Event)
}

func TestForwardedEventsSetMatchesSpec(t *testing.T) {
	for _, name := range []string{
		"snapshot",
		"app:modules:parameters:change",
		"modules:parameters:change",
		"parameters:change",
		"app:module:task:created",
		"app:module:task:status:changed",
		"app:module:task:completed",
	} {
		assert.True(t, forwardedEvents[name], name)
	}
	assert.False(t, forwardedEvents["some:other:event"])
}
