package pinmgr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Auto-one-Family/Automation-One-sub017/bus"
	"github.com/Auto-one-Family/Automation-One-sub017/types"
)

// startService boots a manager behind a Service on a fresh bus and returns
// a client connection for driving it.
func startService(t *testing.T) (*Manager, *bus.Connection) {
	t.Helper()
	m, _ := booted(t)

	b := bus.NewBus(16)
	svc := NewService(b.NewConnection("pinmgr"), m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	client := b.NewConnection("test")
	t.Cleanup(client.Disconnect)

	// Run publishes the retained state summary only after its control
	// subscriptions are live, so seeing it means the service is ready.
	ready := client.Subscribe(topicState)
	select {
	case <-ready.Channel():
	case <-time.After(2 * time.Second):
		t.Fatal("service did not publish initial state")
	}
	client.Unsubscribe(ready)

	return m, client
}

func requestWait(t *testing.T, c *bus.Connection, topic bus.Topic, payload any) *bus.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	reply, err := c.RequestWait(ctx, c.NewMessage(topic, payload, false))
	require.NoError(t, err)
	return reply
}

func ctrl(method string) bus.Topic {
	return bus.Topic{tokPins, tokControl, method}
}

func TestService_RequestReleaseOverBus(t *testing.T) {
	m, client := startService(t)

	reply := requestWait(t, client, ctrl(ctrlRequest),
		types.PinRequest{Pin: 4, Owner: "relay_driver", Label: "relay0", Mode: types.ModeOutput})
	ack, ok := reply.Payload.(types.Ack)
	require.True(t, ok, "payload %T", reply.Payload)
	assert.True(t, ack.OK)
	assert.Equal(t, "relay_driver", m.PinOwner(4))

	// Second claimant is refused with the conflict code.
	reply = requestWait(t, client, ctrl(ctrlRequest),
		types.PinRequest{Pin: 4, Owner: "intruder", Mode: types.ModeOutput})
	errRep, ok := reply.Payload.(types.ErrorReply)
	require.True(t, ok, "payload %T", reply.Payload)
	assert.False(t, errRep.OK)
	assert.Equal(t, "ownership_conflict", errRep.Error)

	reply = requestWait(t, client, ctrl(ctrlRelease), types.PinRelease{Pin: 4})
	ack, ok = reply.Payload.(types.Ack)
	require.True(t, ok, "payload %T", reply.Payload)
	assert.True(t, ack.OK)
	assert.Equal(t, "", m.PinOwner(4))
}

func TestService_StatusQuery(t *testing.T) {
	_, client := startService(t)

	requestWait(t, client, ctrl(ctrlRequest),
		types.PinRequest{Pin: 27, Owner: "fan", Mode: types.ModeOutput})

	reply := requestWait(t, client, ctrl(ctrlStatus), nil)
	st, ok := reply.Payload.(types.StatusReply)
	require.True(t, ok, "payload %T", reply.Payload)
	require.True(t, st.OK)

	// Fan pin plus the two bus pins.
	assert.Len(t, st.Status.Reserved, 3)
	owners := map[int]string{}
	for _, p := range st.Status.Reserved {
		owners[p.Pin] = p.Owner
	}
	assert.Equal(t, "fan", owners[27])
	assert.Equal(t, BusOwner, owners[21])
	assert.Equal(t, BusOwner, owners[22])
}

func TestService_PinInfoQuery(t *testing.T) {
	_, client := startService(t)

	requestWait(t, client, ctrl(ctrlRequest),
		types.PinRequest{Pin: 33, Owner: "valve", Label: "valve_main", Mode: types.ModeOutput})

	reply := requestWait(t, client, ctrl(ctrlInfo), types.PinQuery{Pin: 33})
	rep, ok := reply.Payload.(types.PinInfoReply)
	require.True(t, ok, "payload %T", reply.Payload)
	require.True(t, rep.OK)
	assert.Equal(t, 33, rep.Info.Pin)
	assert.Equal(t, "valve", rep.Info.Owner)
	assert.Equal(t, "valve_main", rep.Info.Label)
	assert.Equal(t, types.ModeOutput, rep.Info.Mode)
}

func TestService_ZoneControlOverBus(t *testing.T) {
	m, client := startService(t)

	requestWait(t, client, ctrl(ctrlRequest),
		types.PinRequest{Pin: 4, Owner: "pump", Mode: types.ModeOutput})
	requestWait(t, client, ctrl(ctrlAssignZone), types.ZoneAssign{Pin: 4, Zone: "greenhouse"})

	require.Equal(t, []int{4}, m.SubzonePins("greenhouse"))

	requestWait(t, client, ctrl(ctrlZoneSafeOn), types.ZoneSafeMode{Zone: "greenhouse"})
	assert.True(t, m.IsPinInSafeMode(4))
	assert.True(t, m.IsSubzoneSafe("greenhouse"))

	requestWait(t, client, ctrl(ctrlZoneSafeOff), types.ZoneSafeMode{Zone: "greenhouse"})
	assert.False(t, m.IsPinInSafeMode(4))

	// Unknown zone comes back as a typed error, not a dropped message.
	reply := requestWait(t, client, ctrl(ctrlZoneSafeOn), types.ZoneSafeMode{Zone: "attic"})
	errRep, ok := reply.Payload.(types.ErrorReply)
	require.True(t, ok, "payload %T", reply.Payload)
	assert.Equal(t, "unknown_zone", errRep.Error)
}

func TestService_EstopAndClear(t *testing.T) {
	m, client := startService(t)

	reply := requestWait(t, client, topicEstop, types.EstopCommand{Reason: "panic_button", Source: "console"})
	ack, ok := reply.Payload.(types.Ack)
	require.True(t, ok, "payload %T", reply.Payload)
	assert.True(t, ack.OK)

	st := m.GlobalSafeMode()
	require.True(t, st.Active)
	assert.Equal(t, "panic_button", st.Reason)

	// Clearing without an identified source is refused.
	reply = requestWait(t, client, ctrl(ctrlClearSafeMode), types.ClearSafeMode{})
	_, isErr := reply.Payload.(types.ErrorReply)
	assert.True(t, isErr, "payload %T", reply.Payload)
	assert.True(t, m.GlobalSafeMode().Active)

	requestWait(t, client, ctrl(ctrlClearSafeMode), types.ClearSafeMode{Source: "console"})
	assert.False(t, m.GlobalSafeMode().Active)
}

func TestService_RetainedStateDocument(t *testing.T) {
	_, client := startService(t)

	requestWait(t, client, ctrl(ctrlRequest),
		types.PinRequest{Pin: 4, Owner: "pump", Mode: types.ModeOutput})

	// A late subscriber sees the current summary immediately.
	sub := client.Subscribe(topicState)
	defer client.Unsubscribe(sub)

	select {
	case msg := <-sub.Channel():
		st, ok := msg.Payload.(types.PinsStatus)
		require.True(t, ok, "payload %T", msg.Payload)
		assert.Len(t, st.Reserved, 3)
	case <-time.After(2 * time.Second):
		t.Fatal("no retained pins/state document")
	}
}

func TestService_RetainedPinInfo(t *testing.T) {
	_, client := startService(t)

	requestWait(t, client, ctrl(ctrlRequest),
		types.PinRequest{Pin: 26, Owner: "heater", Mode: types.ModeOutput})

	sub := client.Subscribe(bus.Topic{tokPins, tokPin, 26, tokInfo})
	defer client.Unsubscribe(sub)

	select {
	case msg := <-sub.Channel():
		info, ok := msg.Payload.(types.PinInfo)
		require.True(t, ok, "payload %T", msg.Payload)
		assert.Equal(t, "heater", info.Owner)
		assert.True(t, info.Reserved)
	case <-time.After(2 * time.Second):
		t.Fatal("no retained pin info document")
	}
}

func TestService_BadPayloadGetsTypedError(t *testing.T) {
	_, client := startService(t)

	reply := requestWait(t, client, ctrl(ctrlRequest), "not a struct")
	errRep, ok := reply.Payload.(types.ErrorReply)
	require.True(t, ok, "payload %T", reply.Payload)
	assert.Equal(t, "invalid_payload", errRep.Error)

	reply = requestWait(t, client, ctrl("no_such_method"), nil)
	errRep, ok = reply.Payload.(types.ErrorReply)
	require.True(t, ok, "payload %T", reply.Payload)
	assert.Equal(t, "invalid_topic", errRep.Error)
}
