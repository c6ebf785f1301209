// services/command/command_test.go
package command

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Auto-one-Family/Automation-One-sub017/bus"
	"github.com/Auto-one-Family/Automation-One-sub017/services/command/frame"
	"github.com/Auto-one-Family/Automation-One-sub017/services/pinmgr"
	"github.com/Auto-one-Family/Automation-One-sub017/types"
)

// console is the host end of the piped serial link.
type console struct {
	rd *frame.Reader
	wr *frame.Writer
}

func (c *console) roundTrip(t *testing.T, out frame.Frame) frame.Frame {
	t.Helper()
	require.NoError(t, c.wr.WriteFrame(out))
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		in, err := c.rd.ReadFrame()
		require.NoError(t, err)
		if in.Type == frame.Ping || in.Type == frame.Pong {
			continue
		}
		return in
	}
	t.Fatal("no reply frame")
	return frame.Frame{}
}

// startStack boots a pin manager, its bus service and the command service,
// wires the command link to a net.Pipe and returns the host end.
func startStack(t *testing.T) (*pinmgr.Manager, *console) {
	t.Helper()

	mgr := pinmgr.NewOnboard()
	mgr.ForceAllPinsSafe()
	require.NoError(t, mgr.AutoReserveBusPins())

	b := bus.NewBus(16)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pinSvc := pinmgr.NewService(b.NewConnection("pinmgr"), mgr)
	go pinSvc.Run(ctx)

	go Start(ctx, b.NewConnection("command"))

	linkCh := make(chan io.ReadWriteCloser, 1)
	prevDial := UARTDial
	UARTDial = func(ctx context.Context, _ UARTConfig) (io.ReadWriteCloser, error) {
		local, remote := net.Pipe()
		linkCh <- remote
		return local, nil
	}
	t.Cleanup(func() { UARTDial = prevDial })

	// Deliver the config the embedded publisher would send.
	cfgConn := b.NewConnection("test-config")
	cfgConn.Publish(cfgConn.NewMessage(bus.Topic{"config", "command"},
		map[string]any{"baud": float64(115200)}, true))

	select {
	case remote := <-linkCh:
		t.Cleanup(func() { remote.Close() })
		return mgr, &console{rd: frame.NewReader(remote), wr: frame.NewWriter(remote)}
	case <-time.After(3 * time.Second):
		t.Fatal("command service never dialled")
		return nil, nil
	}
}

func TestCommand_EstopOverSerial(t *testing.T) {
	mgr, con := startStack(t)

	out, err := frame.Encode(frame.Estop, frame.EstopCmd{Reason: "lid_open", Source: "console"})
	require.NoError(t, err)
	in := con.roundTrip(t, out)

	require.Equal(t, frame.Result, in.Type)
	var rep frame.ResultRep
	require.NoError(t, frame.Decode(in, &rep))
	assert.True(t, rep.OK)

	st := mgr.GlobalSafeMode()
	require.True(t, st.Active)
	assert.Equal(t, "lid_open", st.Reason)
}

func TestCommand_ClearSafeOverSerial(t *testing.T) {
	mgr, con := startStack(t)
	mgr.EnableSafeModeForAllPins("test")

	// No source: refused, flag stays.
	out, err := frame.Encode(frame.ClearSafe, frame.ClearSafeCmd{})
	require.NoError(t, err)
	in := con.roundTrip(t, out)
	var rep frame.ResultRep
	require.NoError(t, frame.Decode(in, &rep))
	assert.False(t, rep.OK)
	assert.True(t, mgr.GlobalSafeMode().Active)

	out, err = frame.Encode(frame.ClearSafe, frame.ClearSafeCmd{Source: "console"})
	require.NoError(t, err)
	in = con.roundTrip(t, out)
	require.NoError(t, frame.Decode(in, &rep))
	assert.True(t, rep.OK)
	assert.False(t, mgr.GlobalSafeMode().Active)
}

func TestCommand_ZoneSafeOverSerial(t *testing.T) {
	mgr, con := startStack(t)
	require.NoError(t, mgr.RequestPin(4, "pump", "", types.ModeOutput))
	require.NoError(t, mgr.AssignPinToSubzone(4, "greenhouse"))

	out, err := frame.Encode(frame.ZoneSafe, frame.ZoneSafeCmd{Zone: "greenhouse", Enable: true})
	require.NoError(t, err)
	in := con.roundTrip(t, out)
	var rep frame.ResultRep
	require.NoError(t, frame.Decode(in, &rep))
	assert.True(t, rep.OK)
	assert.True(t, mgr.IsPinInSafeMode(4))

	// Unknown zone surfaces the error string.
	out, err = frame.Encode(frame.ZoneSafe, frame.ZoneSafeCmd{Zone: "attic", Enable: true})
	require.NoError(t, err)
	in = con.roundTrip(t, out)
	require.NoError(t, frame.Decode(in, &rep))
	assert.False(t, rep.OK)
	assert.Equal(t, "unknown_zone", rep.Error)
}

func TestCommand_StatusOverSerial(t *testing.T) {
	_, con := startStack(t)

	in := con.roundTrip(t, frame.Frame{Type: frame.StatusReq})
	require.Equal(t, frame.StatusRep, in.Type)

	var st types.PinsStatus
	require.NoError(t, frame.Decode(in, &st))
	assert.Equal(t, "esp32_devkit", st.Board)
	assert.Len(t, st.Reserved, 2) // the auto-reserved bus pair
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := decodeConfig(map[string]any{
		"transport": map[string]any{
			"type": "uart",
			"uart": map[string]any{"baud": float64(9600), "rx_pin": float64(16), "tx_pin": float64(17)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "uart", cfg.Transport.Type)
	require.NotNil(t, cfg.Transport.UART)
	assert.Equal(t, 9600, cfg.Transport.UART.Baud)

	// Flat shorthand.
	cfg, err = decodeConfig(map[string]any{"baud": 115200})
	require.NoError(t, err)
	assert.Equal(t, "uart", cfg.Transport.Type)
	assert.Equal(t, 115200, cfg.Transport.UART.Baud)

	_, err = decodeConfig("not a map")
	assert.Error(t, err)

	_, err = decodeConfig(map[string]any{"nonsense": true})
	assert.Error(t, err)
}

func TestUnknownTransportYieldsErrorState(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("command_test_bad")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Start(ctx, conn)

	stateSub := conn.Subscribe(bus.Topic{"command", "state"})
	defer conn.Unsubscribe(stateSub)

	waitState(t, stateSub, "awaiting_config")

	conn.Publish(conn.NewMessage(bus.Topic{"config", "command"},
		map[string]any{"transport": map[string]any{"type": "bogus"}}, false))

	waitState(t, stateSub, "transport_init_failed")
}

func waitState(t *testing.T, sub *bus.Subscription, status string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-sub.Channel():
			p, ok := m.Payload.(map[string]any)
			if ok && p["status"] == status {
				return
			}
		case <-deadline:
			t.Fatalf("state %q never published", status)
		}
	}
}
