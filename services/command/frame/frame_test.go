package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Auto-one-Family/Automation-One-sub017/types"
)

func TestEncodeDecode_Commands(t *testing.T) {
	f, err := Encode(Estop, EstopCmd{Reason: "overcurrent", Source: "console"})
	require.NoError(t, err)
	assert.Equal(t, Estop, f.Type)

	var got EstopCmd
	require.NoError(t, Decode(f, &got))
	assert.Equal(t, "overcurrent", got.Reason)
	assert.Equal(t, "console", got.Source)
}

func TestEncode_NilPayload(t *testing.T) {
	f, err := Encode(StatusReq, nil)
	require.NoError(t, err)
	assert.Empty(t, f.Payload)
}

func TestReadWrite_Wire(t *testing.T) {
	var buf bytes.Buffer
	wr := NewWriter(&buf)
	rd := NewReader(&buf)

	out, err := Encode(ZoneSafe, ZoneSafeCmd{Zone: "greenhouse", Enable: true})
	require.NoError(t, err)
	require.NoError(t, wr.WriteFrame(out))
	require.NoError(t, wr.WriteFrame(Frame{Type: Ping}))

	in, err := rd.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, ZoneSafe, in.Type)
	var cmd ZoneSafeCmd
	require.NoError(t, Decode(in, &cmd))
	assert.Equal(t, "greenhouse", cmd.Zone)
	assert.True(t, cmd.Enable)

	in, err = rd.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, Ping, in.Type)
	assert.Empty(t, in.Payload)
}

func TestStatusReply_CarriesPinDump(t *testing.T) {
	st := types.PinsStatus{
		Board:     "esp32_devkit",
		Total:     26,
		Available: 19,
		Reserved: []types.PinInfo{
			{Pin: 21, Reserved: true, Owner: "system_i2c", Label: "i2c-data", Mode: types.ModeOutput},
		},
	}
	f, err := Encode(StatusRep, st)
	require.NoError(t, err)

	var got types.PinsStatus
	require.NoError(t, Decode(f, &got))
	assert.Equal(t, st.Board, got.Board)
	require.Len(t, got.Reserved, 1)
	assert.Equal(t, "system_i2c", got.Reserved[0].Owner)
}

func TestWriteFrame_RejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter(&buf).WriteFrame(Frame{Type: Result, Payload: make([]byte, maxPayload+1)})
	assert.Error(t, err)
}
