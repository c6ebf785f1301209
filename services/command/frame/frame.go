// Package frame is the wire protocol spoken between the board's command
// service and a host console over a serial link. Frames are length-prefixed
// with CBOR payloads; both ends of the link import this package.
package frame

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

const (
	Ping  byte = 0x01
	Pong  byte = 0x02
	Close byte = 0x7f

	Estop     byte = 0x10
	ZoneSafe  byte = 0x11
	ClearSafe byte = 0x12
	StatusReq byte = 0x13

	Result    byte = 0x20
	StatusRep byte = 0x21
)

// Command payloads (host -> board).

type EstopCmd struct {
	Reason string `cbor:"reason"`
	Source string `cbor:"source"`
}

type ZoneSafeCmd struct {
	Zone   string `cbor:"zone"`
	Enable bool   `cbor:"enable"`
}

type ClearSafeCmd struct {
	Source string `cbor:"source"`
}

// Reply payloads (board -> host).

type ResultRep struct {
	OK    bool   `cbor:"ok"`
	Error string `cbor:"error,omitempty"`
}

// Frame is one length-prefixed unit on the wire: type byte, 16-bit
// big-endian payload length, then the CBOR payload.
type Frame struct {
	Type    byte
	Payload []byte
}

const maxPayload = 0xFFFF

var errTooLarge = errors.New("frame payload too large")

// Encode builds a frame of the given type around v. A nil v produces an
// empty payload.
func Encode(typ byte, v any) (Frame, error) {
	if v == nil {
		return Frame{Type: typ}, nil
	}
	b, err := cbor.Marshal(v)
	if err != nil {
		return Frame{}, err
	}
	if len(b) > maxPayload {
		return Frame{}, errTooLarge
	}
	return Frame{Type: typ, Payload: b}, nil
}

// Decode unmarshals a frame payload into out.
func Decode(f Frame, out any) error {
	return cbor.Unmarshal(f.Payload, out)
}

type Reader struct{ r io.Reader }
type Writer struct{ w io.Writer }

func NewReader(r io.Reader) *Reader { return &Reader{r: r} }
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (fr *Reader) ReadFrame() (Frame, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		return Frame{}, err
	}
	typ := hdr[0]
	n := int(hdr[1])<<8 | int(hdr[2])
	var buf []byte
	if n > 0 {
		buf = make([]byte, n)
		if _, err := io.ReadFull(fr.r, buf); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Type: typ, Payload: buf}, nil
}

func (fw *Writer) WriteFrame(f Frame) error {
	if len(f.Payload) > maxPayload {
		return fmt.Errorf("frame too large: %d", len(f.Payload))
	}
	hdr := []byte{f.Type, byte(len(f.Payload) >> 8), byte(len(f.Payload) & 0xFF)}
	if _, err := fw.w.Write(hdr); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		_, err := fw.w.Write(f.Payload)
		return err
	}
	return nil
}
