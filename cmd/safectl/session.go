package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/Auto-one-Family/Automation-One-sub017/services/command/frame"
	"github.com/Auto-one-Family/Automation-One-sub017/types"
)

// session owns one framed link to the board and runs commands against it.
type session struct {
	rd     *frame.Reader
	wr     *frame.Writer
	source string
}

func newSession(rw io.ReadWriter, source string) *session {
	return &session{rd: frame.NewReader(rw), wr: frame.NewWriter(rw), source: source}
}

// exec parses one command line (shell quoting applies, so estop reasons can
// contain spaces) and runs it, writing human output to w.
func (s *session) exec(w io.Writer, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if len(args) == 0 {
		return nil
	}

	switch args[0] {
	case "estop":
		reason := strings.Join(args[1:], " ")
		f, err := frame.Encode(frame.Estop, frame.EstopCmd{Reason: reason, Source: s.source})
		if err != nil {
			return err
		}
		return s.expectResult(w, f, "stopped")

	case "clear":
		source := s.source
		if len(args) > 1 {
			source = args[1]
		}
		f, err := frame.Encode(frame.ClearSafe, frame.ClearSafeCmd{Source: source})
		if err != nil {
			return err
		}
		return s.expectResult(w, f, "safe mode cleared")

	case "zone":
		if len(args) != 3 || (args[2] != "on" && args[2] != "off") {
			return errors.New("usage: zone <name> on|off")
		}
		f, err := frame.Encode(frame.ZoneSafe, frame.ZoneSafeCmd{Zone: args[1], Enable: args[2] == "on"})
		if err != nil {
			return err
		}
		return s.expectResult(w, f, "zone "+args[1]+" "+args[2])

	case "status":
		rep, err := s.roundTrip(frame.Frame{Type: frame.StatusReq})
		if err != nil {
			return err
		}
		if rep.Type != frame.StatusRep {
			return fmt.Errorf("unexpected reply type 0x%02x", rep.Type)
		}
		var st types.PinsStatus
		if err := frame.Decode(rep, &st); err != nil {
			return err
		}
		printStatus(w, st)
		return nil

	case "ping":
		start := time.Now()
		rep, err := s.roundTrip(frame.Frame{Type: frame.Ping})
		if err != nil {
			return err
		}
		if rep.Type != frame.Pong {
			return fmt.Errorf("unexpected reply type 0x%02x", rep.Type)
		}
		fmt.Fprintf(w, "pong (%s)\n", time.Since(start).Round(time.Millisecond))
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (s *session) expectResult(w io.Writer, f frame.Frame, okMsg string) error {
	rep, err := s.roundTrip(f)
	if err != nil {
		return err
	}
	if rep.Type != frame.Result {
		return fmt.Errorf("unexpected reply type 0x%02x", rep.Type)
	}
	var res frame.ResultRep
	if err := frame.Decode(rep, &res); err != nil {
		return err
	}
	if !res.OK {
		return errors.New(res.Error)
	}
	fmt.Fprintln(w, okMsg)
	return nil
}

// roundTrip sends one frame and returns the next non-keepalive reply. The
// board pings periodically; those are answered inline.
func (s *session) roundTrip(f frame.Frame) (frame.Frame, error) {
	if err := s.wr.WriteFrame(f); err != nil {
		return frame.Frame{}, err
	}
	for {
		rep, err := s.rd.ReadFrame()
		if err != nil {
			return frame.Frame{}, err
		}
		if rep.Type == frame.Ping {
			if err := s.wr.WriteFrame(frame.Frame{Type: frame.Pong}); err != nil {
				return frame.Frame{}, err
			}
			continue
		}
		if rep.Type == frame.Pong && f.Type != frame.Ping {
			continue
		}
		return rep, nil
	}
}

func printStatus(w io.Writer, st types.PinsStatus) {
	fmt.Fprintf(w, "board: %s  pins: %d total, %d available\n", st.Board, st.Total, st.Available)
	if st.SafeMode.Active {
		fmt.Fprintf(w, "SAFE MODE ACTIVE: %s (since %s)\n",
			st.SafeMode.Reason, st.SafeMode.Since.Format(time.RFC3339))
	}
	if len(st.Reserved) > 0 {
		fmt.Fprintln(w, "reserved:")
		for _, p := range st.Reserved {
			line := fmt.Sprintf("  %2d  %-16s %-12s %s", p.Pin, p.Owner, p.Mode, p.Label)
			if p.Zone != "" {
				line += "  [" + p.Zone + "]"
			}
			if p.Safe {
				line += "  (safe)"
			}
			fmt.Fprintln(w, line)
		}
	}
	if len(st.Zones) > 0 {
		fmt.Fprintln(w, "zones:")
		for _, z := range st.Zones {
			state := ""
			if z.Safe {
				state = "  (safe)"
			}
			fmt.Fprintf(w, "  %-16s %v%s\n", z.Zone, z.Pins, state)
		}
	}
}
