// services/pinmgr/service.go
package pinmgr

import (
	"context"
	"time"

	"github.com/Auto-one-Family/Automation-One-sub017/bus"
	"github.com/Auto-one-Family/Automation-One-sub017/errcode"
	"github.com/Auto-one-Family/Automation-One-sub017/types"
	"github.com/Auto-one-Family/Automation-One-sub017/x/fmtx"
)

// Topic tokens and control verbs.
const (
	tokPins    = "pins"
	tokControl = "control"
	tokState   = "state"
	tokPin     = "pin"
	tokInfo    = "info"
	tokSystem  = "system"
	tokEstop   = "estop"

	ctrlRequest       = "request"
	ctrlRelease       = "release"
	ctrlConfigure     = "configure"
	ctrlAssignZone    = "assign_zone"
	ctrlRemoveZone    = "remove_zone"
	ctrlZoneSafeOn    = "zone_safe_on"
	ctrlZoneSafeOff   = "zone_safe_off"
	ctrlClearSafeMode = "clear_safe_mode"
	ctrlStatus        = "status"
	ctrlInfo          = "info"
)

var (
	topicCtrl  = bus.Topic{tokPins, tokControl, "+"}
	topicEstop = bus.Topic{tokSystem, tokEstop}
	topicState = bus.Topic{tokPins, tokState}
)

// Service exposes one Manager on the bus: a control surface for driver
// initialisers, the emergency-stop entry point for the network command
// handler, and retained status documents for telemetry.
type Service struct {
	conn *bus.Connection
	mgr  *Manager
}

func NewService(conn *bus.Connection, mgr *Manager) *Service {
	return &Service{conn: conn, mgr: mgr}
}

// Run blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ctrlSub := s.conn.Subscribe(topicCtrl)
	estopSub := s.conn.Subscribe(topicEstop)
	defer s.conn.Unsubscribe(ctrlSub)
	defer s.conn.Unsubscribe(estopSub)

	s.publishSummary()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-estopSub.Channel():
			s.handleEstop(msg)

		case msg := <-ctrlSub.Channel():
			if len(msg.Topic) < 3 {
				continue
			}
			method, _ := msg.Topic[2].(string)
			s.handleControl(msg, method)
		}
	}
}

// handleEstop runs the global emergency stop. It is unconditional; the reply
// (if any transport asked for one) always reports success.
func (s *Service) handleEstop(msg *bus.Message) {
	cmd, _ := msg.Payload.(types.EstopCommand)
	reason := cmd.Reason
	if reason == "" {
		reason = "remote_estop"
	}
	start := time.Now()
	s.mgr.EnableSafeModeForAllPins(reason)
	elapsed := time.Since(start)

	println("Warn: emergency stop:", reason, "sweep_us:", int(elapsed.Microseconds()))
	s.publishSummary()
	if len(msg.ReplyTo) > 0 {
		s.conn.Reply(msg, types.Ack{OK: true}, false)
	}
}

func (s *Service) handleControl(msg *bus.Message, method string) {
	var err error
	var touched []int

	switch method {
	case ctrlRequest:
		p, ok := msg.Payload.(types.PinRequest)
		if !ok {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		err = s.mgr.RequestPin(p.Pin, p.Owner, p.Label, p.Mode)
		touched = []int{p.Pin}

	case ctrlRelease:
		p, ok := msg.Payload.(types.PinRelease)
		if !ok {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		err = s.mgr.ReleasePin(p.Pin)
		touched = []int{p.Pin}

	case ctrlConfigure:
		p, ok := msg.Payload.(types.PinConfigure)
		if !ok {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		err = s.mgr.ConfigurePinMode(p.Pin, p.Mode)
		touched = []int{p.Pin}

	case ctrlAssignZone:
		p, ok := msg.Payload.(types.ZoneAssign)
		if !ok {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		err = s.mgr.AssignPinToSubzone(p.Pin, p.Zone)
		touched = []int{p.Pin}

	case ctrlRemoveZone:
		p, ok := msg.Payload.(types.ZoneRemove)
		if !ok {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		err = s.mgr.RemovePinFromSubzone(p.Pin)
		touched = []int{p.Pin}

	case ctrlZoneSafeOn:
		p, ok := msg.Payload.(types.ZoneSafeMode)
		if !ok {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		err = s.mgr.EnableSafeModeForSubzone(p.Zone)
		touched = s.mgr.SubzonePins(p.Zone)

	case ctrlZoneSafeOff:
		p, ok := msg.Payload.(types.ZoneSafeMode)
		if !ok {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		err = s.mgr.DisableSafeModeForSubzone(p.Zone)
		touched = s.mgr.SubzonePins(p.Zone)

	case ctrlClearSafeMode:
		p, ok := msg.Payload.(types.ClearSafeMode)
		if !ok || p.Source == "" {
			// Exiting safe mode requires an identified caller.
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		println("Warn: global safe mode cleared by:", p.Source)
		s.mgr.DisableSafeModeForAllPins()

	case ctrlStatus:
		if len(msg.ReplyTo) > 0 {
			s.conn.Reply(msg, types.StatusReply{OK: true, Status: s.mgr.Status()}, false)
		}
		return

	case ctrlInfo:
		p, ok := msg.Payload.(types.PinQuery)
		if !ok {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		if len(msg.ReplyTo) > 0 {
			s.conn.Reply(msg, types.PinInfoReply{OK: true, Info: s.mgr.PinInfo(p.Pin)}, false)
		}
		return

	default:
		s.replyErr(msg, errcode.InvalidTopic)
		return
	}

	if err != nil {
		s.replyErr(msg, errcode.Of(err))
		return
	}
	for _, pin := range touched {
		s.publishPinInfo(pin)
	}
	s.publishSummary()
	if len(msg.ReplyTo) > 0 {
		s.conn.Reply(msg, types.Ack{OK: true}, false)
	}
}

// ---- retained documents ----

func (s *Service) publishPinInfo(pin int) {
	info := s.mgr.PinInfo(pin)
	s.conn.Publish(s.conn.NewMessage(bus.Topic{tokPins, tokPin, pin, tokInfo}, info, true))
}

func (s *Service) publishSummary() {
	s.conn.Publish(s.conn.NewMessage(topicState, s.mgr.Status(), true))
}

func (s *Service) replyErr(msg *bus.Message, code errcode.Code) {
	if len(msg.ReplyTo) == 0 {
		println("Warn: pins control failed:", fmtx.Sprint(code))
		return
	}
	s.conn.Reply(msg, types.ErrorReply{OK: false, Error: string(code)}, false)
}
