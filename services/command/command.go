// services/command/command.go
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Auto-one-Family/Automation-One-sub017/bus"
	"github.com/Auto-one-Family/Automation-One-sub017/services/command/frame"
	"github.com/Auto-one-Family/Automation-One-sub017/types"
)

// -----------------------------------------------------------------------------
// Public entry point
// -----------------------------------------------------------------------------

// Start runs the command service. It blocks until ctx is cancelled.
// It listens for config on topic {"config","command"} and (re)opens the
// serial command link; frames arriving on the link are routed to the pin
// manager over the local bus.
func Start(ctx context.Context, conn *bus.Connection) {
	s := &Service{
		conn:       conn,
		stateTopic: bus.Topic{"command", "state"},
	}
	s.run(ctx)
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config is the document expected on "config/command".
type Config struct {
	Transport TransportConfig `json:"transport"`
}

type TransportConfig struct {
	// "uart" (provided here) or other names registered via RegisterTransport.
	Type string      `json:"type"`
	UART *UARTConfig `json:"uart,omitempty"`
}

// UARTConfig carries enough information for an injected dialler to open the
// UART. Pin mapping and UART instance selection happen in UARTDial.
type UARTConfig struct {
	Baud  int `json:"baud"`
	RxPin int `json:"rx_pin"`
	TxPin int `json:"tx_pin"`
}

// -----------------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------------

type Service struct {
	conn       *bus.Connection
	stateTopic bus.Topic

	mu     sync.Mutex
	curRun context.CancelFunc
}

func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.Topic{"config", "command"})
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState("error", "config_subscription_closed", nil)
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg Config) {
	s.mu.Lock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()

	go s.runLink(ctx, cfg)
}

// -----------------------------------------------------------------------------
// Link supervision
// -----------------------------------------------------------------------------

func (s *Service) runLink(ctx context.Context, cfg Config) {
	tr, err := newTransport(cfg.Transport)
	if err != nil {
		s.publishState("error", "transport_init_failed", err)
		return
	}

	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rwc, err := tr.Open(ctx)
		if err != nil {
			delay := backoff()
			s.publishState("degraded", "dial_failed_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		s.publishState("up", "link_established", nil)
		if err := s.handleLink(ctx, rwc); err != nil {
			_ = rwc.Close()
			delay := backoff()
			s.publishState("degraded", "link_lost_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		// Clean close: restart only on new config.
		return
	}
}

// handleLink owns the active link lifetime: a reader goroutine decodes
// incoming frames and hands them to dispatch; this goroutine serialises all
// writes and sends the keepalive ping.
func (s *Service) handleLink(ctx context.Context, rwc io.ReadWriteCloser) error {
	rd := frame.NewReader(rwc)
	wr := frame.NewWriter(rwc)

	type inbound struct {
		f   frame.Frame
		err error
	}
	inCh := make(chan inbound, 4)
	go func() {
		defer close(inCh)
		for {
			f, err := rd.ReadFrame()
			inCh <- inbound{f: f, err: err}
			if err != nil {
				return
			}
		}
	}()

	tick := time.NewTicker(5 * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = wr.WriteFrame(frame.Frame{Type: frame.Close})
			return nil
		case in := <-inCh:
			if in.err != nil {
				return in.err
			}
			if in.f.Type == frame.Close {
				return nil
			}
			rep, err := s.dispatch(ctx, in.f)
			if err != nil {
				rep, _ = frame.Encode(frame.Result, frame.ResultRep{OK: false, Error: err.Error()})
			}
			if rep.Type != 0 {
				if err := wr.WriteFrame(rep); err != nil {
					return err
				}
			}
		case <-tick.C:
			if err := wr.WriteFrame(frame.Frame{Type: frame.Ping}); err != nil {
				return err
			}
		}
	}
}

// dispatch translates one inbound frame into bus traffic and builds the
// reply frame. A zero-type reply means no reply is sent.
func (s *Service) dispatch(ctx context.Context, f frame.Frame) (frame.Frame, error) {
	switch f.Type {
	case frame.Ping:
		return frame.Frame{Type: frame.Pong}, nil
	case frame.Pong:
		return frame.Frame{}, nil

	case frame.Estop:
		var cmd frame.EstopCmd
		if err := frame.Decode(f, &cmd); err != nil {
			return frame.Frame{}, err
		}
		// The stop itself is fire-and-forget: the pin manager acts on the
		// publish, the ack below confirms only that it was delivered.
		reply, err := s.requestWait(ctx, bus.Topic{"system", "estop"},
			types.EstopCommand{Reason: cmd.Reason, Source: cmd.Source})
		if err != nil {
			return frame.Frame{}, err
		}
		return resultFrom(reply)

	case frame.ZoneSafe:
		var cmd frame.ZoneSafeCmd
		if err := frame.Decode(f, &cmd); err != nil {
			return frame.Frame{}, err
		}
		verb := "zone_safe_off"
		if cmd.Enable {
			verb = "zone_safe_on"
		}
		reply, err := s.requestWait(ctx, bus.Topic{"pins", "control", verb},
			types.ZoneSafeMode{Zone: cmd.Zone})
		if err != nil {
			return frame.Frame{}, err
		}
		return resultFrom(reply)

	case frame.ClearSafe:
		var cmd frame.ClearSafeCmd
		if err := frame.Decode(f, &cmd); err != nil {
			return frame.Frame{}, err
		}
		reply, err := s.requestWait(ctx, bus.Topic{"pins", "control", "clear_safe_mode"},
			types.ClearSafeMode{Source: cmd.Source})
		if err != nil {
			return frame.Frame{}, err
		}
		return resultFrom(reply)

	case frame.StatusReq:
		reply, err := s.requestWait(ctx, bus.Topic{"pins", "control", "status"}, nil)
		if err != nil {
			return frame.Frame{}, err
		}
		st, ok := reply.Payload.(types.StatusReply)
		if !ok {
			return frame.Frame{}, errors.New("unexpected status payload")
		}
		return frame.Encode(frame.StatusRep, st.Status)

	default:
		return frame.Encode(frame.Result, frame.ResultRep{OK: false, Error: "unknown_frame"})
	}
}

func (s *Service) requestWait(ctx context.Context, topic bus.Topic, payload any) (*bus.Message, error) {
	rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.conn.RequestWait(rctx, s.conn.NewMessage(topic, payload, false))
}

func resultFrom(reply *bus.Message) (frame.Frame, error) {
	switch p := reply.Payload.(type) {
	case types.Ack:
		return frame.Encode(frame.Result, frame.ResultRep{OK: p.OK})
	case types.ErrorReply:
		return frame.Encode(frame.Result, frame.ResultRep{OK: false, Error: p.Error})
	default:
		return frame.Frame{}, fmt.Errorf("unexpected reply payload %T", reply.Payload)
	}
}

// -----------------------------------------------------------------------------
// Transport registry
// -----------------------------------------------------------------------------

// Transport is a pluggable link dialler/owner.
type Transport interface {
	Open(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

type transportFactory func(TransportConfig) (Transport, error)

var (
	regMu     sync.RWMutex
	registry  = map[string]transportFactory{}
	errNoDial = errors.New("UARTDial not implemented")
)

// RegisterTransport allows external packages to add transports (eg. "tcp").
func RegisterTransport(name string, f transportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

func newTransport(cfg TransportConfig) (Transport, error) {
	regMu.RLock()
	f, ok := registry[cfg.Type]
	regMu.RUnlock()
	if ok {
		return f(cfg)
	}
	switch cfg.Type {
	case "uart":
		return newUARTTransport(cfg)
	default:
		return nil, fmt.Errorf("unknown transport type: %q", cfg.Type)
	}
}

// UARTDial is injected by platform code (see uart_esp32.go, or a test).
// It must open and return an io.ReadWriteCloser over the configured UART.
var UARTDial func(ctx context.Context, u UARTConfig) (io.ReadWriteCloser, error)

type uartTransport struct {
	cfg TransportConfig
}

func newUARTTransport(cfg TransportConfig) (Transport, error) {
	if cfg.UART == nil {
		return nil, errors.New("uart transport requires uart config")
	}
	return &uartTransport{cfg: cfg}, nil
}

func (u *uartTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	if UARTDial == nil {
		return nil, errNoDial
	}
	return UARTDial(ctx, *u.cfg.UART)
}

func (u *uartTransport) String() string { return "uart" }

// -----------------------------------------------------------------------------
// Utilities
// -----------------------------------------------------------------------------

func decodeConfig(p any) (Config, error) {
	var cfg Config
	m, ok := p.(map[string]any)
	if !ok {
		return cfg, fmt.Errorf("unsupported config payload type: %T", p)
	}
	// Flat shorthand: {"baud": 115200} means UART with defaults.
	if tr, ok := m["transport"].(map[string]any); ok {
		cfg.Transport.Type, _ = tr["type"].(string)
		if u, ok := tr["uart"].(map[string]any); ok {
			cfg.Transport.UART = uartFrom(u)
		}
		return cfg, nil
	}
	if _, ok := m["baud"]; ok {
		cfg.Transport.Type = "uart"
		cfg.Transport.UART = uartFrom(m)
		return cfg, nil
	}
	return cfg, errors.New("config missing transport section")
}

func uartFrom(m map[string]any) *UARTConfig {
	u := &UARTConfig{}
	u.Baud = intField(m, "baud")
	u.RxPin = intField(m, "rx_pin")
	u.TxPin = intField(m, "tx_pin")
	return u
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func (s *Service) publishState(level, status string, err error) {
	payload := map[string]any{
		"level":  level,  // "up", "degraded", "error", "idle"
		"status": status, // short machine string
		"ts_ms":  time.Now().UnixMilli(),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(s.stateTopic, payload, true))
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	var cur = min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
