package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Auto-one-Family/Automation-One-sub017/bus"
	"github.com/Auto-one-Family/Automation-One-sub017/types"
	"github.com/Auto-one-Family/Automation-One-sub017/x/mathx"
	"github.com/Auto-one-Family/Automation-One-sub017/x/timex"
)

var (
	topicConfig = bus.Topic{"config", "telemetry"}
	topicState  = bus.Topic{"pins", "state"}
	topicOut    = bus.Topic{"telemetry", "pins"}
)

const (
	defaultIntervalS = 5
	minIntervalS     = 1
	maxIntervalS     = 300
)

// Service periodically republishes the pin manager's retained status as a
// telemetry frame with a boot ID and sequence counter. It only listens on
// the bus, so it works the same whether the status comes from the real
// manager or a test publisher.
type Service struct {
	bootID  string
	started int64
	seq     uint32
}

func NewService() *Service {
	return &Service{
		bootID:  uuid.NewString(),
		started: timex.NowMs(),
	}
}

// BootID is stable for the life of the process.
func (s *Service) BootID() string { return s.bootID }

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfig)
	stateSub := conn.Subscribe(topicState)
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(stateSub)

	tick := time.NewTicker(defaultIntervalS * time.Second)
	defer tick.Stop()

	var latest types.PinsStatus
	var have bool

	for {
		select {
		case <-ctx.Done():
			println("Info: telemetry service stopping")
			return

		case <-tick.C:
			if !have {
				continue
			}
			s.seq++
			conn.Publish(conn.NewMessage(topicOut, types.TelemetrySnapshot{
				BootID:   s.bootID,
				Seq:      s.seq,
				UptimeMs: timex.NowMs() - s.started,
				Pins:     latest,
			}, true))

		case msg := <-stateSub.Channel():
			if st, ok := msg.Payload.(types.PinsStatus); ok {
				latest = st
				have = true
			}

		case msg := <-cfgSub.Channel():
			if iv, ok := intervalFrom(msg.Payload); ok {
				iv = mathx.Clamp(iv, minIntervalS, maxIntervalS)
				tick.Reset(time.Duration(iv) * time.Second)
				println("Info: telemetry interval set to", iv, "seconds")
			}
		}
	}
}

// intervalFrom accepts either the typed config document or the generic map
// the embedded-JSON publisher produces.
func intervalFrom(payload any) (int, bool) {
	switch v := payload.(type) {
	case types.TelemetryConfig:
		return v.IntervalS, v.IntervalS > 0
	case map[string]any:
		raw, ok := v["interval"]
		if !ok {
			raw, ok = v["interval_s"]
		}
		if !ok {
			return 0, false
		}
		switch n := raw.(type) {
		case float64:
			return int(n), n > 0
		case int:
			return n, n > 0
		case int64:
			return int(n), n > 0
		}
	}
	return 0, false
}

// Start launches the telemetry loop.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
