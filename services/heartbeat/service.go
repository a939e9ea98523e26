// Package heartbeat retains a periodic liveness report and mirrors it to the
// console while the logging setting is on.
package heartbeat

import (
	"context"
	"time"

	"stagecode-go/bus"
	"stagecode-go/types"
	"stagecode-go/x/timex"
)

var (
	topicConfig  = bus.T("config", "heartbeat")
	topicLogging = bus.T("settings", "value", "logging")
	topicBeat    = bus.T("heartbeat", "state")
)

type Service struct{}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfig)
	defer conn.Unsubscribe(cfgSub)
	logSub := conn.Subscribe(topicLogging)
	defer conn.Unsubscribe(logSub)

	started := time.Now()
	logging := true

	tick := time.NewTicker(10 * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("Info: heartbeat service stopping")
			return
		case <-tick.C:
			up := int64(time.Since(started) / time.Second)
			conn.Publish(&bus.Message{
				Topic:    topicBeat,
				Payload:  types.Heartbeat{UptimeS: up, TSms: timex.NowMs()},
				Retained: true,
			})
			if logging {
				println("Info: heartbeat, up", up, "s")
			}
		case msg := <-cfgSub.Channel():
			if m, ok := msg.Payload.(map[string]any); ok {
				if iv, ok := m["interval"].(float64); ok && iv > 0 {
					tick.Reset(time.Duration(iv * float64(time.Second)))
				}
			}
		case msg := <-logSub.Channel():
			if v, ok := msg.Payload.(types.SettingValue); ok {
				if b, ok := v.Value.(bool); ok {
					logging = b
				}
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
