package config

import (
	"context"
	"errors"

	"stagecode-go/bus"

	"github.com/andreyvit/tinyjson"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxBoardKey  = "board" // context key used for board ID
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

// Service reads the board's embedded config blob and publishes each top-level
// key as a retained message on config/<key>. Services pick up their section on
// subscribe, whether they start before or after this one.
type Service struct {
	Name string
}

func NewService() *Service {
	return &Service{Name: serviceName}
}

func (s *Service) publishConfig(ctx context.Context, conn *bus.Connection) error {
	board, _ := ctx.Value(CtxBoardKey).(string)
	if board == "" {
		return errors.New("missing board ID in context")
	}

	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return errors.New("no embedded config for board: " + board)
	}

	r := tinyjson.Raw(raw)
	val := r.Value() // should be a map[string]any
	r.EnsureEOF()

	m, ok := val.(map[string]any)
	if !ok {
		return errors.New("embedded config is not a JSON object")
	}

	for k, v := range m {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  v,
			Retained: true,
		})
	}

	return nil
}

// Start launches the config publisher in a goroutine.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("Error: config:", err.Error())
		}
	}()
}
