package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: board ID (same value placed in ctx under CtxBoardKey)
// Val: raw JSON bytes for that board
// -----------------------------------------------------------------------------

// The badge board: stage tick rate and UI timing knobs. Pin numbers stay in
// the provider; only schedule-level values belong here.
const cfgBadge = `{
  "stage": {
      "tick_hz": 200,
      "max_pulses_per_tick": 8,
      "idle_timeout_s": 120
  },
  "ui": {
      "repeat_start_ms": 400,
      "repeat_min_ms": 25
  },
  "heartbeat": {
      "interval": 10
  }
}`

// The host simulator runs the same schedule with a faster heartbeat so the
// console shows signs of life quickly.
const cfgSim = `{
  "stage": {
      "tick_hz": 200,
      "max_pulses_per_tick": 8,
      "idle_timeout_s": 120
  },
  "ui": {
      "repeat_start_ms": 400,
      "repeat_min_ms": 25
  },
  "heartbeat": {
      "interval": 2
  }
}`

var embeddedConfigs = map[string][]byte{
	"badge": []byte(cfgBadge),
	"sim":   []byte(cfgSim),
}
