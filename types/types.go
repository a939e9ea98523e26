package types

// ------------------------
// Common service state (retained)
// ------------------------

type ServiceState struct {
	Level  string `json:"level"`  // "idle", "ready", "error", "stopped"
	Status string `json:"status"` // freeform short code
	Error  string `json:"error,omitempty"`
	TSms   int64  `json:"ts_ms"`
}

// Heartbeat is the retained liveness report.
type Heartbeat struct {
	UptimeS int64 `json:"uptime_s"`
	TSms    int64 `json:"ts_ms"`
}

// ------------------------
// Generic replies
// ------------------------

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
