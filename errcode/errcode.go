package errcode

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	InvalidTopic   Code = "invalid_topic"

	// Settings store
	OutOfRange     Code = "out_of_range"
	UnknownSetting Code = "unknown_setting"
	PersistFailed  Code = "persist_failed"

	// Stage / motion resources
	ResourceUnavailable Code = "resource_unavailable"
	NoFreeTimer         Code = "no_free_timer"
	UnknownPin          Code = "unknown_pin"
	PinInUse            Code = "pin_in_use"
	UnknownAxis         Code = "unknown_axis"
	NotReady            Code = "not_ready"
	Timeout             Code = "timeout"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// Is allows errors.Is matching against bare codes through an E wrapper.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}
