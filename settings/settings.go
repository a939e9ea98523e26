// Package settings is the bounded key/value store behind the settings menu:
// a fixed, ordered registry of named values with per-key bounds and defaults,
// written through to a Persister on every accepted change.
package settings

import (
	"sync"

	"stagecode-go/errcode"
	"stagecode-go/types"
)

// Spec declares one setting. Bool settings ignore Min/Max.
type Spec struct {
	Name    string
	Default int
	Min     int
	Max     int
	Bool    bool
	BoolDef bool
}

// Stage geometry and travel ranges are in stepper pulses. The registry order
// is the menu order.
func StageSpecs() []Spec {
	return []Spec{
		{Name: "width", Default: 2000, Min: 10, Max: 100000},
		{Name: "height", Default: 3000, Min: 10, Max: 100000},
		{Name: "XRange", Default: 1940, Min: 10, Max: 100000},
		{Name: "YRange", Default: 3100, Min: 10, Max: 100000},
		{Name: "logging", Bool: true, BoolDef: true},
	}
}

// Store holds current values for a fixed set of specs. Safe for concurrent
// readers; writes are serialised internally.
type Store struct {
	mu    sync.Mutex
	specs []Spec
	byKey map[string]int // index into specs
	ints  map[string]int
	bools map[string]bool
	p     Persister
}

// NewStore seeds every value from its default, then overlays whatever the
// persister has, dropping persisted values that are out of bounds.
func NewStore(specs []Spec, p Persister) (*Store, error) {
	s := &Store{
		specs: specs,
		byKey: make(map[string]int, len(specs)),
		ints:  make(map[string]int, len(specs)),
		bools: make(map[string]bool, len(specs)),
		p:     p,
	}
	for i, sp := range specs {
		s.byKey[sp.Name] = i
		if sp.Bool {
			s.bools[sp.Name] = sp.BoolDef
		} else {
			s.ints[sp.Name] = sp.Default
		}
	}
	if p == nil {
		return s, nil
	}
	saved, err := p.Load()
	if err != nil {
		return s, &errcode.E{C: errcode.PersistFailed, Op: "settings.load", Err: err}
	}
	for name, v := range saved {
		i, ok := s.byKey[name]
		if !ok {
			continue // stale key from an older build
		}
		sp := specs[i]
		if sp.Bool {
			if b, ok := v.(bool); ok {
				s.bools[name] = b
			}
			continue
		}
		if n, ok := asInt(v); ok && n >= sp.Min && n <= sp.Max {
			s.ints[name] = n
		}
	}
	return s, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// Get returns the current value (int or bool).
func (s *Store) Get(name string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byKey[name]
	if !ok {
		return nil, errcode.UnknownSetting
	}
	if s.specs[i].Bool {
		return s.bools[name], nil
	}
	return s.ints[name], nil
}

// GetInt is Get for integer settings.
func (s *Store) GetInt(name string) (int, error) {
	v, err := s.Get(name)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int)
	if !ok {
		return 0, errcode.InvalidParams
	}
	return n, nil
}

// GetBool is Get for boolean settings.
func (s *Store) GetBool(name string) (bool, error) {
	v, err := s.Get(name)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, errcode.InvalidParams
	}
	return b, nil
}

// Set validates and stores a new value, then writes the whole store through
// to the persister. An out-of-bounds value is rejected and the prior value
// kept. A persist failure keeps the new value in memory and reports
// PersistFailed; the caller decides whether to surface it.
func (s *Store) Set(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byKey[name]
	if !ok {
		return errcode.UnknownSetting
	}
	sp := s.specs[i]
	if sp.Bool {
		b, ok := value.(bool)
		if !ok {
			return errcode.InvalidParams
		}
		s.bools[name] = b
		return s.persistLocked()
	}
	n, ok := asInt(value)
	if !ok {
		return errcode.InvalidParams
	}
	if n < sp.Min || n > sp.Max {
		return errcode.OutOfRange
	}
	s.ints[name] = n
	return s.persistLocked()
}

// Reset restores a setting to its declared default.
func (s *Store) Reset(name string) error {
	s.mu.Lock()
	i, ok := s.byKey[name]
	if !ok {
		s.mu.Unlock()
		return errcode.UnknownSetting
	}
	sp := s.specs[i]
	s.mu.Unlock()
	if sp.Bool {
		return s.Set(name, sp.BoolDef)
	}
	return s.Set(name, sp.Default)
}

// Bounds returns the declared min/max for an integer setting.
func (s *Store) Bounds(name string) (min, max int, err error) {
	i, ok := s.byKey[name]
	if !ok || s.specs[i].Bool {
		return 0, 0, errcode.UnknownSetting
	}
	return s.specs[i].Min, s.specs[i].Max, nil
}

// List snapshots every setting in registry order.
func (s *Store) List() []types.SettingInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.SettingInfo, 0, len(s.specs))
	for _, sp := range s.specs {
		info := types.SettingInfo{Name: sp.Name, Min: sp.Min, Max: sp.Max, Bool: sp.Bool}
		if sp.Bool {
			info.Value = s.bools[sp.Name]
			info.Default = sp.BoolDef
		} else {
			info.Value = s.ints[sp.Name]
			info.Default = sp.Default
		}
		out = append(out, info)
	}
	return out
}

// caller holds s.mu
func (s *Store) persistLocked() error {
	if s.p == nil {
		return nil
	}
	snap := make(map[string]any, len(s.specs))
	for _, sp := range s.specs {
		if sp.Bool {
			snap[sp.Name] = s.bools[sp.Name]
		} else {
			snap[sp.Name] = s.ints[sp.Name]
		}
	}
	if err := s.p.Save(snap); err != nil {
		return &errcode.E{C: errcode.PersistFailed, Op: "settings.save", Err: err}
	}
	return nil
}
