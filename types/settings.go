package types

// ------------------------
// Settings store
// ------------------------

// SettingInfo is one row of the ordered settings list, as rendered by the
// settings menu. Values are ints except "logging", which is a bool.
type SettingInfo struct {
	Name    string `json:"name"`
	Value   any    `json:"value"`
	Default any    `json:"default"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Bool    bool   `json:"bool,omitempty"` // true for boolean settings
}

type SettingsGet struct {
	Name string `json:"name"`
}

type SettingsSet struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type SettingValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type SettingsList struct {
	Settings []SettingInfo `json:"settings"`
}
