package settings

import (
	"errors"
	"os"
	"sort"
	"strconv"

	"github.com/andreyvit/tinyjson"
)

// Persister is the backing store for settings. Load runs once at start; Save
// runs on every accepted Set.
type Persister interface {
	Load() (map[string]any, error)
	Save(map[string]any) error
}

// ---- In-memory persister ----

// MemPersister keeps the snapshot in RAM. Used on targets without a writable
// filesystem and by tests.
type MemPersister struct {
	Values map[string]any
	Saves  int
	// FailSave forces the next Save to error, for exercising the
	// persist-failure path.
	FailSave error
}

func (m *MemPersister) Load() (map[string]any, error) {
	return m.Values, nil
}

func (m *MemPersister) Save(values map[string]any) error {
	if m.FailSave != nil {
		return m.FailSave
	}
	m.Saves++
	m.Values = values
	return nil
}

// ---- File persister ----

// FilePersister stores the snapshot as a flat JSON object at Path. A missing
// file is an empty store, not an error.
type FilePersister struct {
	Path string
}

func (f *FilePersister) Load() (map[string]any, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	r := tinyjson.Raw(raw)
	val := r.Value()
	r.EnsureEOF()
	m, ok := val.(map[string]any)
	if !ok {
		return nil, errors.New("settings file is not a JSON object")
	}
	return m, nil
}

func (f *FilePersister) Save(values map[string]any) error {
	return os.WriteFile(f.Path, encodeFlat(values), 0o644)
}

// encodeFlat writes a flat object of ints and bools with sorted keys so the
// file diffs cleanly between saves.
func encodeFlat(values map[string]any) []byte {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]byte, 0, 16*len(keys)+2)
	out = append(out, '{')
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendQuote(out, k)
		out = append(out, ':')
		switch v := values[k].(type) {
		case bool:
			out = strconv.AppendBool(out, v)
		case int:
			out = strconv.AppendInt(out, int64(v), 10)
		case int64:
			out = strconv.AppendInt(out, v, 10)
		case float64:
			out = strconv.AppendInt(out, int64(v), 10)
		default:
			out = append(out, "null"...)
		}
	}
	out = append(out, '}', '\n')
	return out
}
