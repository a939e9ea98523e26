package ui

import (
	"io"
	"sync"
)

// Display renders the menu as text rows. The badge routes rows to the debug
// console; tests record them.
type Display interface {
	Show(rows []string)
}

// ConsoleDisplay writes each frame to w, one row per line, with a separator
// so frames are readable in a serial log.
type ConsoleDisplay struct {
	W io.Writer
}

func (d *ConsoleDisplay) Show(rows []string) {
	if d.W == nil {
		return
	}
	io.WriteString(d.W, "----\n")
	for _, r := range rows {
		io.WriteString(d.W, r)
		io.WriteString(d.W, "\n")
	}
}

// RecordingDisplay keeps the latest frame for assertions.
type RecordingDisplay struct {
	mu     sync.Mutex
	rows   []string
	frames int
}

func (d *RecordingDisplay) Show(rows []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rows = append(d.rows[:0], rows...)
	d.frames++
}

func (d *RecordingDisplay) Rows() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.rows))
	copy(out, d.rows)
	return out
}

func (d *RecordingDisplay) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}
