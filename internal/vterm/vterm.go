// Package vterm implements the terminal-emulator collaborator: given PTY
// output, it maintains screen state and produces an init sequence (an
// ANSI byte sequence that reconstructs the screen on a fresh terminal)
// and a text view (a plain-text snapshot) for every subscriber's Init
// event. Adapted from wingthing's internal/egg/vterm.go, which wraps the
// same charmbracelet/x/vt emulator for an unrelated multiplexer product;
// here it implements internal/session.Emulator instead of serving egg's
// reconnect payload.
package vterm

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/vt"
)

const maxScrollbackLines = 50000

// VTerm tracks terminal screen state fed by PTY output and answers the
// session.Emulator contract. Safe for concurrent use: every method takes
// the same mutex, so Write (fed by Session.Output) and InitSeq/TextView
// (read by Session.Subscribe and Session.Snapshot) may run on different
// goroutines.
type VTerm struct {
	emu        *vt.Emulator
	scrollback []string
	sbHead     int
	sbLen      int

	mu           sync.Mutex
	altScreen    bool
	cursorHidden bool
	cols, rows   int
}

// New creates a VTerm with the given dimensions.
func New(cols, rows int) *VTerm {
	v := &VTerm{
		emu:        vt.NewEmulator(cols, rows),
		scrollback: make([]string, maxScrollbackLines),
		cols:       cols,
		rows:       rows,
	}
	v.emu.SetCallbacks(vt.Callbacks{
		ScrollOut: func(lines []uv.Line) {
			if v.altScreen {
				return
			}
			for _, line := range lines {
				rendered := line.Render()
				if v.sbLen == len(v.scrollback) {
					v.scrollback[v.sbHead] = ""
				}
				v.scrollback[v.sbHead] = rendered
				v.sbHead = (v.sbHead + 1) % len(v.scrollback)
				if v.sbLen < len(v.scrollback) {
					v.sbLen++
				}
			}
		},
		ScrollbackClear: func() {
			for i := range v.scrollback {
				v.scrollback[i] = ""
			}
			v.sbLen = 0
			v.sbHead = 0
		},
		AltScreen: func(on bool) {
			v.altScreen = on
		},
		CursorVisibility: func(visible bool) {
			v.cursorHidden = !visible
		},
	})
	return v
}

// Write feeds PTY output into the emulator, satisfying session.Emulator.
func (v *VTerm) Write(p []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.emu.Write(p)
}

// Resize changes the terminal dimensions, satisfying session.Emulator.
func (v *VTerm) Resize(cols, rows int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.emu.Resize(cols, rows)
	v.cols = cols
	v.rows = rows
}

// InitSeq renders scrollback, a style reset, the current grid, and cursor
// position/visibility restore as one ANSI byte sequence — replaying it
// into a fresh terminal reproduces the current screen exactly. This is
// the emulator's init sequence.
func (v *VTerm) InitSeq() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	var buf strings.Builder

	lines := v.scrollbackLinesLocked()
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteString("\r\n")
	}
	if len(lines) > 0 {
		for i := 0; i < v.rows-1; i++ {
			buf.WriteByte('\n')
		}
	}

	buf.WriteString("\x1b[m\x1b[H")
	buf.WriteString(v.emu.Render())

	pos := v.emu.CursorPosition()
	fmt.Fprintf(&buf, "\x1b[%d;%dH", pos.Y+1, pos.X+1)

	if v.cursorHidden {
		buf.WriteString("\x1b[?25l")
	} else {
		buf.WriteString("\x1b[?25h")
	}

	return buf.String()
}

// TextView strips the ANSI styling from the same screen content InitSeq
// renders, for non-rendering consumers.
func (v *VTerm) TextView() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	var buf strings.Builder
	lines := v.scrollbackLinesLocked()
	for _, line := range lines {
		buf.WriteString(ansi.Strip(line))
		buf.WriteByte('\n')
	}
	buf.WriteString(ansi.Strip(v.emu.Render()))
	return buf.String()
}

// ScrollbackLen returns the number of scrollback lines currently stored.
func (v *VTerm) ScrollbackLen() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sbLen
}

// Close releases the emulator's resources.
func (v *VTerm) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.emu.Close()
}

// scrollbackLinesLocked returns all scrollback lines oldest-first. Caller
// must hold mu.
func (v *VTerm) scrollbackLinesLocked() []string {
	if v.sbLen == 0 {
		return nil
	}
	lines := make([]string, v.sbLen)
	start := (v.sbHead - v.sbLen + len(v.scrollback)) % len(v.scrollback)
	for i := 0; i < v.sbLen; i++ {
		lines[i] = v.scrollback[(start+i)%len(v.scrollback)]
	}
	return lines
}
