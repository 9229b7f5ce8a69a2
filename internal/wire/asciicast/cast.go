// Package asciicast encodes the asciicast v3 line format: a JSON header
// object on the first line, followed by one JSON array
// `[interval, code, data]` per event. Both the file recorder
// (internal/recording) and the live v3-over-WebSocket streamer
// (internal/streaming) share these encoders so the two targets stay
// byte-for-byte consistent.
package asciicast

import (
	"encoding/json"
	"fmt"
)

// Theme is the header's optional term.theme object.
type Theme struct {
	FG      string   `json:"fg"`
	BG      string   `json:"bg"`
	Palette []string `json:"palette,omitempty"`
}

// Header is the first line of an asciicast v3 recording.
type Header struct {
	Version   int               `json:"version"`
	Term      TermInfo          `json:"term"`
	Timestamp int64             `json:"timestamp"`
	IdleLimit *float64          `json:"idle_time_limit,omitempty"`
	Command   string            `json:"command,omitempty"`
	Title     string            `json:"title,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

// TermInfo is the header's term object.
type TermInfo struct {
	Cols  int    `json:"cols"`
	Rows  int    `json:"rows"`
	Type  string `json:"type,omitempty"`
	Theme *Theme `json:"theme,omitempty"`
}

// EncodeHeader marshals h as a single line (without trailing newline).
func EncodeHeader(h Header) ([]byte, error) {
	h.Version = 3
	return json.Marshal(h)
}

// Code is the one-letter event discriminator used in event lines.
type Code string

const (
	CodeOutput Code = "o"
	CodeInput  Code = "i"
	CodeResize Code = "r"
	CodeMarker Code = "m"
	CodeExit   Code = "x"
)

// EncodeEvent marshals a `[interval, code, data]` line where data is a
// JSON string, for every code except exit.
func EncodeEvent(interval float64, code Code, data string) ([]byte, error) {
	return json.Marshal([3]interface{}{interval, string(code), data})
}

// EncodeExitEvent marshals the exit event with status as a bare JSON
// number. The original recorder this format is modeled on stringifies
// status in its live-streaming path; this module deliberately does not
// replicate that inconsistency (see DESIGN.md).
func EncodeExitEvent(interval float64, status int32) ([]byte, error) {
	return json.Marshal([3]interface{}{interval, string(CodeExit), status})
}

// ResizeData formats a resize event's payload as "{cols}x{rows}".
func ResizeData(cols, rows int) string {
	return fmt.Sprintf("%dx%d", cols, rows)
}
