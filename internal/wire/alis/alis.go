// Package alis implements the ALiS v1 binary wire format:
// LEB128-encoded integers and length-prefixed strings packed into typed,
// one-byte-tagged event frames. Every function here is a pure,
// side-effect-free transform from values to bytes — per-stream state
// (ids, timers) is the caller's responsibility (internal/streaming), not
// this package's, so these encoders stay independently testable.
package alis

import (
	"fmt"
	"strconv"
	"strings"
)

// Magic is the 5-byte frame sent once at the start of an ALiS connection.
var Magic = []byte{'A', 'L', 'i', 'S', 0x01}

type EventType byte

const (
	TypeInit   EventType = 0x01
	TypeEOT    EventType = 0x04
	TypeOutput EventType = 0x6F // 'o'
	TypeInput  EventType = 0x69 // 'i'
	TypeResize EventType = 0x72 // 'r'
	TypeMarker EventType = 0x6D // 'm'
	TypeExit   EventType = 0x78 // 'x'
)

type ThemeFormat byte

const (
	ThemeNone     ThemeFormat = 0x00
	ThemePalette8 ThemeFormat = 0x08
	ThemePalette16 ThemeFormat = 0x10
)

// Theme carries the foreground/background colors and an optional palette
// (8 or 16 entries; fewer are padded with black on encode).
type Theme struct {
	FG, BG  string
	Palette []string
}

// EncodeLEB128 encodes v as unsigned LEB128: 7 data bits per byte,
// least-significant group first, continuation bit 0x80 set on every byte
// but the last.
func EncodeLEB128(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

// EncodeString encodes s as LEB128(len) followed by its UTF-8 bytes.
func EncodeString(s string) []byte {
	b := []byte(s)
	out := EncodeLEB128(uint64(len(b)))
	return append(out, b...)
}

// ParseColor parses a "#RRGGBB" string (case-insensitive hex) into an RGB
// triple. Malformed input is an error.
func ParseColor(color string) ([3]byte, error) {
	var rgb [3]byte
	hex := strings.TrimPrefix(color, "#")
	if len(hex) != 6 {
		return rgb, fmt.Errorf("invalid color format: %s", color)
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return rgb, fmt.Errorf("invalid color format: %s", color)
		}
		rgb[i] = byte(v)
	}
	return rgb, nil
}

// EncodeTheme encodes theme: no theme is a lone 0x00 byte; 8 or 16
// palette entries select the corresponding format byte, followed by fg,
// bg, then exactly that many RGB triples (missing entries padded with
// black).
func EncodeTheme(theme *Theme) ([]byte, error) {
	if theme == nil {
		return []byte{byte(ThemeNone)}, nil
	}

	format := ThemePalette8
	size := 8
	if len(theme.Palette) > 8 {
		format = ThemePalette16
		size = 16
	}

	fg, err := ParseColor(theme.FG)
	if err != nil {
		return nil, err
	}
	bg, err := ParseColor(theme.BG)
	if err != nil {
		return nil, err
	}

	out := []byte{byte(format)}
	out = append(out, fg[:]...)
	out = append(out, bg[:]...)
	for i := 0; i < size; i++ {
		if i < len(theme.Palette) {
			rgb, err := ParseColor(theme.Palette[i])
			if err != nil {
				return nil, err
			}
			out = append(out, rgb[:]...)
		} else {
			out = append(out, 0, 0, 0)
		}
	}
	return out, nil
}

// EncodeInit builds an Init frame. lastID is the resume cursor carried in
// the id slot (0 for a fresh session); rel_time is always 0 for Init.
func EncodeInit(lastID uint64, cols, rows int, theme *Theme, initSeq string) ([]byte, error) {
	themeBytes, err := EncodeTheme(theme)
	if err != nil {
		return nil, err
	}
	out := []byte{byte(TypeInit)}
	out = append(out, EncodeLEB128(lastID)...)
	out = append(out, EncodeLEB128(0)...)
	out = append(out, EncodeLEB128(uint64(cols))...)
	out = append(out, EncodeLEB128(uint64(rows))...)
	out = append(out, themeBytes...)
	out = append(out, EncodeString(initSeq)...)
	return out, nil
}

// EncodeOutput builds an Output frame.
func EncodeOutput(id, relTimeMicros uint64, data string) []byte {
	return encodeStringFrame(TypeOutput, id, relTimeMicros, data)
}

// EncodeInput builds an Input frame.
func EncodeInput(id, relTimeMicros uint64, data string) []byte {
	return encodeStringFrame(TypeInput, id, relTimeMicros, data)
}

func encodeStringFrame(t EventType, id, relTimeMicros uint64, data string) []byte {
	out := []byte{byte(t)}
	out = append(out, EncodeLEB128(id)...)
	out = append(out, EncodeLEB128(relTimeMicros)...)
	out = append(out, EncodeString(data)...)
	return out
}

// EncodeResize builds a Resize frame: no string payload, just the new
// dimensions.
func EncodeResize(id, relTimeMicros uint64, cols, rows int) []byte {
	out := []byte{byte(TypeResize)}
	out = append(out, EncodeLEB128(id)...)
	out = append(out, EncodeLEB128(relTimeMicros)...)
	out = append(out, EncodeLEB128(uint64(cols))...)
	out = append(out, EncodeLEB128(uint64(rows))...)
	return out
}

// EncodeMarker builds a Marker frame.
func EncodeMarker(id, relTimeMicros uint64, label string) []byte {
	return encodeStringFrame(TypeMarker, id, relTimeMicros, label)
}

// EncodeExit builds an Exit frame. status is reinterpreted as an unsigned
// 64-bit value by sign-extending to 64 bits first (matching the source's
// `status as u64` cast on an i32: negative values become the bit pattern
// of their 64-bit sign extension, not their 32-bit zero extension).
func EncodeExit(id, relTimeMicros uint64, status int32) []byte {
	out := []byte{byte(TypeExit)}
	out = append(out, EncodeLEB128(id)...)
	out = append(out, EncodeLEB128(relTimeMicros)...)
	out = append(out, EncodeLEB128(uint64(int64(status)))...)
	return out
}

// EncodeEOT builds an end-of-transmission frame: type + id + rel_time,
// with no further payload.
func EncodeEOT(id, relTimeMicros uint64) []byte {
	out := []byte{byte(TypeEOT)}
	out = append(out, EncodeLEB128(id)...)
	out = append(out, EncodeLEB128(relTimeMicros)...)
	return out
}
