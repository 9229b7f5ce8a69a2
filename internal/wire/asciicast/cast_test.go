package asciicast

import (
	"encoding/json"
	"testing"
)

func TestHeaderMinimal(t *testing.T) {
	h := Header{Term: TermInfo{Cols: 80, Rows: 24}, Timestamp: 1700000000}
	got, err := EncodeHeader(h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"version":3,"term":{"cols":80,"rows":24},"timestamp":1700000000}`
	if string(got) != want {
		t.Errorf("EncodeHeader = %s, want %s", got, want)
	}
}

func TestHeaderWithThemeAndEnv(t *testing.T) {
	h := Header{
		Term: TermInfo{
			Cols: 80, Rows: 24, Type: "xterm-256color",
			Theme: &Theme{FG: "#ffffff", BG: "#000000"},
		},
		Timestamp: 1,
		Command:   "bash",
		Title:     "demo",
		Env:       map[string]string{"SHELL": "/bin/bash"},
	}
	got, err := EncodeHeader(h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var roundTrip map[string]interface{}
	if err := json.Unmarshal(got, &roundTrip); err != nil {
		t.Fatalf("produced invalid JSON: %v", err)
	}
	term := roundTrip["term"].(map[string]interface{})
	if term["type"] != "xterm-256color" {
		t.Errorf("term.type missing")
	}
	theme := term["theme"].(map[string]interface{})
	if theme["fg"] != "#ffffff" || theme["bg"] != "#000000" {
		t.Errorf("theme encoded wrong: %v", theme)
	}
	if _, ok := theme["palette"]; ok {
		t.Errorf("palette should be omitted when empty")
	}
}

func TestExitEventIsJSONNumber(t *testing.T) {
	got, err := EncodeExitEvent(1.5, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `[1.5,"x",0]`
	if string(got) != want {
		t.Errorf("EncodeExitEvent = %s, want %s", got, want)
	}

	gotNeg, err := EncodeExitEvent(0, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(gotNeg) != `[0,"x",-1]` {
		t.Errorf("EncodeExitEvent(negative) = %s", gotNeg)
	}
}

func TestOutputEventEncoding(t *testing.T) {
	got, err := EncodeEvent(0, CodeOutput, "hello\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `[0,"o","hello\n"]`
	if string(got) != want {
		t.Errorf("EncodeEvent = %s, want %s", got, want)
	}
}

func TestResizeData(t *testing.T) {
	if got := ResizeData(100, 30); got != "100x30" {
		t.Errorf("ResizeData = %s, want 100x30", got)
	}
}
