package recording

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jayteealao/ht/internal/session"
)

// fakeClock advances by a fixed step on every call, giving deterministic,
// strictly-increasing timestamps without real sleeps.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	first := true
	return func() time.Time {
		if first {
			first = false
			return t
		}
		t = t.Add(step)
		return t
	}
}

func TestGoldenMinimalRecord(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.cast")

	rec, err := New(Config{OutputPath: out})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec.now = fakeClock(time.Unix(1700000000, 0), time.Second)

	if err := rec.handle(session.Event{Kind: session.KindInit, Cols: 80, Rows: 24}); err != nil {
		t.Fatalf("handle init: %v", err)
	}
	if err := rec.handle(session.Event{Kind: session.KindOutput, Data: "hello\n"}); err != nil {
		t.Fatalf("handle output: %v", err)
	}
	if err := rec.handle(session.Event{Kind: session.KindExit, Status: 0}); err != nil {
		t.Fatalf("handle exit: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := `{"version":3,"term":{"cols":80,"rows":24},"timestamp":1700000000}
[0,"o","hello\n"]
[1,"x",0]
`
	if string(got) != want {
		t.Errorf("recorded file =\n%s\nwant\n%s", got, want)
	}
}

func TestResizeThenMarker(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.cast")
	rec, err := New(Config{OutputPath: out})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec.now = fakeClock(time.Unix(0, 0), time.Second)

	rec.handle(session.Event{Kind: session.KindInit, Cols: 80, Rows: 24})
	rec.handle(session.Event{Kind: session.KindResize, Cols: 100, Rows: 30})
	rec.handle(session.Event{Kind: session.KindMarker, Label: "ch1"})
	rec.Close()

	got, _ := os.ReadFile(out)
	want := "{\"version\":3,\"term\":{\"cols\":80,\"rows\":24},\"timestamp\":0}\n" +
		"[0,\"r\",\"100x30\"]\n" +
		"[1,\"m\",\"ch1\"]\n"
	if string(got) != want {
		t.Errorf("recorded file =\n%s\nwant\n%s", got, want)
	}
}

func TestCaptureInputDisabledByDefault(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.cast")
	rec, err := New(Config{OutputPath: out})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec.now = fakeClock(time.Unix(0, 0), time.Second)

	rec.handle(session.Event{Kind: session.KindInit, Cols: 80, Rows: 24})
	rec.handle(session.Event{Kind: session.KindInput, Data: "ls\n"})
	rec.handle(session.Event{Kind: session.KindExit, Status: 0})

	got, _ := os.ReadFile(out)
	if strings.Contains(string(got), `"i"`) {
		t.Errorf("expected no input event in output, got:\n%s", got)
	}
}

func TestCaptureInputEnabled(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.cast")
	rec, err := New(Config{OutputPath: out, CaptureInput: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec.now = fakeClock(time.Unix(0, 0), time.Second)

	rec.handle(session.Event{Kind: session.KindInit, Cols: 80, Rows: 24})
	rec.handle(session.Event{Kind: session.KindInput, Data: "ls\n"})
	rec.Close()

	got, _ := os.ReadFile(out)
	if !strings.Contains(string(got), `"i","ls\n"`) {
		t.Errorf("expected input event in output, got:\n%s", got)
	}
}

func TestIdleTimeLimitClamp(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.cast")
	limit := 2.0
	rec, err := New(Config{OutputPath: out, IdleTimeLimit: &limit})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec.now = fakeClock(time.Unix(0, 0), 10*time.Second)

	rec.handle(session.Event{Kind: session.KindInit, Cols: 80, Rows: 24})
	rec.handle(session.Event{Kind: session.KindOutput, Data: "a"})
	rec.handle(session.Event{Kind: session.KindOutput, Data: "b"})
	rec.Close()

	got, _ := os.ReadFile(out)
	want := "{\"version\":3,\"term\":{\"cols\":80,\"rows\":24},\"timestamp\":0,\"idle_time_limit\":2}\n" +
		"[0,\"o\",\"a\"]\n" +
		"[2,\"o\",\"b\"]\n"
	if string(got) != want {
		t.Errorf("recorded file =\n%s\nwant\n%s", got, want)
	}
}

func TestAppendHeaderSuppression(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.cast")

	run := func() {
		rec, err := New(Config{OutputPath: out, Append: true})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		rec.now = fakeClock(time.Unix(0, 0), time.Second)
		rec.handle(session.Event{Kind: session.KindInit, Cols: 80, Rows: 24})
		rec.handle(session.Event{Kind: session.KindOutput, Data: "x"})
		rec.Close()
	}
	run()
	run()

	got, _ := os.ReadFile(out)
	headerCount := strings.Count(string(got), `"version":3`)
	if headerCount != 1 {
		t.Errorf("expected exactly one header line, got %d in:\n%s", headerCount, got)
	}
	eventCount := strings.Count(string(got), `"o","x"`)
	if eventCount != 2 {
		t.Errorf("expected two concatenated output events, got %d", eventCount)
	}
}

func TestNoInitAsOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.cast")
	rec, err := New(Config{OutputPath: out})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec.now = fakeClock(time.Unix(0, 0), time.Second)
	rec.handle(session.Event{Kind: session.KindInit, Cols: 80, Rows: 24, InitSeq: "\x1b[2J"})
	rec.Close()

	got, _ := os.ReadFile(out)
	if strings.Contains(string(got), "\x1b[2J") {
		t.Errorf("init_seq leaked into recording: %s", got)
	}
}

func TestRunDrainsSessionUntilClose(t *testing.T) {
	s := session.New(80, 24, nil)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.cast")
	rec, err := New(Config{OutputPath: out})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec.now = fakeClock(time.Unix(0, 0), time.Second)

	recv := s.Subscribe()
	done := make(chan error, 1)
	go func() { done <- rec.Run(context.Background(), recv) }()

	s.Output("hi\n")
	s.Exit(0)

	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	got, _ := os.ReadFile(out)
	if !strings.Contains(string(got), `"o","hi\n"`) {
		t.Errorf("expected output event, got:\n%s", got)
	}
	if !strings.Contains(string(got), `"x",0`) {
		t.Errorf("expected exit event, got:\n%s", got)
	}
}

