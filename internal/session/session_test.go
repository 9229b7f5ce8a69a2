package session

import (
	"context"
	"testing"
	"time"
)

type fakeEmulator struct {
	initSeq, textView string
}

func (f *fakeEmulator) Write(p []byte)         {}
func (f *fakeEmulator) Resize(cols, rows int)  {}
func (f *fakeEmulator) InitSeq() string        { return f.initSeq }
func (f *fakeEmulator) TextView() string       { return f.textView }

func TestInitPrecedence(t *testing.T) {
	s := New(80, 24, &fakeEmulator{initSeq: "\x1b[2J", textView: "hi"})
	r := s.Subscribe()
	s.Output("hello\n")
	s.Exit(0)

	ctx := context.Background()
	ev, err := r.Recv(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != KindInit {
		t.Fatalf("first event kind = %v, want Init", ev.Kind)
	}
	if ev.InitSeq != "\x1b[2J" {
		t.Fatalf("InitSeq = %q", ev.InitSeq)
	}

	seenNonInit := false
	for {
		ev, err := r.Recv(ctx)
		if err == ErrClosed {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev.Kind == KindInit {
			t.Fatalf("observed a second Init event")
		}
		seenNonInit = true
	}
	if !seenNonInit {
		t.Fatalf("expected at least one non-Init event before close")
	}
}

func TestLateSubscriberGetsInitNotBacklog(t *testing.T) {
	s := New(80, 24, &fakeEmulator{initSeq: "seq2"})
	s.Output("one\n")
	s.Output("two\n")
	s.Output("three\n")

	r := s.Subscribe()
	ev, err := r.Recv(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != KindInit {
		t.Fatalf("got kind %v, want Init", ev.Kind)
	}
	if ev.InitSeq != "seq2" {
		t.Fatalf("InitSeq = %q, want current snapshot", ev.InitSeq)
	}
}

func TestMonotoneTimePerSubscriber(t *testing.T) {
	s := New(80, 24, nil)
	r := s.Subscribe()
	s.Output("a")
	time.Sleep(time.Millisecond)
	s.Output("b")
	s.Exit(0)

	ctx := context.Background()
	var last float64 = -1
	for {
		ev, err := r.Recv(ctx)
		if err == ErrClosed {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev.Time < last {
			t.Fatalf("time went backwards: %v after %v", ev.Time, last)
		}
		last = ev.Time
	}
}

func TestNoEventsAfterExit(t *testing.T) {
	s := New(80, 24, nil)
	r := s.Subscribe()
	s.Exit(0)
	s.Output("should be dropped")

	ctx := context.Background()
	r.Recv(ctx) // Init
	ev, err := r.Recv(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != KindExit {
		t.Fatalf("kind = %v, want Exit", ev.Kind)
	}
	if _, err := r.Recv(ctx); err != ErrClosed {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func TestSlowConsumerObservesLag(t *testing.T) {
	s := New(80, 24, nil)
	r := s.Subscribe()

	const n = 2000
	for i := 0; i < n; i++ {
		s.Output("x")
	}
	s.Exit(0)

	ctx := context.Background()
	r.Recv(ctx) // Init

	var observed, lagged uint64
	sawLag := false
	for {
		ev, err := r.Recv(ctx)
		if err == ErrClosed {
			break
		}
		if le, ok := err.(*ErrLagged); ok {
			lagged += le.N
			sawLag = true
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev.Kind == KindOutput {
			observed++
		} else if ev.Kind == KindExit {
			// exit counts toward total events sent too
			observed++
		}
	}
	if !sawLag {
		t.Fatalf("expected at least one Lagged notification")
	}
	if observed+lagged != n+1 { // +1 for Exit
		t.Fatalf("observed(%d)+lagged(%d) != %d", observed, lagged, n+1)
	}
}

func TestAcceptHandshake(t *testing.T) {
	s := New(80, 24, nil)
	c := NewClient()
	go s.Accept(c)
	r := c.Wait()
	ev, err := r.Recv(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != KindInit {
		t.Fatalf("kind = %v, want Init", ev.Kind)
	}
}
