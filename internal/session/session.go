package session

import (
	"context"
	"time"
)

// Emulator is the terminal-emulator collaborator, concretely implemented
// by internal/vterm: it tracks screen state as output bytes flow through
// and can produce a byte sequence that reconstructs the screen (InitSeq)
// and a plain-text snapshot (TextView) on demand.
type Emulator interface {
	Write(p []byte)
	Resize(cols, rows int)
	InitSeq() string
	TextView() string
}

// Session is the single process-wide mutable owner: all of its methods
// are meant to be called from one goroutine (the event loop), so no
// internal locking guards cols/rows/pid/exited — only the Broadcaster,
// which is safe for concurrent Subscribe/Recv from other goroutines,
// needs its own synchronization.
type Session struct {
	cols, rows int
	pid        int
	start      time.Time
	cursorKeyAppMode bool

	emulator Emulator
	bc       *Broadcaster

	exited bool
}

// New creates a session with the given initial size and pid=0; PID is
// updated once the PTY spawns.
func New(cols, rows int, emulator Emulator) *Session {
	return &Session{
		cols:     cols,
		rows:     rows,
		start:    time.Now(),
		emulator: emulator,
		bc:       NewBroadcaster(),
	}
}

func (s *Session) elapsed() float64 {
	return time.Since(s.start).Seconds()
}

// SetPID is the once-only mutator used during startup.
func (s *Session) SetPID(pid int) {
	s.pid = pid
}

// SetCursorKeyAppMode records whether the child has switched into DECCKM
// application cursor-key mode, read through CursorKeyAppMode by
// internal/api's input translator (SeqsToBytes) to pick escape sequences
// for arrow keys.
func (s *Session) SetCursorKeyAppMode(on bool) {
	s.cursorKeyAppMode = on
}

func (s *Session) CursorKeyAppMode() bool {
	return s.cursorKeyAppMode
}

func (s *Session) Size() (cols, rows int) {
	return s.cols, s.rows
}

func (s *Session) PID() int {
	return s.pid
}

// Output publishes PTY-to-user bytes and feeds the terminal emulator so
// future Init snapshots reflect this output.
func (s *Session) Output(data string) {
	if s.exited {
		return
	}
	if s.emulator != nil {
		s.emulator.Write([]byte(data))
	}
	s.bc.Send(Event{Kind: KindOutput, Time: s.elapsed(), Data: data})
}

// Input publishes API-client-to-PTY bytes. Callers decide, per capture
// policy, whether this should also be forwarded to the PTY; that decision
// lives above the session (the event loop / API layer), not here.
func (s *Session) Input(data string) {
	if s.exited {
		return
	}
	s.bc.Send(Event{Kind: KindInput, Time: s.elapsed(), Data: data})
}

// Resize publishes a window-size change and updates the emulator.
func (s *Session) Resize(cols, rows int) {
	if s.exited {
		return
	}
	s.cols, s.rows = cols, rows
	if s.emulator != nil {
		s.emulator.Resize(cols, rows)
	}
	s.bc.Send(Event{Kind: KindResize, Time: s.elapsed(), Cols: cols, Rows: rows})
}

// Marker publishes a user-defined chapter label.
func (s *Session) Marker(label string) {
	if s.exited {
		return
	}
	s.bc.Send(Event{Kind: KindMarker, Time: s.elapsed(), Label: label})
}

// Snapshot publishes an on-demand text snapshot of the current screen.
func (s *Session) Snapshot() {
	if s.exited {
		return
	}
	text := ""
	if s.emulator != nil {
		text = s.emulator.TextView()
	}
	s.bc.Send(Event{Kind: KindSnapshot, Time: s.elapsed(), Cols: s.cols, Rows: s.rows, TextView: text})
}

// Exit publishes the child's termination status. After Exit, no further
// events are emitted and the broadcaster is closed so
// subscribers observe a clean end of stream.
func (s *Session) Exit(status int32) {
	if s.exited {
		return
	}
	s.bc.Send(Event{Kind: KindExit, Time: s.elapsed(), Status: status})
	s.exited = true
	s.bc.Close()
}

// Subscribe implements the late-joiner protocol: it synthesizes an Init
// event carrying the session's current state and
// snapshots the broadcaster's cursor position in a single call from the
// session's owning goroutine, so the returned Receiver's very next Recv
// sees exactly the first event broadcast after this call — no event can be
// sent by another goroutine in between, because Session methods (and thus
// Broadcaster.Send) only ever run on this same goroutine.
func (s *Session) Subscribe() *Receiver {
	r := s.bc.Subscribe()
	initSeq, textView := "", ""
	if s.emulator != nil {
		initSeq = s.emulator.InitSeq()
		textView = s.emulator.TextView()
	}
	r.pending = &Event{
		Kind:     KindInit,
		Time:     s.elapsed(),
		Cols:     s.cols,
		Rows:     s.rows,
		PID:      s.pid,
		InitSeq:  initSeq,
		TextView: textView,
	}
	return r
}

// Accept completes the two-step subscription handshake: the session
// owner calls this in response to a pending Client request.
func (s *Session) Accept(c *Client) {
	c.Accept(s.Subscribe())
}

// Stream is a convenience loop for a consumer that has already obtained a
// Receiver: it calls fn for every event until the receiver errors (lag is
// reported to fn via the error return, not swallowed — callers decide how
// to react, matching the "must not panic or close, must resume" contract
// a subscriber is held to).
func Stream(ctx context.Context, r *Receiver, fn func(Event, error) (cont bool)) {
	for {
		ev, err := r.Recv(ctx)
		if !fn(ev, err) {
			return
		}
		if err == ErrClosed || (ctx.Err() != nil && err == ctx.Err()) {
			return
		}
	}
}
