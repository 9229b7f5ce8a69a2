package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/jayteealao/ht/internal/eventloop"
	"github.com/jayteealao/ht/internal/logger"
	"github.com/jayteealao/ht/internal/session"
	"github.com/jayteealao/ht/internal/wire/asciicast"
)

// HTTPAPI serves the control API over HTTP/WebSocket: POST /input,
// /resize, /marker, /snapshot, and a WebSocket GET /events streaming the
// same asciicast-v3 line format the recorder writes.
type HTTPAPI struct {
	auth             *TokenAuth
	commands         chan<- eventloop.Command
	subscribe        func() *session.Receiver
	cursorKeyAppMode func() bool
}

// NewHTTP creates the HTTP API. subscribe is called once per /events
// connection to obtain a fresh Receiver via the session's subscription
// protocol.
func NewHTTP(auth *TokenAuth, commands chan<- eventloop.Command, subscribe func() *session.Receiver, cursorKeyAppMode func() bool) *HTTPAPI {
	return &HTTPAPI{auth: auth, commands: commands, subscribe: subscribe, cursorKeyAppMode: cursorKeyAppMode}
}

// Handler builds the HTTP mux for this API.
func (a *HTTPAPI) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /input", a.requireAuth(a.handleInput))
	mux.HandleFunc("POST /resize", a.requireAuth(a.handleResize))
	mux.HandleFunc("POST /marker", a.requireAuth(a.handleMarker))
	mux.HandleFunc("POST /snapshot", a.requireAuth(a.handleSnapshot))
	mux.HandleFunc("GET /events", a.requireAuth(a.handleEvents))
	return mux
}

func (a *HTTPAPI) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if bearer == "" || a.auth.Verify(bearer) != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (a *HTTPAPI) send(ctx context.Context, w http.ResponseWriter, cmd eventloop.Command) {
	select {
	case a.commands <- cmd:
		w.WriteHeader(http.StatusNoContent)
	case <-ctx.Done():
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
	case <-time.After(5 * time.Second):
		http.Error(w, "command queue full", http.StatusServiceUnavailable)
	}
}

func (a *HTTPAPI) handleInput(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Seqs []string `json:"seqs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	appMode := false
	if a.cursorKeyAppMode != nil {
		appMode = a.cursorKeyAppMode()
	}
	a.send(r.Context(), w, eventloop.Command{Kind: eventloop.CommandInput, Data: SeqsToBytes(body.Seqs, appMode)})
}

func (a *HTTPAPI) handleResize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Cols int `json:"cols"`
		Rows int `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	a.send(r.Context(), w, eventloop.Command{Kind: eventloop.CommandResize, Cols: body.Cols, Rows: body.Rows})
}

func (a *HTTPAPI) handleMarker(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	a.send(r.Context(), w, eventloop.Command{Kind: eventloop.CommandMarker, Label: body.Label})
}

func (a *HTTPAPI) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	a.send(r.Context(), w, eventloop.Command{Kind: eventloop.CommandSnapshot})
}

func (a *HTTPAPI) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Warn("events websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	recv := a.subscribe()

	var lastEvent time.Time
	haveLast := false
	for {
		ev, err := recv.Recv(ctx)
		if err == session.ErrClosed || ctx.Err() != nil {
			return
		}
		if _, ok := err.(*session.ErrLagged); ok {
			continue
		}
		if err != nil {
			logger.Warn("events stream error", "error", err)
			return
		}

		now := time.Now()
		var interval float64
		if haveLast {
			interval = now.Sub(lastEvent).Seconds()
		}
		lastEvent = now
		haveLast = true

		line, err := encodeAsciicastLine(ev, interval)
		if err != nil || line == nil {
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, line); err != nil {
			return
		}
	}
}

func encodeAsciicastLine(ev session.Event, interval float64) ([]byte, error) {
	switch ev.Kind {
	case session.KindInit:
		return asciicast.EncodeHeader(asciicast.Header{
			Term:      asciicast.TermInfo{Cols: ev.Cols, Rows: ev.Rows},
			Timestamp: time.Now().Unix(),
		})
	case session.KindOutput:
		return asciicast.EncodeEvent(interval, asciicast.CodeOutput, ev.Data)
	case session.KindInput:
		return asciicast.EncodeEvent(interval, asciicast.CodeInput, ev.Data)
	case session.KindResize:
		return asciicast.EncodeEvent(interval, asciicast.CodeResize, asciicast.ResizeData(ev.Cols, ev.Rows))
	case session.KindMarker:
		return asciicast.EncodeEvent(interval, asciicast.CodeMarker, ev.Label)
	case session.KindExit:
		return asciicast.EncodeExitEvent(interval, ev.Status)
	}
	return nil, nil
}
