package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jayteealao/ht/internal/session"
)

type fakeEmulator struct{}

func (fakeEmulator) Write(p []byte)        {}
func (fakeEmulator) Resize(cols, rows int) {}
func (fakeEmulator) InitSeq() string       { return "" }
func (fakeEmulator) TextView() string      { return "" }

func TestBarrierSpawnsOnlyAfterReady(t *testing.T) {
	sess := session.New(80, 24, fakeEmulator{})
	task := &Task{
		Clients: make(chan *session.Client, 1),
		Ready:   make(chan struct{}),
		Done:    make(chan error, 1),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var recv *session.Receiver
	go func() {
		defer wg.Done()
		c := session.NewClient()
		task.Clients <- c
		recv = c.Wait()
		close(task.Ready)
	}()

	p, err := Barrier(context.Background(), sess, task, []string{"true"}, 80, 24, nil)
	wg.Wait()
	if err != nil {
		t.Fatalf("Barrier: %v", err)
	}
	if recv == nil {
		t.Fatal("task never received a Receiver")
	}
	if p.PID() != sess.PID() {
		t.Fatalf("sess.PID() = %d, want %d", sess.PID(), p.PID())
	}
	<-p.Exit
}

func TestBarrierReturnsTaskErrorBeforeReady(t *testing.T) {
	sess := session.New(80, 24, fakeEmulator{})
	wantErr := errors.New("recording target unavailable")
	task := &Task{
		Clients: make(chan *session.Client, 1),
		Ready:   make(chan struct{}),
		Done:    make(chan error, 1),
	}
	go func() {
		<-task.Clients
		task.Done <- wantErr
	}()

	_, err := Barrier(context.Background(), sess, task, []string{"true"}, 80, 24, nil)
	if err == nil || !errors.Is(err, wantErr) {
		t.Fatalf("Barrier error = %v, want wrapping %v", err, wantErr)
	}
}

func TestBarrierRespectsContextCancel(t *testing.T) {
	sess := session.New(80, 24, fakeEmulator{})
	task := &Task{
		Clients: make(chan *session.Client, 1),
		Ready:   make(chan struct{}),
		Done:    make(chan error, 1),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Barrier(ctx, sess, task, []string{"true"}, 80, 24, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Barrier error = %v, want context.DeadlineExceeded", err)
	}
}
