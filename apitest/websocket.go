package apitest

import (
	"context"
	"testing"
	"time"

	"github.com/bjaus/miniapi"
)

// waitTimeout bounds every blocking Session call so a broken handler fails
// the test instead of hanging it.
const waitTimeout = 2 * time.Second

// Session is an in-memory WebSocket peer connected to an App.
type Session struct {
	in   chan miniapi.Message
	out  chan miniapi.Message
	done chan error

	cancel context.CancelFunc
}

// Dial opens a WebSocket session on path. The App sees websocket.connect
// first; later frames are delivered with the Send methods.
func Dial(t testing.TB, app *miniapi.App, path string) *Session {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		in:     make(chan miniapi.Message, 16),
		out:    make(chan miniapi.Message, 16),
		done:   make(chan error, 1),
		cancel: cancel,
	}
	t.Cleanup(cancel)

	s.in <- miniapi.Message{Type: miniapi.MessageWebSocketConnect}

	scope := miniapi.Scope{Type: miniapi.ScopeWebSocket, Path: path}
	go func() {
		s.done <- app.Serve(ctx, scope, s.receive, s.send)
	}()
	return s
}

// SendText delivers a text frame to the App.
func (s *Session) SendText(text string) {
	s.in <- miniapi.Message{Type: miniapi.MessageWebSocketReceive, Text: &text}
}

// SendBytes delivers a binary frame to the App.
func (s *Session) SendBytes(data []byte) {
	s.in <- miniapi.Message{Type: miniapi.MessageWebSocketReceive, Bytes: data}
}

// Disconnect reports that the peer went away with code.
func (s *Session) Disconnect(code int) {
	s.in <- miniapi.Message{Type: miniapi.MessageWebSocketDisconnect, Code: code}
}

// Next returns the next message the App sent.
func (s *Session) Next(t testing.TB) miniapi.Message {
	t.Helper()
	select {
	case msg := <-s.out:
		return msg
	case <-time.After(waitTimeout):
		t.Fatalf("apitest: no websocket message within %s", waitTimeout)
		return miniapi.Message{}
	}
}

// Wait blocks until App.Serve returns and reports its error.
func (s *Session) Wait(t testing.TB) error {
	t.Helper()
	select {
	case err := <-s.done:
		return err
	case <-time.After(waitTimeout):
		t.Fatalf("apitest: websocket session did not finish within %s", waitTimeout)
		return nil
	}
}

func (s *Session) receive(ctx context.Context) (miniapi.Message, error) {
	select {
	case msg := <-s.in:
		return msg, nil
	case <-ctx.Done():
		return miniapi.Message{}, ctx.Err()
	}
}

func (s *Session) send(ctx context.Context, msg miniapi.Message) error {
	select {
	case s.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
