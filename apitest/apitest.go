// Package apitest provides test helpers for miniapi applications: an
// in-memory transport for driving App.Serve directly, a WebSocket session
// fake, and a typed client over a real httptest server.
package apitest

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bjaus/miniapi"
)

// Exchange describes one in-memory HTTP exchange.
type Exchange struct {
	Method  string
	Path    string
	Query   string
	Headers map[string]string

	// Body is delivered as a single http.request message. Chunks, when set,
	// takes precedence and delivers one message per chunk.
	Body   []byte
	Chunks [][]byte

	// Disconnect delivers http.disconnect after the given number of chunks.
	Disconnect      bool
	DisconnectAfter int
}

// Recorded is what the App sent back for an Exchange.
type Recorded struct {
	Status  int
	Headers []miniapi.HeaderPair
	Body    []byte

	// Sent holds every message in the order it was sent.
	Sent []miniapi.Message
	// Err is the error App.Serve returned.
	Err error
}

// Header returns the first value sent for name, matched case-insensitively.
func (r *Recorded) Header(name string) string {
	for _, hp := range r.Headers {
		if strings.EqualFold(string(hp.Name), name) {
			return string(hp.Value)
		}
	}
	return ""
}

// HeaderValues returns every value sent for name in order.
func (r *Recorded) HeaderValues(name string) []string {
	var out []string
	for _, hp := range r.Headers {
		if strings.EqualFold(string(hp.Name), name) {
			out = append(out, string(hp.Value))
		}
	}
	return out
}

// Decode unmarshals the recorded body into a T.
func Decode[T any](t testing.TB, r *Recorded) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(r.Body, &out); err != nil {
		t.Fatalf("apitest: decode body %q: %v", r.Body, err)
	}
	return out
}

// Do runs ex through app and records the outcome.
func Do(t testing.TB, app *miniapi.App, ex Exchange) *Recorded {
	t.Helper()

	scope := miniapi.Scope{
		Type:        miniapi.ScopeHTTP,
		Method:      ex.Method,
		Path:        ex.Path,
		QueryString: []byte(ex.Query),
	}
	for name, value := range ex.Headers {
		scope.Headers = append(scope.Headers, miniapi.HeaderPair{Name: []byte(name), Value: []byte(value)})
	}

	rec := &Recorded{}
	rec.Err = app.Serve(context.Background(), scope, receiver(ex), recorder(rec))
	return rec
}

// Get runs a GET exchange for path. A query string in path is split off.
func Get(t testing.TB, app *miniapi.App, path string) *Recorded {
	t.Helper()
	p, q, _ := strings.Cut(path, "?")
	return Do(t, app, Exchange{Method: "GET", Path: p, Query: q})
}

// Post runs a POST exchange with body encoded as JSON.
func Post(t testing.TB, app *miniapi.App, path string, body any) *Recorded {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("apitest: marshal request body: %v", err)
	}
	p, q, _ := strings.Cut(path, "?")
	return Do(t, app, Exchange{
		Method:  "POST",
		Path:    p,
		Query:   q,
		Headers: map[string]string{"content-type": "application/json"},
		Body:    b,
	})
}

func receiver(ex Exchange) miniapi.ReceiveFunc {
	chunks := ex.Chunks
	if chunks == nil {
		chunks = [][]byte{ex.Body}
	}
	i := 0

	return func(ctx context.Context) (miniapi.Message, error) {
		if ex.Disconnect && i >= ex.DisconnectAfter {
			return miniapi.Message{Type: miniapi.MessageHTTPDisconnect}, nil
		}
		if i >= len(chunks) {
			<-ctx.Done()
			return miniapi.Message{}, ctx.Err()
		}
		msg := miniapi.Message{
			Type:     miniapi.MessageHTTPRequest,
			Body:     chunks[i],
			MoreBody: i < len(chunks)-1 || ex.Disconnect,
		}
		i++
		return msg, nil
	}
}

func recorder(rec *Recorded) miniapi.SendFunc {
	return func(_ context.Context, msg miniapi.Message) error {
		rec.Sent = append(rec.Sent, msg)
		switch msg.Type {
		case miniapi.MessageHTTPResponseStart:
			rec.Status = msg.Status
			rec.Headers = msg.Headers
		case miniapi.MessageHTTPResponseBody:
			rec.Body = append(rec.Body, msg.Body...)
		}
		return nil
	}
}
