package miniapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// readChunkSize is the largest body chunk handed to the pipeline per receive.
const readChunkSize = 32 << 10

// ServeHTTP implements http.Handler by translating the net/http exchange into
// a Scope with receive and send functions. WebSocket upgrade requests are
// served as WebSocket scopes.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var err error
	if websocket.IsWebSocketUpgrade(r) {
		err = a.serveUpgrade(w, r)
	} else {
		err = a.Serve(r.Context(), httpScope(ScopeHTTP, r), bodyReceiver(r.Body), responseSender(w))
	}
	if err != nil {
		a.logger.DebugContext(r.Context(), "exchange ended with error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// ListenAndServe starts an HTTP server on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (a *App) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func httpScope(typ ScopeType, r *http.Request) Scope {
	headers := make([]HeaderPair, 0, len(r.Header)+1)
	if r.Host != "" {
		headers = append(headers, HeaderPair{Name: []byte("host"), Value: []byte(r.Host)})
	}
	for name, values := range r.Header {
		lower := []byte(strings.ToLower(name))
		for _, v := range values {
			headers = append(headers, HeaderPair{Name: lower, Value: []byte(v)})
		}
	}

	scope := Scope{
		Type:        typ,
		Path:        r.URL.Path,
		QueryString: []byte(r.URL.RawQuery),
		Headers:     headers,
	}
	if typ == ScopeHTTP {
		scope.Method = r.Method
	}
	return scope
}

// bodyReceiver yields the request body in chunks. A read failure is reported
// as a disconnect.
func bodyReceiver(body io.Reader) ReceiveFunc {
	buf := make([]byte, readChunkSize)
	done := false

	return func(ctx context.Context) (Message, error) {
		if done {
			<-ctx.Done()
			return Message{Type: MessageHTTPDisconnect}, nil
		}
		if body == nil {
			done = true
			return Message{Type: MessageHTTPRequest}, nil
		}

		n, err := body.Read(buf)
		chunk := append([]byte(nil), buf[:n]...)
		switch {
		case errors.Is(err, io.EOF):
			done = true
			return Message{Type: MessageHTTPRequest, Body: chunk}, nil
		case err != nil:
			done = true
			return Message{Type: MessageHTTPDisconnect}, nil
		}
		return Message{Type: MessageHTTPRequest, Body: chunk, MoreBody: true}, nil
	}
}

func responseSender(w http.ResponseWriter) SendFunc {
	return func(_ context.Context, msg Message) error {
		switch msg.Type {
		case MessageHTTPResponseStart:
			h := w.Header()
			for _, hp := range msg.Headers {
				h.Add(string(hp.Name), string(hp.Value))
			}
			w.WriteHeader(msg.Status)
			return nil
		case MessageHTTPResponseBody:
			if len(msg.Body) == 0 {
				return nil
			}
			_, err := w.Write(msg.Body)
			return err
		default:
			return fmt.Errorf("unexpected message %q", msg.Type)
		}
	}
}

// wsBridge adapts one gorilla connection to receive and send. The upgrade
// happens lazily when the pipeline accepts; a close before acceptance
// rejects the handshake with 403.
type wsBridge struct {
	app       *App
	w         http.ResponseWriter
	r         *http.Request
	conn      *websocket.Conn
	connected bool
}

func (a *App) serveUpgrade(w http.ResponseWriter, r *http.Request) error {
	b := &wsBridge{app: a, w: w, r: r}
	defer func() {
		if b.conn != nil {
			_ = b.conn.Close()
		}
	}()
	return a.Serve(r.Context(), httpScope(ScopeWebSocket, r), b.receive, b.send)
}

func (b *wsBridge) receive(_ context.Context) (Message, error) {
	if !b.connected {
		b.connected = true
		return Message{Type: MessageWebSocketConnect}, nil
	}
	if b.conn == nil {
		return Message{}, errors.New("websocket not accepted")
	}

	typ, data, err := b.conn.ReadMessage()
	if err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			return Message{Type: MessageWebSocketDisconnect, Code: ce.Code, Reason: ce.Text}, nil
		}
		return Message{Type: MessageWebSocketDisconnect, Code: websocket.CloseAbnormalClosure}, nil
	}
	if typ == websocket.TextMessage {
		text := string(data)
		return Message{Type: MessageWebSocketReceive, Text: &text}, nil
	}
	return Message{Type: MessageWebSocketReceive, Bytes: data}, nil
}

func (b *wsBridge) send(_ context.Context, msg Message) error {
	switch msg.Type {
	case MessageWebSocketAccept:
		conn, err := b.app.upgrader.Upgrade(b.w, b.r, nil)
		if err != nil {
			return fmt.Errorf("websocket upgrade: %w", err)
		}
		b.conn = conn
		return nil
	case MessageWebSocketSend:
		if b.conn == nil {
			return ErrConnClosed
		}
		if msg.Text != nil {
			return b.conn.WriteMessage(websocket.TextMessage, []byte(*msg.Text))
		}
		return b.conn.WriteMessage(websocket.BinaryMessage, msg.Bytes)
	case MessageWebSocketClose:
		if b.conn == nil {
			http.Error(b.w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return nil
		}
		code := msg.Code
		if code == 0 {
			code = websocket.CloseNormalClosure
		}
		payload := websocket.FormatCloseMessage(code, msg.Reason)
		return b.conn.WriteControl(websocket.CloseMessage, payload, time.Now().Add(time.Second))
	default:
		return fmt.Errorf("unexpected message %q", msg.Type)
	}
}
