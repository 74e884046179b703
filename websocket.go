package miniapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsHandler is the normalized form of every registered WebSocket handler.
type wsHandler func(ctx context.Context, conn *WebSocketConnection) error

type wsRoute struct {
	template string
	segments []segment
	handler  wsHandler
}

// WebSocketHandler is the set of accepted WebSocket handler shapes. A
// handler that declares the connection owns its message loop; one that does
// not is called once the connection has been accepted.
type WebSocketHandler interface {
	func(ctx context.Context, conn *WebSocketConnection) error | func(ctx context.Context) error
}

// WebSocket registers a WebSocket handler for template. WebSocket routes
// have their own table and no method dimension.
func WebSocket[H WebSocketHandler](app *App, template string, h H) {
	var fn wsHandler
	switch h := any(h).(type) {
	case func(context.Context, *WebSocketConnection) error:
		fn = h
	case func(context.Context) error:
		fn = func(ctx context.Context, _ *WebSocketConnection) error { return h(ctx) }
	}

	app.mu.Lock()
	defer app.mu.Unlock()
	app.router.registerWebSocket(template, fn)
}

// CloseError reports that the peer closed the connection. It matches
// ErrDisconnected with errors.Is.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("websocket closed: %d", e.Code)
	}
	return fmt.Sprintf("websocket closed: %d %s", e.Code, e.Reason)
}

// Is reports whether target is ErrDisconnected.
func (e *CloseError) Is(target error) bool { return target == ErrDisconnected }

// WebSocketMessage is one data frame received from the peer.
type WebSocketMessage struct {
	Text   string
	Data   []byte
	Binary bool
}

// WebSocketConnection is the duplex message wrapper handed to WebSocket
// handlers. Sends are serialized; Receive is meant for a single reader.
type WebSocketConnection struct {
	req     *Request
	receive ReceiveFunc
	send    SendFunc

	mu     sync.Mutex
	closed bool
}

func newWebSocketConnection(req *Request, receive ReceiveFunc, send SendFunc) *WebSocketConnection {
	return &WebSocketConnection{req: req, receive: receive, send: send}
}

// Request returns the handshake request. Its body is always empty.
func (c *WebSocketConnection) Request() *Request { return c.req }

// PathParam returns a path parameter captured by the route template.
func (c *WebSocketConnection) PathParam(name string) string { return c.req.PathParam(name) }

// Receive waits for the next data frame. A peer disconnect returns a
// *CloseError; once the connection is closed Receive returns ErrConnClosed
// without touching the transport.
func (c *WebSocketConnection) Receive(ctx context.Context) (WebSocketMessage, error) {
	for {
		if c.Closed() {
			return WebSocketMessage{}, ErrConnClosed
		}
		msg, err := c.receive(ctx)
		if err != nil {
			c.markClosed()
			return WebSocketMessage{}, fmt.Errorf("%w: %w", ErrDisconnected, err)
		}

		switch msg.Type {
		case MessageWebSocketReceive:
			if msg.Text != nil {
				return WebSocketMessage{Text: *msg.Text}, nil
			}
			return WebSocketMessage{Data: msg.Bytes, Binary: true}, nil
		case MessageWebSocketDisconnect:
			c.markClosed()
			return WebSocketMessage{}, &CloseError{Code: msg.Code, Reason: msg.Reason}
		}
	}
}

// ReceiveText returns the next frame as text. Binary frames are converted.
func (c *WebSocketConnection) ReceiveText(ctx context.Context) (string, error) {
	msg, err := c.Receive(ctx)
	if err != nil {
		return "", err
	}
	if msg.Binary {
		return string(msg.Data), nil
	}
	return msg.Text, nil
}

// ReceiveBytes returns the next frame as bytes. Text frames are converted.
func (c *WebSocketConnection) ReceiveBytes(ctx context.Context) ([]byte, error) {
	msg, err := c.Receive(ctx)
	if err != nil {
		return nil, err
	}
	if msg.Binary {
		return msg.Data, nil
	}
	return []byte(msg.Text), nil
}

// ReceiveJSON decodes the next frame into v.
func (c *WebSocketConnection) ReceiveJSON(ctx context.Context, v any) error {
	data, err := c.ReceiveBytes(ctx)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode websocket message: %w", err)
	}
	return nil
}

// SendText sends a text frame.
func (c *WebSocketConnection) SendText(ctx context.Context, text string) error {
	return c.write(ctx, Message{Type: MessageWebSocketSend, Text: &text})
}

// SendBytes sends a binary frame.
func (c *WebSocketConnection) SendBytes(ctx context.Context, data []byte) error {
	return c.write(ctx, Message{Type: MessageWebSocketSend, Bytes: data})
}

// SendJSON encodes v and sends it as a text frame.
func (c *WebSocketConnection) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode websocket message: %w", err)
	}
	return c.SendText(ctx, string(data))
}

// Close sends a close frame. Closing an already closed connection is a no-op.
func (c *WebSocketConnection) Close(ctx context.Context, code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.send(ctx, Message{Type: MessageWebSocketClose, Code: code, Reason: reason})
}

// Closed reports whether either side has closed the connection.
func (c *WebSocketConnection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *WebSocketConnection) write(ctx context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	return c.send(ctx, msg)
}

func (c *WebSocketConnection) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// serveWebSocket runs one WebSocket session. An unmatched path is closed
// before acceptance without invoking any handler. A matched handler owns the
// connection until it returns; the connection is then closed normally, or
// with an internal-error code if the handler failed.
func (a *App) serveWebSocket(ctx context.Context, scope Scope, receive ReceiveFunc, send SendFunc) (err error) {
	ctx = WithValue(ctx, exchangeStart(time.Now()))

	msg, err := receive(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDisconnected, err)
	}
	if msg.Type != MessageWebSocketConnect {
		return fmt.Errorf("%w: unexpected message %q", ErrDisconnected, msg.Type)
	}

	route, params, ok := a.router.matchWebSocket(scope.Path)
	if !ok {
		a.logger.DebugContext(ctx, "websocket route not found", slog.String("path", scope.Path))
		return send(ctx, Message{Type: MessageWebSocketClose, Code: websocket.CloseNormalClosure})
	}

	if a.tracer != nil {
		var end func(int)
		ctx, end = a.tracer.StartSpan(ctx, "WS "+route.template, map[string]string{
			"url.path":              scope.Path,
			"http.route":            route.template,
			"network.protocol.name": "websocket",
		})
		defer func() {
			if err != nil {
				end(http.StatusInternalServerError)
				return
			}
			end(http.StatusSwitchingProtocols)
		}()
	}

	if err := send(ctx, Message{Type: MessageWebSocketAccept}); err != nil {
		return err
	}

	conn := newWebSocketConnection(newRequestFromScope(scope, nil, params), receive, send)

	herr := a.runWebSocket(ctx, route.handler, conn)
	if errors.Is(herr, ErrDisconnected) || errors.Is(herr, ErrConnClosed) {
		a.logger.DebugContext(ctx, "websocket session ended", slog.String("path", scope.Path))
		return nil
	}
	if herr != nil {
		a.logger.ErrorContext(ctx, "websocket handler error",
			slog.String("path", scope.Path),
			slog.String("error", herr.Error()),
		)
		_ = conn.Close(ctx, websocket.CloseInternalServerErr, "")
		return herr
	}
	return conn.Close(ctx, websocket.CloseNormalClosure, "")
}

func (a *App) runWebSocket(ctx context.Context, h wsHandler, conn *WebSocketConnection) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = panicError(ctx, a.logger, rec, "WS", conn.req.Path())
		}
	}()
	return h(ctx, conn)
}
