package miniapi

import "context"

// ScopeType distinguishes the protocol of an inbound connection.
type ScopeType string

// Scope types delivered by a transport.
const (
	ScopeHTTP      ScopeType = "http"
	ScopeWebSocket ScopeType = "websocket"
)

// Message types exchanged with a transport.
const (
	MessageHTTPRequest       = "http.request"
	MessageHTTPDisconnect    = "http.disconnect"
	MessageHTTPResponseStart = "http.response.start"
	MessageHTTPResponseBody  = "http.response.body"

	MessageWebSocketConnect    = "websocket.connect"
	MessageWebSocketAccept     = "websocket.accept"
	MessageWebSocketReceive    = "websocket.receive"
	MessageWebSocketSend       = "websocket.send"
	MessageWebSocketDisconnect = "websocket.disconnect"
	MessageWebSocketClose      = "websocket.close"
)

// HeaderPair is a single raw header as delivered by the transport.
type HeaderPair struct {
	Name  []byte
	Value []byte
}

// Scope describes one inbound exchange. It is supplied by the transport and
// never modified by the dispatch layer.
type Scope struct {
	Type        ScopeType
	Method      string // http only
	Path        string
	QueryString []byte
	Headers     []HeaderPair
}

// Message is the union of every frame that crosses the transport boundary.
// Only the fields relevant to Type are set.
type Message struct {
	Type string

	// http.request, http.response.body
	Body     []byte
	MoreBody bool

	// http.response.start
	Status  int
	Headers []HeaderPair

	// websocket.receive, websocket.send
	Text  *string
	Bytes []byte

	// websocket.disconnect, websocket.close
	Code   int
	Reason string
}

// ReceiveFunc suspends until the next inbound message is available.
type ReceiveFunc func(ctx context.Context) (Message, error)

// SendFunc hands one outbound message to the transport.
type SendFunc func(ctx context.Context, msg Message) error
