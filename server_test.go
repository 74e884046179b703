package miniapi_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/miniapi"
	"github.com/bjaus/miniapi/apitest"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name" validate:"required"`
}

func serverApp() *miniapi.App {
	app := miniapi.New()
	miniapi.Get(app, "/users/:id", func(_ context.Context, req *struct{ ID int }) (*user, error) {
		return &user{ID: req.ID, Name: "ada"}, nil
	})
	miniapi.Post(app, "/users", func(_ context.Context, req *struct{ User user }) (*user, error) {
		u := req.User
		u.ID = 7
		return &u, nil
	}, miniapi.WithStatus(http.StatusCreated))
	miniapi.Post(app, "/size", func(_ context.Context, req *struct{ Raw *miniapi.Request }) (map[string]int, error) {
		return map[string]int{"size": len(req.Raw.Body())}, nil
	})
	miniapi.WebSocket(app, "/echo", func(ctx context.Context, conn *miniapi.WebSocketConnection) error {
		text, err := conn.ReceiveText(ctx)
		if err != nil {
			return err
		}
		return conn.SendText(ctx, strings.ToUpper(text))
	})
	return app
}

func TestServeHTTP_json_round_trip(t *testing.T) {
	t.Parallel()

	c := apitest.NewClient(t, serverApp())

	got := apitest.GetJSON[user](t, c, "/users/3")
	require.Equal(t, http.StatusOK, got.Status)
	require.NotNil(t, got.Body)
	assert.Equal(t, user{ID: 3, Name: "ada"}, *got.Body)

	created := apitest.PostJSON[user, user](t, c, "/users", &user{Name: "grace"})
	require.Equal(t, http.StatusCreated, created.Status)
	assert.Equal(t, user{ID: 7, Name: "grace"}, *created.Body)

	invalid := apitest.PostJSON[user, map[string]string](t, c, "/users", &user{})
	require.Equal(t, http.StatusBadRequest, invalid.Status)
	assert.Contains(t, (*invalid.Body)["error"], "name is required")

	missing := apitest.DeleteJSON[map[string]string](t, c, "/users/3")
	assert.Equal(t, http.StatusNotFound, missing.Status)
	assert.Equal(t, "Not Found", (*missing.Body)["error"])
}

func TestServeHTTP_large_body_is_chunked(t *testing.T) {
	t.Parallel()

	c := apitest.NewClient(t, serverApp())

	body := bytes.Repeat([]byte("x"), 100<<10)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, c.Server.URL+"/size", bytes.NewReader(body))
	require.NoError(t, err)

	resp, err := c.Server.Client().Do(req)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"size":102400}`, string(out))
	assert.Equal(t, "15", resp.Header.Get("Content-Length"))
}

func TestServeHTTP_websocket(t *testing.T) {
	t.Parallel()

	c := apitest.NewClient(t, serverApp())
	wsURL := "ws" + strings.TrimPrefix(c.Server.URL, "http")

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL+"/echo", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))

	typ, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)
	assert.Equal(t, "HELLO", string(data))

	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.CloseNormalClosure, ce.Code)
}

func TestServeHTTP_websocket_unmatched_is_rejected(t *testing.T) {
	t.Parallel()

	c := apitest.NewClient(t, serverApp())
	wsURL := "ws" + strings.TrimPrefix(c.Server.URL, "http")

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL+"/nowhere", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Nil(t, conn)
	require.NotNil(t, resp)
	defer func() { require.NoError(t, resp.Body.Close()) }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestListenAndServe_shutdown_on_cancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- serverApp().ListenAndServe(ctx, addr) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestListenAndServe_address_in_use(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	err = miniapi.New().ListenAndServe(context.Background(), ln.Addr().String())
	require.Error(t, err)
	assert.False(t, errors.Is(err, http.ErrServerClosed))
}
