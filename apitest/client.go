package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bjaus/miniapi"
)

// Client wraps an httptest.Server serving an App over real HTTP.
type Client struct {
	Server *httptest.Server
}

// NewClient starts a test server for app.
func NewClient(t testing.TB, app *miniapi.App) *Client {
	t.Helper()
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)
	return &Client{Server: srv}
}

// Response holds a decoded HTTP response.
type Response[T any] struct {
	Status  int
	Headers http.Header
	Body    *T
}

// GetJSON sends a GET request and decodes the response.
func GetJSON[Resp any](t testing.TB, c *Client, path string) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodGet, path, nil)
}

// PostJSON sends a POST request with a JSON body and decodes the response.
func PostJSON[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPost, path, body)
}

// PutJSON sends a PUT request with a JSON body and decodes the response.
func PutJSON[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPut, path, body)
}

// DeleteJSON sends a DELETE request and decodes the response.
func DeleteJSON[Resp any](t testing.TB, c *Client, path string) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodDelete, path, nil)
}

func do[Resp any](t testing.TB, c *Client, method, path string, body any) *Response[Resp] {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("apitest: marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.Server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("apitest: create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("apitest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("apitest: close body: %v", closeErr)
		}
	}()

	result := &Response[Resp]{
		Status:  resp.StatusCode,
		Headers: resp.Header,
	}

	if resp.StatusCode != http.StatusNoContent && resp.ContentLength != 0 {
		var decoded Resp
		if decErr := json.NewDecoder(resp.Body).Decode(&decoded); decErr != nil && !errors.Is(decErr, io.EOF) {
			return result
		}
		result.Body = &decoded
	}

	return result
}
