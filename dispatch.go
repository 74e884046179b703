package miniapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// serveHTTP runs one HTTP exchange: receive the body, route, resolve
// parameters, invoke, apply middleware and send exactly one response.
// Errors returned here come from the transport; handler and middleware
// failures always become a response.
func (a *App) serveHTTP(ctx context.Context, scope Scope, receive ReceiveFunc, send SendFunc) error {
	ctx = WithValue(ctx, exchangeStart(time.Now()))

	status := 0
	if a.tracer != nil {
		var end func(int)
		ctx, end = a.tracer.StartSpan(ctx, scope.Method+" "+scope.Path, map[string]string{
			"http.request.method": scope.Method,
			"url.path":            scope.Path,
		})
		defer func() { end(status) }()
	}

	body, bodyErr := a.receiveBody(ctx, receive)
	if bodyErr != nil && !errors.Is(bodyErr, ErrBodyTooLarge) {
		a.logger.DebugContext(ctx, "exchange aborted",
			slog.String("method", scope.Method),
			slog.String("path", scope.Path),
			slog.String("error", bodyErr.Error()),
		)
		return bodyErr
	}

	ep, params, routeErr := a.router.Lookup(scope.Method, scope.Path)
	req := newRequestFromScope(scope, body, params)

	resp, encoded, err := a.buildResponse(ctx, req, ep, routeErr, bodyErr)
	if err != nil {
		a.logger.ErrorContext(ctx, "response pipeline failed",
			slog.String("method", req.Method()),
			slog.String("path", req.Path()),
			slog.String("error", err.Error()),
		)
		status = http.StatusInternalServerError
		return sendFallback(ctx, send, err)
	}

	status = resp.Status
	return sendResponse(ctx, send, resp, encoded)
}

// buildResponse covers every stage between routing and sending. Any error
// or panic in here, including from middleware and body encoding, is the
// caller's cue to send the fixed 500.
func (a *App) buildResponse(ctx context.Context, req *Request, ep Endpoint, routeErr, bodyErr error) (resp *Response, encoded []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			resp, encoded = nil, nil
			err = panicError(ctx, a.logger, rec, req.Method(), req.Path())
		}
	}()

	ctx, resp = a.dispatch(ctx, req, ep, routeErr, bodyErr)

	resp, err = applyMiddleware(ctx, a.middleware, resp, req)
	if err != nil {
		return nil, nil, fmt.Errorf("middleware: %w", err)
	}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}

	encoded, err = encodeBody(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("encode response: %w", err)
	}
	return resp, encoded, nil
}

// dispatch produces the pre-middleware Response.
func (a *App) dispatch(ctx context.Context, req *Request, ep Endpoint, routeErr, bodyErr error) (context.Context, *Response) {
	if req.Method() == http.MethodOptions {
		return ctx, &Response{Status: http.StatusNoContent}
	}

	if bodyErr != nil {
		return ctx, errorResponse(http.StatusRequestEntityTooLarge, http.StatusText(http.StatusRequestEntityTooLarge))
	}

	ctx, short := processRequest(ctx, a.middleware, req)
	if short != nil {
		return ctx, short
	}

	if routeErr != nil {
		a.logger.DebugContext(ctx, "no route", slog.String("error", routeErr.Error()))
		return ctx, notFound()
	}

	return ctx, a.invoke(ctx, ep, req)
}

// invoke calls the endpoint and maps failures to error responses. Panics
// are recovered here so they are reported like any other handler error.
func (a *App) invoke(ctx context.Context, ep Endpoint, req *Request) (resp *Response) {
	defer func() {
		if rec := recover(); rec != nil {
			err := panicError(ctx, a.logger, rec, req.Method(), req.Path())
			resp = errorResponse(http.StatusInternalServerError, err.Error())
		}
	}()

	resp, err := ep(ctx, req)
	if err != nil {
		return a.errorResponse(ctx, req, err)
	}
	if resp == nil {
		return &Response{Status: http.StatusOK}
	}
	return resp
}

// errorResponse maps a handler or binding error to {"error": message}.
func (a *App) errorResponse(ctx context.Context, req *Request, err error) *Response {
	status := ErrorStatus(err)
	message := err.Error()

	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		message = ve.Error()
		a.logger.DebugContext(ctx, "validation error",
			slog.String("method", req.Method()),
			slog.String("path", req.Path()),
			slog.String("error", message),
		)
	case status >= http.StatusInternalServerError:
		a.logger.ErrorContext(ctx, "handler error",
			slog.String("method", req.Method()),
			slog.String("path", req.Path()),
			slog.String("error", message),
		)
	}

	return errorResponse(status, message)
}

// sendResponse emits the start frame then the body frame.
func sendResponse(ctx context.Context, send SendFunc, resp *Response, body []byte) error {
	resp.Header.Del("content-length")
	headers := resp.Header.pairs()
	headers = append(headers, HeaderPair{
		Name:  []byte("content-length"),
		Value: []byte(strconv.Itoa(len(body))),
	})

	if err := send(ctx, Message{
		Type:    MessageHTTPResponseStart,
		Status:  resp.Status,
		Headers: headers,
	}); err != nil {
		return err
	}
	return send(ctx, Message{Type: MessageHTTPResponseBody, Body: body})
}

// sendFallback is the last line of defense. It does not touch Response or
// middleware so it cannot fail the same way.
func sendFallback(ctx context.Context, send SendFunc, cause error) error {
	//nolint:errchkjson // map[string]string always marshals
	body, _ := json.Marshal(map[string]string{"error": cause.Error()})

	if err := send(ctx, Message{
		Type:   MessageHTTPResponseStart,
		Status: http.StatusInternalServerError,
		Headers: []HeaderPair{
			{Name: []byte("content-type"), Value: []byte("application/json")},
			{Name: []byte("content-length"), Value: []byte(strconv.Itoa(len(body)))},
		},
	}); err != nil {
		return err
	}
	return send(ctx, Message{Type: MessageHTTPResponseBody, Body: body})
}
