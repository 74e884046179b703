package miniapi

import (
	"context"
	"fmt"
)

// DefaultMaxBodySize caps the bytes buffered for one HTTP request body.
const DefaultMaxBodySize = 1 << 20

// WithMaxBodySize sets the request body cap in bytes. Requests whose body
// exceeds it receive 413. Zero or less disables the cap.
func WithMaxBodySize(n int64) AppOption {
	return func(a *App) {
		a.maxBodySize = n
	}
}

// receiveBody concatenates body chunks in arrival order until the transport
// reports no more body. Exceeding the cap yields ErrBodyTooLarge.
func (a *App) receiveBody(ctx context.Context, receive ReceiveFunc) ([]byte, error) {
	var body []byte
	for {
		msg, err := receive(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDisconnected, err)
		}

		switch msg.Type {
		case MessageHTTPRequest:
		case MessageHTTPDisconnect:
			return nil, ErrDisconnected
		default:
			return nil, fmt.Errorf("%w: unexpected message %q", ErrDisconnected, msg.Type)
		}

		if a.maxBodySize > 0 && int64(len(body)+len(msg.Body)) > a.maxBodySize {
			return nil, ErrBodyTooLarge
		}
		body = append(body, msg.Body...)

		if !msg.MoreBody {
			return body, nil
		}
	}
}
