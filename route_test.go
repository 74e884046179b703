package miniapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bjaus/miniapi"
	"github.com/bjaus/miniapi/apitest"
)

func TestWithStatus(t *testing.T) {
	t.Parallel()

	type created struct {
		ID int `json:"id"`
	}

	app := miniapi.New()
	miniapi.Post(app, "/things", func(context.Context, *miniapi.Void) (created, error) {
		return created{ID: 9}, nil
	}, miniapi.WithStatus(http.StatusCreated))
	miniapi.Delete(app, "/things/:id", func(context.Context, *struct{ ID int }) (*miniapi.Response, error) {
		return nil, nil
	}, miniapi.WithStatus(http.StatusNoContent))
	miniapi.Put(app, "/things/:id", func(context.Context, *struct{ ID int }) (*miniapi.Response, error) {
		return miniapi.JSONResponse(map[string]bool{"replaced": true}, http.StatusOK), nil
	}, miniapi.WithStatus(http.StatusAccepted))

	tests := map[string]struct {
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		"plain value uses route status": {
			method:     http.MethodPost,
			path:       "/things",
			wantStatus: http.StatusCreated,
			wantBody:   `{"id":9}`,
		},
		"nil response uses route status": {
			method:     http.MethodDelete,
			path:       "/things/9",
			wantStatus: http.StatusNoContent,
		},
		"response keeps its own status": {
			method:     http.MethodPut,
			path:       "/things/9",
			wantStatus: http.StatusOK,
			wantBody:   `{"replaced":true}`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := apitest.Do(t, app, apitest.Exchange{Method: tt.method, Path: tt.path})
			assert.Equal(t, tt.wantStatus, rec.Status)
			if tt.wantBody == "" {
				assert.Empty(t, rec.Body)
				return
			}
			assert.JSONEq(t, tt.wantBody, string(rec.Body))
		})
	}
}
