package miniapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/miniapi"
	"github.com/bjaus/miniapi/apitest"
)

func TestGroup_prefix(t *testing.T) {
	t.Parallel()

	type Resp struct {
		Version string `json:"version"`
	}

	app := miniapi.New()
	v1 := app.Group("/v1")
	miniapi.Get(v1, "/health", func(context.Context, *miniapi.Void) (*Resp, error) {
		return &Resp{Version: "v1"}, nil
	})
	miniapi.Handle(v1, http.MethodGet, "/raw", func(context.Context, *miniapi.Request) (*miniapi.Response, error) {
		return miniapi.TextResponse("raw", http.StatusOK), nil
	})

	rec := apitest.Get(t, app, "/v1/health")
	require.Equal(t, http.StatusOK, rec.Status)
	assert.Equal(t, "v1", apitest.Decode[Resp](t, rec).Version)

	assert.Equal(t, "raw", string(apitest.Get(t, app, "/v1/raw").Body))
	assert.Equal(t, http.StatusNotFound, apitest.Get(t, app, "/health").Status)
}

func TestGroup_middleware(t *testing.T) {
	t.Parallel()

	app := miniapi.New()
	app.Use(appendTrail("app"))

	admin := app.Group("/admin", miniapi.WithGroupMiddleware(appendTrail("group")))
	nested := admin.Group("/reports", miniapi.WithGroupMiddleware(appendTrail("nested")))

	ok := func(context.Context, *miniapi.Void) (string, error) { return "ok", nil }
	miniapi.Get(admin, "/dashboard", ok)
	miniapi.Get(nested, "/daily", ok)
	miniapi.Get(app, "/public", ok)

	tests := map[string]struct {
		path      string
		wantTrail string
	}{
		"group runs before app":    {path: "/admin/dashboard", wantTrail: "group,app"},
		"nested group accumulates": {path: "/admin/reports/daily", wantTrail: "group,nested,app"},
		"outside group":            {path: "/public", wantTrail: "app"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := apitest.Get(t, app, tt.path)
			require.Equal(t, http.StatusOK, rec.Status)
			assert.Equal(t, tt.wantTrail, rec.Header("x-trail"))
		})
	}
}

func TestGroup_middleware_skipped_on_handler_error(t *testing.T) {
	t.Parallel()

	app := miniapi.New()
	g := app.Group("/g", miniapi.WithGroupMiddleware(appendTrail("group")))
	miniapi.Get(g, "/fail", func(context.Context, *miniapi.Void) (string, error) {
		return "", miniapi.Error(http.StatusConflict, "conflict")
	})

	rec := apitest.Get(t, app, "/g/fail")
	assert.Equal(t, http.StatusConflict, rec.Status)
	assert.Empty(t, rec.Header("x-trail"))
}
