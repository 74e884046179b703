package miniapi_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/miniapi"
	"github.com/bjaus/miniapi/apitest"
)

func echo[T any](_ context.Context, req *T) (*T, error) { return req, nil }

func ptr[T any](v T) *T { return &v }

func errorBody(t *testing.T, rec *apitest.Recorded) string {
	t.Helper()
	return apitest.Decode[map[string]string](t, rec)["error"]
}

func TestParams_path_takes_priority_over_query(t *testing.T) {
	t.Parallel()

	type Req struct {
		ID int
	}

	app := miniapi.New()
	miniapi.Get(app, "/items/:id", echo[Req])

	rec := apitest.Get(t, app, "/items/42?id=999")
	require.Equal(t, http.StatusOK, rec.Status)
	assert.Equal(t, 42, apitest.Decode[Req](t, rec).ID)
}

func TestParams_path_coercion_failure(t *testing.T) {
	t.Parallel()

	type Req struct {
		ID int
	}

	app := miniapi.New()
	miniapi.Get(app, "/items/:id", echo[Req])

	rec := apitest.Get(t, app, "/items/abc")
	require.Equal(t, http.StatusBadRequest, rec.Status)
	assert.Contains(t, errorBody(t, rec), `invalid value "abc" for parameter id`)
}

func TestParams_query(t *testing.T) {
	t.Parallel()

	type Req struct {
		Tag   []string
		Limit int
		Ratio float64
		On    bool
		Wait  time.Duration
		Since time.Time
	}

	app := miniapi.New()
	miniapi.Get(app, "/search", echo[Req])

	rec := apitest.Get(t, app, "/search?tag=a&tag=b&limit=5&limit=9&ratio=0.5&on=true&wait=2s&since=2024-01-02T03:04:05Z")
	require.Equal(t, http.StatusOK, rec.Status, string(rec.Body))

	got := apitest.Decode[Req](t, rec)
	assert.Equal(t, []string{"a", "b"}, got.Tag, "slices take every value")
	assert.Equal(t, 5, got.Limit, "scalars take the first value")
	assert.InDelta(t, 0.5, got.Ratio, 0.0001)
	assert.True(t, got.On)
	assert.Equal(t, 2*time.Second, got.Wait)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), got.Since.UTC())
}

func TestParams_query_coercion_failure(t *testing.T) {
	t.Parallel()

	type Req struct {
		Limit int
	}

	app := miniapi.New()
	miniapi.Get(app, "/search", echo[Req])

	rec := apitest.Get(t, app, "/search?limit=ten")
	require.Equal(t, http.StatusBadRequest, rec.Status)
	assert.Contains(t, errorBody(t, rec), "parameter limit")
}

func TestParams_defaults_and_optional(t *testing.T) {
	t.Parallel()

	type Req struct {
		Limit int     `default:"10"`
		Sort  *string `param:"order"`
		Page  *int    `default:"1"`
		Skip  string  `param:"-"`
	}

	app := miniapi.New()
	miniapi.Get(app, "/list", echo[Req])

	tests := map[string]struct {
		query     string
		wantLimit int
		wantSort  *string
		wantPage  int
	}{
		"all defaults": {
			query:     "",
			wantLimit: 10,
			wantPage:  1,
		},
		"blank values fall back to defaults": {
			query:     "?limit=&order=&page=",
			wantLimit: 10,
			wantPage:  1,
		},
		"explicit values": {
			query:     "?limit=3&order=name&page=4&skip=x",
			wantLimit: 3,
			wantSort:  ptr("name"),
			wantPage:  4,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := apitest.Get(t, app, "/list"+tt.query)
			require.Equal(t, http.StatusOK, rec.Status, string(rec.Body))

			got := apitest.Decode[Req](t, rec)
			assert.Equal(t, tt.wantLimit, got.Limit)
			assert.Equal(t, tt.wantSort, got.Sort)
			require.NotNil(t, got.Page)
			assert.Equal(t, tt.wantPage, *got.Page)
			assert.Empty(t, got.Skip)
		})
	}
}

func TestParams_bad_default(t *testing.T) {
	t.Parallel()

	type Req struct {
		Limit int `default:"many"`
	}

	app := miniapi.New()
	miniapi.Get(app, "/list", echo[Req])

	rec := apitest.Get(t, app, "/list")
	require.Equal(t, http.StatusBadRequest, rec.Status)
	assert.Contains(t, errorBody(t, rec), "bind default")
}

func TestParams_missing(t *testing.T) {
	t.Parallel()

	type Req struct {
		Q string
	}

	app := miniapi.New()
	miniapi.Get(app, "/search", echo[Req])

	rec := apitest.Get(t, app, "/search")
	require.Equal(t, http.StatusBadRequest, rec.Status)
	assert.Equal(t, "missing required parameter: q", errorBody(t, rec))
}

type filter struct {
	Name  string `json:"name" validate:"required"`
	Limit int    `json:"limit" validate:"lte=100"`
}

type shouting struct {
	Word string `json:"word"`
}

func (s *shouting) Validate() error {
	if s.Word == "" {
		return errors.New("word must not be empty")
	}
	return nil
}

func TestParams_model(t *testing.T) {
	t.Parallel()

	type Req struct {
		Filter filter
	}

	app := miniapi.New()
	miniapi.Post(app, "/search", echo[Req])

	tests := map[string]struct {
		query      string
		body       string
		wantStatus int
		wantName   string
		wantLimit  int
		wantError  string
	}{
		"body only": {
			body:       `{"name":"b","limit":3}`,
			wantStatus: http.StatusOK,
			wantName:   "b",
			wantLimit:  3,
		},
		"query only": {
			query:      "name=q&limit=5",
			wantStatus: http.StatusOK,
			wantName:   "q",
			wantLimit:  5,
		},
		"body wins over query": {
			query:      "name=q&limit=5",
			body:       `{"name":"b"}`,
			wantStatus: http.StatusOK,
			wantName:   "b",
			wantLimit:  5,
		},
		"validation failure": {
			body:       `{"limit":1}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "name is required",
		},
		"wrong type": {
			body:       `{"name":"b","limit":"x"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "limit must be of type int",
		},
		"bad query coercion": {
			query:      "name=q&limit=lots",
			wantStatus: http.StatusBadRequest,
			wantError:  `limit: invalid value "lots"`,
		},
		"malformed body": {
			body:       `{"name":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid JSON body",
		},
		"non-object body": {
			body:       `[1,2]`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid JSON body",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := apitest.Do(t, app, apitest.Exchange{
				Method: http.MethodPost,
				Path:   "/search",
				Query:  tt.query,
				Body:   []byte(tt.body),
			})
			require.Equal(t, tt.wantStatus, rec.Status, string(rec.Body))

			if tt.wantError != "" {
				assert.Contains(t, errorBody(t, rec), tt.wantError)
				return
			}
			got := apitest.Decode[Req](t, rec)
			assert.Equal(t, tt.wantName, got.Filter.Name)
			assert.Equal(t, tt.wantLimit, got.Filter.Limit)
		})
	}
}

func TestParams_model_query_keys(t *testing.T) {
	t.Parallel()

	type item struct {
		Name string
		Tags []string
	}
	type Req struct {
		Item item
	}

	app := miniapi.New()
	miniapi.Post(app, "/items", echo[Req])

	tests := map[string]struct {
		query    string
		body     string
		wantName string
		wantTags []string
	}{
		"query only, untagged field": {
			query:    "name=bob",
			wantName: "bob",
		},
		"query key case differs": {
			query:    "NAME=bob",
			wantName: "bob",
		},
		"query flattened to first value": {
			query:    "name=bob&tags=a&tags=b",
			wantName: "bob",
			wantTags: []string{"a"},
		},
		"body wins regardless of case": {
			query:    "name=q&tags=x",
			body:     `{"NAME":"b"}`,
			wantName: "b",
			wantTags: []string{"x"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := apitest.Do(t, app, apitest.Exchange{
				Method: http.MethodPost,
				Path:   "/items",
				Query:  tt.query,
				Body:   []byte(tt.body),
			})
			require.Equal(t, http.StatusOK, rec.Status, string(rec.Body))

			got := apitest.Decode[Req](t, rec)
			assert.Equal(t, tt.wantName, got.Item.Name)
			assert.Equal(t, tt.wantTags, got.Item.Tags)
		})
	}
}

func TestParams_model_self_validator(t *testing.T) {
	t.Parallel()

	type Req struct {
		Msg *shouting
	}

	app := miniapi.New()
	miniapi.Post(app, "/shout", func(_ context.Context, req *Req) (string, error) {
		return req.Msg.Word + "!", nil
	})

	rec := apitest.Post(t, app, "/shout", map[string]string{"word": "hey"})
	require.Equal(t, http.StatusOK, rec.Status)
	assert.Equal(t, "hey!", string(rec.Body))

	rec = apitest.Post(t, app, "/shout", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Status)
	assert.Equal(t, "word must not be empty", errorBody(t, rec))
}

func TestParams_model_without_validator(t *testing.T) {
	t.Parallel()

	type Req struct {
		Filter filter
	}

	app := miniapi.New(miniapi.WithValidator(nil))
	miniapi.Post(app, "/search", echo[Req])

	rec := apitest.Post(t, app, "/search", map[string]int{"limit": 500})
	require.Equal(t, http.StatusOK, rec.Status)
	assert.Equal(t, 500, apitest.Decode[Req](t, rec).Filter.Limit)
}

func TestParams_special(t *testing.T) {
	t.Parallel()

	type Req struct {
		Raw     *miniapi.Request
		Headers miniapi.Headers
		ID      string
	}

	app := miniapi.New()
	miniapi.Get(app, "/items/:id", func(_ context.Context, req *Req) (map[string]string, error) {
		return map[string]string{
			"path":  req.Raw.Path(),
			"token": req.Headers.Get("X-Token"),
			"id":    req.ID,
		}, nil
	})

	rec := apitest.Do(t, app, apitest.Exchange{
		Method:  http.MethodGet,
		Path:    "/items/7",
		Headers: map[string]string{"X-Token": "secret"},
	})
	require.Equal(t, http.StatusOK, rec.Status)
	assert.Equal(t, map[string]string{"path": "/items/7", "token": "secret", "id": "7"},
		apitest.Decode[map[string]string](t, rec))
}

func TestParams_void(t *testing.T) {
	t.Parallel()

	app := miniapi.New()
	miniapi.Get(app, "/ping", func(_ context.Context, _ *miniapi.Void) (string, error) {
		return "pong", nil
	})

	rec := apitest.Get(t, app, "/ping?ignored=1")
	require.Equal(t, http.StatusOK, rec.Status)
	assert.Equal(t, "pong", string(rec.Body))
}

func TestParams_registration_rejects_unbindable_types(t *testing.T) {
	t.Parallel()

	type mapReq struct {
		M map[string]string
	}
	type chanReq struct {
		C chan int
	}

	app := miniapi.New()

	assert.Panics(t, func() {
		miniapi.Get(app, "/int", func(_ context.Context, _ *int) (string, error) { return "", nil })
	})
	assert.Panics(t, func() {
		miniapi.Get(app, "/map", echo[mapReq])
	})
	assert.Panics(t, func() {
		miniapi.Get(app, "/chan", echo[chanReq])
	})
	assert.Empty(t, app.Router().Routes())
}
