package miniapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bjaus/miniapi"
	"github.com/bjaus/miniapi/apitest"
)

func TestSecure(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg  []miniapi.SecureConfig
		want map[string]string
	}{
		"defaults": {
			want: map[string]string{
				"x-content-type-options":    "nosniff",
				"x-frame-options":           "DENY",
				"referrer-policy":           "strict-origin-when-cross-origin",
				"strict-transport-security": "",
			},
		},
		"hsts enabled": {
			cfg: []miniapi.SecureConfig{{HSTSMaxAge: 31536000, ReferrerPolicy: "no-referrer"}},
			want: map[string]string{
				"x-content-type-options":    "",
				"x-frame-options":           "",
				"referrer-policy":           "no-referrer",
				"strict-transport-security": "max-age=31536000",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			app := miniapi.New()
			app.Use(miniapi.Secure(tt.cfg...))

			// Applies to 404s too.
			rec := apitest.Get(t, app, "/missing")
			assert.Equal(t, http.StatusNotFound, rec.Status)
			for header, want := range tt.want {
				assert.Equal(t, want, rec.Header(header), header)
			}
		})
	}
}
