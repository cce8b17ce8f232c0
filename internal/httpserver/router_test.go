package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mhpenta/wallpapergen"
	"github.com/mhpenta/wallpapergen/api"
	"github.com/mhpenta/wallpapergen/provider/proxy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "AIzaTEST-server-0123456789"

type fakeGenerator struct {
	GenerateFunc func(ctx context.Context, prompt string, credential wallpapergen.Credential) ([]wallpapergen.GeneratedImage, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, credential wallpapergen.Credential) ([]wallpapergen.GeneratedImage, error) {
	if f.GenerateFunc != nil {
		return f.GenerateFunc(ctx, prompt, credential)
	}
	return nil, nil
}

type fakeValidator struct {
	ValidateFunc func(ctx context.Context, credential wallpapergen.Credential) bool
}

func (f *fakeValidator) Validate(ctx context.Context, credential wallpapergen.Credential) bool {
	if f.ValidateFunc != nil {
		return f.ValidateFunc(ctx, credential)
	}
	return false
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func batch(n int) []wallpapergen.GeneratedImage {
	at := time.UnixMilli(1700000000000)
	images := make([]wallpapergen.GeneratedImage, n)
	for i := range images {
		images[i] = wallpapergen.NewGeneratedImage(at, i, []byte("png"), "image/png")
	}
	return images
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		genErr     error
		wantStatus int
		wantError  string
	}{
		{"success", `{"prompt":"aurora","apiKey":"` + testKey + `"}`, nil, http.StatusOK, ""},
		{"missing prompt", `{"apiKey":"` + testKey + `"}`, nil, http.StatusBadRequest, api.MessageMissingFields},
		{"missing key", `{"prompt":"aurora"}`, nil, http.StatusBadRequest, api.MessageMissingFields},
		{"malformed body", `{`, nil, http.StatusBadRequest, api.MessageMissingFields},
		{
			"rejected key",
			`{"prompt":"aurora","apiKey":"` + testKey + `"}`,
			wallpapergen.NewCredentialRejected("imagen", 400, errors.New("API key not valid")),
			http.StatusUnauthorized,
			api.MessageInvalidKey,
		},
		{
			"remote failure",
			`{"prompt":"aurora","apiKey":"` + testKey + `"}`,
			wallpapergen.NewGenerationFailed("imagen", 503, errors.New("overloaded")),
			http.StatusInternalServerError,
			api.MessageGenerateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{
				GenerateFunc: func(ctx context.Context, prompt string, credential wallpapergen.Credential) ([]wallpapergen.GeneratedImage, error) {
					assert.Equal(t, "aurora", prompt)
					assert.Equal(t, testKey, credential.Reveal())
					if tt.genErr != nil {
						return nil, tt.genErr
					}
					return batch(4), nil
				},
			}
			h := NewRouter(gen, &fakeValidator{}, discardLogger())

			rec := do(t, h, http.MethodPost, api.PathGenerate, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decode[api.ErrorResponse](t, rec).Error)
				return
			}
			resp := decode[api.GenerateResponse](t, rec)
			require.Len(t, resp.Images, 4)
			assert.Equal(t, "image-1700000000000-0", resp.Images[0].ID)
			assert.True(t, strings.HasPrefix(resp.Images[0].URL, "data:image/png;base64,"))
		})
	}
}

func TestTestKey(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		valid      bool
		wantStatus int
		wantBody   string
	}{
		{"valid", `{"apiKey":"` + testKey + `"}`, true, http.StatusOK, `{"success":true}`},
		{"invalid", `{"apiKey":"` + testKey + `"}`, false, http.StatusUnauthorized, `{"success":false,"error":"Invalid API key"}`},
		{"missing", `{}`, true, http.StatusBadRequest, `{"error":"API key is required."}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := &fakeValidator{
				ValidateFunc: func(ctx context.Context, credential wallpapergen.Credential) bool {
					return tt.valid
				},
			}
			h := NewRouter(&fakeGenerator{}, validator, discardLogger())

			rec := do(t, h, http.MethodPost, api.PathTestKey, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewRouter(&fakeGenerator{}, &fakeValidator{}, discardLogger())

	for _, path := range []string{api.PathGenerate, api.PathTestKey} {
		rec := do(t, h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
		assert.JSONEq(t, `{"error":"Method Not Allowed"}`, rec.Body.String())
	}
}

func TestHealthAndNotFound(t *testing.T) {
	h := NewRouter(&fakeGenerator{}, &fakeValidator{}, discardLogger())

	rec := do(t, h, http.MethodGet, api.PathHealth, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProxyClientRoundTrip(t *testing.T) {
	gen := &fakeGenerator{
		GenerateFunc: func(ctx context.Context, prompt string, credential wallpapergen.Credential) ([]wallpapergen.GeneratedImage, error) {
			if credential.Reveal() != testKey {
				return nil, wallpapergen.NewCredentialRejected("imagen", 400, errors.New("API key not valid"))
			}
			return batch(4), nil
		},
	}
	validator := &fakeValidator{
		ValidateFunc: func(ctx context.Context, credential wallpapergen.Credential) bool {
			return credential.Reveal() == testKey
		},
	}
	srv := httptest.NewServer(NewRouter(gen, validator, discardLogger()))
	defer srv.Close()

	client, err := proxy.New(proxy.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	ctx := context.Background()

	assert.True(t, client.Validate(ctx, testKey))
	assert.False(t, client.Validate(ctx, "AIzaWRONG-0000000000"))

	images, err := client.Generate(ctx, "aurora", testKey)
	require.NoError(t, err)
	assert.Len(t, images, 4)
	assert.Equal(t, []byte("png"), images[2].Data)

	_, err = client.Generate(ctx, "aurora", "AIzaWRONG-0000000000")
	assert.True(t, wallpapergen.IsCredentialRejected(err))
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	s := New("127.0.0.1:0", NewRouter(&fakeGenerator{}, &fakeValidator{}, discardLogger()), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
