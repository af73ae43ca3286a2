package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunkelstern/obs-touchosc/internal/bridge"
	"github.com/dunkelstern/obs-touchosc/internal/domain"
	"github.com/dunkelstern/obs-touchosc/internal/osc"
	"github.com/dunkelstern/obs-touchosc/pkg/log"
)

type fakeBridge struct {
	snap      domain.Snapshot
	resyncErr error
	ctrlErr   error
	controls  []osc.Message
}

func (f *fakeBridge) Snapshot() domain.Snapshot { return f.snap }
func (f *fakeBridge) RequestResync() error       { return f.resyncErr }

func (f *fakeBridge) Control(_ context.Context, msg osc.Message) error {
	f.controls = append(f.controls, msg)
	return f.ctrlErr
}

func newRouter(b Bridge) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(log.GinMiddleware(zerolog.Nop()))
	NewHandler(b).RegisterRoutes(r)
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestHealth(t *testing.T) {
	b := &fakeBridge{}
	r := newRouter(b)

	w := serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	b.snap.Connected = true
	w = serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetState(t *testing.T) {
	b := &fakeBridge{snap: domain.Snapshot{
		Connected:    true,
		CurrentScene: "Main",
		Scenes:       []string{"Intro", "Main"},
		Status:       domain.Status{Streaming: true}.View(),
	}}
	r := newRouter(b)

	w := serve(r, http.MethodGet, "/api/v1/state", "")
	require.Equal(t, http.StatusOK, w.Code)

	env := decode(t, w)
	assert.True(t, env.Success)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, "Main", snap.CurrentScene)
	assert.Equal(t, []string{"Intro", "Main"}, snap.Scenes)
	assert.True(t, snap.Status.Streaming)
	assert.Equal(t, domain.DefaultDuration, snap.Status.RecordTime)
}

func TestResync(t *testing.T) {
	b := &fakeBridge{}
	r := newRouter(b)

	w := serve(r, http.MethodPost, "/api/v1/resync", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, decode(t, w).Success)

	b.resyncErr = bridge.ErrBusy
	w = serve(r, http.MethodPost, "/api/v1/resync", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "UNAVAILABLE", decode(t, w).Error.Code)
}

func TestControl(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		ctrlErr    error
		wantStatus int
		wantCalls  int
	}{
		{"scene press", `{"address":"/scene/1/2","value":1}`, nil, http.StatusOK, 1},
		{"zero value", `{"address":"/mic","value":0}`, nil, http.StatusOK, 1},
		{"missing value", `{"address":"/mic"}`, nil, http.StatusBadRequest, 0},
		{"missing address", `{"value":1}`, nil, http.StatusBadRequest, 0},
		{"malformed", `{`, nil, http.StatusBadRequest, 0},
		{"switcher error", `{"address":"/rec","value":1}`, errors.New("request failed"), http.StatusInternalServerError, 1},
		{"engine stopped", `{"address":"/rec","value":1}`, bridge.ErrStopped, http.StatusServiceUnavailable, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBridge{ctrlErr: tt.ctrlErr}
			r := newRouter(b)

			w := serve(r, http.MethodPost, "/api/v1/control", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Len(t, b.controls, tt.wantCalls)
		})
	}

	b := &fakeBridge{}
	serve(newRouter(b), http.MethodPost, "/api/v1/control", `{"address":"/volume/1","value":0.5}`)
	require.Len(t, b.controls, 1)
	assert.Equal(t, osc.Message{Address: "/volume/1", Value: 0.5}, b.controls[0])
}
