package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]interface{}
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: "warn", ServiceName: "bridge"}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str(FieldAddress, "/mic").Msg("shown")

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "shown", got[0]["message"])
	assert.Equal(t, "bridge", got[0][FieldService])
	assert.Equal(t, "/mic", got[0][FieldAddress])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel(" warning "))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("bogus"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.TraceLevel, parseLevel("trace"))
}

func TestNewWithWriterPretty(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Pretty: true}, &buf)

	logger.Info().Str(FieldRole, "mic").Msg("bound")
	assert.Contains(t, buf.String(), "bound")
	assert.Contains(t, buf.String(), "role=")
	assert.NotContains(t, buf.String(), "{")
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(Config{Level: "debug"}, &buf)

	ctx := WithComponent(WithLogger(context.Background(), base), "engine")
	l := Ctx(ctx)
	l.Info().Msg("hello")

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "engine", got[0][FieldComponent])

	assert.NotPanics(t, func() {
		l := Ctx(context.Background())
		_ = l.Debug()
	})
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: "debug"}, &buf)

	r := gin.New()
	r.Use(GinMiddleware(logger))
	r.GET("/ok", func(c *gin.Context) {
		l := Ctx(c.Request.Context())
		l.Info().Msg("inside")
		c.Status(http.StatusOK)
	})
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	got := lines(t, &buf)
	require.Len(t, got, 3)
	assert.Equal(t, "req-1", got[0][FieldRequestID], "handler logs carry the request id")
	assert.Equal(t, "info", got[1]["level"])
	assert.Equal(t, float64(http.StatusOK), got[1][FieldStatus])
	assert.Equal(t, "error", got[2]["level"])
}
