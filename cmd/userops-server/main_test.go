package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eion/userops/internal/config"
)

func newTestApp(t *testing.T) (*AppState, http.Handler) {
	t.Helper()

	source := filepath.Join(t.TempDir(), "backend_users.csv")
	require.NoError(t, os.WriteFile(source, []byte("name,age\nAlice,25\nBob,30\n"), 0o644))

	config.LoadDefault()
	cfg := config.Get()
	cfg.Common.Data.CSVPath = source
	cfg.Common.OpenAI.Provider = "json"
	cfg.Common.CommandLog.Backend = "memory"

	ctx := context.Background()
	as, err := newAppState(ctx, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { as.CommandStore.Close() })

	require.NoError(t, as.Health.StartupCheck(ctx))
	rows, err := as.UserService.Bootstrap(ctx, source)
	require.NoError(t, err)
	require.NoError(t, as.UserService.AddUsers(ctx, rows))

	return as, setupRouter(as)
}

func TestServerWiring(t *testing.T) {
	_, router := newTestApp(t)

	t.Run("Health", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("BootstrapRowsAreServed", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/calc_average_age_of_user_grouped_by_first_char_of_name", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var means map[string]float64
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &means))
		assert.Equal(t, map[string]float64{"A": 25, "B": 30}, means)
	})

	t.Run("ExecuteCommandIsRecorded", func(t *testing.T) {
		form := url.Values{"text": {`{"action": "create_user", "data": {"name": "Carol", "age": 40}}`}}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/execute_command", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/get_added_user", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Carol")

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/commands?action=create_user", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var listed struct {
			Count    int `json:"count"`
			Commands []struct {
				Action  string `json:"action"`
				Success bool   `json:"success"`
			} `json:"commands"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
		require.Equal(t, 1, listed.Count)
		assert.Equal(t, "create_user", listed.Commands[0].Action)
		assert.True(t, listed.Commands[0].Success)
	})

	t.Run("UnknownActionIsRejected", func(t *testing.T) {
		form := url.Values{"text": {`{"action": "delete_user_by_name", "data": {"name": "Bob"}}`}}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/execute_command", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unknown_action")
	})
}

func TestMaxBodyMiddleware(t *testing.T) {
	as, _ := newTestApp(t)
	as.Config.Common.Http.MaxRequestSize = 16
	router := setupRouter(as)

	body := `{"name": "Someone With A Long Name", "age": 30}`
	req := httptest.NewRequest(http.MethodPost, "/create_user", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.GreaterOrEqual(t, w.Code, http.StatusBadRequest)
	assert.NotEqual(t, http.StatusCreated, w.Code)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, logLevel("DEBUG"))
	assert.Equal(t, zapcore.DebugLevel, logLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, logLevel(" Warn "))
	assert.Equal(t, zapcore.ErrorLevel, logLevel("ERROR"))
	assert.Equal(t, zapcore.InfoLevel, logLevel("Info"))
	assert.Equal(t, zapcore.InfoLevel, logLevel(""))
}
