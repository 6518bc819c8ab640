package commands

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eion/userops/internal/users"
)

func newCommandRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	d, _ := newTestDispatcher(t, []users.User{{Name: "Alice", Age: 25}, {Name: "Bob", Age: 30}})
	router := gin.New()
	NewHandlers(d, NewTextRecognizer(0), zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func postForm(router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestExecuteCommandHandler(t *testing.T) {
	router := newCommandRouter(t)

	t.Run("CalcAverageAge", func(t *testing.T) {
		w := postForm(router, "/api/v1/execute_command", url.Values{"text": {`{"action":"calc_average_age"}`}})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"action":"calc_average_age","command":"{\"action\":\"calc_average_age\"}","data":{"A":25,"B":30}}`, w.Body.String())
	})

	t.Run("UnknownAction", func(t *testing.T) {
		text := `{"action":"sing"}`
		w := postForm(router, "/api/v1/execute_command", url.Values{"text": {text}})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, CommandErrorTypeUnknownAction, body["type"])
		assert.Equal(t, text, body["command"])
	})

	t.Run("DeleteMissingUser", func(t *testing.T) {
		w := postForm(router, "/api/v1/execute_command", url.Values{"text": {`{"action":"delete_user","data":{"name":"Dave","age":99}}`}})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("MissingText", func(t *testing.T) {
		w := postForm(router, "/api/v1/execute_command", url.Values{})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestTranscribeHandler(t *testing.T) {
	router := newCommandRouter(t)

	t.Run("Transcribed", func(t *testing.T) {
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		part, err := mw.CreateFormFile("file", "command.txt")
		require.NoError(t, err)
		_, err = part.Write([]byte("list all users\n"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"text":"list all users"}`, w.Body.String())
	})

	t.Run("NotText", func(t *testing.T) {
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		part, err := mw.CreateFormFile("file", "clip.wav")
		require.NoError(t, err)
		_, err = part.Write([]byte("RIFF\xff\xfe\x00"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), CommandErrorTypeInvalidAudio)
	})

	t.Run("NoFile", func(t *testing.T) {
		w := postForm(router, "/api/v1/transcribe", url.Values{})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestListOperationsHandler(t *testing.T) {
	router := newCommandRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/operations", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Operations []Operation `json:"operations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Operations, 5)
}
