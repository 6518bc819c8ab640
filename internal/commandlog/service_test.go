package commandlog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type brokenStore struct {
	*MemoryStore
}

func (brokenStore) CreateEntry(ctx context.Context, entry *Entry) error {
	return errors.New("disk full")
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()

	t.Run("RecordsSuccessAndFailure", func(t *testing.T) {
		store := NewMemoryStore()
		rec := NewRecorder(store, zap.NewNop())
		started := time.Now()

		rec.Record(ctx, "add Carol aged 40", "create_user", started, nil, "")
		rec.Record(ctx, "remove Dave", "delete_user", started, errors.New("user not found"), "user_not_found")

		entries, err := rec.List(ctx, "", 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		assert.Equal(t, "delete_user", entries[0].Action)
		assert.False(t, entries[0].Success)
		assert.Equal(t, "user_not_found", entries[0].ErrorType)
		assert.Equal(t, "user not found", entries[0].ErrorMsg)

		assert.True(t, entries[1].Success)
		assert.Empty(t, entries[1].ErrorMsg)
		assert.NotEmpty(t, entries[1].ID)
		assert.GreaterOrEqual(t, entries[1].DurationMs, int64(0))

		filtered, err := rec.List(ctx, "create_user", 10)
		require.NoError(t, err)
		assert.Len(t, filtered, 1)
	})

	t.Run("StoreFailureIsLoggedNotReturned", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		rec := NewRecorder(brokenStore{NewMemoryStore()}, zap.New(core))

		assert.NotPanics(t, func() {
			rec.Record(ctx, "list everyone", "get_all_users", time.Now(), nil, "")
		})
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "Failed to record command", logs.All()[0].Message)
	})

	t.Run("Prune", func(t *testing.T) {
		store := NewMemoryStore()
		rec := NewRecorder(store, zap.NewNop())
		now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		rec.now = func() time.Time { return now }

		rec.Record(ctx, "old", "get_all_users", now.Add(-48*time.Hour), nil, "")
		rec.Record(ctx, "fresh", "get_all_users", now.Add(-time.Hour), nil, "")

		removed, err := rec.Prune(ctx, 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		entries, err := rec.List(ctx, "", 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "fresh", entries[0].Text)
	})
}

func TestSummarize(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		s := Summarize(nil)
		assert.Zero(t, s.TotalCommands)
		assert.Zero(t, s.SuccessRate)
		assert.NotNil(t, s.ActionBreakdown)
		assert.NotNil(t, s.ErrorPatterns)
		assert.Nil(t, s.FirstCommand)
	})

	t.Run("Mixed", func(t *testing.T) {
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		entries := []*Entry{
			newEntry("create_user", true, base),
			newEntry("delete_user", false, base.Add(time.Minute)),
			newEntry("delete_user", false, base.Add(2*time.Minute)),
			{ID: "x", Text: "sing a song", ErrorMsg: "invalid command", Timestamp: base.Add(3 * time.Minute)},
		}

		s := Summarize(entries)
		assert.Equal(t, 4, s.TotalCommands)
		assert.Equal(t, 1, s.Succeeded)
		assert.Equal(t, 3, s.Failed)
		assert.InDelta(t, 0.25, s.SuccessRate, 1e-9)
		assert.Equal(t, map[string]int{"create_user": 1, "delete_user": 2, "unknown": 1}, s.ActionBreakdown)

		require.Len(t, s.ErrorPatterns, 2)
		assert.Equal(t, "delete_user", s.ErrorPatterns[0].Action)
		assert.Equal(t, 2, s.ErrorPatterns[0].Count)
		assert.True(t, s.ErrorPatterns[0].LastOccurred.Equal(base.Add(2*time.Minute)))
		assert.Equal(t, "validation", s.ErrorPatterns[1].ErrorType)

		assert.True(t, s.FirstCommand.Equal(base))
		assert.True(t, s.LastCommand.Equal(base.Add(3*time.Minute)))
	})
}

func TestHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	rec := NewRecorder(NewMemoryStore(), zap.NewNop())
	rec.Record(ctx, "add Carol aged 40", "create_user", time.Now(), nil, "")
	rec.Record(ctx, "what is the average", "calc_average_age", time.Now(), nil, "")

	router := gin.New()
	NewHandlers(rec, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))

	t.Run("List", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/commands?limit=1", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Commands []*Entry `json:"commands"`
			Count    int      `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, "calc_average_age", body.Commands[0].Action)
	})

	t.Run("InvalidLimit", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/commands?limit=abc", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Summary", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/commands/summary", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var s Summary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
		assert.Equal(t, 2, s.TotalCommands)
		assert.Equal(t, 1.0, s.SuccessRate)
	})
}
