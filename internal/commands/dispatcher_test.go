package commands

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eion/userops/internal/users"
)

type recorded struct {
	text    string
	action  string
	err     error
	errType string
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []recorded
}

func (r *fakeRecorder) Record(ctx context.Context, text, action string, started time.Time, err error, errType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recorded{text: text, action: action, err: err, errType: errType})
}

func (r *fakeRecorder) last() recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[len(r.entries)-1]
}

type failingUnderstander struct{}

func (failingUnderstander) Understand(ctx context.Context, text string) (*Command, error) {
	return nil, NewUnderstandingError(errors.New("connection refused"))
}

func newTestDispatcher(t *testing.T, seed []users.User) (*Dispatcher, *fakeRecorder) {
	t.Helper()
	store := users.NewInMemoryStore()
	svc := users.NewUserService(store, users.NewCSVLoader(zap.NewNop()), zap.NewNop())
	if len(seed) > 0 {
		require.NoError(t, svc.AddUsers(context.Background(), seed))
	}
	rec := &fakeRecorder{}
	return NewDispatcher(NewJSONUnderstander(), svc, rec, zap.NewNop()), rec
}

func TestDispatcherExecute(t *testing.T) {
	ctx := context.Background()
	seed := []users.User{{Name: "Alice", Age: 25}, {Name: "Bob", Age: 30}}

	t.Run("CreateUser", func(t *testing.T) {
		d, rec := newTestDispatcher(t, seed)
		text := `{"action":"create_user","data":{"name":"Carol","age":40}}`

		result, err := d.Execute(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, ActionCreateUser, result.Action)
		assert.Equal(t, text, result.Command)
		assert.Equal(t, &users.User{Name: "Carol", Age: 40, IsNew: true}, result.Data)

		last := rec.last()
		assert.Equal(t, ActionCreateUser, last.action)
		assert.NoError(t, last.err)
	})

	t.Run("CreateUserAgeAsString", func(t *testing.T) {
		d, _ := newTestDispatcher(t, nil)
		result, err := d.Execute(ctx, `{"action":"create_user","data":{"name":"Carol","age":"41"}}`)
		require.NoError(t, err)
		assert.Equal(t, 41, result.Data.(*users.User).Age)
	})

	t.Run("CreateUserEmptyName", func(t *testing.T) {
		d, rec := newTestDispatcher(t, nil)
		_, err := d.Execute(ctx, `{"action":"create_user","data":{"name":"","age":20}}`)
		assert.True(t, users.IsValidationError(err))
		assert.Equal(t, users.ValidationErrorTypeEmptyName, rec.last().errType)
	})

	t.Run("CreateUserMissingAge", func(t *testing.T) {
		d, _ := newTestDispatcher(t, nil)
		_, err := d.Execute(ctx, `{"action":"create_user","data":{"name":"Carol"}}`)

		var verr *users.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, users.ValidationErrorTypeMissingField, verr.Type)
		assert.Equal(t, users.FieldAge, verr.Field)
	})

	t.Run("CreateUserFractionalAge", func(t *testing.T) {
		d, _ := newTestDispatcher(t, nil)
		_, err := d.Execute(ctx, `{"action":"create_user","data":{"name":"Carol","age":40.5}}`)

		var verr *users.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, users.ValidationErrorTypeInvalidAge, verr.Type)
	})

	t.Run("CreateUserNameNotString", func(t *testing.T) {
		d, _ := newTestDispatcher(t, nil)
		_, err := d.Execute(ctx, `{"action":"create_user","data":{"name":7,"age":40}}`)

		var cerr *CommandError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, CommandErrorTypeInvalidCommand, cerr.Type)
	})

	t.Run("DeleteUser", func(t *testing.T) {
		d, _ := newTestDispatcher(t, seed)

		result, err := d.Execute(ctx, `{"action":"delete_user","data":{"name":"Bob","age":30}}`)
		require.NoError(t, err)
		assert.Equal(t, DeleteResult{Name: "Bob", Age: 30, Removed: 1}, result.Data)

		_, err = d.Execute(ctx, `{"action":"delete_user","data":{"name":"Bob","age":30}}`)
		assert.True(t, users.IsNotFound(err))
	})

	t.Run("GetAllUsersIncludesProvenance", func(t *testing.T) {
		d, _ := newTestDispatcher(t, seed)
		_, err := d.Execute(ctx, `{"action":"create_user","data":{"name":"Carol","age":40}}`)
		require.NoError(t, err)

		result, err := d.Execute(ctx, `{"action":"get_all_users"}`)
		require.NoError(t, err)

		raw, err := json.Marshal(result.Data)
		require.NoError(t, err)
		assert.JSONEq(t, `[
			{"name":"Alice","age":25,"is_new":false},
			{"name":"Bob","age":30,"is_new":false},
			{"name":"Carol","age":40,"is_new":true}
		]`, string(raw))
	})

	t.Run("GetAddedUser", func(t *testing.T) {
		d, _ := newTestDispatcher(t, seed)
		result, err := d.Execute(ctx, `{"action":"get_added_user","data":{}}`)
		require.NoError(t, err)
		assert.Equal(t, []users.User{}, result.Data)
	})

	t.Run("CalcAverageAge", func(t *testing.T) {
		d, _ := newTestDispatcher(t, seed)
		result, err := d.Execute(ctx, `{"action":"calc_average_age"}`)
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"A": 25, "B": 30}, result.Data)
	})

	t.Run("UnknownAction", func(t *testing.T) {
		d, rec := newTestDispatcher(t, seed)
		_, err := d.Execute(ctx, `{"action":"delete_user_by_name","data":{"name":"bob"}}`)

		var cerr *CommandError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, CommandErrorTypeUnknownAction, cerr.Type)
		assert.Equal(t, "delete_user_by_name", rec.last().action)
		assert.Equal(t, CommandErrorTypeUnknownAction, rec.last().errType)
	})

	t.Run("UnderstandingFailureIsRecorded", func(t *testing.T) {
		rec := &fakeRecorder{}
		svc := users.NewUserService(users.NewInMemoryStore(), users.NewCSVLoader(nil), nil)
		d := NewDispatcher(failingUnderstander{}, svc, rec, nil)

		_, err := d.Execute(ctx, "add Carol")
		assert.Equal(t, CommandErrorTypeUnderstandingFailed, ErrorType(err))
		assert.Equal(t, "", rec.last().action)
		assert.Equal(t, "add Carol", rec.last().text)
	})

	t.Run("NilRecorder", func(t *testing.T) {
		svc := users.NewUserService(users.NewInMemoryStore(), users.NewCSVLoader(nil), nil)
		d := NewDispatcher(NewJSONUnderstander(), svc, nil, nil)
		_, err := d.Execute(ctx, `{"action":"get_all_users"}`)
		assert.NoError(t, err)
	})
}

func TestToAge(t *testing.T) {
	for _, tc := range []struct {
		in      interface{}
		want    int
		wantErr bool
	}{
		{in: 25.0, want: 25},
		{in: 7, want: 7},
		{in: " 33 ", want: 33},
		{in: json.Number("12"), want: 12},
		{in: 2.5, wantErr: true},
		{in: "abc", wantErr: true},
		{in: true, wantErr: true},
		{in: 1e20, wantErr: true},
		{in: "99999999999", wantErr: true},
		{in: " 2147483647 ", want: 2147483647},
		{in: json.Number("99999999999"), wantErr: true},
	} {
		got, err := toAge(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %v", tc.in)
			continue
		}
		require.NoError(t, err, "input %v", tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 400, StatusCode(NewUnknownActionError("x")))
	assert.Equal(t, 400, StatusCode(NewInvalidCommandError("x", "bad", nil)))
	assert.Equal(t, 502, StatusCode(NewUnderstandingError(errors.New("x"))))
	assert.Equal(t, 502, StatusCode(NewRecognitionError(errors.New("x"))))
	assert.Equal(t, 422, StatusCode(NewInvalidAudioError("clip.wav", "is empty")))
	assert.Equal(t, 422, StatusCode(users.NewEmptyNameError()))
	assert.Equal(t, 404, StatusCode(users.NewUserNotFoundError(users.User{Name: "Dave", Age: 99})))
	assert.Equal(t, 500, StatusCode(errors.New("boom")))
	assert.Equal(t, "internal_error", ErrorType(errors.New("boom")))
}
