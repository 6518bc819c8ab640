package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eion/userops/internal/users"
)

// Recorder receives the outcome of every dispatched command
type Recorder interface {
	Record(ctx context.Context, text, action string, started time.Time, err error, errType string)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, string, time.Time, error, string) {}

// Dispatcher maps free text to a user service call
type Dispatcher struct {
	understander Understander
	userService  users.UserService
	recorder     Recorder
	logger       *zap.Logger
}

// NewDispatcher creates a new dispatcher. A nil recorder disables the command log.
func NewDispatcher(understander Understander, userService users.UserService, recorder Recorder, logger *zap.Logger) *Dispatcher {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		understander: understander,
		userService:  userService,
		recorder:     recorder,
		logger:       logger,
	}
}

// Execute understands text and runs the resulting command
func (d *Dispatcher) Execute(ctx context.Context, text string) (*Result, error) {
	started := time.Now()

	cmd, err := d.understander.Understand(ctx, text)
	if err != nil {
		d.logger.Warn("Failed to understand command", zap.String("text", text), zap.Error(err))
		d.recorder.Record(ctx, text, "", started, err, ErrorType(err))
		return nil, err
	}

	d.logger.Info("Understood command", zap.String("text", text), zap.String("action", cmd.Action))

	result, err := d.Run(ctx, text, cmd)
	if err != nil {
		d.recorder.Record(ctx, text, cmd.Action, started, err, ErrorType(err))
		return nil, err
	}

	d.recorder.Record(ctx, text, cmd.Action, started, nil, "")
	return result, nil
}

// Run executes an already structured command
func (d *Dispatcher) Run(ctx context.Context, text string, cmd *Command) (*Result, error) {
	if _, ok := LookupOperation(cmd.Action); !ok {
		return nil, NewUnknownActionError(cmd.Action)
	}

	var (
		data interface{}
		err  error
	)
	switch cmd.Action {
	case ActionCreateUser:
		var name string
		var age int
		if name, age, err = userFields(cmd); err != nil {
			return nil, err
		}
		data, err = d.userService.CreateUser(ctx, name, age)

	case ActionDeleteUser:
		var name string
		var age int
		if name, age, err = userFields(cmd); err != nil {
			return nil, err
		}
		var removed int
		removed, err = d.userService.DeleteUser(ctx, name, age)
		data = DeleteResult{Name: name, Age: age, Removed: removed}

	case ActionGetAllUsers:
		data, err = d.userService.GetAllUsers(ctx)

	case ActionGetAddedUser:
		data, err = d.userService.GetAddedUsers(ctx)

	case ActionCalcAverageAge:
		data, err = d.userService.CalcAverageAgeByFirstLetter(ctx)
	}
	if err != nil {
		return nil, err
	}

	return &Result{Action: cmd.Action, Command: text, Data: data}, nil
}

// userFields extracts name and age from a command payload
func userFields(cmd *Command) (string, int, error) {
	rawName, ok := cmd.Data[users.FieldName]
	if !ok || rawName == nil {
		return "", 0, users.NewMissingFieldError(users.FieldName)
	}
	name, ok := rawName.(string)
	if !ok {
		return "", 0, NewInvalidCommandError(cmd.Action, fmt.Sprintf("name must be a string, got %T", rawName), nil)
	}

	rawAge, ok := cmd.Data[users.FieldAge]
	if !ok || rawAge == nil {
		return "", 0, users.NewMissingFieldError(users.FieldAge)
	}
	age, err := toAge(rawAge)
	if err != nil {
		return "", 0, users.NewInvalidAgeError(rawAge, err)
	}

	return name, age, nil
}

// toAge accepts a whole JSON number or a numeric string
func toAge(v interface{}) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("%v is not a whole number", n)
		}
		if n > math.MaxInt32 || n < math.MinInt32 {
			return 0, fmt.Errorf("%v is out of range", n)
		}
		return int(n), nil
	case int:
		return ageInRange(int64(n))
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, err
		}
		return ageInRange(i)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, err
		}
		return ageInRange(i)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func ageInRange(n int64) (int, error) {
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, fmt.Errorf("%d is out of range", n)
	}
	return int(n), nil
}
