package commands

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/eion/userops/internal/users"
)

// CommandError represents a failure to turn text into an executable command
type CommandError struct {
	Type    string
	Action  string
	Message string
	Cause   error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command error [%s]", e.Type)
	if e.Action != "" {
		msg = fmt.Sprintf("%s for action '%s'", msg, e.Action)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Cause
}

// Command error types
const (
	CommandErrorTypeUnknownAction       = "unknown_action"
	CommandErrorTypeInvalidCommand      = "invalid_command"
	CommandErrorTypeUnderstandingFailed = "understanding_failed"
	CommandErrorTypeRecognitionFailed   = "recognition_failed"
	CommandErrorTypeInvalidAudio        = "invalid_audio"
)

// NewUnknownActionError creates an error for an action outside the manifest
func NewUnknownActionError(action string) *CommandError {
	return &CommandError{
		Type:    CommandErrorTypeUnknownAction,
		Action:  action,
		Message: "unrecognized command",
	}
}

// NewInvalidCommandError creates an error for a command whose payload cannot be used
func NewInvalidCommandError(action, message string, cause error) *CommandError {
	return &CommandError{
		Type:    CommandErrorTypeInvalidCommand,
		Action:  action,
		Message: message,
		Cause:   cause,
	}
}

// NewUnderstandingError wraps a language model failure
func NewUnderstandingError(cause error) *CommandError {
	return &CommandError{
		Type:    CommandErrorTypeUnderstandingFailed,
		Message: "language model could not interpret the command",
		Cause:   cause,
	}
}

// NewRecognitionError wraps a speech recognition failure
func NewRecognitionError(cause error) *CommandError {
	return &CommandError{
		Type:    CommandErrorTypeRecognitionFailed,
		Message: "speech recognition failed",
		Cause:   cause,
	}
}

// NewInvalidAudioError creates an error for an upload the recognizer cannot accept
func NewInvalidAudioError(filename, message string) *CommandError {
	return &CommandError{
		Type:    CommandErrorTypeInvalidAudio,
		Message: fmt.Sprintf("%s %s", filename, message),
	}
}

// IsCommandError reports whether err carries a CommandError
func IsCommandError(err error) bool {
	var target *CommandError
	return errors.As(err, &target)
}

// ErrorType returns the machine readable type of err
func ErrorType(err error) string {
	var cerr *CommandError
	if errors.As(err, &cerr) {
		return cerr.Type
	}
	if t := users.ErrorType(err); t != "" {
		return t
	}
	return "internal_error"
}

// StatusCode maps a dispatch error to an HTTP status
func StatusCode(err error) int {
	var cerr *CommandError
	if errors.As(err, &cerr) {
		switch cerr.Type {
		case CommandErrorTypeUnderstandingFailed, CommandErrorTypeRecognitionFailed:
			return http.StatusBadGateway
		case CommandErrorTypeInvalidAudio:
			return http.StatusUnprocessableEntity
		default:
			return http.StatusBadRequest
		}
	}
	return users.StatusCode(err)
}
