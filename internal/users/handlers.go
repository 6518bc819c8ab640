package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandlers provides HTTP handlers for user operations
type UserHandlers struct {
	userService UserService
	logger      *zap.Logger
}

// NewUserHandlers creates new user handlers
func NewUserHandlers(userService UserService, logger *zap.Logger) *UserHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandlers{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers all user routes
func (h *UserHandlers) RegisterRoutes(router gin.IRoutes) {
	router.POST("/create_user", h.CreateUser)
	router.DELETE("/delete_user", h.DeleteUser)
	router.GET("/get_added_user", h.GetAddedUsers)
	router.GET("/get_all_users", h.GetAllUsers)
	router.POST("/add_multiple_users_from_csv", h.ImportUsers)
	router.GET("/calc_average_age_of_user_grouped_by_first_char_of_name", h.CalcAverageAge)
	router.GET("/users/groups", h.GroupMean)
}

func (h *UserHandlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, bindError(err, req.Age))
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), req.Name, *req.Age)
	if err != nil {
		h.logger.Warn("Failed to create user", zap.String("name", req.Name), zap.Error(err))
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *UserHandlers) DeleteUser(c *gin.Context) {
	var req DeleteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, bindError(err, req.Age))
		return
	}

	removed, err := h.userService.DeleteUser(c.Request.Context(), req.Name, *req.Age)
	if err != nil {
		h.logger.Warn("Failed to delete user",
			zap.String("name", req.Name),
			zap.Int("age", *req.Age),
			zap.Error(err))
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully", "removed": removed})
}

func (h *UserHandlers) GetAddedUsers(c *gin.Context) {
	added, err := h.userService.GetAddedUsers(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get added users", zap.Error(err))
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, added)
}

func (h *UserHandlers) GetAllUsers(c *gin.Context) {
	all, err := h.userService.GetAllUsers(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get users", zap.Error(err))
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}

// ImportUsers adds every row of an uploaded CSV file as a new user
func (h *UserHandlers) ImportUsers(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		WriteFormFileError(c, "file", err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", zap.String("filename", fh.Filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer f.Close()

	result, err := h.userService.ImportUsers(c.Request.Context(), f)
	if err != nil {
		h.logger.Warn("Rejected user import", zap.String("filename", fh.Filename), zap.Error(err))
		WriteError(c, err)
		return
	}

	h.logger.Info("Imported users",
		zap.String("filename", fh.Filename),
		zap.Int("imported", result.Imported))
	c.JSON(http.StatusOK, result)
}

func (h *UserHandlers) CalcAverageAge(c *gin.Context) {
	means, err := h.userService.CalcAverageAgeByFirstLetter(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to calculate average age", zap.Error(err))
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, means)
}

// GroupMean handles GET /users/groups?by=name&first_char=true&mean=age
func (h *UserHandlers) GroupMean(c *gin.Context) {
	by := c.DefaultQuery("by", FieldName)
	field := c.DefaultQuery("mean", FieldAge)

	firstChar := false
	if raw := c.Query("first_char"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "first_char must be a boolean", "type": "invalid_query"})
			return
		}
		firstChar = v
	}

	means, err := h.userService.GroupMean(c.Request.Context(), by, firstChar, field)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"by":         by,
		"first_char": firstChar,
		"mean":       field,
		"groups":     means,
	})
}

// bindError turns a request binding failure into a validation error
func bindError(err error, age *int) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field == FieldAge {
		return NewInvalidAgeError(typeErr.Value, err)
	}
	if age == nil {
		return NewMissingFieldError(FieldAge)
	}
	return &ValidationError{
		Type:    ValidationErrorTypeInvalidRequest,
		Message: "invalid request body",
		Cause:   err,
	}
}

// StatusCode maps a users error to an HTTP status
func StatusCode(err error) int {
	switch {
	case IsValidationError(err):
		return http.StatusUnprocessableEntity
	case IsNotFound(err):
		return http.StatusNotFound
	case IsSchemaError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// WriteFormFileError answers a failed multipart lookup of field.
// A body cut off by the request size cap is 413, anything else means the field is missing.
func WriteFormFileError(c *gin.Context, field string, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit),
			"type":  "payload_too_large",
		})
		return
	}
	WriteError(c, NewMissingFieldError(field))
}

// WriteError writes err as {"error": ..., "type": ...} with the mapped status
func WriteError(c *gin.Context, err error) {
	status := StatusCode(err)
	errType := ErrorType(err)
	if errType == "" {
		errType = "internal_error"
	}
	c.JSON(status, gin.H{"error": err.Error(), "type": errType})
}
