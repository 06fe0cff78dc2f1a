package todos

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput is returned when a request fails validation. Nothing is written.
var ErrInvalidInput = errors.New("invalid input")

var validate = validator.New()

// DefaultPageSize applies when a listing is requested without a limit.
const DefaultPageSize = 100

// CreateUserInput holds the fields of a new user.
type CreateUserInput struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Email string  `json:"email" validate:"required,email"`
}

// CreateTodoInput holds the fields of a new todo.
type CreateTodoInput struct {
	Content   string    `json:"content" validate:"required,max=10000"`
	DueDate   time.Time `json:"dueDate" validate:"required"`
	Completed bool      `json:"completed"`
	UserID    int64     `json:"userId" validate:"required,gt=0"`
}

// CreateCommentInput holds the fields of a new comment.
type CreateCommentInput struct {
	Content string `json:"content" validate:"required,max=10000"`
	TodoID  int64  `json:"todoId" validate:"required,gt=0"`
}

// Page selects a window of a listing.
type Page struct {
	Skip  int `json:"skip" validate:"gte=0"`
	Limit int `json:"limit" validate:"gte=0,lte=1000"`
}

func (p Page) limit() int {
	if p.Limit == 0 {
		return DefaultPageSize
	}
	return p.Limit
}

type idInput struct {
	ID int64 `validate:"gt=0"`
}

// validateStruct validates a struct based on its validation tags
func validateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func validateID(id int64) error {
	return validateStruct(idInput{ID: id})
}

// formatValidationError formats validation errors into readable messages
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		msgs := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			msgs = append(msgs, formatFieldError(e))
		}
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// formatFieldError formats a single field validation error
func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
