package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Sentinel errors for the session/presence core. Handlers translate these
// into HTTP statuses with ToFiber; services return them wrapped or bare.
var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrSessionEnded        = errors.New("session has ended")
	ErrAlreadyEnded        = errors.New("session already ended")
	ErrNotActiveMember     = errors.New("not an active session member")
	ErrCannotRemoveCreator = errors.New("the session creator cannot be removed")
)

// ValidationError carries a field name so clients can highlight bad input.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidation(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// ToFiber maps a core error to a fiber error with the right status code.
// Unknown errors become 500s with their message intact.
func ToFiber(err error) error {
	var verr ValidationError
	switch {
	case errors.As(err, &verr):
		return fiber.NewError(fiber.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrSessionEnded),
		errors.Is(err, ErrAlreadyEnded),
		errors.Is(err, ErrNotActiveMember),
		errors.Is(err, ErrCannotRemoveCreator):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
