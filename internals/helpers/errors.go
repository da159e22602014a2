package helper

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

/* ===============================
   Error taxonomy
=================================*/

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage failure")
)

// DomainError carries one of the sentinels above plus a caller-facing message.
// errors.Is(err, ErrConflict) etc. works through it.
type DomainError struct {
	Kind    error
	Message string
	Field   string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *DomainError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func Validation(msg string) error {
	return &DomainError{Kind: ErrValidation, Message: msg}
}

func ValidationField(field, msg string) error {
	return &DomainError{Kind: ErrValidation, Message: msg, Field: field}
}

func NotFound(msg string) error {
	return &DomainError{Kind: ErrNotFound, Message: msg}
}

func Conflict(msg string) error {
	return &DomainError{Kind: ErrConflict, Message: msg}
}

func Storage(err error) error {
	if err == nil {
		return nil
	}
	return &DomainError{Kind: ErrStorage, Message: "storage failure", Cause: err}
}

// KindOf returns the taxonomy sentinel of err (ErrStorage for anything unclassified).
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrStorage
}

/* ===============================
   DB error classification
=================================*/

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || sqlState(err) == "23505" {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate key") ||
		strings.Contains(s, "unique constraint") ||
		strings.Contains(s, "23505")
}

func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) || sqlState(err) == "23503" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}

// MapDBError converts a raw gorm/driver error into the taxonomy.
// Errors that are already classified pass through unchanged.
func MapDBError(err error, notFoundMsg, conflictMsg string) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(notFoundMsg)
	case IsUniqueViolation(err):
		return &DomainError{Kind: ErrConflict, Message: conflictMsg, Cause: err}
	case IsForeignKeyViolation(err):
		return &DomainError{Kind: ErrValidation, Message: "referenced entity does not exist", Cause: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &DomainError{Kind: ErrStorage, Message: "request cancelled", Cause: err}
	default:
		return Storage(err)
	}
}

/* ===============================
   HTTP rendering
=================================*/

func StatusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	switch KindOf(err) {
	case ErrValidation:
		return fiber.StatusBadRequest
	case ErrNotFound:
		return fiber.StatusNotFound
	case ErrConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// FromServiceError renders a service/handler error in the standard error shape.
func FromServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return JsonError(c, fe.Code, fe.Message)
	}

	status := StatusOf(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("[ERROR] %s %s: %v", c.Method(), c.Path(), err)
		return JsonError(c, status, "internal server error")
	}

	var de *DomainError
	if errors.As(err, &de) && de.Field != "" {
		return c.Status(status).JSON(ErrorResponse{
			Success:   false,
			Message:   de.Error(),
			ErrorCode: statusToErrorCode(status),
			Errors:    map[string][]string{de.Field: {de.Message}},
		})
	}
	return JsonError(c, status, err.Error())
}
