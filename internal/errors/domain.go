package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies a domain failure. Every kind maps to exactly one HTTP status.
type Kind string

const (
	KindValidation            Kind = "validation"
	KindNotFound              Kind = "not_found"
	KindInsufficientStock     Kind = "insufficient_stock"
	KindGenerationUnsupported Kind = "generation_unsupported"
	KindForbidden             Kind = "forbidden"
	KindStorage               Kind = "storage"
)

// Error is the structured failure returned by services. Entity/EntityID name
// the offending product, group, variant or order.
type Error struct {
	Kind     Kind
	Code     string
	Message  string
	Entity   string
	EntityID string
	Err      error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Entity != "" {
		msg += fmt.Sprintf(" (%s %s)", e.Entity, e.EntityID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can test errors.Is(err, &Error{Kind: KindNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// Status returns the HTTP status for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientStock:
		return http.StatusConflict
	case KindGenerationUnsupported:
		return http.StatusUnprocessableEntity
	case KindForbidden:
		return http.StatusForbidden
	case KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is checks.
var (
	ErrValidation            = &Error{Kind: KindValidation}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrInsufficientStock     = &Error{Kind: KindInsufficientStock}
	ErrGenerationUnsupported = &Error{Kind: KindGenerationUnsupported}
	ErrForbidden             = &Error{Kind: KindForbidden}
	ErrStorage               = &Error{Kind: KindStorage}
)

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// ValidationOn names the entity that failed validation.
func ValidationOn(code, message, entity, id string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message, Entity: entity, EntityID: id}
}

func NotFoundEntity(code, entity, id string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: entity + " not found", Entity: entity, EntityID: id}
}

func InsufficientStock(productID, variantID string, requested, available int) *Error {
	return &Error{
		Kind:     KindInsufficientStock,
		Code:     OrderInsufficientStock,
		Message:  fmt.Sprintf("requested %d, available %d (product %s)", requested, available, productID),
		Entity:   "variant",
		EntityID: variantID,
	}
}

func Unsupported(groupID, inputType string) *Error {
	return &Error{
		Kind:     KindGenerationUnsupported,
		Code:     GenerationUnsupported,
		Message:  fmt.Sprintf("auto-generation does not support %s groups", inputType),
		Entity:   "group",
		EntityID: groupID,
	}
}

func ForbiddenErr(code, message string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: message}
}

// Storage wraps a backing-store failure. Context deadlines land here too.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Code: InternalStorage, Message: op + " failed", Err: err}
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

// FromStore converts a raw gorm/driver error into a domain error.
// Record-not-found becomes NotFound for the named entity, anything else Storage.
func FromStore(err error, op, entity, id string) error {
	if err == nil {
		return nil
	}
	if _, ok := AsError(err); ok {
		return err
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return NotFoundEntity(notFoundCode(entity), entity, id)
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return &Error{Kind: KindStorage, Code: InternalStorage, Message: op + " timed out", Err: err}
	}
	return Storage(op, err)
}

func notFoundCode(entity string) string {
	switch entity {
	case "product":
		return ProductNotFound
	case "variant":
		return VariantNotFound
	case "order":
		return OrderNotFound
	}
	return ResourceNotFound
}
