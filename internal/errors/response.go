package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error    string `json:"error"`   // error code the frontend maps
	Message  string `json:"message"` // human readable (Russian)
	Entity   string `json:"entity,omitempty"`
	EntityID string `json:"entity_id,omitempty"`
}

// RespondWithError writes an error body.
// statusCode: HTTP status
// errorCode: constant from codes.go
// message: text shown to the user
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// Respond maps a service error to a response. Typed errors keep their kind's
// status; anything else goes through ParseError.
func Respond(c *gin.Context, err error, context string) {
	if e, ok := AsError(err); ok {
		c.JSON(e.Status(), ErrorResponse{
			Error:    codeOrDefault(e),
			Message:  userMessage(e),
			Entity:   e.Entity,
			EntityID: e.EntityID,
		})
		return
	}
	info := ParseError(err, context)
	c.JSON(statusForCode(info.Code), ErrorResponse{
		Error:   info.Code,
		Message: info.Message,
	})
}

// Shorthand responders

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Требуется авторизация"
	}
	RespondWithError(c, http.StatusUnauthorized, AuthzTokenMissing, message)
}

func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Доступ запрещён"
	}
	RespondWithError(c, http.StatusForbidden, AuthzForbidden, message)
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func Conflict(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusConflict, errorCode, message)
}

func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Ошибка сервера. Попробуйте позже"
	}
	RespondWithError(c, http.StatusInternalServerError, InternalServerError, message)
}

// ValidationError carries per-field messages.
type ValidationError struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func RespondWithValidationError(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusBadRequest, ValidationError{
		Error:   ValidationInvalidInput,
		Message: "Некорректные данные",
		Fields:  fields,
	})
}

func codeOrDefault(e *Error) string {
	if e.Code != "" {
		return e.Code
	}
	switch e.Kind {
	case KindValidation:
		return ValidationInvalidInput
	case KindNotFound:
		return ResourceNotFound
	case KindForbidden:
		return AuthzForbidden
	case KindStorage:
		return InternalStorage
	}
	return InternalServerError
}

func userMessage(e *Error) string {
	switch e.Kind {
	case KindInsufficientStock:
		return "Недостаточно товара на складе: " + e.Message
	case KindStorage:
		// driver details stay in the logs
		return "Хранилище недоступно. Попробуйте позже"
	}
	if e.Message == "" {
		return "Ошибка запроса"
	}
	return e.Message
}

func statusForCode(code string) int {
	switch code {
	case ResourceNotFound, ProductNotFound, VariantNotFound, OrderNotFound:
		return http.StatusNotFound
	case ResourceAlreadyExists, ResourceConflict, OrderInsufficientStock:
		return http.StatusConflict
	case ValidationInvalidInput, ValidationRequired, ValidationInvalidVariant:
		return http.StatusBadRequest
	case InternalStorage:
		return http.StatusServiceUnavailable
	case InternalExternalAPI:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
