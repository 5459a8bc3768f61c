package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a code plus a user-facing message.
type ErrorInfo struct {
	Code    string // see codes.go
	Message string
}

// ParseError turns an untyped error into a user-facing code and message.
// Driver details are hidden; the message says enough for the user to retry or fix input.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Ошибка сервера",
		}
	}

	if e, ok := AsError(err); ok {
		return ErrorInfo{Code: codeOrDefault(e), Message: userMessage(e)}
	}

	errStr := err.Error()
	errStrLower := strings.ToLower(errStr)

	// 1. GORM
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// 2. PostgreSQL / SQLite constraint violations

	// 2-1. unique (23505)
	if strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		return parseDuplicateKeyError(errStrLower)
	}

	// 2-2. foreign key (23503)
	if strings.Contains(errStrLower, "foreign key constraint") {
		return parseForeignKeyError(errStrLower)
	}

	// 2-3. not null (23502)
	if strings.Contains(errStrLower, "not null constraint") || strings.Contains(errStrLower, "violates not-null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "Не заполнено обязательное поле"}
	}

	// 2-4. check (23514)
	if strings.Contains(errStrLower, "check constraint") {
		return parseCheckConstraintError(errStrLower)
	}

	// 3. network / connection
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") ||
		strings.Contains(errStrLower, "deadline exceeded") {
		return ErrorInfo{
			Code:    InternalStorage,
			Message: "Хранилище недоступно. Попробуйте позже",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func parseDuplicateKeyError(errLower string) ErrorInfo {
	if strings.Contains(errLower, "sku") {
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "Такой артикул уже используется"}
	}
	if strings.Contains(errLower, "signature") {
		return ErrorInfo{Code: ValidationInvalidVariant, Message: "Варианты с одинаковыми опциями"}
	}
	if strings.Contains(errLower, "pkey") || strings.Contains(errLower, "primary key") {
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "Запись уже существует. Повторите попытку"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "Запись уже существует"}
}

func parseForeignKeyError(errLower string) ErrorInfo {
	if strings.Contains(errLower, "still referenced") {
		return ErrorInfo{Code: ResourceConflict, Message: "Есть связанные данные, удаление невозможно"}
	}
	if strings.Contains(errLower, "product_id") {
		return ErrorInfo{Code: ProductNotFound, Message: "Товар не найден"}
	}
	if strings.Contains(errLower, "variant_id") {
		return ErrorInfo{Code: VariantNotFound, Message: "Вариант не найден"}
	}
	return ErrorInfo{Code: ResourceNotFound, Message: "Связанная запись не найдена"}
}

func parseCheckConstraintError(errLower string) ErrorInfo {
	if strings.Contains(errLower, "stock") {
		return ErrorInfo{Code: OrderInsufficientStock, Message: "Недостаточно товара на складе"}
	}
	return ErrorInfo{Code: ValidationInvalidInput, Message: "Некорректные данные"}
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "variant"):
		return "Вариант не найден"
	case strings.Contains(contextLower, "product"):
		return "Товар не найден"
	case strings.Contains(contextLower, "order"):
		return "Заказ не найден"
	case strings.Contains(contextLower, "image"):
		return "Изображение не найдено"
	}
	return "Запись не найдена"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "create"), strings.Contains(contextLower, "place"):
		return "Не удалось создать запись. Попробуйте позже"
	case strings.Contains(contextLower, "update"), strings.Contains(contextLower, "save"):
		return "Не удалось сохранить изменения. Попробуйте позже"
	case strings.Contains(contextLower, "delete"):
		return "Не удалось удалить запись. Попробуйте позже"
	}
	return "Ошибка сервера. Попробуйте позже"
}
