// errors стандартизирует ответы об ошибках HTTP-слоя EduBloom API.
// На вход он принимает ошибку сервисного слоя (обёртку над sentinel-ошибками
// internal/service), а на выход даёт:
//   - корректный HTTP-статус;
//   - стабильный машиночитаемый code и краткое безопасное message.
//
// Сообщения фиксированы для каждой категории: причина отказа аутентификации
// (неизвестный email, неверный пароль, истёкший или погашенный токен) наружу не выдаётся.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/edubloom/edubloom-api/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// ErrRateLimited — превышен лимит запросов с одного адреса. HTTP 429.
var ErrRateLimited = stderrors.New("rate limit exceeded")

// APIError — единый формат для фронта.
// Details заполняется только для ошибок валидации.
type APIError struct {
	Code      string               `json:"code"`
	Message   string               `json:"message"`
	RequestID string               `json:"request_id,omitempty"`
	Details   []service.FieldIssue `json:"details,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку сервисного слоя в HTTP-статус и тело ответа.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal;
//   - *service.ValidationError — 400 с перечнем полей в details;
//   - известные sentinel-ошибки — по таблице baseFromService;
//   - context.Canceled — 499, context.DeadlineExceeded — 504;
//   - прочее — 500/internal без утечки деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return internal()
	}

	var verr *service.ValidationError
	if stderrors.As(err, &verr) {
		return http.StatusBadRequest, ErrorResponse{
			Error: APIError{
				Code:    "validation_error",
				Message: "validation error",
				Details: verr.Issues,
			},
		}
	}

	httpStatus, code, msg, ok := baseFromService(err)
	if !ok {
		return internal()
	}

	return httpStatus, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func internal() (int, ErrorResponse) {
	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{
			Code:    "internal",
			Message: "internal error",
		},
	}
}

// baseFromService — маппинг ошибок сервиса -> HTTP/FE-код/сообщение:
//   - ErrValidation -> 400
//   - ErrInvalidCredentials, ErrInvalidToken, ErrMissingToken, ErrUnauthorized -> 401
//   - ErrForbidden -> 403
//   - ErrNotFound -> 404
//   - ErrConflict -> 409
//   - ErrRateLimited -> 429
//   - context.Canceled -> 499
//   - context.DeadlineExceeded -> 504
func baseFromService(err error) (int, string, string, bool) {
	switch {
	case stderrors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "validation_error", "validation error", true
	case stderrors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid credentials", true
	case stderrors.Is(err, service.ErrMissingToken):
		return http.StatusUnauthorized, "missing_token", "refresh token missing", true
	case stderrors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token", "invalid token", true
	case stderrors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "unauthorized", true
	case stderrors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden", "forbidden", true
	case stderrors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found", true
	case stderrors.Is(err, service.ErrConflict):
		return http.StatusConflict, "conflict", "email already in use", true
	case stderrors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited", "rate limit exceeded", true
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled", true
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded", true
	default:
		return 0, "", "", false
	}
}
