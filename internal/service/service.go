// service содержит бизнес-логику аутентификации EduBloom:
// регистрацию и вход пользователей, выпуск и ротацию сессий refresh-токенов,
// logout, проверку access-токенов и администрирование пользователей.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для конкурентного
//     использования, если потокобезопасны переданные хранилище и denylist.
//   - Ошибки возвращаются как обёртки над sentinel-ошибками ниже; маппинг
//     в HTTP-статусы выполняет только пакет internal/errors.
//   - Все отказы аутентификации внутри одной категории неразличимы снаружи.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edubloom/edubloom-api/internal/storage"
	"github.com/edubloom/edubloom-api/internal/tokens"
)

var (
	// ErrValidation — некорректный ввод. Конкретные поля описывает *ValidationError.
	// HTTP 400.
	ErrValidation = errors.New("validation error")

	// ErrConflict — email уже занят. HTTP 409.
	ErrConflict = errors.New("email already in use")

	// ErrInvalidCredentials — неизвестный email или неверный пароль (неразличимо). HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — refresh-токен не прошёл проверку подписи, срока,
	// наличия сессии или совпадения хэша. HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingToken — refresh-токен не передан. HTTP 401.
	ErrMissingToken = errors.New("refresh token missing")

	// ErrUnauthorized — access-токен отсутствует, невалиден или отозван. HTTP 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden — роль вызывающего не позволяет действие. HTTP 403.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound — запрошенная сущность не найдена. HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrSessionCollision — исчерпаны попытки сохранить сессию с уникальным id. HTTP 500.
	ErrSessionCollision = errors.New("session id collision")
)

// FieldIssue — проблема с конкретным полем входных данных.
type FieldIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError перечисляет все проблемы входных данных.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Path+": "+is.Message)
	}

	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Hasher — хэширование паролей и refresh-токенов.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(encoded, secret string) bool
}

// Denylist — отозванные идентификаторы сессий для досрочного отказа access-токенам.
type Denylist interface {
	Deny(ctx context.Context, sessionID uuid.UUID, ttl time.Duration) error
	IsDenied(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// Service описывает бизнес-логику аутентификации.
type Service struct {
	storage storage.Storage
	hasher  Hasher
	tokens  *tokens.Issuer
	deny    Denylist // может быть nil, если Redis не сконфигурирован
	now     func() time.Time

	// dummyHash сверяется при входе с неизвестным email, чтобы время ответа
	// не выдавало существование учётной записи.
	dummyHash string
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDenylist подключает denylist access-токенов.
func WithDenylist(d Denylist) Option {
	return func(s *Service) { s.deny = d }
}

// New создаёт новый экземпляр Service.
func New(st storage.Storage, hasher Hasher, issuer *tokens.Issuer, opts ...Option) (*Service, error) {
	const op = "service.New"

	s := &Service{
		storage: st,
		hasher:  hasher,
		tokens:  issuer,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.dummyHash = dummy

	return s, nil
}

// SetDenylist устанавливает denylist (опционально).
func (s *Service) SetDenylist(d Denylist) {
	s.deny = d
}

// Ping проверяет доступность хранилища (readiness).
func (s *Service) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}
