package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/edubloom/edubloom-api/internal/models"
	"github.com/edubloom/edubloom-api/internal/service"
)

// maxBodyBytes — верхняя граница тела JSON-запроса.
const maxBodyBytes = 1 << 20

// Service — use-cases, которые обслуживают REST-хендлеры.
type Service interface {
	Register(ctx context.Context, in service.RegisterInput, actor *models.Identity) (*models.PublicUser, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*service.AuthResult, error)
	Logout(ctx context.Context, refreshToken string)
	LogoutAll(ctx context.Context, actor *models.Identity) (int64, error)

	ListUsers(ctx context.Context, limit, offset int) ([]*models.PublicUser, error)
	GetUser(ctx context.Context, actor *models.Identity, id uuid.UUID) (*models.PublicUser, error)
	UpdateUser(ctx context.Context, actor *models.Identity, id uuid.UUID, in service.UpdateUserInput) (*models.PublicUser, error)
	DeleteUser(ctx context.Context, actor *models.Identity, id uuid.UUID) error
}

// CookieOptions — параметры refresh-cookie.
type CookieOptions struct {
	Name   string
	Path   string
	Secure bool
	TTL    time.Duration
}

// Handlers агрегирует зависимости REST-хендлеров.
type Handlers struct {
	svc    Service
	cookie CookieOptions
}

func New(svc Service, cookie CookieOptions) *Handlers {
	if cookie.Name == "" {
		cookie.Name = "refreshToken"
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	return &Handlers{svc: svc, cookie: cookie}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля и хвост после объекта.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

// errMalformedBody — тело не разбирается как ожидаемый JSON-объект.
func errMalformedBody() error {
	return &service.ValidationError{Issues: []service.FieldIssue{{Path: "", Message: "malformed JSON body"}}}
}

// errInvalidID — параметр пути не является UUID.
func errInvalidID() error {
	return &service.ValidationError{Issues: []service.FieldIssue{{Path: "id", Message: "must be a valid UUID"}}}
}
