package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/edubloom/edubloom-api/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/сессия).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/id сессии).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email (точное совпадение).
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// ListUsers возвращает пользователей, новые первыми.
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	// UpdateUser применяет частичное обновление и возвращает новую версию.
	UpdateUser(ctx context.Context, id uuid.UUID, patch models.UserPatch, now time.Time) (*models.User, error)
	// DeleteUser удаляет пользователя вместе с его сессиями.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// SessionStorage выполняет операции над сессиями refresh-токенов.
type SessionStorage interface {
	// CreateSession сохраняет новую сессию; ErrAlreadyExists при повторе id.
	CreateSession(ctx context.Context, session *models.Session) error
	// SessionByID находит сессию по её id (jti refresh-токена).
	SessionByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	// DeleteSession удаляет сессию; отсутствие строки ошибкой не считается.
	DeleteSession(ctx context.Context, id uuid.UUID) error
	// DeleteUserSessions удаляет все сессии пользователя и возвращает их число.
	DeleteUserSessions(ctx context.Context, userID uuid.UUID) (int64, error)
	// RotateSession атомарно удаляет oldID и сохраняет next.
	// ErrNotFound, если oldID уже погашена конкурентным запросом.
	RotateSession(ctx context.Context, oldID uuid.UUID, next *models.Session) error
	// DeleteExpiredSessions удаляет все сессии с expires_at <= now.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Storage задает контракт работы с хранилищем.
type Storage interface {
	UserStorage
	SessionStorage
	Ping(ctx context.Context) error
	Close()
}
