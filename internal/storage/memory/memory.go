// memory — потокобезопасная реализация storage.Storage в памяти процесса.
// Повторяет семантику postgres-реализации (уникальность email и id сессии,
// каскадное удаление сессий, атомарная ротация) и используется в тестах
// и локальных запусках без БД.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edubloom/edubloom-api/internal/models"
	"github.com/edubloom/edubloom-api/internal/storage"
)

// Storage хранит пользователей и сессии в map под одним мьютексом.
type Storage struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*models.User
	byEmail  map[string]uuid.UUID
	sessions map[uuid.UUID]*models.Session
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		users:    make(map[uuid.UUID]*models.User),
		byEmail:  make(map[string]uuid.UUID),
		sessions: make(map[uuid.UUID]*models.Session),
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.InstitutionID != nil {
		id := *u.InstitutionID
		c.InstitutionID = &id
	}
	return &c
}

func cloneSession(s *models.Session) *models.Session {
	c := *s
	return &c
}

func (s *Storage) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Storage) Close() {}

// SaveUser создает нового пользователя.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.memory.SaveUser"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}
	if _, ok := s.byEmail[user.Email]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	s.users[user.ID] = cloneUser(user)
	s.byEmail[user.Email] = user.ID

	return nil
}

// UserByEmail находит пользователя по email.
func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.memory.UserByEmail"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return cloneUser(s.users[id]), nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.memory.UserByID"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return cloneUser(u), nil
}

// ListUsers возвращает страницу пользователей, новые первыми.
func (s *Storage) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	const op = "storage.memory.ListUsers"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	all := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, cloneUser(u))
	}
	s.mu.RUnlock()

	slices.SortFunc(all, func(a, b *models.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})

	if offset >= len(all) {
		return []*models.User{}, nil
	}
	end := min(offset+limit, len(all))

	return all[offset:end], nil
}

// UpdateUser применяет частичное обновление.
func (s *Storage) UpdateUser(ctx context.Context, id uuid.UUID, patch models.UserPatch, now time.Time) (*models.User, error) {
	const op = "storage.memory.UpdateUser"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	u.UpdatedAt = now

	return cloneUser(u), nil
}

// DeleteUser удаляет пользователя и все его сессии.
func (s *Storage) DeleteUser(ctx context.Context, id uuid.UUID) error {
	const op = "storage.memory.DeleteUser"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	delete(s.byEmail, u.Email)
	delete(s.users, id)
	s.deleteUserSessionsLocked(id)

	return nil
}

// CreateSession сохраняет новую сессию.
func (s *Storage) CreateSession(ctx context.Context, session *models.Session) error {
	const op = "storage.memory.CreateSession"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}
	s.sessions[session.ID] = cloneSession(session)

	return nil
}

// SessionByID находит сессию по id.
func (s *Storage) SessionByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const op = "storage.memory.SessionByID"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return cloneSession(sess), nil
}

// DeleteSession удаляет сессию; отсутствие строки не ошибка.
func (s *Storage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	const op = "storage.memory.DeleteSession"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	return nil
}

// DeleteUserSessions удаляет все сессии пользователя.
func (s *Storage) DeleteUserSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "storage.memory.DeleteUserSessions"

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteUserSessionsLocked(userID), nil
}

func (s *Storage) deleteUserSessionsLocked(userID uuid.UUID) int64 {
	var n int64
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// RotateSession атомарно заменяет oldID на next.
func (s *Storage) RotateSession(ctx context.Context, oldID uuid.UUID, next *models.Session) error {
	const op = "storage.memory.RotateSession"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[oldID]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if _, ok := s.sessions[next.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	delete(s.sessions, oldID)
	s.sessions[next.ID] = cloneSession(next)

	return nil
}

// DeleteExpiredSessions удаляет сессии с expires_at <= now.
func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.memory.DeleteExpiredSessions"

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			n++
		}
	}

	return n, nil
}

var _ storage.Storage = (*Storage)(nil)
