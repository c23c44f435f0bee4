package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/edubloom/edubloom-api/internal/models"
	"github.com/edubloom/edubloom-api/internal/pkg/log"
	"github.com/edubloom/edubloom-api/internal/storage"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// UpdateUserInput — частичное изменение пользователя; nil-поля не меняются.
type UpdateUserInput struct {
	Name     *string      `json:"name" validate:"omitempty,min=1,max=200"`
	Role     *models.Role `json:"role" validate:"omitempty,role"`
	Password *string      `json:"password" validate:"omitempty,min=8,max=256"`
}

// ListUsers возвращает страницу пользователей, новые первыми.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*models.PublicUser, error) {
	const op = "service.users.ListUsers"

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.storage.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]*models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}

	return out, nil
}

// GetUser возвращает пользователя. Чужие профили видят только ADMIN и SUPER_ADMIN.
func (s *Service) GetUser(ctx context.Context, actor *models.Identity, id uuid.UUID) (*models.PublicUser, error) {
	const op = "service.users.GetUser"

	if actor == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	if actor.UserID != id && !isAdmin(actor) {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user.Public(), nil
}

// UpdateUser изменяет имя, роль или пароль пользователя. Смена роли или пароля
// отзывает все сессии пользователя: новые права вступают в силу со следующим входом.
func (s *Service) UpdateUser(ctx context.Context, actor *models.Identity, id uuid.UUID, in UpdateUserInput) (*models.PublicUser, error) {
	const op = "service.users.UpdateUser"

	lg := log.From(ctx)

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%s: %w", op, &ValidationError{Issues: []FieldIssue{{Path: "name", Message: "is required"}}})
		}
		in.Name = &name
	}
	if err := validateStruct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	target, err := s.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !actor.IsSuperAdmin() {
		if target.Role == models.RoleSuperAdmin {
			return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
		}
		if in.Role != nil && *in.Role == models.RoleSuperAdmin {
			return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
		}
	}

	patch := models.UserPatch{Name: in.Name, Role: in.Role}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		patch.PasswordHash = &hash
	}

	updated, err := s.storage.UpdateUser(ctx, id, patch, s.clock())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	roleChanged := in.Role != nil && *in.Role != target.Role
	if roleChanged || in.Password != nil {
		n, err := s.storage.DeleteUserSessions(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		lg.Info("user_sessions_revoked",
			slog.String("user_id", id.String()),
			slog.Int64("sessions", n),
		)
	}

	lg.Info("user_updated",
		slog.String("user_id", id.String()),
		slog.String("actor_id", actor.UserID.String()),
		slog.Bool("role_changed", roleChanged),
		slog.Bool("password_changed", in.Password != nil),
	)

	return updated.Public(), nil
}

// DeleteUser удаляет пользователя вместе с его сессиями.
func (s *Service) DeleteUser(ctx context.Context, actor *models.Identity, id uuid.UUID) error {
	const op = "service.users.DeleteUser"

	target, err := s.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if target.Role == models.RoleSuperAdmin && !actor.IsSuperAdmin() {
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	if err := s.storage.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	actorID := ""
	if actor != nil {
		actorID = actor.UserID.String()
	}
	log.From(ctx).Info("user_deleted",
		slog.String("user_id", id.String()),
		slog.String("actor_id", actorID),
	)

	return nil
}

func isAdmin(id *models.Identity) bool {
	return id != nil && (id.Role == models.RoleAdmin || id.Role == models.RoleSuperAdmin)
}
