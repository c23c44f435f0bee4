package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/edubloom/edubloom-api/internal/models"
	"github.com/edubloom/edubloom-api/internal/pkg/log"
	"github.com/edubloom/edubloom-api/internal/storage"
)

// maxSessionAttempts — сколько раз пробуем новый id при коллизии первичного ключа.
const maxSessionAttempts = 3

// mintSession выпускает пару токенов под новый id сессии и готовит запись
// сессии с Argon2id-хэшем refresh-токена. В хранилище ничего не пишет.
func (s *Service) mintSession(user *models.User, now time.Time) (*models.TokenPair, *models.Session, error) {
	const op = "service.session.mintSession"

	sid := s.tokens.NewSessionID()

	access, accessExp, err := s.tokens.SignAccess(user.ID, user.Email, user.Role, sid, now)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, refreshExp, err := s.tokens.SignRefresh(user.ID, sid, now)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(refresh)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	pair := &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		SessionID:        sid,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}
	session := &models.Session{
		ID:        sid,
		UserID:    user.ID,
		TokenHash: hash,
		CreatedAt: now,
		ExpiresAt: refreshExp,
	}

	return pair, session, nil
}

// startSession создаёт новую сессию для пользователя (login).
func (s *Service) startSession(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	const op = "service.session.startSession"

	lg := log.From(ctx)

	for range maxSessionAttempts {
		pair, session, err := s.mintSession(user, s.clock())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if err := s.storage.CreateSession(ctx, session); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				lg.Warn("session_id_collision", slog.String("op", op))
				continue
			}

			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return pair, nil
	}

	lg.Error("session_collision_exceeded", slog.String("op", op))

	return nil, fmt.Errorf("%s: %w", op, ErrSessionCollision)
}

// rotateSession гасит oldID и создаёт новую сессию в одной операции хранилища.
func (s *Service) rotateSession(ctx context.Context, user *models.User, oldID uuid.UUID) (*models.TokenPair, error) {
	const op = "service.session.rotateSession"

	lg := log.From(ctx)

	for range maxSessionAttempts {
		pair, next, err := s.mintSession(user, s.clock())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		err = s.storage.RotateSession(ctx, oldID, next)
		switch {
		case err == nil:
			return pair, nil
		case errors.Is(err, storage.ErrAlreadyExists):
			lg.Warn("session_id_collision", slog.String("op", op))
			continue
		case errors.Is(err, storage.ErrNotFound):
			// Старую сессию уже погасил конкурентный refresh.
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		default:
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	lg.Error("session_collision_exceeded", slog.String("op", op))

	return nil, fmt.Errorf("%s: %w", op, ErrSessionCollision)
}

// burnSession удаляет сессию при обнаружении аномалии; ошибки только логируются.
func (s *Service) burnSession(ctx context.Context, id uuid.UUID, reason string) {
	const op = "service.session.burnSession"

	lg := log.From(ctx)
	lg.Warn("session_burned",
		slog.String("op", op),
		slog.String("session_id", id.String()),
		slog.String("reason", reason),
	)

	if err := s.storage.DeleteSession(ctx, id); err != nil {
		lg.Error("session_burn_failed",
			slog.String("op", op),
			slog.String("session_id", id.String()),
			slog.String("err", err.Error()),
		)
	}
}

// denySession кладёт id сессии в denylist на время жизни access-токена.
func (s *Service) denySession(ctx context.Context, id uuid.UUID) {
	const op = "service.session.denySession"

	if s.deny == nil || id == uuid.Nil {
		return
	}

	if err := s.deny.Deny(ctx, id, s.tokens.AccessTTL()); err != nil {
		log.From(ctx).Error("denylist_write_failed",
			slog.String("op", op),
			slog.String("session_id", id.String()),
			slog.String("err", err.Error()),
		)
	}
}
