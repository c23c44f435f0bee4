package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/edubloom/edubloom-api/internal/models"
	"github.com/edubloom/edubloom-api/internal/storage"
)

const insertSession = `
	INSERT INTO sessions(id, user_id, token_hash, created_at, expires_at)
	VALUES ($1, $2, $3, $4, $5)
`

// CreateSession сохраняет новую сессию в БД.
func (s *Storage) CreateSession(ctx context.Context, session *models.Session) error {
	const op = "storage.postgres.CreateSession"

	_, err := s.db.Exec(ctx, insertSession,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SessionByID находит сессию по её идентификатору.
func (s *Storage) SessionByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const op = "storage.postgres.SessionByID"

	query := `
		SELECT id, user_id, token_hash, created_at, expires_at
		FROM sessions
		WHERE id = $1
	`

	var session models.Session
	err := s.db.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &session, nil
}

// DeleteSession удаляет сессию; повторное удаление не ошибка.
func (s *Storage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.DeleteSession"

	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteUserSessions удаляет все сессии пользователя.
func (s *Storage) DeleteUserSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "storage.postgres.DeleteUserSessions"

	cmdTag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected(), nil
}

// RotateSession в одной транзакции удаляет старую сессию и сохраняет новую.
// Если старой строки уже нет (её погасил конкурентный refresh), транзакция
// откатывается и возвращается storage.ErrNotFound.
func (s *Storage) RotateSession(ctx context.Context, oldID uuid.UUID, next *models.Session) error {
	const op = "storage.postgres.RotateSession"

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		cmdTag, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, oldID)
		if err != nil {
			return err
		}
		if cmdTag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}

		_, err = tx.Exec(ctx, insertSession,
			next.ID,
			next.UserID,
			next.TokenHash,
			next.CreatedAt,
			next.ExpiresAt,
		)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		case isUniqueViolation(err):
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteExpiredSessions удаляет все просроченные сессии.
func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgres.DeleteExpiredSessions"

	cmdTag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected(), nil
}
