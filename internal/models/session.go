package models

import (
	"time"

	"github.com/google/uuid"
)

// Session — серверная запись о выданном и ещё не погашенном refresh-токене.
//
// ID совпадает с claim jti внутри refresh-токена; сам токен не хранится,
// только его Argon2id-хэш.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired сообщает, истекла ли сессия к моменту now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
