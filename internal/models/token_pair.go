package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenPair — пара токенов, выдаваемая при входе/обновлении.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API;
//   - RefreshToken — JWT с claims {sub, jti}; на сервере хранится только его хэш;
//   - SessionID — идентификатор сессии (jti обоих токенов);
//   - AccessExpiresAt/RefreshExpiresAt — моменты истечения (UTC).
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	SessionID        uuid.UUID
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
