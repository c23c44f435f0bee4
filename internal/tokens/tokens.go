// tokens выпускает и проверяет JWT (HS256).
//
// Access- и refresh-токены подписываются разными секретами. Refresh-токен
// несёт только sub и jti (идентификатор сессии) и маркер typ=refresh,
// поэтому его нельзя предъявить вместо access-токена даже при ошибке в конфиге.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/edubloom/edubloom-api/internal/config"
	"github.com/edubloom/edubloom-api/internal/models"
)

const (
	typAccess  = "access"
	typRefresh = "refresh"

	leeway = 5 * time.Second
)

// ErrInvalidToken — подпись, формат, срок действия или тип токена не прошли проверку.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims — полезная нагрузка access-токена.
type AccessClaims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	Typ   string      `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims — полезная нагрузка refresh-токена: только субъект и сессия.
type RefreshClaims struct {
	Typ string `json:"typ"`
	jwt.RegisteredClaims
}

// Issuer подписывает и проверяет токены. Секреты задаются один раз при создании.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// Option настраивает Issuer.
type Option func(*Issuer)

// WithClock подменяет источник времени для проверки exp (используется в тестах).
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer создаёт Issuer из конфигурации auth.
func NewIssuer(cfg config.AuthConfig, opts ...Option) (*Issuer, error) {
	const op = "tokens.NewIssuer"

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("%s: %w", op, errors.New("empty signing secret"))
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("%s: %w", op, errors.New("access and refresh secrets must differ"))
	}

	i := &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}
	for _, o := range opts {
		o(i)
	}

	return i, nil
}

// AccessTTL возвращает время жизни access-токена.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL возвращает время жизни refresh-токена.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// NewSessionID генерирует идентификатор сессии (UUIDv4, 122 бита случайности).
// Уникальность гарантирует первичный ключ хранилища, а не генератор.
func (i *Issuer) NewSessionID() uuid.UUID {
	return uuid.New()
}

// SignAccess подписывает access-токен и возвращает момент его истечения.
func (i *Issuer) SignAccess(userID uuid.UUID, email string, role models.Role, sessionID uuid.UUID, now time.Time) (string, time.Time, error) {
	const op = "tokens.SignAccess"

	exp := now.Add(i.accessTTL)
	claims := AccessClaims{
		Email: email,
		Role:  role,
		Typ:   typAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        sessionID.String(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp, nil
}

// SignRefresh подписывает refresh-токен и возвращает момент его истечения.
func (i *Issuer) SignRefresh(userID, sessionID uuid.UUID, now time.Time) (string, time.Time, error) {
	const op = "tokens.SignRefresh"

	exp := now.Add(i.refreshTTL)
	claims := RefreshClaims{
		Typ: typRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        sessionID.String(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp, nil
}

// VerifyAccess проверяет подпись, срок и тип access-токена.
func (i *Issuer) VerifyAccess(token string) (*AccessClaims, error) {
	const op = "tokens.VerifyAccess"

	claims := &AccessClaims{}
	if err := i.parse(token, claims, i.accessSecret); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if claims.Typ != typAccess {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}

// VerifyRefresh проверяет подпись, срок и тип refresh-токена.
func (i *Issuer) VerifyRefresh(token string) (*RefreshClaims, error) {
	const op = "tokens.VerifyRefresh"

	claims := &RefreshClaims{}
	if err := i.parse(token, claims, i.refreshSecret); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if claims.Typ != typRefresh {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}

// parse сводит любые ошибки jwt к ErrInvalidToken.
func (i *Issuer) parse(token string, claims jwt.Claims, secret []byte) error {
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return ErrInvalidToken
	}

	return nil
}

// SubjectAndSession извлекает uuid пользователя и сессии из зарегистрированных claims.
func SubjectAndSession(rc jwt.RegisteredClaims) (uuid.UUID, uuid.UUID, error) {
	uid, err := uuid.Parse(rc.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidToken
	}

	sid, err := uuid.Parse(rc.ID)
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidToken
	}

	return uid, sid, nil
}
