package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/edubloom/edubloom-api/internal/metrics"
	"github.com/edubloom/edubloom-api/internal/models"
	"github.com/edubloom/edubloom-api/internal/pkg/log"
	"github.com/edubloom/edubloom-api/internal/pkg/redact"
	"github.com/edubloom/edubloom-api/internal/storage"
	"github.com/edubloom/edubloom-api/internal/tokens"
)

// RegisterInput — данные для создания учётной записи.
type RegisterInput struct {
	Name          string      `json:"name" validate:"required,max=200"`
	Email         string      `json:"email" validate:"required,email,max=320"`
	Password      string      `json:"password" validate:"required,min=8,max=256"`
	Role          models.Role `json:"role" validate:"required,role"`
	InstitutionID *string     `json:"institutionId" validate:"omitempty,uuid"`
}

// LoginInput — учётные данные для входа.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthResult — итог login/refresh: пара токенов и публичная проекция пользователя.
type AuthResult struct {
	Tokens *models.TokenPair
	User   *models.PublicUser
}

// Register создаёт пользователя. Сессия не создаётся: регистрация не означает вход.
// Учётную запись SUPER_ADMIN может создать только SUPER_ADMIN.
func (s *Service) Register(ctx context.Context, in RegisterInput, actor *models.Identity) (*models.PublicUser, error) {
	const op = "service.auth.Register"

	lg := log.From(ctx)

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(in); err != nil {
		metrics.AuthEvent("register", false)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if in.Role == models.RoleSuperAdmin && !actor.IsSuperAdmin() {
		metrics.AuthEvent("register", false)
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	var institution *uuid.UUID
	if in.InstitutionID != nil {
		id, err := uuid.Parse(*in.InstitutionID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, &ValidationError{Issues: []FieldIssue{{Path: "institutionId", Message: "must be a valid UUID"}}})
		}
		institution = &id
	}

	_, err := s.storage.UserByEmail(ctx, in.Email)
	if err == nil {
		metrics.AuthEvent("register", false)
		return nil, fmt.Errorf("%s: %w", op, ErrConflict)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.createUser(ctx, in.Name, in.Email, in.Password, in.Role, institution)
	if err != nil {
		metrics.AuthEvent("register", false)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered",
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(user.Email)),
		slog.String("role", user.Role.String()),
	)
	metrics.AuthEvent("register", true)

	return user.Public(), nil
}

func (s *Service) createUser(ctx context.Context, name, email, password string, role models.Role, institution *uuid.UUID) (*models.User, error) {
	const op = "service.auth.createUser"

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.clock()
	user := &models.User{
		ID:            uuid.New(),
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		InstitutionID: institution,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrConflict)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// Login выполняет вход по email+пароль и открывает новую сессию.
// Неизвестный email и неверный пароль дают одну и ту же ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx)

	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(in); err != nil {
		metrics.AuthEvent("login", false)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Выравниваем время ответа с веткой неверного пароля.
			_ = s.hasher.Verify(s.dummyHash, in.Password)
			lg.Info("login_failed", slog.String("email", redact.Email(in.Email)))
			metrics.AuthEvent("login", false)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Verify(user.PasswordHash, in.Password) {
		lg.Info("login_failed", slog.String("email", redact.Email(in.Email)))
		metrics.AuthEvent("login", false)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.startSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("login_succeeded",
		slog.String("user_id", user.ID.String()),
		slog.String("session_id", pair.SessionID.String()),
	)
	metrics.AuthEvent("login", true)

	return &AuthResult{Tokens: pair, User: user.Public()}, nil
}

// Refresh погашает предъявленный refresh-токен и выдаёт новую пару.
// Любая аномалия приводит к ErrInvalidToken; при несовпадении хэша или
// истечении срока сессия удаляется.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	const op = "service.auth.Refresh"

	if refreshToken == "" {
		metrics.AuthEvent("refresh", false)
		return nil, fmt.Errorf("%s: %w", op, ErrMissingToken)
	}

	res, err := s.refresh(ctx, refreshToken)
	if err != nil {
		metrics.AuthEvent("refresh", false)

		if !errors.Is(err, ErrInvalidToken) {
			// Внутренние детали не выходят за пределы сервиса.
			log.From(ctx).Error("refresh_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	metrics.AuthEvent("refresh", true)

	return res, nil
}

func (s *Service) refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	const op = "service.auth.refresh"

	lg := log.From(ctx)

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		lg.Info("refresh_token_rejected", slog.String("op", op))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	userID, sessionID, err := tokens.SubjectAndSession(claims.RegisteredClaims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	session, err := s.storage.SessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Повторное предъявление погашенного токена или logout.
			lg.Warn("refresh_session_not_found",
				slog.String("session_id", sessionID.String()),
				slog.String("user_id", userID.String()),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if session.UserID != userID {
		s.burnSession(ctx, sessionID, "subject_mismatch")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if session.Expired(s.clock()) {
		s.burnSession(ctx, sessionID, "expired")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if !s.hasher.Verify(session.TokenHash, refreshToken) {
		s.burnSession(ctx, sessionID, "hash_mismatch")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.burnSession(ctx, sessionID, "user_gone")
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.rotateSession(ctx, user, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("session_rotated",
		slog.String("user_id", user.ID.String()),
		slog.String("old_session_id", sessionID.String()),
		slog.String("session_id", pair.SessionID.String()),
	)

	return &AuthResult{Tokens: pair, User: user.Public()}, nil
}

// Logout удаляет сессию предъявленного refresh-токена. Никогда не возвращает ошибку:
// отсутствующий или невалидный токен — это no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) {
	const op = "service.auth.Logout"

	defer metrics.AuthEvent("logout", true)

	if refreshToken == "" {
		return
	}

	lg := log.From(ctx)

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		lg.Debug("logout_token_ignored", slog.String("op", op))
		return
	}

	_, sessionID, err := tokens.SubjectAndSession(claims.RegisteredClaims)
	if err != nil {
		return
	}

	if err := s.storage.DeleteSession(ctx, sessionID); err != nil {
		lg.Error("logout_delete_failed",
			slog.String("op", op),
			slog.String("session_id", sessionID.String()),
			slog.String("err", err.Error()),
		)
	}
	s.denySession(ctx, sessionID)

	lg.Info("logout", slog.String("session_id", sessionID.String()))
}

// LogoutAll удаляет все сессии вызывающего и отзывает его текущий access-токен.
func (s *Service) LogoutAll(ctx context.Context, actor *models.Identity) (int64, error) {
	const op = "service.auth.LogoutAll"

	if actor == nil {
		return 0, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	n, err := s.storage.DeleteUserSessions(ctx, actor.UserID)
	if err != nil {
		metrics.AuthEvent("logout_all", false)
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.denySession(ctx, actor.SessionID)

	log.From(ctx).Info("logout_all",
		slog.String("user_id", actor.UserID.String()),
		slog.Int64("sessions", n),
	)
	metrics.AuthEvent("logout_all", true)

	return n, nil
}

// Authenticate проверяет access-токен и восстанавливает личность вызывающего.
// Любой отказ — ErrUnauthorized. Недоступность denylist трактуется как отказ.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.Identity, error) {
	const op = "service.auth.Authenticate"

	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	userID, sessionID, err := tokens.SubjectAndSession(claims.RegisteredClaims)
	if err != nil || !claims.Role.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	if s.deny != nil {
		denied, err := s.deny.IsDenied(ctx, sessionID)
		if err != nil {
			log.From(ctx).Error("denylist_read_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}
		if denied {
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}
	}

	return &models.Identity{
		UserID:    userID,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: sessionID,
	}, nil
}

// BootstrapSuperAdmin создаёт первую учётную запись SUPER_ADMIN, если email ещё свободен.
// Существующая запись не изменяется. Возвращает true, если пользователь создан.
func (s *Service) BootstrapSuperAdmin(ctx context.Context, email, password, name string) (bool, error) {
	const op = "service.auth.BootstrapSuperAdmin"

	in := RegisterInput{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
		Role:     models.RoleSuperAdmin,
	}
	if err := validateStruct(in); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	_, err := s.storage.UserByEmail(ctx, in.Email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.createUser(ctx, in.Name, in.Email, in.Password, in.Role, nil)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("super_admin_bootstrapped",
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(user.Email)),
	)

	return true, nil
}
