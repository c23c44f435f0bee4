package models

import (
	"time"

	"github.com/google/uuid"
)

// User — модель пользователя в системе.
type User struct {
	ID            uuid.UUID
	Name          string
	Email         string
	PasswordHash  string
	Role          Role
	InstitutionID *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PublicUser — публичная проекция пользователя (без хэша пароля).
type PublicUser struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          Role       `json:"role"`
	InstitutionID *uuid.UUID `json:"institutionId"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Public возвращает публичную проекцию пользователя.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		InstitutionID: u.InstitutionID,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// UserPatch — частичное обновление пользователя; nil-поля не меняются.
type UserPatch struct {
	Name         *string
	Role         *Role
	PasswordHash *string
}
