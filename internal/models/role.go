package models

import "strings"

// Role — роль пользователя платформы.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleFaculty    Role = "FACULTY"
	RoleGuardian   Role = "GUARDIAN"
	RoleStudent    Role = "STUDENT"
)

// Roles — все допустимые роли в порядке убывания полномочий.
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleFaculty, RoleGuardian, RoleStudent}

// Valid сообщает, является ли роль одной из известных.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleFaculty, RoleGuardian, RoleStudent:
		return true
	default:
		return false
	}
}

// ParseRole разбирает строковое представление роли (без учёта регистра и пробелов).
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

func (r Role) String() string { return string(r) }
