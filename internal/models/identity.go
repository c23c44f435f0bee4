package models

import "github.com/google/uuid"

// Identity — личность вызывающего, восстановленная из access-токена.
type Identity struct {
	UserID    uuid.UUID
	Email     string
	Role      Role
	SessionID uuid.UUID
}

// IsSuperAdmin сообщает, обладает ли вызывающий ролью SUPER_ADMIN.
func (i *Identity) IsSuperAdmin() bool {
	return i != nil && i.Role == RoleSuperAdmin
}
