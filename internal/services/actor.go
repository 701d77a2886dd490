package services

import (
	"carpool-backend/internal/apperror"
	"carpool-backend/internal/models"
)

// Actor аутентифицированный пользователь, от имени которого выполняется операция
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanAccess разрешает доступ владельцу ресурса и администратору
func (a Actor) CanAccess(ownerID uint) bool {
	return a.IsAdmin() || (a.UserID != 0 && a.UserID == ownerID)
}

func (a Actor) requireOwner(ownerID uint, what string) error {
	if !a.CanAccess(ownerID) {
		return apperror.Forbidden("%s belongs to another user", what)
	}
	return nil
}
