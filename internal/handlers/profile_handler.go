package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"carpool-backend/internal/apperror"
	"carpool-backend/internal/models"
	"carpool-backend/internal/repository"

	"github.com/gin-gonic/gin"
)

// UserStore доступ к профилю пользователя
type UserStore interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	UpdateFCMToken(ctx context.Context, userID uint, token string) error
}

func UserGetProfile(users UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)

		// Если это админ без учетной записи, возвращаем специальный ответ
		if actor.IsAdmin() && actor.UserID == 0 {
			c.JSON(http.StatusOK, models.User{
				FirstName: "Admin",
				Role:      models.RoleAdmin,
				CreatedAt: time.Now(),
			})
			return
		}

		user, err := users.GetUser(c.Request.Context(), actor.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				respondError(c, apperror.NotFound(apperror.CodeUserNotFound, "user %d not found", actor.UserID))
				return
			}
			respondError(c, apperror.Internal(err, "load user %d", actor.UserID))
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// UpdateFCMToken сохраняет токен устройства для push-уведомлений о бронированиях
func UpdateFCMToken(users UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Token string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		userID := actorFrom(c).UserID
		if err := users.UpdateFCMToken(c.Request.Context(), userID, req.Token); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				respondError(c, apperror.NotFound(apperror.CodeUserNotFound, "user %d not found", userID))
				return
			}
			respondError(c, apperror.Internal(err, "update fcm token of user %d", userID))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "FCM token updated successfully"})
	}
}
