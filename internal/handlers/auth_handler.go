package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"carpool-backend/internal/apperror"
	"carpool-backend/internal/middleware"
	"carpool-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

// TokenRevoker отзывает токен до истечения его срока
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
}

// AuthLogout отзывает текущий токен. Повторное использование токена после выхода отклоняется.
func AuthLogout(revoker TokenRevoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetString(middleware.ContextToken)
		value, _ := c.Get(middleware.ContextClaims)
		claims, ok := value.(*utils.Claims)
		if token == "" || !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Отсутствует токен авторизации", "code": apperror.CodeUnauthorized})
			return
		}

		expiresAt := time.Now().Add(utils.TokenTTL)
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		if err := revoker.Revoke(c.Request.Context(), token, expiresAt); err != nil {
			log.Printf("Ошибка при выходе пользователя %d: %v", claims.UserID, err)
			respondError(c, apperror.Internal(err, "logout failed"))
			return
		}

		log.Printf("Пользователь %d вышел из системы", claims.UserID)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Выход выполнен"})
	}
}
