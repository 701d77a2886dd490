package handlers

import (
	"log"
	"net/http"
	"strconv"

	"carpool-backend/internal/apperror"
	"carpool-backend/internal/middleware"
	"carpool-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError отдает ошибку сервиса в виде {"error": ..., "code": ...}
func respondError(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Internal(err, "internal error")
	}
	switch appErr.Kind {
	case apperror.KindInternal, apperror.KindExternal:
		log.Printf("Ошибка %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message, "code": appErr.Code})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных: " + err.Error(), "code": apperror.CodeValidation})
}

// actorFrom возвращает пользователя, установленного middleware.JWTAuth
func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{
		UserID: c.GetUint(middleware.ContextUserID),
		Role:   c.GetString(middleware.ContextRole),
	}
}

// paramID разбирает числовой параметр пути. При ошибке ответ уже отправлен.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный идентификатор " + name, "code": apperror.CodeValidation})
		return 0, false
	}
	return uint(id), true
}
