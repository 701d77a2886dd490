package handlers

import (
	"net/http"
	"strings"

	"carpool-backend/internal/models"
	"carpool-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// BookingCreate резервирует места на рейсе. Бронирование ждет оплаты до expires_at.
func BookingCreate(svc *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BookingCreate
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		booking, err := svc.CreateBooking(c.Request.Context(), actorFrom(c), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, booking)
	}
}

// BookingGetByUser возвращает бронирования текущего пользователя, новые первыми
func BookingGetByUser(svc *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookings, err := svc.ListUserBookings(c.Request.Context(), actorFrom(c).UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, bookings)
	}
}

func BookingGetByID(svc *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		booking, err := svc.GetBooking(c.Request.Context(), actorFrom(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, booking)
	}
}

func BookingGetByReference(svc *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		reference := strings.ToUpper(strings.TrimSpace(c.Param("ref")))
		booking, err := svc.GetBookingByReference(c.Request.Context(), actorFrom(c), reference)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, booking)
	}
}

// BookingCancel отменяет ожидающее оплаты бронирование и освобождает места
func BookingCancel(svc *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		booking, err := svc.CancelBooking(c.Request.Context(), actorFrom(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, booking)
	}
}

// BookingGetByTrip возвращает бронирования рейса для водителя, ?status= фильтрует по статусу
func BookingGetByTrip(svc *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := paramID(c, "id")
		if !ok {
			return
		}
		status := models.BookingStatus(strings.ToUpper(c.Query("status")))
		bookings, err := svc.ListTripBookings(c.Request.Context(), actorFrom(c), tripID, status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, bookings)
	}
}

func BookingGetStats(svc *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.GetStats(c.Request.Context(), actorFrom(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
