package handlers

import (
	"net/http"

	"carpool-backend/internal/apperror"
	"carpool-backend/internal/models"
	"carpool-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// PaymentCreateOrder создает заказ в платежном шлюзе для ожидающего оплаты бронирования
func PaymentCreateOrder(svc *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PaymentOrderCreate
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		order, err := svc.InitiateOrder(c.Request.Context(), actorFrom(c), req.BookingID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

// PaymentCallback принимает результат оплаты. Маршрут публичный, подлинность проверяется подписью.
func PaymentCallback(svc *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PaymentCallback
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		payment, err := svc.VerifyCallback(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		if payment.Status == models.PaymentStatusFailed {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Оплата не подтверждена: " + payment.FailureReason,
				"code":    apperror.CodePaymentVerification,
				"payment": payment,
			})
			return
		}
		c.JSON(http.StatusOK, payment)
	}
}

func PaymentGetByID(svc *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		payment, err := svc.GetPayment(c.Request.Context(), actorFrom(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payment)
	}
}

func PaymentGetByBooking(svc *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, ok := paramID(c, "bookingId")
		if !ok {
			return
		}
		payment, err := svc.GetPaymentByBooking(c.Request.Context(), actorFrom(c), bookingID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payment)
	}
}

func PaymentGetByTransaction(svc *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		payment, err := svc.GetPaymentByTransactionID(c.Request.Context(), actorFrom(c), c.Param("txnId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payment)
	}
}
