package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"carpool-backend/internal/apperror"
	"carpool-backend/internal/models"
	"carpool-backend/internal/repository"
	"carpool-backend/internal/services/razorpay"

	"github.com/google/uuid"
)

// PaymentGateway внешний платежный шлюз
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*razorpay.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// PaymentService создает заказы на оплату и обрабатывает ответы платежного шлюза.
// Успешная проверка подтверждает бронирование, неуспешная отменяет его.
type PaymentService struct {
	store    repository.Store
	bookings *BookingService
	gateway  PaymentGateway
	currency string
	now      func() time.Time
}

func NewPaymentService(store repository.Store, bookings *BookingService, gateway PaymentGateway, currency string) *PaymentService {
	return &PaymentService{
		store:    store,
		bookings: bookings,
		gateway:  gateway,
		currency: currency,
		now:      time.Now,
	}
}

func newTransactionID(at time.Time) string {
	return "TXN" + at.Format("20060102150405") + strings.ToUpper(uuid.NewString()[:8])
}

// toMinorUnits переводит сумму в минимальные единицы валюты (пайсы, копейки)
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func checkPayable(booking *models.Booking, now time.Time) error {
	if booking.Status != models.BookingStatusPending {
		return apperror.State(apperror.CodeBookingNotPending, "booking %s is %s", booking.BookingReference, booking.Status)
	}
	if !booking.ExpiresAt.After(now) {
		return apperror.State(apperror.CodeBookingNotPending, "booking %s has expired", booking.BookingReference)
	}
	return nil
}

func (s *PaymentService) ensureNoPayment(ctx context.Context, store repository.Store, bookingID uint) error {
	_, err := store.GetPaymentByBooking(ctx, bookingID)
	switch {
	case err == nil:
		return apperror.Conflict(apperror.CodePaymentAlreadyExists, "payment already exists for booking %d", bookingID)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return apperror.Internal(err, "load payment of booking %d", bookingID)
	}
}

// InitiateOrder создает заказ в платежном шлюзе и запись платежа в статусе PENDING.
// Ошибка шлюза не меняет ни бронирование, ни платежи.
func (s *PaymentService) InitiateOrder(ctx context.Context, actor Actor, bookingID uint) (*models.PaymentOrderResponse, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, notFoundOr(err, apperror.CodeBookingNotFound, "booking %d not found", bookingID)
	}
	if err := actor.requireOwner(booking.UserID, "booking"); err != nil {
		return nil, err
	}
	if err := checkPayable(booking, s.now()); err != nil {
		return nil, err
	}
	if err := s.ensureNoPayment(ctx, s.store, booking.ID); err != nil {
		return nil, err
	}

	txnID := newTransactionID(s.now())
	order, err := s.gateway.CreateOrder(ctx, toMinorUnits(booking.TotalAmount), s.currency, txnID)
	if err != nil {
		log.Printf("Не удалось создать заказ для бронирования %d (%s): %v", booking.ID, booking.BookingReference, err)
		return nil, apperror.External(apperror.CodeExternalService, err, "payment gateway is unavailable")
	}

	payment := &models.Payment{
		BookingID:       booking.ID,
		TransactionID:   txnID,
		GatewayOrderID:  order.ID,
		Amount:          booking.TotalAmount,
		Currency:        s.currency,
		Status:          models.PaymentStatusPending,
		GatewayResponse: order.Raw,
	}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		locked, err := tx.LockBooking(ctx, booking.ID)
		if err != nil {
			return notFoundOr(err, apperror.CodeBookingNotFound, "booking %d not found", booking.ID)
		}
		if err := checkPayable(locked, s.now()); err != nil {
			return err
		}
		if err := s.ensureNoPayment(ctx, tx, locked.ID); err != nil {
			return err
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperror.Conflict(apperror.CodePaymentAlreadyExists, "payment already exists for booking %d", locked.ID)
			}
			return apperror.Internal(err, "create payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Платеж %d (%s) создан для бронирования %d, заказ %s", payment.ID, payment.TransactionID, booking.ID, payment.GatewayOrderID)
	return &models.PaymentOrderResponse{
		PaymentID:      payment.ID,
		TransactionID:  payment.TransactionID,
		GatewayOrderID: payment.GatewayOrderID,
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		KeyID:          s.gateway.KeyID(),
	}, nil
}

// VerifyCallback обрабатывает ответ шлюза после оплаты. Повторная доставка того же ответа
// возвращает уже записанный результат без изменений.
func (s *PaymentService) VerifyCallback(ctx context.Context, cb models.PaymentCallback) (*models.Payment, error) {
	var (
		payment   *models.Payment
		confirmed *models.Booking
		cancelled *models.Booking
		lateErr   error
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		payment, err = tx.LockPayment(ctx, cb.PaymentID)
		if err != nil {
			return notFoundOr(err, apperror.CodePaymentNotFound, "payment %d not found", cb.PaymentID)
		}
		if payment.GatewayOrderID != cb.GatewayOrderID {
			return apperror.ValidationCode(apperror.CodePaymentVerification, "order id does not match payment %d", payment.ID)
		}
		if payment.Status != models.PaymentStatusPending {
			// Результат отдается только повтору того же подписанного ответа
			if payment.GatewayPaymentID != cb.GatewayPaymentID ||
				!s.gateway.VerifySignature(cb.GatewayOrderID, cb.GatewayPaymentID, cb.Signature) {
				return apperror.ValidationCode(apperror.CodePaymentVerification, "callback does not match resolved payment %d", payment.ID)
			}
			return nil
		}

		now := s.now()
		payment.GatewayPaymentID = cb.GatewayPaymentID

		if !s.gateway.VerifySignature(cb.GatewayOrderID, cb.GatewayPaymentID, cb.Signature) {
			payment.Status = models.PaymentStatusFailed
			payment.FailureReason = "signature verification failed"
			if err := tx.UpdatePayment(ctx, payment); err != nil {
				return apperror.Internal(err, "update payment %d", payment.ID)
			}
			cancelled, err = s.bookings.cancelPendingInTx(ctx, tx, payment.BookingID, CancelReasonPaymentFailed)
			return err
		}

		booking, changed, err := s.bookings.confirmInTx(ctx, tx, payment.BookingID)
		if err != nil {
			if !apperror.IsKind(err, apperror.KindState) {
				return err
			}
			// Бронирование уже отменено: оплата не принимается
			payment.Status = models.PaymentStatusFailed
			payment.FailureReason = "booking is no longer pending"
			if err := tx.UpdatePayment(ctx, payment); err != nil {
				return apperror.Internal(err, "update payment %d", payment.ID)
			}
			lateErr = err
			return nil
		}

		payment.Status = models.PaymentStatusSuccess
		payment.PaidAt = &now
		payment.GatewayResponse += fmt.Sprintf("\n--- verification ---\npayment_id=%s verified=true", cb.GatewayPaymentID)
		if err := tx.UpdatePayment(ctx, payment); err != nil {
			return apperror.Internal(err, "update payment %d", payment.ID)
		}
		if changed {
			confirmed = booking
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if confirmed != nil {
		s.bookings.afterConfirm(ctx, confirmed)
	}
	if cancelled != nil {
		s.bookings.afterCancel(ctx, cancelled)
	}
	if lateErr != nil {
		log.Printf("Оплата %d отклонена: бронирование %d уже не ожидает оплаты", payment.ID, payment.BookingID)
		return nil, lateErr
	}

	log.Printf("Платеж %d обработан: статус %s", payment.ID, payment.Status)
	return payment, nil
}

// GetPayment возвращает платеж владельцу бронирования или администратору
func (s *PaymentService) GetPayment(ctx context.Context, actor Actor, id uint) (*models.Payment, error) {
	payment, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperror.CodePaymentNotFound, "payment %d not found", id)
	}
	return s.authorize(ctx, actor, payment)
}

func (s *PaymentService) GetPaymentByBooking(ctx context.Context, actor Actor, bookingID uint) (*models.Payment, error) {
	payment, err := s.store.GetPaymentByBooking(ctx, bookingID)
	if err != nil {
		return nil, notFoundOr(err, apperror.CodePaymentNotFound, "payment for booking %d not found", bookingID)
	}
	return s.authorize(ctx, actor, payment)
}

func (s *PaymentService) GetPaymentByTransactionID(ctx context.Context, actor Actor, transactionID string) (*models.Payment, error) {
	payment, err := s.store.GetPaymentByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, notFoundOr(err, apperror.CodePaymentNotFound, "payment %s not found", transactionID)
	}
	return s.authorize(ctx, actor, payment)
}

func (s *PaymentService) authorize(ctx context.Context, actor Actor, payment *models.Payment) (*models.Payment, error) {
	if actor.IsAdmin() {
		return payment, nil
	}
	booking, err := s.store.GetBooking(ctx, payment.BookingID)
	if err != nil {
		return nil, notFoundOr(err, apperror.CodeBookingNotFound, "booking %d not found", payment.BookingID)
	}
	if err := actor.requireOwner(booking.UserID, "payment"); err != nil {
		return nil, err
	}
	return payment, nil
}
