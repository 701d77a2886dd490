package services

import (
	"context"
	"log"
	"time"

	"carpool-backend/internal/metrics"
	"carpool-backend/internal/repository"
)

// ExpirationReconciler периодически отменяет бронирования, не оплаченные в срок
type ExpirationReconciler struct {
	store    repository.Store
	bookings *BookingService
	interval time.Duration
	batch    int
	lease    Lease
	now      func() time.Time
}

// NewExpirationReconciler создает фоновую задачу. lease может быть nil, тогда
// очистка выполняется на каждом экземпляре сервиса.
func NewExpirationReconciler(store repository.Store, bookings *BookingService, interval time.Duration, batch int, lease Lease) *ExpirationReconciler {
	return &ExpirationReconciler{
		store:    store,
		bookings: bookings,
		interval: interval,
		batch:    batch,
		lease:    lease,
		now:      time.Now,
	}
}

// Run запускает очистку с заданным периодом до отмены контекста
func (r *ExpirationReconciler) Run(ctx context.Context) {
	log.Printf("Запуск очистки просроченных бронирований, период %s", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Очистка просроченных бронирований остановлена")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep отменяет все просроченные бронирования. Ошибка по одному бронированию
// не прерывает обработку остальных. Возвращает количество отмененных.
func (r *ExpirationReconciler) Sweep(ctx context.Context) int {
	if r.lease != nil {
		acquired, err := r.lease.Acquire(ctx, r.interval)
		if err != nil {
			log.Printf("Очистка пропущена: %v", err)
			return 0
		}
		if !acquired {
			return 0
		}
		defer func() {
			if err := r.lease.Release(context.Background()); err != nil {
				log.Printf("Очистка: %v", err)
			}
		}()
	}

	metrics.SweepRuns.Inc()
	now := r.now()
	cancelled, found := 0, 0
	// Страницы идут по id, поэтому бронирования, которые не удалось отменить,
	// не закрывают собой остальные
	var afterID uint
	for ctx.Err() == nil {
		expired, err := r.store.ListExpiredBookings(ctx, now, afterID, r.batch)
		if err != nil {
			log.Printf("Очистка: не удалось получить просроченные бронирования: %v", err)
			metrics.SweepFailures.Inc()
			break
		}
		found += len(expired)

		for _, booking := range expired {
			if ctx.Err() != nil {
				break
			}
			afterID = booking.ID
			ok, err := r.bookings.ExpireBooking(ctx, booking.ID)
			if err != nil {
				metrics.SweepFailures.Inc()
				log.Printf("Очистка: ошибка отмены бронирования %d (%s): %v", booking.ID, booking.BookingReference, err)
				continue
			}
			if ok {
				cancelled++
				metrics.SweepExpired.Inc()
			}
		}

		if r.batch <= 0 || len(expired) < r.batch {
			break
		}
	}
	if found == 0 {
		return 0
	}

	log.Printf("Очистка завершена: отменено %d из %d", cancelled, found)
	return cancelled
}
