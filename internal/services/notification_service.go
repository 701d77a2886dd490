package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const fcmSendURL = "https://fcm.googleapis.com/fcm/send"

// DeviceTokens источник FCM токенов пользователей
type DeviceTokens interface {
	FCMToken(ctx context.Context, userID uint) (string, error)
}

// NotificationService отправляет push-уведомления о бронированиях через FCM
type NotificationService struct {
	serverKey  string
	endpoint   string
	tokens     DeviceTokens
	httpClient *http.Client
}

type FCMPayload struct {
	To           string            `json:"to"`
	Data         map[string]string `json:"data,omitempty"`
	Notification struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"notification"`
}

func NewNotificationService(serverKey string, tokens DeviceTokens) *NotificationService {
	return &NotificationService{
		serverKey:  serverKey,
		endpoint:   fcmSendURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *NotificationService) SendPushNotification(ctx context.Context, token, title, body string, data map[string]string) error {
	payload := FCMPayload{
		To:   token,
		Data: data,
	}
	payload.Notification.Title = title
	payload.Notification.Body = body

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshaling notification: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Authorization", "key="+s.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending notification: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("FCM returned error: %v", resp.Status)
	}

	return nil
}

func bookingNotificationText(event BookingEvent) (string, string) {
	switch event.Type {
	case EventBookingCreated:
		return "Места забронированы", fmt.Sprintf("Бронирование %s ожидает оплаты", event.Reference)
	case EventBookingConfirmed:
		return "Бронирование подтверждено", fmt.Sprintf("Оплата бронирования %s получена", event.Reference)
	case EventBookingCancelled:
		if event.Reason == CancelReasonExpired {
			return "Бронирование отменено", fmt.Sprintf("Срок оплаты бронирования %s истек", event.Reference)
		}
		return "Бронирование отменено", fmt.Sprintf("Бронирование %s отменено", event.Reference)
	default:
		return "Бронирование", event.Reference
	}
}

// Publish отправляет уведомление пассажиру, если у него есть FCM токен
func (s *NotificationService) Publish(ctx context.Context, event BookingEvent) error {
	if s.serverKey == "" || event.UserID == 0 {
		return nil
	}
	token, err := s.tokens.FCMToken(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("error loading fcm token of user %d: %w", event.UserID, err)
	}
	if token == "" {
		return nil
	}

	title, body := bookingNotificationText(event)
	return s.SendPushNotification(ctx, token, title, body, map[string]string{
		"type":              event.Type,
		"booking_id":        fmt.Sprint(event.BookingID),
		"booking_reference": event.Reference,
		"status":            string(event.Status),
	})
}
