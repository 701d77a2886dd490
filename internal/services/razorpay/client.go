package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"carpool-backend/internal/config"
	"carpool-backend/internal/metrics"
)

const ordersEndpoint = "/v1/orders"

// Client клиент API платежного шлюза Razorpay
type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

// OrderRequest запрос на создание заказа. Amount в минимальных единицах валюты.
type OrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Order заказ, созданный платежным шлюзом
type Order struct {
	ID         string `json:"id"`
	Entity     string `json:"entity"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	AmountDue  int64  `json:"amount_due"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	CreatedAt  int64  `json:"created_at"`

	// Raw исходный ответ шлюза
	Raw string `json:"-"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// NewClient создает новый клиент для работы с API платежного шлюза
func NewClient(cfg config.PaymentConfig) *Client {
	return &Client{
		keyID:      cfg.KeyID,
		keySecret:  cfg.KeySecret,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// KeyID публичный ключ, который передается клиенту для оформления оплаты
func (c *Client) KeyID() string {
	return c.keyID
}

// CreateOrder создает заказ на оплату
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("сумма заказа должна быть положительной: %d", amount)
	}

	body, err := json.Marshal(OrderRequest{Amount: amount, Currency: currency, Receipt: receipt})
	if err != nil {
		return nil, fmt.Errorf("ошибка при формировании запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ordersEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании запроса: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.TrackGatewayRequest(ordersEndpoint, 0, time.Since(start))
		return nil, fmt.Errorf("ошибка при выполнении запроса к платежному шлюзу: %w", err)
	}
	defer resp.Body.Close()
	metrics.TrackGatewayRequest(ordersEndpoint, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка при чтении ответа платежного шлюза: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Description != "" {
			return nil, fmt.Errorf("платежный шлюз вернул ошибку %d: %s (%s)", resp.StatusCode, apiErr.Error.Description, apiErr.Error.Code)
		}
		return nil, fmt.Errorf("платежный шлюз вернул ошибку: %s", resp.Status)
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("ошибка при разборе ответа платежного шлюза: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("платежный шлюз не вернул идентификатор заказа")
	}
	order.Raw = string(raw)

	log.Printf("Заказ %s создан в платежном шлюзе: %d %s, чек %s", order.ID, order.Amount, order.Currency, order.Receipt)
	return &order, nil
}

// VerifySignature проверяет подпись, присланную после оплаты
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(c.keySecret, orderID, paymentID, signature)
}
