package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Константы для типов сообщений WebSocket
const (
	BookingStatusUpdateType = "BOOKING_STATUS_UPDATE"
	TripSeatsUpdateType     = "TRIP_SEATS_UPDATE"
)

const (
	writeWait = 10 * time.Second
	// размер очереди исходящих сообщений одного соединения
	sendBufferSize = 256
)

// Message формат сообщения WebSocket
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Manager хранит подключения пользователей и рассылает им сообщения
type Manager struct {
	clientsByUser map[uint]map[*Client]bool
	register      chan *Client
	unregister    chan *Client
	mutex         sync.RWMutex
	startOnce     sync.Once
}

// Client клиентское соединение WebSocket. В conn пишет только writePump,
// остальные отправляют сообщения через send.
type Client struct {
	conn     *websocket.Conn
	userID   uint
	clientID string
	send     chan []byte
}

// Глобальный менеджер WebSocket
var manager = NewManager()

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func NewManager() *Manager {
	return &Manager{
		clientsByUser: make(map[uint]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
	}
}

// Start запускает обработку регистрации и отключения клиентов. Повторный вызов ничего не делает.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		go m.run()
		log.Printf("WebSocket Manager успешно запущен")
	})
}

func (m *Manager) run() {
	for {
		select {
		case client := <-m.register:
			m.mutex.Lock()
			if _, ok := m.clientsByUser[client.userID]; !ok {
				m.clientsByUser[client.userID] = make(map[*Client]bool)
			}
			m.clientsByUser[client.userID][client] = true
			m.mutex.Unlock()
			log.Printf("WebSocket: клиент %s пользователя %d подключен", client.clientID, client.userID)

		case client := <-m.unregister:
			m.mutex.Lock()
			if clients, ok := m.clientsByUser[client.userID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					// writePump закроет соединение после закрытия очереди
					close(client.send)
					log.Printf("WebSocket: клиент %s пользователя %d отключен", client.clientID, client.userID)
				}
				if len(clients) == 0 {
					delete(m.clientsByUser, client.userID)
				}
			}
			m.mutex.Unlock()
		}
	}
}

// Connections количество активных соединений пользователя
func (m *Manager) Connections(userID uint) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clientsByUser[userID])
}

// enqueue ставит сообщение в очередь клиента. Вызывается под m.mutex.RLock,
// поэтому очередь не может быть закрыта во время отправки.
func (m *Manager) enqueue(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		log.Printf("WebSocket: очередь клиента %s пользователя %d переполнена, отключаем", client.clientID, client.userID)
		go func() { m.unregister <- client }()
	}
}

// sendTo отправляет сообщение клиенту, если он еще зарегистрирован
func (m *Manager) sendTo(client *Client, data []byte) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.clientsByUser[client.userID][client] {
		m.enqueue(client, data)
	}
}

// BroadcastToUser отправляет сообщение всем подключениям конкретного пользователя
func (m *Manager) BroadcastToUser(userID uint, message *Message) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	clients := m.clientsByUser[userID]
	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("BroadcastToUser: ошибка при кодировании сообщения: %v", err)
		return
	}

	for client := range clients {
		m.enqueue(client, data)
	}
}

// Handler обрабатывает подключения WebSocket. Маршрут должен быть защищен JWT.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("user_id")
		userID, ok := value.(uint)
		if !exists || !ok || userID == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Требуется авторизация"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("Ошибка обновления соединения до WebSocket: %v", err)
			return
		}

		clientID := c.Query("client_id")
		if clientID == "" {
			clientID = fmt.Sprintf("user_%d_%s", userID, uuid.NewString()[:8])
		}

		client := &Client{conn: conn, userID: userID, clientID: clientID, send: make(chan []byte, sendBufferSize)}
		manager.register <- client
		go manager.writePump(client)
		go manager.readPump(client)
	}
}

// writePump единственный писатель в соединение клиента
func (m *Manager) writePump(client *Client) {
	defer client.conn.Close()

	for data := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("WebSocket: ошибка отправки пользователю %d: %v", client.userID, err)
			// readPump получит ошибку чтения и снимет клиента с регистрации
			return
		}
	}
	client.conn.SetWriteDeadline(time.Now().Add(writeWait))
	client.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump читает сообщения клиента и отвечает на ping
func (m *Manager) readPump(client *Client) {
	defer func() {
		m.unregister <- client
	}()

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var data map[string]interface{}
		if err := json.Unmarshal(message, &data); err != nil {
			continue
		}

		if msgType, ok := data["type"].(string); ok && msgType == "ping" {
			pong, _ := json.Marshal(map[string]interface{}{
				"type": "pong",
				"time": time.Now().Unix(),
			})
			m.sendTo(client, pong)
		}
	}
}

// SendBookingStatusUpdate отправляет обновление статуса бронирования
func SendBookingStatusUpdate(userID, bookingID uint, reference, status string, seatNumbers []string) {
	manager.BroadcastToUser(userID, &Message{
		Type: BookingStatusUpdateType,
		Payload: map[string]interface{}{
			"booking_id":        bookingID,
			"booking_reference": reference,
			"status":            status,
			"seat_numbers":      seatNumbers,
		},
	})
}

// SendTripSeatsUpdate сообщает водителю об изменении занятых мест рейса
func SendTripSeatsUpdate(driverID, tripID uint, seatNumbers []string, released bool) {
	manager.BroadcastToUser(driverID, &Message{
		Type: TripSeatsUpdateType,
		Payload: map[string]interface{}{
			"trip_id":      tripID,
			"seat_numbers": seatNumbers,
			"released":     released,
		},
	})
}

// GetManager возвращает глобальный экземпляр менеджера WebSocket
func GetManager() *Manager {
	return manager
}

// StartManager запускает менеджер WebSocket
func StartManager() {
	manager.Start()
}
