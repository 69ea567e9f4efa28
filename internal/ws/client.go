package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Клиент только получает события, входящие сообщения не нужны.
	maxInboundMessage = 4 * 1024

	DefaultSendBuffer = 64
)

// Client представляет одно подключение WebSocket.
type Client struct {
	id   uuid.UUID
	conn *websocket.Conn
	hub  *Hub
	log  logrus.FieldLogger

	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewClient создаёт нового клиента с очередью отправки размера sendBuffer.
func NewClient(conn *websocket.Conn, hub *Hub, sendBuffer int, log logrus.FieldLogger) *Client {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	id := uuid.New()
	return &Client{
		id:   id,
		conn: conn,
		hub:  hub,
		log:  log.WithField("observer_id", id),
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *Client) ID() uuid.UUID { return c.id }

// Enqueue реализует Observer.
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Run запускает обработку входящих и исходящих сообщений и блокируется до отключения.
func (c *Client) Run(ctx context.Context) {
	go c.hub.recovery.Run(c.writePump)
	c.readPump(ctx)
}

// Close закрывает соединение. Повторные вызовы безопасны.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.hub.Unregister(c)
		_ = c.conn.Close()
	})
}

func (c *Client) readPump(ctx context.Context) {
	defer c.Close()

	c.conn.SetReadLimit(maxInboundMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	stop := context.AfterFunc(ctx, c.Close)
	defer stop()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Debug("ws: соединение закрыто с ошибкой")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
