package infra

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var (
	writeWait    = 10 * time.Second
	pongWait     = 30 * time.Second
	pingInterval = pongWait * 9 / 10
)

// Conn a websocket connection whose writes are serialized, gorilla allows one concurrent writer only
type Conn struct {
	*websocket.Conn
	mu sync.Mutex
}

// WriteJSON send v as a single text frame
func (c *Conn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteJSON(v)
}

func (c *Conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Websocket upgrades echo requests into heartbeat-probed connections
type Websocket struct {
	upgrader websocket.Upgrader
}

// NewWebsocket create a Websocket with the default upgrader
func NewWebsocket() *Websocket {
	return &Websocket{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			HandshakeTimeout: 3 * time.Second,
		},
	}
}

// WithHeartbeat wrap handler function with heartbeat probe, the connection is closed once handler returns.
//
// handler runs on the request goroutine, so the echo context stays valid while it executes
func (ws *Websocket) WithHeartbeat(handler func(c echo.Context, conn *Conn) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, err := ws.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// the upgrader has already replied with an http error
			return nil
		}
		conn := &Conn{Conn: raw}
		raw.SetReadDeadline(time.Now().Add(pongWait))
		raw.SetPongHandler(func(string) error {
			raw.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		done := make(chan struct{})
		go heartbeatRoutine(conn, done)
		defer func() {
			close(done)
			raw.Close()
		}()
		if err := handler(c, conn); err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			c.Logger().Debug(err)
		}
		return nil
	}
}

func heartbeatRoutine(conn *Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
