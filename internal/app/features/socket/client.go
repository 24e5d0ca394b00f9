// internal/app/features/socket/client.go
package socket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/dalemusser/noteku/internal/app/realtime"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// client is one websocket connection. It is the realtime.Sink for that
// connection: Send queues a message for the write loop and never blocks.
// A full queue marks the client as too slow and closes it.
type client struct {
	ws   *websocket.Conn
	cfg  Config
	log  *zap.Logger
	send chan realtime.Message

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(ws *websocket.Conn, cfg Config, logger *zap.Logger) *client {
	return &client{
		ws:   ws,
		cfg:  cfg,
		log:  logger,
		send: make(chan realtime.Message, cfg.SendBuffer),
		done: make(chan struct{}),
	}
}

// Send implements realtime.Sink.
func (c *client) Send(m realtime.Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- m:
		return true
	case <-c.done:
		return false
	default:
		c.log.Warn("send queue full; closing slow client", zap.String("event", m.Event))
		c.close()
		return false
	}
}

// close stops the write loop, which sends a close frame and closes the
// socket; that in turn ends the read loop.
func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writeLoop is the only goroutine that writes to ws.
func (c *client) writeLoop() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case m := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteJSON(m); err != nil {
				c.log.Debug("socket write failed", zap.Error(err))
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteWait))
			return
		}
	}
}

// readLoop hands each inbound frame to dispatch, in arrival order, until the
// socket fails or the peer goes quiet for longer than PongWait.
func (c *client) readLoop(dispatch func(realtime.InboundFrame)) {
	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Debug("socket closed unexpectedly", zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))

		var f realtime.InboundFrame
		if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
			c.log.Debug("ignoring malformed frame", zap.Int("bytes", len(data)))
			continue
		}
		dispatch(f)
	}
}
