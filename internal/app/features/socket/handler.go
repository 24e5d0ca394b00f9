// internal/app/features/socket/handler.go
package socket

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	httperr "github.com/dalemusser/noteku/internal/app/features/errors"
	"github.com/dalemusser/noteku/internal/app/realtime"
	"github.com/dalemusser/noteku/internal/app/system/auth"
	"github.com/dalemusser/noteku/internal/app/system/limits"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config tunes the websocket transport. Zero fields take defaults.
type Config struct {
	WriteWait      time.Duration // deadline for one write
	PongWait       time.Duration // peer silence that ends the connection
	PingPeriod     time.Duration // must be shorter than PongWait
	MaxMessageSize int64         // largest inbound frame in bytes
	SendBuffer     int           // outbound queue length per connection
	AllowedOrigins []string      // empty allows any origin
}

func (c Config) withDefaults() Config {
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = limits.MaxSocketFrame
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	return c
}

// Handler upgrades authenticated requests to websockets and feeds their
// frames to the realtime hub.
type Handler struct {
	Hub *realtime.Hub
	Log *zap.Logger

	cfg      Config
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closing bool
	wg      sync.WaitGroup
}

// NewHandler creates a socket handler bound to hub.
func NewHandler(hub *realtime.Hub, cfg Config, logger *zap.Logger) *Handler {
	cfg = cfg.withDefaults()
	h := &Handler{
		Hub:     hub,
		Log:     logger,
		cfg:     cfg,
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

// Serve handles GET /socket. The handshake is rejected with 401 before the
// upgrade when the credential is missing or invalid.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ident, err := h.Hub.Authenticate(handshakeToken(r))
	if err != nil {
		h.Log.Info("socket handshake rejected", zap.String("remote", r.RemoteAddr), zap.Error(err))
		httperr.Unauthorized(w, "authentication required")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.Log.Debug("socket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(ws, h.cfg, h.Log.With(zap.String("user_id", ident.UserID)))
	if !h.track(c) {
		c.close()
		_ = ws.Close()
		return
	}
	defer h.untrack(c)

	conn := realtime.NewConnection(uuid.NewString(), ident, c)
	ctx := context.WithoutCancel(r.Context())

	go c.writeLoop()
	h.Hub.Connect(ctx, conn)
	c.readLoop(func(f realtime.InboundFrame) {
		h.Hub.Dispatch(ctx, conn, f)
	})

	c.close()
	h.Hub.Disconnect(ctx, conn)
}

func (h *Handler) track(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	return true
}

func (h *Handler) untrack(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	h.wg.Done()
}

// Shutdown closes every connection and waits until each has run its
// disconnect transition, or until ctx ends.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	for c := range h.clients {
		c.close()
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handshakeToken reads the credential from the Authorization header, the
// token query parameter, or the access-token cookie, in that order.
func handshakeToken(r *http.Request) string {
	if strings.HasPrefix(strings.ToLower(r.Header.Get("Authorization")), "bearer ") {
		return auth.TokenFromRequest(r)
	}
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t
	}
	return auth.TokenFromRequest(r)
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[strings.ToLower(origin)]
	}
}
