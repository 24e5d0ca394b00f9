// internal/app/features/health/handler.go
package health

import (
	"context"
	"net/http"

	httperr "github.com/dalemusser/noteku/internal/app/features/errors"
	"github.com/dalemusser/noteku/internal/app/system/timeouts"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler reports backend connectivity for load balancers.
type Handler struct {
	Client *mongo.Client
	Redis  redis.UniversalClient // nil when the realtime layer runs in memory
	Log    *zap.Logger
}

// NewHandler constructs a health Handler. rdb may be nil.
func NewHandler(client *mongo.Client, rdb redis.UniversalClient, logger *zap.Logger) *Handler {
	return &Handler{
		Client: client,
		Redis:  rdb,
		Log:    logger,
	}
}

type backendState struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health. It answers 200 with
//
//	{"status":"ok","database":"connected","redis":"connected"}
//
// or 503 with status "error" and the first failing backend in message.
// The redis field is present only when Redis is configured.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	st := backendState{Status: "ok", Database: "connected"}
	fail := func(backend string, err error) {
		h.Log.Error("health check failed", zap.String("backend", backend), zap.Error(err))
		if st.Status == "ok" {
			st.Status = "error"
			st.Message = backend + " unavailable"
			st.Error = err.Error()
		}
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		st.Database = "disconnected"
		fail("Database", err)
	}
	if h.Redis != nil {
		st.Redis = "connected"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			st.Redis = "disconnected"
			fail("Redis", err)
		}
	}

	code := http.StatusOK
	if st.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	httperr.WriteJSON(w, code, st)
}
