// internal/app/features/groups/handler.go
package groups

import (
	groupstore "github.com/dalemusser/noteku/internal/app/store/groups"
	notestore "github.com/dalemusser/noteku/internal/app/store/notes"
	userstore "github.com/dalemusser/noteku/internal/app/store/users"
	"github.com/dalemusser/noteku/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the groups feature.
type Handler struct {
	Groups   *groupstore.Store
	Notes    *notestore.Store
	Users    *userstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler constructs a groups Handler over db. audit may be nil.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Groups:   groupstore.New(db),
		Notes:    notestore.New(db),
		Users:    userstore.New(db),
		AuditLog: audit,
		Log:      logger,
	}
}
