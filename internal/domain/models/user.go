// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User status values written by the presence publisher.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Roles accepted at registration.
const (
	RoleFemale = "female"
	RoleMale   = "male"
)

// User is an account that owns notes and belongs to groups.
//
// NOTE:
//   - The refresh token itself is never stored; only its SHA-256 hash.
//     An empty RefreshTokenHash means the user is logged out everywhere.
//   - Status and LastSeen are maintained by the realtime layer.
type User struct {
	ID               primitive.ObjectID `bson:"_id" json:"id"`
	Username         string             `bson:"username" json:"username"`
	UsernameCI       string             `bson:"username_ci" json:"-"`
	Email            string             `bson:"email" json:"email"`
	PasswordHash     string             `bson:"password_hash" json:"-"`
	Role             string             `bson:"role" json:"role"`
	RefreshTokenHash string             `bson:"refresh_token_hash,omitempty" json:"-"`

	Status   string     `bson:"status,omitempty" json:"status,omitempty"`
	LastSeen *time.Time `bson:"last_seen,omitempty" json:"lastSeen,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// UserSummary is the member view embedded in group responses.
type UserSummary struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Username string             `bson:"username" json:"username"`
	Email    string             `bson:"email" json:"email"`
}
