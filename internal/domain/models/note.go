// internal/domain/models/note.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Note is a user-owned piece of text that may be shared into groups.
// LastEditedBy is set by collaborative edits; nil until the first one.
type Note struct {
	ID           primitive.ObjectID  `bson:"_id" json:"id"`
	UserID       primitive.ObjectID  `bson:"user_id" json:"user"`
	Title        string              `bson:"title" json:"title"`
	Content      string              `bson:"content" json:"content"`
	LastEditedBy *primitive.ObjectID `bson:"last_edited_by,omitempty" json:"lastEditedBy,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
