// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a named set of users sharing a set of notes.
//
// NOTE:
//   - Members and notes are embedded as id lists and mutated with $addToSet,
//     so adding the same member or note twice is a no-op.
type Group struct {
	ID        primitive.ObjectID   `bson:"_id" json:"id"`
	Name      string               `bson:"name" json:"name"`
	MemberIDs []primitive.ObjectID `bson:"member_ids" json:"members"`
	NoteIDs   []primitive.ObjectID `bson:"note_ids" json:"notes"`
	CreatedBy primitive.ObjectID   `bson:"created_by" json:"createdBy"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasMember reports whether userID is in the member list.
func (g Group) HasMember(userID primitive.ObjectID) bool {
	for _, id := range g.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
