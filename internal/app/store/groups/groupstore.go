// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/noteku/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when the group does not exist.
	ErrNotFound = errors.New("group not found")
	// ErrEmptyName is returned when creating a group without a name.
	ErrEmptyName = errors.New("group name is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Group{}, ErrNotFound
		}
		return models.Group{}, err
	}
	return g, nil
}

// Create inserts a group. The creator is always the first member.
func (s *Store) Create(ctx context.Context, name string, creatorID primitive.ObjectID, memberIDs []primitive.ObjectID) (models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Group{}, ErrEmptyName
	}

	members := []primitive.ObjectID{creatorID}
	seen := map[primitive.ObjectID]bool{creatorID: true}
	for _, id := range memberIDs {
		if !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}

	now := time.Now().UTC()
	g := models.Group{
		ID:        primitive.NewObjectID(),
		Name:      name,
		MemberIDs: members,
		NoteIDs:   []primitive.ObjectID{},
		CreatedBy: creatorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// AddMember adds userID to the group. Adding an existing member is a no-op.
func (s *Store) AddMember(ctx context.Context, groupID, userID primitive.ObjectID) (models.Group, error) {
	return s.addToSet(ctx, groupID, "member_ids", userID)
}

// AddNote attaches noteID to the group. Attaching it twice is a no-op.
func (s *Store) AddNote(ctx context.Context, groupID, noteID primitive.ObjectID) (models.Group, error) {
	return s.addToSet(ctx, groupID, "note_ids", noteID)
}

func (s *Store) addToSet(ctx context.Context, groupID primitive.ObjectID, field string, id primitive.ObjectID) (models.Group, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var g models.Group
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": groupID}, bson.M{
		"$addToSet": bson.M{field: id},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}, opts).Decode(&g)
	if err == mongo.ErrNoDocuments {
		return models.Group{}, ErrNotFound
	}
	return g, err
}

// ListByMember returns the groups userID belongs to, newest first.
func (s *Store) ListByMember(ctx context.Context, userID primitive.ObjectID) ([]models.Group, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"member_ids": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Group{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IsMember reports whether userID belongs to groupID. A missing group is
// reported as ErrNotFound.
func (s *Store) IsMember(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	g, err := s.GetByID(ctx, groupID)
	if err != nil {
		return false, err
	}
	return g.HasMember(userID), nil
}

// HasNote reports whether noteID is attached to groupID.
func (s *Store) HasNote(ctx context.Context, groupID, noteID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": groupID, "note_ids": noteID})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
