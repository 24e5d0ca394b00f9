// internal/app/store/notes/notestore.go
package notestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/noteku/internal/app/system/normalize"
	"github.com/dalemusser/noteku/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a note does not exist or is not owned by the caller.
var ErrNotFound = errors.New("note not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notes")}
}

// Create inserts a note owned by ownerID.
func (s *Store) Create(ctx context.Context, ownerID primitive.ObjectID, title, content string) (models.Note, error) {
	now := time.Now().UTC()
	n := models.Note{
		ID:        primitive.NewObjectID(),
		UserID:    ownerID,
		Title:     normalize.Title(title),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return models.Note{}, err
	}
	return n, nil
}

// ListByUser returns the user's notes, most recently updated first.
func (s *Store) ListByUser(ctx context.Context, ownerID primitive.ObjectID) ([]models.Note, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}})
	return s.find(ctx, bson.M{"user_id": ownerID}, opts)
}

// ListByIDs returns the notes with the given ids in creation order.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Note, error) {
	if len(ids) == 0 {
		return []models.Note{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
}

// GetByID loads a note regardless of owner.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Note, error) {
	var n models.Note
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if err == mongo.ErrNoDocuments {
		return models.Note{}, ErrNotFound
	}
	return n, err
}

// GetForUser loads a note only if ownerID owns it.
func (s *Store) GetForUser(ctx context.Context, id, ownerID primitive.ObjectID) (models.Note, error) {
	var n models.Note
	err := s.c.FindOne(ctx, bson.M{"_id": id, "user_id": ownerID}).Decode(&n)
	if err == mongo.ErrNoDocuments {
		return models.Note{}, ErrNotFound
	}
	return n, err
}

// UpdateForUser sets title and content on a note owned by ownerID and
// returns the updated note.
func (s *Store) UpdateForUser(ctx context.Context, id, ownerID primitive.ObjectID, title, content string) (models.Note, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var n models.Note
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": ownerID},
		bson.M{"$set": bson.M{
			"title":      normalize.Title(title),
			"content":    content,
			"updated_at": time.Now().UTC(),
		}},
		opts,
	).Decode(&n)
	if err == mongo.ErrNoDocuments {
		return models.Note{}, ErrNotFound
	}
	return n, err
}

// DeleteForUser removes a note owned by ownerID.
func (s *Store) DeleteForUser(ctx context.Context, id, ownerID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "user_id": ownerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateContent replaces the content of any note and records who edited it.
// It is the write path for collaborative edits; ownership is checked by the
// caller through group membership.
func (s *Store) UpdateContent(ctx context.Context, id primitive.ObjectID, content string, editorID primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"content":        content,
		"last_edited_by": editorID,
		"updated_at":     time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Note, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Note{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
