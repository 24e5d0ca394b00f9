// internal/app/store/passwordresets/store.go
package passwordresets

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/noteku/internal/app/system/normalize"
	"github.com/dalemusser/noteku/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrInvalidToken is returned when no unexpired reset matches the token hash.
var ErrInvalidToken = errors.New("reset token is invalid or expired")

// Store holds at most one pending reset per email.
type Store struct {
	c *mongo.Collection
}

// New creates a new password reset Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("password_resets")}
}

// Upsert records a reset token hash for email, replacing any earlier one.
func (s *Store) Upsert(ctx context.Context, email, tokenHash string, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"email": normalize.Email(email)},
		bson.M{
			"$set": bson.M{
				"token_hash": tokenHash,
				"expires_at": now.Add(ttl),
				"updated_at": now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// GetValid returns the reset for tokenHash if it has not expired.
func (s *Store) GetValid(ctx context.Context, tokenHash string) (models.PasswordReset, error) {
	var pr models.PasswordReset
	err := s.c.FindOne(ctx, bson.M{
		"token_hash": tokenHash,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&pr)
	if err == mongo.ErrNoDocuments {
		return models.PasswordReset{}, ErrInvalidToken
	}
	return pr, err
}

// DeleteByEmail removes the pending reset for email.
func (s *Store) DeleteByEmail(ctx context.Context, email string) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"email": normalize.Email(email)})
	return err
}

// DeleteExpired removes resets past their expiry and returns how many were removed.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
