// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/noteku/internal/app/system/normalize"
	"github.com/dalemusser/noteku/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor used for password hashes.
const BcryptCost = 10

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateUser is returned when the email or username is already taken.
	ErrDuplicateUser = errors.New("email or username already in use")
	// ErrBadRole is returned when the role is not one of the accepted values.
	ErrBadRole = errors.New(`role must be "female" or "male"`)
	// ErrBadStatus is returned for a status other than online/offline.
	ErrBadStatus = errors.New(`status must be "online" or "offline"`)
)

// Create inserts a new user, hashing the plaintext password.
func (s *Store) Create(ctx context.Context, u models.User, password string) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Username = normalize.Username(u.Username)
	u.UsernameCI = text.Fold(u.Username)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Role(u.Role)
	if u.Role == "" {
		u.Role = models.RoleFemale
	}
	if u.Role != models.RoleFemale && u.Role != models.RoleMale {
		return models.User{}, ErrBadRole
	}
	if u.Status == "" {
		u.Status = models.StatusOffline
	}

	hash, err := HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	u.PasswordHash = hash

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateUser
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// EmailOrUsernameExists reports whether either identifier is already registered.
func (s *Store) EmailOrUsernameExists(ctx context.Context, email, username string) (bool, error) {
	filter := bson.M{"$or": []bson.M{
		{"email": normalize.Email(email)},
		{"username_ci": text.Fold(normalize.Username(username))},
	}}
	err := s.c.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByRefreshTokenHash finds the user currently holding the refresh token.
func (s *Store) GetByRefreshTokenHash(ctx context.Context, hash string) (*models.User, error) {
	if hash == "" {
		return nil, mongo.ErrNoDocuments
	}
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"refresh_token_hash": hash}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetRefreshTokenHash records the hash of the user's current refresh token.
func (s *Store) SetRefreshTokenHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"refresh_token_hash": hash,
		"updated_at":         time.Now().UTC(),
	}})
	return err
}

// ClearRefreshToken invalidates the user's refresh token.
func (s *Store) ClearRefreshToken(ctx context.Context, id primitive.ObjectID) error {
	return s.SetRefreshTokenHash(ctx, id, "")
}

// SetPasswordByEmail replaces the password hash and revokes the refresh token.
// Returns mongo.ErrNoDocuments if no user has that email.
func (s *Store) SetPasswordByEmail(ctx context.Context, email, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"email": normalize.Email(email)}, bson.M{"$set": bson.M{
		"password_hash":      hash,
		"refresh_token_hash": "",
		"updated_at":         time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetStatus writes the presence status and last-seen time.
// Returns mongo.ErrNoDocuments if the user does not exist.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string, lastSeen time.Time) (*models.User, error) {
	status = normalize.Status(status)
	if status != models.StatusOnline && status != models.StatusOffline {
		return nil, ErrBadStatus
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":     status,
		"last_seen":  lastSeen.UTC(),
		"updated_at": time.Now().UTC(),
	}}, opts).Decode(&u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListSummaries returns id/username/email for the given users.
func (s *Store) ListSummaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error) {
	out := []models.UserSummary{}
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().
		SetProjection(bson.M{"_id": 1, "username": 1, "email": 1}).
		SetSort(bson.D{{Key: "username_ci", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the user's stored hash.
func CheckPassword(u *models.User, password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
