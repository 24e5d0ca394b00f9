package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/noteku/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an offline user whose password is "password123".
func (f *Fixtures) CreateUser(ctx context.Context, username string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		UsernameCI:   strings.ToLower(username),
		Email:        strings.ToLower(username) + "@test.com",
		PasswordHash: string(hash),
		Role:         models.RoleFemale,
		Status:       models.StatusOffline,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create user: %v", err)
	}
	return u
}

// CreateNote inserts a note owned by ownerID.
func (f *Fixtures) CreateNote(ctx context.Context, ownerID primitive.ObjectID, title, content string) models.Note {
	f.t.Helper()

	now := time.Now().UTC()
	n := models.Note{
		ID:        primitive.NewObjectID(),
		UserID:    ownerID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("notes").InsertOne(ctx, n); err != nil {
		f.t.Fatalf("failed to create note: %v", err)
	}
	return n
}

// CreateGroup inserts a group created by creatorID with the given members
// and notes. The creator is always a member.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, creatorID primitive.ObjectID, memberIDs []primitive.ObjectID, noteIDs []primitive.ObjectID) models.Group {
	f.t.Helper()

	members := []primitive.ObjectID{creatorID}
	for _, id := range memberIDs {
		if id != creatorID {
			members = append(members, id)
		}
	}
	if noteIDs == nil {
		noteIDs = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	g := models.Group{
		ID:        primitive.NewObjectID(),
		Name:      name,
		MemberIDs: members,
		NoteIDs:   noteIDs,
		CreatedBy: creatorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create group: %v", err)
	}
	return g
}
