// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/noteku/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates the app's collections if missing and attaches JSON-Schema
// validators. Servers without collMod validator support (some DocumentDB
// versions) are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if err := ensureCollection(ctx, db, coll, logger); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		err := setValidator(ctx, db, coll, schema)
		switch {
		case err == nil:
			logger.Debug("validator ensured", zap.String("collection", coll))
		case isCommandErr(err, []int32{59, 115}, "no such command", "not implemented", "not supported"):
			logger.Info("validator skipped (unsupported)", zap.String("collection", coll))
		default:
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("notes", notesSchema())
	ensure("groups", groupsSchema())
	ensure("password_resets", passwordResetsSchema())

	// Append-only; no validator.
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// ensureCollection creates name unless it already exists. A concurrent
// creator winning the race is not an error.
func ensureCollection(ctx context.Context, db *mongo.Database, name string, logger *zap.Logger) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err == nil && len(names) > 0 {
		return nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isCommandErr(err, []int32{48}, "already exists", "namespace exists") {
			return nil
		}
		return err
	}
	logger.Info("created collection", zap.String("collection", name))
	return nil
}

// setValidator attaches schema with moderate validation, so documents that
// predate the schema can still be updated.
func setValidator(ctx context.Context, db *mongo.Database, name string, schema bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	return db.RunCommand(ctx, cmd).Err()
}

// isCommandErr reports whether err is a server command error with one of
// codes, or whose message contains one of phrases.
func isCommandErr(err error, codes []int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		for _, c := range codes {
			if ce.Code == c {
				return true
			}
		}
	}
	msg := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"username", "username_ci", "email", "password_hash", "role"},
			"properties": bson.M{
				"username":      nonBlank,
				"username_ci":   nonBlank,
				"email":         nonBlank,
				"password_hash": nonBlank,
				"role":          bson.M{"enum": bson.A{models.RoleFemale, models.RoleMale}},
				"status":        bson.M{"enum": bson.A{models.StatusOnline, models.StatusOffline}},
				"last_seen":     bson.M{"bsonType": bson.A{"date", "null"}},
			},
		},
	}
}

func notesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "title", "content"},
			"properties": bson.M{
				"user_id":        bson.M{"bsonType": "objectId"},
				"title":          nonBlank,
				"content":        bson.M{"bsonType": "string"},
				"last_edited_by": bson.M{"bsonType": bson.A{"objectId", "null"}},
			},
		},
	}
}

func groupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "member_ids", "note_ids", "created_by"},
			"properties": bson.M{
				"name":       nonBlank,
				"member_ids": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
				"note_ids":   bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
				"created_by": bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func passwordResetsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "token_hash", "expires_at"},
			"properties": bson.M{
				"email":      nonBlank,
				"token_hash": bson.M{"bsonType": "string", "minLength": 64, "maxLength": 64},
				"expires_at": bson.M{"bsonType": "date"},
			},
		},
	}
}
