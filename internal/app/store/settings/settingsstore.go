// internal/app/store/settings/settingsstore.go
package settingsstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/pinhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = apperr.NotFound("User not found.")

// Store reads and writes per-user setting overrides, kept on the user
// document under "settings". Only overridden values are stored; defaults
// come from models.DefaultSettings.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

// New creates a new settings store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users"), now: time.Now}
}

// Overrides returns the stored overrides for uid (nil when none).
func (s *Store) Overrides(ctx context.Context, uid primitive.ObjectID) (*models.SettingsPatch, error) {
	var row struct {
		Settings *models.SettingsPatch `bson:"settings"`
	}
	err := s.c.FindOne(ctx, bson.M{"_id": uid}, options.FindOne().SetProjection(bson.M{"settings": 1})).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.Settings, nil
}

// Get returns the effective settings for uid.
func (s *Store) Get(ctx context.Context, uid primitive.ObjectID) (models.Settings, error) {
	o, err := s.Overrides(ctx, uid)
	if err != nil {
		return models.Settings{}, err
	}
	return models.Merge(models.DefaultSettings(), o), nil
}

// Apply layers patch over the stored overrides and returns the effective
// settings. Fields absent from patch keep their previous value.
func (s *Store) Apply(ctx context.Context, uid primitive.ObjectID, patch *models.SettingsPatch) (models.Settings, error) {
	cur, err := s.Overrides(ctx, uid)
	if err != nil {
		return models.Settings{}, err
	}
	next := cur.Overlay(patch)

	_, err = s.c.UpdateByID(ctx, uid, bson.M{"$set": bson.M{
		"settings":   next,
		"updated_at": s.now().UTC(),
	}})
	if err != nil {
		return models.Settings{}, err
	}
	return models.Merge(models.DefaultSettings(), next), nil
}

// Reset drops all overrides so uid is back on the defaults.
func (s *Store) Reset(ctx context.Context, uid primitive.ObjectID) (models.Settings, error) {
	res, err := s.c.UpdateByID(ctx, uid, bson.M{
		"$unset": bson.M{"settings": ""},
		"$set":   bson.M{"updated_at": s.now().UTC()},
	})
	if err != nil {
		return models.Settings{}, err
	}
	if res.MatchedCount == 0 {
		return models.Settings{}, ErrNotFound
	}
	return models.DefaultSettings(), nil
}
