package pinstore

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

var (
	ErrNotFound     = apperr.NotFound("Pin not found.")
	ErrAlreadySaved = apperr.Conflict("Pin already saved.")
)

type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("pins"), now: time.Now}
}

// Create inserts p. Owner, Board and Visibility must be set by the caller.
func (s *Store) Create(ctx context.Context, p models.Pin) (models.Pin, error) {
	p.ID = primitive.NewObjectID()
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Visibility == "" {
		p.Visibility = models.PrivacyPublic
	}
	p.Saves = models.NewIDSet()
	p.SaveCount = 0
	p.CommentCount = 0
	p.Engagement = models.Engagement{ByDevice: map[string]int{}, ByLocation: map[string]int{}}
	now := s.now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Pin{}, err
	}
	return p, nil
}

// GetByID loads a pin by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Pin, error) {
	var p models.Pin
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Update holds the editable pin fields. Nil fields are left unchanged.
type Update struct {
	Title       *string
	Description *string
	ImageURL    *string
	Link        *string
	Category    *string
	Tags        *[]string
}

// Update applies upd and refreshes updated_at.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Pin, error) {
	set := bson.M{"updated_at": s.now().UTC()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.ImageURL != nil {
		set["image_url"] = *upd.ImageURL
	}
	if upd.Link != nil {
		set["link"] = *upd.Link
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Tags != nil {
		tags := *upd.Tags
		if tags == nil {
			tags = []string{}
		}
		set["tags"] = tags
	}

	var p models.Pin
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Delete removes the pin document.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Save adds uid to the pin's saves. The $ne guard makes the check and the
// push a single atomic update, so concurrent saves cannot double count.
func (s *Store) Save(ctx context.Context, pinID, uid primitive.ObjectID) (int, error) {
	var p models.Pin
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": pinID, "saves": bson.M{"$ne": uid}},
		bson.M{
			"$addToSet": bson.M{"saves": uid},
			"$inc":      bson.M{"save_count": 1},
		},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"save_count": 1})).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gerr := s.GetByID(ctx, pinID); gerr != nil {
			return 0, gerr
		}
		return 0, ErrAlreadySaved
	}
	if err != nil {
		return 0, err
	}
	return p.SaveCount, nil
}

// Unsave removes uid from the pin's saves. Unsaving a pin that was not
// saved is a no-op.
func (s *Store) Unsave(ctx context.Context, pinID, uid primitive.ObjectID) (int, error) {
	var p models.Pin
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": pinID, "saves": uid},
		bson.M{
			"$pull": bson.M{"saves": uid},
			"$inc":  bson.M{"save_count": -1},
		},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"save_count": 1})).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		cur, gerr := s.GetByID(ctx, pinID)
		if gerr != nil {
			return 0, gerr
		}
		return cur.SaveCount, nil
	}
	if err != nil {
		return 0, err
	}
	return p.SaveCount, nil
}

// PullSaver removes uid from every pin's saves.
func (s *Store) PullSaver(ctx context.Context, uid primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx, bson.M{"saves": uid}, bson.M{
		"$pull": bson.M{"saves": uid},
		"$inc":  bson.M{"save_count": -1},
	})
	return err
}

// MoveToBoard files the pin under boardID with the board's visibility.
func (s *Store) MoveToBoard(ctx context.Context, pinID, boardID primitive.ObjectID, vis models.Privacy) error {
	res, err := s.c.UpdateByID(ctx, pinID, bson.M{"$set": bson.M{
		"board":      boardID,
		"visibility": vis,
		"updated_at": s.now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetBoardVisibility updates the visibility of every pin on boardID.
func (s *Store) SetBoardVisibility(ctx context.Context, boardID primitive.ObjectID, vis models.Privacy) error {
	_, err := s.c.UpdateMany(ctx, bson.M{"board": boardID}, bson.M{"$set": bson.M{"visibility": vis}})
	return err
}

func (s *Store) ids(ctx context.Context, filter bson.M) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}

// IDsByBoards returns the ids of pins filed under any of boardIDs.
func (s *Store) IDsByBoards(ctx context.Context, boardIDs ...primitive.ObjectID) ([]primitive.ObjectID, error) {
	if len(boardIDs) == 0 {
		return nil, nil
	}
	return s.ids(ctx, bson.M{"board": bson.M{"$in": boardIDs}})
}

// IDsByOwner returns the ids of owner's pins.
func (s *Store) IDsByOwner(ctx context.Context, owner primitive.ObjectID) ([]primitive.ObjectID, error) {
	return s.ids(ctx, bson.M{"owner": owner})
}

// OwnerCounts returns how many of ids each owner has, for counter upkeep
// after bulk deletes.
func (s *Store) OwnerCounts(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	out := map[primitive.ObjectID]int{}
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": bson.M{"$in": ids}}}},
		{{Key: "$group", Value: bson.M{"_id": "$owner", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var row struct {
			Owner primitive.ObjectID `bson:"_id"`
			N     int                `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Owner] = row.N
	}
	return out, cur.Err()
}

// DeleteMany removes the pins with the given ids.
func (s *Store) DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// RecordView counts one view from device at location.
func (s *Store) RecordView(ctx context.Context, id primitive.ObjectID, device, location string) error {
	inc := bson.M{"engagement.views": 1}
	inc["engagement.by_device."+device] = 1
	inc["engagement.by_location."+location] = 1
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$inc": inc})
	return err
}

// RecordClick counts one outbound link click.
func (s *Store) RecordClick(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"engagement.clicks": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustCommentCount adds delta to the pin's comment_count.
func (s *Store) AdjustCommentCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"comment_count": delta}})
	return err
}

// AdjustCommentCounts applies per-pin deltas.
func (s *Store) AdjustCommentCounts(ctx context.Context, deltas map[primitive.ObjectID]int) error {
	for id, d := range deltas {
		if err := s.AdjustCommentCount(ctx, id, d); err != nil {
			return err
		}
	}
	return nil
}
