package boardstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/pinhub/internal/app/system/paging"
	"github.com/dalemusser/pinhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound            = apperr.NotFound("Board not found.")
	ErrAlreadyCollaborator = apperr.Conflict("User is already a collaborator on this board.")
	ErrOwnerCollaborator   = apperr.Validation("The board owner cannot be added as a collaborator.")
)

type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("boards"), now: time.Now}
}

// Create inserts b. Owner must be set by the caller; id, lists and
// timestamps are assigned here.
func (s *Store) Create(ctx context.Context, b models.Board) (models.Board, error) {
	b.ID = primitive.NewObjectID()
	if b.Privacy == "" {
		b.Privacy = models.PrivacyPublic
	}
	b.Pins = models.NewIDSet()
	b.Collaborators = models.NewIDSet()
	now := s.now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, b); err != nil {
		return models.Board{}, err
	}
	return b, nil
}

// GetByID loads a board by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Board, error) {
	var b models.Board
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *Store) list(ctx context.Context, filter bson.M, p paging.Params) ([]models.Board, int64, error) {
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	find := p.ApplyToFind(options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []models.Board{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListForUser returns boards the user owns or collaborates on, newest first.
func (s *Store) ListForUser(ctx context.Context, uid primitive.ObjectID, p paging.Params) ([]models.Board, int64, error) {
	return s.list(ctx, bson.M{"$or": bson.A{
		bson.M{"owner": uid},
		bson.M{"collaborators": uid},
	}}, p)
}

// ListForProfile returns the boards shown on owner's profile. The owner sees
// public and private boards; everyone else sees public boards. Secret
// boards never appear here.
func (s *Store) ListForProfile(ctx context.Context, owner primitive.ObjectID, viewerIsOwner bool, p paging.Params) ([]models.Board, int64, error) {
	visible := bson.A{models.PrivacyPublic}
	if viewerIsOwner {
		visible = append(visible, models.PrivacyPrivate)
	}
	return s.list(ctx, bson.M{"owner": owner, "privacy": bson.M{"$in": visible}}, p)
}

// Update holds the editable board fields. Nil fields are left unchanged.
type Update struct {
	Name        *string
	Description *string
	Category    *string
	Privacy     *models.Privacy
}

// Update applies upd and returns the updated board.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Board, error) {
	set := bson.M{"updated_at": s.now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Privacy != nil {
		set["privacy"] = *upd.Privacy
	}

	var b models.Board
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&b)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Delete removes the board document.
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

// AddPin appends pinID to the board's pin list.
func (s *Store) AddPin(ctx context.Context, boardID, pinID primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, boardID, bson.M{
		"$addToSet": bson.M{"pins": pinID},
		"$set":      bson.M{"updated_at": s.now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PullPin removes pinID from every board that lists it.
func (s *Store) PullPin(ctx context.Context, pinID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx, bson.M{"pins": pinID}, bson.M{
		"$pull": bson.M{"pins": pinID},
		"$set":  bson.M{"updated_at": s.now().UTC()},
	})
	return err
}

// PullPins removes all of pinIDs from every board.
func (s *Store) PullPins(ctx context.Context, pinIDs []primitive.ObjectID) error {
	if len(pinIDs) == 0 {
		return nil
	}
	_, err := s.c.UpdateMany(ctx, bson.M{"pins": bson.M{"$in": pinIDs}},
		bson.M{"$pull": bson.M{"pins": bson.M{"$in": pinIDs}}})
	return err
}

// AddCollaborator adds uid to the board's collaborators.
func (s *Store) AddCollaborator(ctx context.Context, boardID, uid primitive.ObjectID) error {
	b, err := s.GetByID(ctx, boardID)
	if err != nil {
		return err
	}
	if b.Owner == uid {
		return ErrOwnerCollaborator
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": boardID, "collaborators": bson.M{"$ne": uid}},
		bson.M{"$addToSet": bson.M{"collaborators": uid}, "$set": bson.M{"updated_at": s.now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrAlreadyCollaborator
	}
	return nil
}

// RemoveCollaborator removes uid from the board's collaborators. Removing a
// non-collaborator is not an error.
func (s *Store) RemoveCollaborator(ctx context.Context, boardID, uid primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, boardID, bson.M{
		"$pull": bson.M{"collaborators": uid},
		"$set":  bson.M{"updated_at": s.now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PullCollaborator removes uid from every board's collaborators.
func (s *Store) PullCollaborator(ctx context.Context, uid primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx, bson.M{"collaborators": uid}, bson.M{"$pull": bson.M{"collaborators": uid}})
	return err
}

// IDsByOwner returns the ids of owner's boards.
func (s *Store) IDsByOwner(ctx context.Context, owner primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"owner": owner}, options.Find().SetProjection(bson.M{"_id": 1}))
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
