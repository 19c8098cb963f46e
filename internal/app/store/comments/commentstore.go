package commentstore

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
)

var ErrNotFound = apperr.NotFound("Comment not found.")

type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("comments"), now: time.Now}
}

// Create inserts c. Author and Pin must be set by the caller.
func (s *Store) Create(ctx context.Context, c models.Comment) (models.Comment, error) {
	c.ID = primitive.NewObjectID()
	c.CreatedAt = s.now().UTC()
	c.AuthorInfo = nil
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Comment{}, err
	}
	return c, nil
}

// GetByID loads a comment by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var c models.Comment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListByPin returns the pin's comments, newest first, with author summaries.
func (s *Store) ListByPin(ctx context.Context, pinID primitive.ObjectID, p paging.Params) ([]models.Comment, int64, error) {
	filter := bson.M{"pin": pinID}
	pipe := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$facet", Value: bson.M{
			"total": bson.A{bson.M{"$count": "n"}},
			"items": bson.A{
				bson.M{"$sort": bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
				bson.M{"$skip": p.Skip()},
				bson.M{"$limit": p.Limit},
				bson.M{"$lookup": bson.M{
					"from": "users",
					"let":  bson.M{"a": "$author"},
					"pipeline": bson.A{
						bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$a"}}}},
						bson.M{"$project": bson.M{"username": 1, "avatar_url": "$profile.avatar_url"}},
					},
					"as": "author_info",
				}},
				bson.M{"$unwind": bson.M{"path": "$author_info", "preserveNullAndEmptyArrays": true}},
			},
		}}},
	}

	cur, err := s.c.Aggregate(ctx, pipe)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var res []struct {
		Total []struct {
			N int64 `bson:"n"`
		} `bson:"total"`
		Items []models.Comment `bson:"items"`
	}
	if err := cur.All(ctx, &res); err != nil {
		return nil, 0, err
	}
	if len(res) == 0 {
		return []models.Comment{}, 0, nil
	}
	var total int64
	if len(res[0].Total) > 0 {
		total = res[0].Total[0].N
	}
	items := res[0].Items
	if items == nil {
		items = []models.Comment{}
	}
	return items, total, nil
}

// Delete removes the comment document.
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

// DeleteByPins removes every comment on any of pinIDs and returns how many
// each author lost, for counter upkeep.
func (s *Store) DeleteByPins(ctx context.Context, pinIDs []primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	if len(pinIDs) == 0 {
		return map[primitive.ObjectID]int{}, nil
	}
	filter := bson.M{"pin": bson.M{"$in": pinIDs}}
	byAuthor, err := s.countBy(ctx, filter, "$author")
	if err != nil {
		return nil, err
	}
	if _, err := s.c.DeleteMany(ctx, filter); err != nil {
		return nil, err
	}
	return byAuthor, nil
}

// DeleteByAuthor removes every comment by author and returns how many each
// pin lost.
func (s *Store) DeleteByAuthor(ctx context.Context, author primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	filter := bson.M{"author": author}
	byPin, err := s.countBy(ctx, filter, "$pin")
	if err != nil {
		return nil, err
	}
	if _, err := s.c.DeleteMany(ctx, filter); err != nil {
		return nil, err
	}
	return byPin, nil
}

func (s *Store) countBy(ctx context.Context, filter bson.M, field string) (map[primitive.ObjectID]int, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{"_id": field, "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[primitive.ObjectID]int{}
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
			N  int                `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}
