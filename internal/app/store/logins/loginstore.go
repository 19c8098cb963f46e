// internal/app/store/logins/loginstore.go
package loginstore

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/pinhub/internal/app/system/clientinfo"
	"github.com/dalemusser/pinhub/internal/app/system/paging"
	"github.com/dalemusser/pinhub/internal/app/system/ratelimit"
	"github.com/dalemusser/pinhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxUserAgentLen = 256

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("login_records")}
}

// Create inserts a LoginRecord. If CreatedAt is zero, it's set to time.Now().UTC().
func (s *Store) Create(ctx context.Context, rec models.LoginRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	_, err := s.c.InsertOne(ctx, rec)
	return err
}

// CreateFrom builds a LoginRecord from the HTTP request and inserts it.
func (s *Store) CreateFrom(ctx context.Context, r *http.Request, userID primitive.ObjectID) error {
	ua := r.UserAgent()
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}
	return s.Create(ctx, models.LoginRecord{
		UserID:    userID,
		IP:        ratelimit.ClientIP(r),
		Device:    clientinfo.DeviceType(ua),
		Location:  clientinfo.Location(r),
		UserAgent: ua,
	})
}

// ListByUser returns one page of a user's logins, newest first, and the total.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, pg paging.Params) ([]models.LoginRecord, int64, error) {
	filter := bson.M{"user_id": userID}
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(pg.Skip()).
		SetLimit(int64(pg.Limit)))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []models.LoginRecord{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// DeleteByUser removes a user's login history.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteBefore removes every login recorded before cutoff.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
