package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/pinhub/internal/app/system/normalize"
	"github.com/dalemusser/pinhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound          = apperr.NotFound("User not found.")
	ErrDuplicateEmail    = apperr.Conflict("A user with this email already exists.")
	ErrDuplicateUsername = apperr.Conflict("That username is already taken.")
	ErrSelfFollow        = apperr.Validation("You cannot follow yourself.")
	ErrAlreadyFollowing  = apperr.Conflict("You are already following this user.")
)

// Counter names a field under "counters".
type Counter string

const (
	CounterLogins   Counter = "counters.login_count"
	CounterPins     Counter = "counters.total_pins"
	CounterComments Counter = "counters.total_comments"
	CounterBoards   Counter = "counters.total_boards"
)

type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users"), now: time.Now}
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

// GetByUsername looks up a user by username, ignoring case.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username_ci": normalize.UsernameKey(username)})
}

// dupError tells which unique index a duplicate-key error came from.
func dupError(err error) error {
	if strings.Contains(err.Error(), "username_ci") {
		return ErrDuplicateUsername
	}
	return ErrDuplicateEmail
}

// Create inserts a new user. Email and username are checked up front so the
// caller gets a precise error even where the unique indexes are missing; the
// indexes still guard against concurrent registrations.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Username = normalize.Username(u.Username)
	u.UsernameCI = normalize.UsernameKey(u.Username)
	u.Email = normalize.Email(u.Email)
	u.Followers = models.NewIDSet()
	u.Following = models.NewIDSet()
	u.Counters = models.Counters{}
	u.RecomputeActivity()

	if n, err := s.c.CountDocuments(ctx, bson.M{"email": u.Email}, options.Count().SetLimit(1)); err != nil {
		return models.User{}, err
	} else if n > 0 {
		return models.User{}, ErrDuplicateEmail
	}
	if n, err := s.c.CountDocuments(ctx, bson.M{"username_ci": u.UsernameCI}, options.Count().SetLimit(1)); err != nil {
		return models.User{}, err
	} else if n > 0 {
		return models.User{}, ErrDuplicateUsername
	}

	now := s.now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, dupError(err)
		}
		return models.User{}, err
	}
	return u, nil
}

// ProfileUpdate holds the editable profile fields. Nil fields are left as they are.
type ProfileUpdate struct {
	Username  *string
	Bio       *string
	AvatarURL *string
	Location  *string
	Website   *string
}

// UpdateProfile applies upd and returns the updated user.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	set := bson.M{"updated_at": s.now().UTC()}
	if upd.Username != nil {
		name := normalize.Username(*upd.Username)
		key := normalize.UsernameKey(name)
		n, err := s.c.CountDocuments(ctx, bson.M{"username_ci": key, "_id": bson.M{"$ne": id}}, options.Count().SetLimit(1))
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, ErrDuplicateUsername
		}
		set["username"] = name
		set["username_ci"] = key
	}
	if upd.Bio != nil {
		set["profile.bio"] = *upd.Bio
	}
	if upd.AvatarURL != nil {
		set["profile.avatar_url"] = *upd.AvatarURL
	}
	if upd.Location != nil {
		set["profile.location"] = *upd.Location
	}
	if upd.Website != nil {
		set["profile.website"] = *upd.Website
	}

	var u models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	return &u, nil
}

// Recompute refreshes activity_score and segment from the stored counters
// and follower count.
func (s *Store) Recompute(ctx context.Context, id primitive.ObjectID) error {
	var u models.User
	proj := options.FindOne().SetProjection(bson.M{"counters": 1, "followers": 1})
	if err := s.c.FindOne(ctx, bson.M{"_id": id}, proj).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	u.RecomputeActivity()
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"activity_score": u.ActivityScore,
		"segment":        u.Segment,
	}})
	return err
}

// BumpCounter adds delta to counter and recomputes the activity score.
func (s *Store) BumpCounter(ctx context.Context, id primitive.ObjectID, counter Counter, delta int) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{string(counter): delta},
		"$set": bson.M{"updated_at": s.now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return s.Recompute(ctx, id)
}

// RecordLogin increments the login count and stamps last_login_at.
func (s *Store) RecordLogin(ctx context.Context, id primitive.ObjectID) error {
	now := s.now().UTC()
	res, err := s.c.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{string(CounterLogins): 1},
		"$set": bson.M{"last_login_at": now},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return s.Recompute(ctx, id)
}

// AddFollowing appends target to actor's following list.
// It returns ErrAlreadyFollowing when target is already present.
func (s *Store) AddFollowing(ctx context.Context, actor, target primitive.ObjectID) error {
	if actor == target {
		return ErrSelfFollow
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": actor, "following": bson.M{"$ne": target}},
		bson.M{"$addToSet": bson.M{"following": target}, "$set": bson.M{"updated_at": s.now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetByID(ctx, actor); err != nil {
			return err
		}
		return ErrAlreadyFollowing
	}
	return nil
}

// AddFollower appends follower to target's followers list.
func (s *Store) AddFollower(ctx context.Context, target, follower primitive.ObjectID) error {
	if target == follower {
		return ErrSelfFollow
	}
	res, err := s.c.UpdateByID(ctx, target,
		bson.M{"$addToSet": bson.M{"followers": follower}, "$set": bson.M{"updated_at": s.now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveFollowing removes target from actor's following list. Removing a
// non-member is not an error.
func (s *Store) RemoveFollowing(ctx context.Context, actor, target primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, actor, bson.M{"$pull": bson.M{"following": target}})
	return err
}

// RemoveFollower removes follower from target's followers list.
func (s *Store) RemoveFollower(ctx context.Context, target, follower primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, target, bson.M{"$pull": bson.M{"followers": follower}})
	return err
}

// PullFromGraph removes id from every other user's followers and following.
// It returns the users whose follower count changed.
func (s *Store) PullFromGraph(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	var affected []primitive.ObjectID
	cur, err := s.c.Find(ctx, bson.M{"followers": id}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		affected = append(affected, row.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	_, err = s.c.UpdateMany(ctx,
		bson.M{"$or": bson.A{bson.M{"followers": id}, bson.M{"following": id}}},
		bson.M{"$pull": bson.M{"followers": id, "following": id}})
	if err != nil {
		return nil, err
	}
	return affected, nil
}

// Delete removes the user document.
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

// Summaries returns id/username/avatar for ids, in the order given.
// Ids that no longer resolve are skipped.
func (s *Store) Summaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error) {
	out := make([]models.UserSummary, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	pipe := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": bson.M{"$in": ids}}}},
		{{Key: "$project", Value: bson.M{"username": 1, "avatar_url": "$profile.avatar_url"}}},
	}
	cur, err := s.c.Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	byID := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	for cur.Next(ctx) {
		var us models.UserSummary
		if err := cur.Decode(&us); err != nil {
			return nil, err
		}
		byID[us.ID] = us
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if us, ok := byID[id]; ok {
			out = append(out, us)
		}
	}
	return out, nil
}

// IDByUsername resolves a username to its id.
func (s *Store) IDByUsername(ctx context.Context, username string) (primitive.ObjectID, error) {
	var row struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	err := s.c.FindOne(ctx, bson.M{"username_ci": normalize.UsernameKey(username)},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return primitive.NilObjectID, ErrNotFound
		}
		return primitive.NilObjectID, err
	}
	return row.ID, nil
}

// DecrementCounters subtracts each user's count from counter, for upkeep
// after bulk deletes. Users that no longer exist are skipped.
func (s *Store) DecrementCounters(ctx context.Context, counter Counter, counts map[primitive.ObjectID]int) error {
	for id, n := range counts {
		if n == 0 {
			continue
		}
		if err := s.BumpCounter(ctx, id, counter, -n); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}
