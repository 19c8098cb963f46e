package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/pinhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "correct-horse-42"

var testPasswordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// WithChiURLParam adds a chi URL parameter to the request context.
// Repeated calls accumulate parameters on the same route context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
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

// CreateUser creates a user with email <username>@example.com and TestPassword.
func (f *Fixtures) CreateUser(ctx context.Context, username string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		UsernameCI:   text.Fold(username),
		Email:        strings.ToLower(username) + "@example.com",
		PasswordHash: testPasswordHash,
		Followers:    models.NewIDSet(),
		Following:    models.NewIDSet(),
		Segment:      models.SegmentCasual,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// Follow records follower -> followee on both user documents.
func (f *Fixtures) Follow(ctx context.Context, follower, followee primitive.ObjectID) {
	f.t.Helper()
	users := f.db.Collection("users")
	if _, err := users.UpdateByID(ctx, follower, bson.M{"$addToSet": bson.M{"following": followee}}); err != nil {
		f.t.Fatalf("failed to add following: %v", err)
	}
	if _, err := users.UpdateByID(ctx, followee, bson.M{"$addToSet": bson.M{"followers": follower}}); err != nil {
		f.t.Fatalf("failed to add follower: %v", err)
	}
}

// CreateBoard creates a board owned by owner.
func (f *Fixtures) CreateBoard(ctx context.Context, owner primitive.ObjectID, name string, privacy models.Privacy) models.Board {
	f.t.Helper()

	now := time.Now().UTC()
	b := models.Board{
		ID:            primitive.NewObjectID(),
		Name:          name,
		Privacy:       privacy,
		Owner:         owner,
		Pins:          models.NewIDSet(),
		Collaborators: models.NewIDSet(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("boards").InsertOne(ctx, b); err != nil {
		f.t.Fatalf("failed to create test board: %v", err)
	}
	return b
}

// AddCollaborator adds uid to the board's collaborators.
func (f *Fixtures) AddCollaborator(ctx context.Context, boardID, uid primitive.ObjectID) {
	f.t.Helper()
	if _, err := f.db.Collection("boards").UpdateByID(ctx, boardID, bson.M{"$addToSet": bson.M{"collaborators": uid}}); err != nil {
		f.t.Fatalf("failed to add collaborator: %v", err)
	}
}

// CreatePin creates a pin on board and appends it to the board's pin list.
// The pin's visibility mirrors the board's privacy.
func (f *Fixtures) CreatePin(ctx context.Context, owner primitive.ObjectID, board models.Board, title string) models.Pin {
	f.t.Helper()
	return f.CreatePinAt(ctx, owner, board, title, time.Now().UTC())
}

// CreatePinAt is CreatePin with an explicit creation time, for ordering tests.
func (f *Fixtures) CreatePinAt(ctx context.Context, owner primitive.ObjectID, board models.Board, title string, at time.Time) models.Pin {
	f.t.Helper()

	vis := board.Privacy
	if vis == "" {
		vis = models.PrivacyPublic
	}
	p := models.Pin{
		ID:         primitive.NewObjectID(),
		Title:      title,
		ImageURL:   "/uploads/test.png",
		Tags:       []string{},
		Owner:      owner,
		Board:      board.ID,
		Visibility: vis,
		Saves:      models.NewIDSet(),
		Engagement: models.Engagement{ByDevice: map[string]int{}, ByLocation: map[string]int{}},
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	if _, err := f.db.Collection("pins").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test pin: %v", err)
	}
	if _, err := f.db.Collection("boards").UpdateByID(ctx, board.ID, bson.M{"$addToSet": bson.M{"pins": p.ID}}); err != nil {
		f.t.Fatalf("failed to add pin to board: %v", err)
	}
	return p
}

// SavePin marks pin as saved by uid.
func (f *Fixtures) SavePin(ctx context.Context, pinID, uid primitive.ObjectID) {
	f.t.Helper()
	_, err := f.db.Collection("pins").UpdateOne(ctx,
		bson.M{"_id": pinID, "saves": bson.M{"$ne": uid}},
		bson.M{"$addToSet": bson.M{"saves": uid}, "$inc": bson.M{"save_count": 1}})
	if err != nil {
		f.t.Fatalf("failed to save pin: %v", err)
	}
}

// CreateComment creates a comment by author on pin.
func (f *Fixtures) CreateComment(ctx context.Context, author, pinID primitive.ObjectID, body string) models.Comment {
	f.t.Helper()

	c := models.Comment{
		ID:        primitive.NewObjectID(),
		Text:      body,
		Author:    author,
		Pin:       pinID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("comments").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test comment: %v", err)
	}
	if _, err := f.db.Collection("pins").UpdateByID(ctx, pinID, bson.M{"$inc": bson.M{"comment_count": 1}}); err != nil {
		f.t.Fatalf("failed to bump comment count: %v", err)
	}
	return c
}
