package validators_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/pinhub/internal/app/system/validators"
	"github.com/dalemusser/pinhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool)
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"users", "boards", "pins", "comments"} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestUsersValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	users := db.Collection("users")

	if _, err := users.InsertOne(ctx, bson.M{"username": "nohash"}); err == nil {
		t.Error("expected validation error for user without required fields")
	}

	if _, err := users.InsertOne(ctx, bson.M{
		"username": "bad name!", "username_ci": "bad name!", "email": "x@example.com", "password_hash": "h",
	}); err == nil {
		t.Error("expected validation error for invalid username")
	}

	if _, err := users.InsertOne(ctx, bson.M{
		"username": "alice", "username_ci": "alice", "email": "alice@example.com", "password_hash": "h",
		"followers": bson.A{}, "following": bson.A{}, "segment": "casual",
	}); err != nil {
		t.Errorf("insert valid user failed: %v", err)
	}
}

func TestPinsValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	pins := db.Collection("pins")
	valid := func() bson.M {
		return bson.M{
			"title":      "Sunset",
			"image_url":  "/uploads/a.png",
			"owner":      primitive.NewObjectID(),
			"board":      primitive.NewObjectID(),
			"visibility": "public",
			"saves":      bson.A{},
			"save_count": 0,
			"created_at": time.Now(),
		}
	}

	if _, err := pins.InsertOne(ctx, valid()); err != nil {
		t.Fatalf("insert valid pin failed: %v", err)
	}

	long := valid()
	long["title"] = strings.Repeat("x", 101)
	if _, err := pins.InsertOne(ctx, long); err == nil {
		t.Error("expected validation error for title over 100 chars")
	}

	badVis := valid()
	badVis["visibility"] = "friends"
	if _, err := pins.InsertOne(ctx, badVis); err == nil {
		t.Error("expected validation error for unknown visibility")
	}

	noBoard := valid()
	delete(noBoard, "board")
	if _, err := pins.InsertOne(ctx, noBoard); err == nil {
		t.Error("expected validation error for pin without board")
	}
}

func TestBoardsAndCommentsValidators(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	if _, err := db.Collection("boards").InsertOne(ctx, bson.M{
		"name": "Recipes", "owner": primitive.NewObjectID(), "privacy": "hidden",
	}); err == nil {
		t.Error("expected validation error for unknown board privacy")
	}
	if _, err := db.Collection("boards").InsertOne(ctx, bson.M{
		"name": "Recipes", "owner": primitive.NewObjectID(), "privacy": "secret",
	}); err != nil {
		t.Errorf("insert valid board failed: %v", err)
	}

	if _, err := db.Collection("comments").InsertOne(ctx, bson.M{
		"text": "   ", "author": primitive.NewObjectID(), "pin": primitive.NewObjectID(),
	}); err == nil {
		t.Error("expected validation error for blank comment")
	}
}
