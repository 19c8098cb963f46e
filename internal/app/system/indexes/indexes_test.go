package indexes_test

import (
	"testing"

	"github.com/dalemusser/pinhub/internal/app/system/indexes"
	"github.com/dalemusser/pinhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes on %s failed: %v", coll, err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expected := map[string][]string{
		"users":    {"uniq_users_email", "uniq_users_usernameci", "idx_users_followers", "idx_users_following"},
		"boards":   {"idx_boards_owner_created", "idx_boards_collaborators", "idx_boards_pins"},
		"pins":     {"idx_pins_owner_created", "idx_pins_board_created", "idx_pins_visibility_savecount_created", "idx_pins_category_visibility_created", "idx_pins_tags", "idx_pins_saves", "text_pins_title_description_tags"},
		"comments": {"idx_comments_pin_created", "idx_comments_author"},
	}
	for coll, want := range expected {
		got := indexNames(t, db, coll)
		for _, name := range want {
			if !got[name] {
				t.Errorf("expected index %q to exist on %s", name, coll)
			}
		}
	}
}

func TestEnsureAll_RenamesMisnamedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := db.Collection("comments").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "author", Value: 1}},
	})
	if err != nil {
		t.Fatalf("seed index: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	got := indexNames(t, db, "comments")
	if !got["idx_comments_author"] {
		t.Error("expected index to be renamed to idx_comments_author")
	}
	if got["author_1"] {
		t.Error("old default-named index should be dropped")
	}
}

func TestEnsureAll_UniqueEmailFailsWithDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := db.Collection("users")
	for i := 0; i < 2; i++ {
		if _, err := users.InsertOne(ctx, bson.M{"email": "dup@example.com", "username_ci": "u" + string(rune('a'+i))}); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	if err := indexes.EnsureAll(ctx, db); err == nil {
		t.Fatal("expected EnsureAll to report duplicate emails")
	}
}
