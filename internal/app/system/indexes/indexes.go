// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"boards", ensureBoards},
		{"pins", ensurePins},
		{"comments", ensureComments},
		{"login_records", ensureLoginRecords},
	}
	for _, s := range sets {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

type desiredIndex struct {
	model  mongo.IndexModel
	name   string
	unique bool
	sig    string
}

func describe(m mongo.IndexModel) desiredIndex {
	d := desiredIndex{model: m, sig: keySig(m.Keys.(bson.D))}
	if m.Options != nil {
		if m.Options.Name != nil {
			d.name = *m.Options.Name
		}
		d.unique = m.Options.Unique != nil && *m.Options.Unique
	}
	return d
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(p *bool) bool { return p != nil && *p }

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

// duplicateHint points at the aggregation that finds offending documents
// when a unique index cannot be built.
func duplicateHint(coll string, sig string) string {
	field, _, _ := strings.Cut(sig, ":")
	if field == "" {
		return ""
	}
	return fmt.Sprintf(" (duplicates exist on %s.%s; find them with "+
		`db.%s.aggregate([{ $group: { _id: "$%s", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }]))`,
		coll, field, coll, field)
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// recreate drops the index named old and creates d in its place.
func recreate(ctx context.Context, coll *mongo.Collection, old string, d desiredIndex) error {
	if _, err := coll.Indexes().DropOne(ctx, old); err != nil {
		return fmt.Errorf("%s(%s): drop %s failed: %w", coll.Name(), d.name, old, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, d.model); err != nil {
		if d.unique && isDuplicateKeyErr(err) {
			return fmt.Errorf("%s(%s): cannot create unique index%s", coll.Name(), d.name, duplicateHint(coll.Name(), d.sig))
		}
		return fmt.Errorf("%s(%s): %w", coll.Name(), d.name, err)
	}
	return nil
}

func ensureOne(ctx context.Context, coll *mongo.Collection, d desiredIndex) error {
	start := time.Now()
	log := zap.L().With(
		zap.String("collection", coll.Name()),
		zap.String("name", d.name),
		zap.String("keys", d.sig),
		zap.Bool("unique", d.unique))
	log.Info("ensuring index")

	if ex, ok := listExisting(ctx, coll)[d.sig]; ok {
		switch {
		case d.unique != boolVal(ex.Unique):
			// Options mismatch (e.g., upgrading to unique).
			if err := recreate(ctx, coll, ex.Name, d); err != nil {
				return err
			}
			log.Info("index dropped and recreated", zap.Duration("took", time.Since(start)))
		case d.name != "" && ex.Name != d.name:
			if err := recreate(ctx, coll, ex.Name, d); err != nil {
				return err
			}
			log.Info("index renamed", zap.String("from", ex.Name), zap.Duration("took", time.Since(start)))
		default:
			log.Info("reusing existing index", zap.Duration("took", time.Since(start)))
		}
		return nil
	}

	created, err := coll.Indexes().CreateOne(ctx, d.model)
	if err == nil {
		log.Info("index ensured", zap.String("created_name", created), zap.Duration("took", time.Since(start)))
		return nil
	}
	if d.unique && isDuplicateKeyErr(err) {
		return fmt.Errorf("%s(%s): cannot create unique index%s", coll.Name(), d.name, duplicateHint(coll.Name(), d.sig))
	}
	if isOptionsConflictErr(err) {
		// Same keys under another name appeared between List and Create.
		if ex, ok := listExisting(ctx, coll)[d.sig]; ok {
			if d.unique == boolVal(ex.Unique) {
				log.Info("reusing existing index (post-conflict)", zap.String("existing", ex.Name))
				return nil
			}
			if err := recreate(ctx, coll, ex.Name, d); err != nil {
				return err
			}
			log.Info("index dropped and recreated (post-conflict)", zap.Duration("took", time.Since(start)))
			return nil
		}
	}
	log.Warn("index ensure failed", zap.Duration("took", time.Since(start)), zap.Error(err))
	return fmt.Errorf("%s(%s): %w", coll.Name(), d.name, err)
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string
	for _, m := range models {
		if err := ensureOne(ctx, coll, describe(m)); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Usernames are unique ignoring case; username keeps the display form.
		{
			Keys:    bson.D{{Key: "username_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_usernameci"),
		},
		// Unfollow/account-delete cleanup pulls ids out of these lists.
		{
			Keys:    bson.D{{Key: "followers", Value: 1}},
			Options: options.Index().SetName("idx_users_followers"),
		},
		{
			Keys:    bson.D{{Key: "following", Value: 1}},
			Options: options.Index().SetName("idx_users_following"),
		},
	})
}

func ensureBoards(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("boards"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_boards_owner_created"),
		},
		{
			Keys:    bson.D{{Key: "collaborators", Value: 1}},
			Options: options.Index().SetName("idx_boards_collaborators"),
		},
		{
			Keys:    bson.D{{Key: "pins", Value: 1}},
			Options: options.Index().SetName("idx_boards_pins"),
		},
	})
}

func ensurePins(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("pins"), []mongo.IndexModel{
		// Home feed and profile listing: owner ∈ set, newest first.
		{
			Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_pins_owner_created"),
		},
		{
			Keys:    bson.D{{Key: "board", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_pins_board_created"),
		},
		// Trending.
		{
			Keys: bson.D{
				{Key: "visibility", Value: 1},
				{Key: "save_count", Value: -1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_pins_visibility_savecount_created"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "visibility", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_pins_category_visibility_created"),
		},
		{
			Keys:    bson.D{{Key: "tags", Value: 1}},
			Options: options.Index().SetName("idx_pins_tags"),
		},
		{
			Keys:    bson.D{{Key: "saves", Value: 1}},
			Options: options.Index().SetName("idx_pins_saves"),
		},
		{
			Keys: bson.D{
				{Key: "title", Value: "text"},
				{Key: "description", Value: "text"},
				{Key: "tags", Value: "text"},
			},
			Options: options.Index().
				SetName("text_pins_title_description_tags").
				SetWeights(bson.D{{Key: "title", Value: 5}, {Key: "tags", Value: 3}, {Key: "description", Value: 1}}),
		},
	})
}

func ensureComments(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("comments"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pin", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_comments_pin_created"),
		},
		{
			Keys:    bson.D{{Key: "author", Value: 1}},
			Options: options.Index().SetName("idx_comments_author"),
		},
	})
}

func ensureLoginRecords(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("login_records"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_logins_user_created"),
		},
	})
}
