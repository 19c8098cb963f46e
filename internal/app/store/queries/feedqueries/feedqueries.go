// Package feedqueries provides the read-only pin queries behind feeds,
// search, and pin lists. Every query populates owner and board summaries.
package feedqueries

import (
	"context"
	"regexp"
	"strings"

	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/pinhub/internal/app/system/paging"
	"github.com/dalemusser/pinhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned by Get when the pin does not exist.
var ErrNotFound = apperr.NotFound("Pin not found.")

// Result is one page of populated pins plus the total match count.
type Result struct {
	Items []models.PinView
	Total int64
}

var (
	newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	mostSaved   = bson.D{{Key: "save_count", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	bestMatch   = bson.D{{Key: "score", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
)

// Home returns pins owned by uid (any visibility) together with public pins
// owned by anyone uid follows, newest first.
func Home(ctx context.Context, db *mongo.Database, uid primitive.ObjectID, following []primitive.ObjectID, p paging.Params) (Result, error) {
	if following == nil {
		following = []primitive.ObjectID{}
	}
	match := bson.M{"$or": bson.A{
		bson.M{"owner": uid},
		bson.M{"owner": bson.M{"$in": following}, "visibility": models.PrivacyPublic},
	}}
	return page(ctx, db, match, newestFirst, p, false)
}

// Trending returns up to limit public pins with the most saves. Ties go to
// the newer pin.
func Trending(ctx context.Context, db *mongo.Database, limit int) ([]models.PinView, error) {
	if limit <= 0 || limit > paging.TrendingSize {
		limit = paging.TrendingSize
	}
	pipe := append([]bson.M{
		{"$match": bson.M{"visibility": models.PrivacyPublic}},
		{"$sort": mostSaved},
		{"$limit": limit},
	}, populate()...)

	cur, err := db.Collection("pins").Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.PinView{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Category returns public pins whose category matches exactly, newest first.
func Category(ctx context.Context, db *mongo.Database, category string, p paging.Params) (Result, error) {
	return page(ctx, db, bson.M{"visibility": models.PrivacyPublic, "category": category}, newestFirst, p, false)
}

// Filter narrows List. Zero fields are ignored.
type Filter struct {
	// Query is matched case-insensitively against title and description.
	Query string
	// TextSearch switches Query to the text index over title, description
	// and tags, ranked by relevance.
	TextSearch bool

	Tag      string
	Category string
	Board    primitive.ObjectID
	Owner    primitive.ObjectID
	SavedBy  primitive.ObjectID

	// Viewer sees their own non-public pins in addition to public ones.
	Viewer primitive.ObjectID
	// AnyVisibility drops the visibility filter entirely. Callers set it
	// after checking access to Board.
	AnyVisibility bool
}

// List returns pins matching f. Results are newest first, or by relevance
// when f.TextSearch is set.
func List(ctx context.Context, db *mongo.Database, f Filter, p paging.Params) (Result, error) {
	var clauses []bson.M
	sort := newestFirst
	scored := false

	q := strings.TrimSpace(f.Query)
	if q != "" {
		if f.TextSearch {
			// $text must lead the pipeline
			clauses = append(clauses, bson.M{"$text": bson.M{"$search": q}})
			sort = bestMatch
			scored = true
		} else {
			rx := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
			clauses = append(clauses, bson.M{"$or": bson.A{
				bson.M{"title": rx},
				bson.M{"description": rx},
			}})
		}
	}
	if f.Tag != "" {
		clauses = append(clauses, bson.M{"tags": f.Tag})
	}
	if f.Category != "" {
		clauses = append(clauses, bson.M{"category": f.Category})
	}
	if !f.Board.IsZero() {
		clauses = append(clauses, bson.M{"board": f.Board})
	}
	if !f.Owner.IsZero() {
		clauses = append(clauses, bson.M{"owner": f.Owner})
	}
	if !f.SavedBy.IsZero() {
		clauses = append(clauses, bson.M{"saves": f.SavedBy})
	}
	if !f.AnyVisibility {
		clauses = append(clauses, visibleTo(f.Viewer))
	}

	return page(ctx, db, andify(clauses), sort, p, scored)
}

// Search is List with only a query, for GET /api/pins/search.
func Search(ctx context.Context, db *mongo.Database, q string, textSearch bool, viewer primitive.ObjectID, p paging.Params) (Result, error) {
	return List(ctx, db, Filter{Query: q, TextSearch: textSearch, Viewer: viewer}, p)
}

// Saved returns the pins uid has saved that uid may still see, newest first.
func Saved(ctx context.Context, db *mongo.Database, uid primitive.ObjectID, p paging.Params) (Result, error) {
	return List(ctx, db, Filter{SavedBy: uid, Viewer: uid}, p)
}

// ByBoard returns every pin on boardID, newest first. Access to the board
// must already have been checked.
func ByBoard(ctx context.Context, db *mongo.Database, boardID primitive.ObjectID, p paging.Params) (Result, error) {
	return List(ctx, db, Filter{Board: boardID, AnyVisibility: true}, p)
}

// Get returns one populated pin.
func Get(ctx context.Context, db *mongo.Database, id primitive.ObjectID) (*models.PinView, error) {
	pipe := append([]bson.M{{"$match": bson.M{"_id": id}}}, populate()...)
	cur, err := db.Collection("pins").Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	var v models.PinView
	if err := cur.Decode(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

// visibleTo matches public pins, plus the viewer's own pins when signed in.
func visibleTo(viewer primitive.ObjectID) bson.M {
	if viewer.IsZero() {
		return bson.M{"visibility": models.PrivacyPublic}
	}
	return bson.M{"$or": bson.A{
		bson.M{"visibility": models.PrivacyPublic},
		bson.M{"owner": viewer},
	}}
}

func andify(clauses []bson.M) bson.M {
	switch len(clauses) {
	case 0:
		return bson.M{}
	case 1:
		return clauses[0]
	default:
		a := make(bson.A, len(clauses))
		for i, c := range clauses {
			a[i] = c
		}
		return bson.M{"$and": a}
	}
}

// page runs match → $facet{total, items} and decodes the result.
func page(ctx context.Context, db *mongo.Database, match bson.M, sort bson.D, p paging.Params, scored bool) (Result, error) {
	var res Result

	pipe := mongo.Pipeline{
		{{Key: "$match", Value: match}},
	}
	if scored {
		pipe = append(pipe, bson.D{{Key: "$addFields", Value: bson.M{"score": bson.M{"$meta": "textScore"}}}})
	}

	items := []bson.M{
		{"$sort": sort},
		{"$skip": p.Skip()},
		{"$limit": p.Limit},
	}
	items = append(items, populate()...)

	pipe = append(pipe, bson.D{{Key: "$facet", Value: bson.M{
		"total": []bson.M{{"$count": "n"}},
		"items": items,
	}}})

	cur, err := db.Collection("pins").Aggregate(ctx, pipe)
	if err != nil {
		return res, err
	}
	defer cur.Close(ctx)

	var agg struct {
		Total []struct {
			N int64 `bson:"n"`
		} `bson:"total"`
		Items []models.PinView `bson:"items"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&agg); err != nil {
			return res, err
		}
	}
	if err := cur.Err(); err != nil {
		return res, err
	}

	if len(agg.Total) > 0 {
		res.Total = agg.Total[0].N
	}
	res.Items = agg.Items
	if res.Items == nil {
		res.Items = []models.PinView{}
	}
	return res, nil
}

// populate joins owner_info and board_info.
func populate() []bson.M {
	return []bson.M{
		{"$lookup": bson.M{
			"from": "users",
			"let":  bson.M{"o": "$owner"},
			"pipeline": []bson.M{
				{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$o"}}}},
				{"$project": bson.M{"username": 1, "avatar_url": "$profile.avatar_url"}},
			},
			"as": "owner_info",
		}},
		{"$unwind": bson.M{"path": "$owner_info", "preserveNullAndEmptyArrays": true}},
		{"$lookup": bson.M{
			"from": "boards",
			"let":  bson.M{"b": "$board"},
			"pipeline": []bson.M{
				{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$b"}}}},
				{"$project": bson.M{"name": 1, "privacy": 1}},
			},
			"as": "board_info",
		}},
		{"$unwind": bson.M{"path": "$board_info", "preserveNullAndEmptyArrays": true}},
	}
}
