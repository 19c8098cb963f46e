package metricsstore

import (
	"context"

	"github.com/dalemusser/pinhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// Counts is the set of totals exported as gauges and shown on /health.
type Counts struct {
	Users      int64 `json:"users"`
	Boards     int64 `json:"boards"`
	Pins       int64 `json:"pins"`
	PublicPins int64 `json:"public_pins"`
	Comments   int64 `json:"comments"`
}

// Fetch returns the high-level counts. The counts run concurrently on
// each scrape and health check.
// Tolerant: on error it returns 0 for that counter.
func Fetch(ctx context.Context, db *mongo.Database) Counts {
	var out Counts

	estimate := func(coll string, dst *int64) func() error {
		return func() error {
			if n, err := db.Collection(coll).EstimatedDocumentCount(ctx); err == nil {
				*dst = n
			}
			return nil
		}
	}

	var g errgroup.Group
	g.Go(estimate("users", &out.Users))
	g.Go(estimate("boards", &out.Boards))
	g.Go(estimate("pins", &out.Pins))
	g.Go(estimate("comments", &out.Comments))

	// public pins need a filter, so no estimate
	g.Go(func() error {
		if n, err := db.Collection("pins").CountDocuments(ctx, bson.M{"visibility": models.PrivacyPublic}); err == nil {
			out.PublicPins = n
		}
		return nil
	})
	_ = g.Wait()

	return out
}

// Map flattens c into the label→value form the document gauge expects.
func (c Counts) Map() map[string]int64 {
	return map[string]int64{
		"users":       c.Users,
		"boards":      c.Boards,
		"pins":        c.Pins,
		"public_pins": c.PublicPins,
		"comments":    c.Comments,
	}
}

// CountFunc adapts Fetch for metrics.RegisterCounts.
func CountFunc(db *mongo.Database) func(context.Context) map[string]int64 {
	return func(ctx context.Context) map[string]int64 {
		return Fetch(ctx, db).Map()
	}
}
