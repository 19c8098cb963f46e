package testutil

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/pinhub/internal/app/system/indexes"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultTestMongoURI = "mongodb://localhost:27017"

var (
	clientOnce sync.Once
	client     *mongo.Client
	clientErr  error
)

func testClient() (*mongo.Client, error) {
	clientOnce.Do(func() {
		uri := os.Getenv("PINHUB_TEST_MONGO_URI")
		if uri == "" {
			uri = defaultTestMongoURI
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		c, err := mongo.Connect(ctx, options.Client().
			ApplyURI(uri).
			SetServerSelectionTimeout(2*time.Second))
		if err != nil {
			clientErr = err
			return
		}
		if err := c.Ping(ctx, readpref.Primary()); err != nil {
			_ = c.Disconnect(context.Background())
			clientErr = err
			return
		}
		client = c
	})
	return client, clientErr
}

// SetupTestDB returns an empty database unique to this test, dropped on
// cleanup. The test is skipped when MongoDB is unreachable
// (PINHUB_TEST_MONGO_URI, default mongodb://localhost:27017).
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	c, err := testClient()
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	db := c.Database("pinhub_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
	})
	return db
}

// SetupIndexedDB is SetupTestDB plus the production indexes, so unique
// constraints and the text index behave as in a real deployment.
func SetupIndexedDB(t *testing.T) *mongo.Database {
	t.Helper()
	db := SetupTestDB(t)
	ctx, cancel := TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	return db
}

// TestContext returns a context with a timeout suitable for one test step.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
