// Package txn runs multi-document writes in a MongoDB transaction when the
// deployment supports it, and falls back to plain sequential writes when it
// does not (standalone mongod, some DocumentDB setups).
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// warned ensures the fallback warning is logged once per process.
var warned atomic.Bool

// Run executes fn inside a transaction on db's client.
//
// fn must use the ctx it is given so its operations join the session.
// When transactions are not supported, fn is run once more without a
// session: same ordering, no atomicity.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			fallbackWarn(log, err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	}, opts)
	if err != nil && IsNotSupported(err) {
		fallbackWarn(log, err)
		return fn(ctx)
	}
	return err
}

func fallbackWarn(log *zap.Logger, err error) {
	if log == nil || !warned.CompareAndSwap(false, true) {
		return
	}
	log.Warn("transactions not supported; running multi-document writes without a transaction",
		zap.Error(err))
}

// IsNotSupported reports whether err means the server cannot run transactions.
//
// Codes: 20 IllegalOperation, 51 (legacy illegal op), 263 OperationNotSupportedInTransaction.
// Otherwise it falls back to message heuristics: two of the keywords
// (transaction, session, replica set, not supported, illegal operation).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "session", "replica set", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}
