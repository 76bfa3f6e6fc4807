// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a multi-document transaction.
//
// Standalone servers do not support transactions; when starting or
// committing one fails for that reason, fn is run once more without a
// transaction so development setups keep working. fn must therefore be
// safe to re-run after a rolled-back attempt.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fallback(ctx, log, err, fn)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return fallback(ctx, log, err, fn)
	}
	return err
}

func fallback(ctx context.Context, log *zap.Logger, cause error, fn func(ctx context.Context) error) error {
	if log != nil {
		log.Warn("transactions unavailable; running sequentially", zap.Error(cause))
	}
	return fn(ctx)
}

// Server codes meaning the deployment cannot run the transaction.
const (
	codeIllegalOperation                   = 20
	codeOperationNotSupportedInTransaction = 263
)

// IsNotSupported reports whether err means the deployment cannot run
// multi-document transactions (standalone mongod, some emulators).
// Only server error codes are trusted; aborts such as write conflicts
// must not trigger the sequential re-run.
func IsNotSupported(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.HasErrorCode(codeIllegalOperation) || se.HasErrorCode(codeOperationNotSupportedInTransaction)
}
