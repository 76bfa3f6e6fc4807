// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/dormhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Collections lists every collection EnsureAll creates, in creation order.
var Collections = []string{
	"users", "farms", "rooms", "supervisors", "article_names", "stock_items",
	"security_codes", "workers", "transfers", "notifications",
	"import_previews", "audit_events",
}

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	schemas := map[string]bson.M{
		"users":          usersSchema(),
		"farms":          farmsSchema(),
		"rooms":          roomsSchema(),
		"stock_items":    stockItemsSchema(),
		"security_codes": securityCodesSchema(),
		"workers":        workersSchema(),
		"transfers":      transfersSchema(),
		"notifications":  notificationsSchema(),
	}

	for _, coll := range Collections {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			continue
		}
		schema := schemas[coll]
		if schema == nil {
			continue
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				continue
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	integer  = bson.M{"bsonType": bson.A{"int", "long"}}
	count    = bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0}
	oid      = bson.M{"bsonType": "objectId"}
	date     = bson.M{"bsonType": "date"}
	statuses = bson.M{"enum": bson.A{models.StatusActive, models.StatusDisabled}}
)

func schema(required bson.A, props bson.M) bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType":   "object",
			"required":   required,
			"properties": props,
		},
	}
}

func usersSchema() bson.M {
	return schema(bson.A{"full_name", "email", "role", "status"}, bson.M{
		"full_name":    nonBlank,
		"full_name_ci": bson.M{"bsonType": "string"},
		"email":        nonBlank,
		"role":         bson.M{"enum": bson.A{models.RoleSuperAdmin, models.RoleAdmin}},
		"status":       statuses,
		"farm_id":      oid,
	})
}

func farmsSchema() bson.M {
	return schema(bson.A{"name", "name_ci", "status"}, bson.M{
		"name":    nonBlank,
		"name_ci": nonBlank,
		"status":  statuses,
	})
}

func roomsSchema() bson.M {
	return schema(bson.A{"farm_id", "number", "gender", "capacity"}, bson.M{
		"farm_id":       oid,
		"number":        nonBlank,
		"gender":        bson.M{"enum": bson.A{models.RoomMale, models.RoomFemale, models.RoomMixed}},
		"capacity":      bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
		"occupant_ids":  bson.M{"bsonType": bson.A{"array", "null"}, "uniqueItems": true},
		"supervisor_id": oid,
	})
}

func stockItemsSchema() bson.M {
	return schema(bson.A{"farm_id", "article_name_id", "quantity"}, bson.M{
		"farm_id":         oid,
		"article_name_id": oid,
		"quantity":        count,
		"min_quantity":    count,
	})
}

func securityCodesSchema() bson.M {
	return schema(bson.A{"purpose", "code_hash", "active"}, bson.M{
		"purpose":    bson.M{"enum": bson.A{models.PurposeWorkerDelete, models.PurposeConflictResolve, models.PurposeAny}},
		"code_hash":  nonBlank,
		"active":     bson.M{"bsonType": "bool"},
		"expires_at": date,
	})
}

func workersSchema() bson.M {
	return schema(bson.A{"farm_id", "full_name", "cin", "gender", "status", "entry_date"}, bson.M{
		"farm_id":    oid,
		"room_id":    oid,
		"full_name":  nonBlank,
		"cin":        nonBlank,
		"gender":     bson.M{"enum": bson.A{models.GenderMale, models.GenderFemale}},
		"status":     bson.M{"enum": bson.A{models.WorkerActive, models.WorkerDeparted, models.WorkerTransferred}},
		"entry_date": date,
		"exit_date":  date,
		"age":        integer,
	})
}

func transfersSchema() bson.M {
	return schema(bson.A{"from_farm_id", "to_farm_id", "status", "items"}, bson.M{
		"from_farm_id": oid,
		"to_farm_id":   oid,
		"status": bson.M{"enum": bson.A{
			models.TransferPending, models.TransferRoomsAssigned, models.TransferCompleted,
			models.TransferRejected, models.TransferCancelled,
		}},
		"items": bson.M{"bsonType": "array", "minItems": 1},
	})
}

func notificationsSchema() bson.M {
	return schema(bson.A{"recipient_id", "type", "read", "created_at"}, bson.M{
		"recipient_id": oid,
		"type":         nonBlank,
		"read":         bson.M{"bsonType": "bool"},
		"created_at":   date,
	})
}
