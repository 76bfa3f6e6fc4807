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

// ImportPreviewTTL is how long an unconfirmed import preview is kept.
const ImportPreviewTTL = time.Hour

type collectionSpec struct {
	name   string
	models []mongo.IndexModel
}

func specs() []collectionSpec {
	return []collectionSpec{
		{"users", []mongo.IndexModel{
			uniq("uniq_users_email", bson.D{{Key: "email", Value: 1}}),
			idx("idx_users_role_farm_status", bson.D{{Key: "role", Value: 1}, {Key: "farm_id", Value: 1}, {Key: "status", Value: 1}}),
			idx("idx_users_fullnameci_id", bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}),
		}},
		{"farms", []mongo.IndexModel{
			uniq("uniq_farms_nameci", bson.D{{Key: "name_ci", Value: 1}}),
			idx("idx_farms_status", bson.D{{Key: "status", Value: 1}}),
		}},
		{"rooms", []mongo.IndexModel{
			uniq("uniq_rooms_farm_number", bson.D{{Key: "farm_id", Value: 1}, {Key: "number", Value: 1}}),
			idx("idx_rooms_occupants", bson.D{{Key: "occupant_ids", Value: 1}}),
		}},
		{"supervisors", []mongo.IndexModel{
			idx("idx_supervisors_farm_fullnameci", bson.D{{Key: "farm_id", Value: 1}, {Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}),
		}},
		{"article_names", []mongo.IndexModel{
			uniq("uniq_article_names_nameci", bson.D{{Key: "name_ci", Value: 1}}),
		}},
		{"stock_items", []mongo.IndexModel{
			uniq("uniq_stock_farm_article", bson.D{{Key: "farm_id", Value: 1}, {Key: "article_name_id", Value: 1}}),
			idx("idx_stock_article", bson.D{{Key: "article_name_id", Value: 1}}),
		}},
		{"security_codes", []mongo.IndexModel{
			idx("idx_security_codes_active_purpose", bson.D{{Key: "active", Value: 1}, {Key: "purpose", Value: 1}}),
		}},
		{"workers", []mongo.IndexModel{
			// Not unique: duplicate active records are reported by the conflicts feature.
			idx("idx_workers_cin_status", bson.D{{Key: "cin", Value: 1}, {Key: "status", Value: 1}}),
			idx("idx_workers_farm_status_fullnameci_id", bson.D{{Key: "farm_id", Value: 1}, {Key: "status", Value: 1}, {Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}),
			idx("idx_workers_room", bson.D{{Key: "room_id", Value: 1}}),
		}},
		{"transfers", []mongo.IndexModel{
			idx("idx_transfers_from_status_created", bson.D{{Key: "from_farm_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}),
			idx("idx_transfers_to_status_created", bson.D{{Key: "to_farm_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}),
			idx("idx_transfers_items_worker", bson.D{{Key: "items.worker_id", Value: 1}, {Key: "status", Value: 1}}),
		}},
		{"notifications", []mongo.IndexModel{
			idx("idx_notifications_recipient_created", bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}}),
			idx("idx_notifications_recipient_read", bson.D{{Key: "recipient_id", Value: 1}, {Key: "read", Value: 1}}),
			idx("idx_notifications_created", bson.D{{Key: "created_at", Value: 1}}),
		}},
		{"import_previews", []mongo.IndexModel{
			ttl("ttl_import_previews_expires", bson.D{{Key: "expires_at", Value: 1}}, 0),
			idx("idx_import_previews_farm", bson.D{{Key: "farm_id", Value: 1}}),
		}},
		{"audit_events", []mongo.IndexModel{
			idx("idx_audit_farm_ts", bson.D{{Key: "farm_id", Value: 1}, {Key: "timestamp", Value: -1}}),
			idx("idx_audit_category_ts", bson.D{{Key: "category", Value: 1}, {Key: "timestamp", Value: -1}}),
			idx("idx_audit_actor_ts", bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}}),
		}},
	}
}

/*
EnsureAll is called at startup. Each collection is reconciled independently;
errors are aggregated so every problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, s := range specs() {
		if err := ensureIndexSet(ctx, db.Collection(s.name), s.models); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Names returns the desired index names per collection.
func Names() map[string][]string {
	out := make(map[string][]string)
	for _, s := range specs() {
		for _, m := range s.models {
			out[s.name] = append(out[s.name], *m.Options.Name)
		}
	}
	return out
}

func idx(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func uniq(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
}

func ttl(name string, keys bson.D, seconds int32) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetExpireAfterSeconds(seconds)}
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name               string `bson:"name"`
	Key                bson.D `bson:"key"`
	Unique             *bool  `bson:"unique,omitempty"`
	ExpireAfterSeconds *int32 `bson:"expireAfterSeconds,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolOf(p *bool) bool { return p != nil && *p }

func int32Of(p *int32) int32 {
	if p == nil {
		return -1
	}
	return *p
}

// sameOptions reports whether an existing index matches the options we care about.
func sameOptions(m mongo.IndexModel, ex existingIndex) bool {
	var unique *bool
	var expire *int32
	if m.Options != nil {
		unique = m.Options.Unique
		expire = m.Options.ExpireAfterSeconds
	}
	return boolOf(unique) == boolOf(ex.Unique) && int32Of(expire) == int32Of(ex.ExpireAfterSeconds)
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate key")
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var ix existingIndex
		if err := cur.Decode(&ix); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(ix.Key)] = ix
	}
	return existing
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string
	existing := listExisting(ctx, coll)

	for _, m := range models {
		name := *m.Options.Name
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig))

		ex, ok := existing[sig]
		switch {
		case ok && ex.Name == name && sameOptions(m, ex):
			log.Debug("reusing existing index")
			continue
		case ok:
			// Same keys under another name or with other options: drop and recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				log.Warn("drop existing index failed", zap.String("existing", ex.Name), zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && boolOf(m.Options.Unique) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present on %s)", coll.Name(), name, sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			log.Warn("index ensure failed", zap.Error(err))
			continue
		}
		log.Info("index ensured",
			zap.Bool("unique", boolOf(m.Options.Unique)),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
