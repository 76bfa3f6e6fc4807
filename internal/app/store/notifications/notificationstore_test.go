package notificationstore_test

import (
	"errors"
	"testing"
	"time"

	notificationstore "github.com/dalemusser/dormhub/internal/app/store/notifications"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/dormhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_SendToUsers_DedupAndSanitize(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	batch, err := store.SendToUsers(ctx, []primitive.ObjectID{a, b, a, primitive.NilObjectID}, notificationstore.Message{
		Type:    models.NotifyTransferRequested,
		Title:   "<b>New transfer</b>",
		Message: "3 workers <script>alert(1)</script>from Farm A",
	})
	if err != nil {
		t.Fatalf("SendToUsers: %v", err)
	}
	if batch.ID == "" || len(batch.Notifications) != 2 {
		t.Fatalf("batch = %+v, want 2 notifications", batch)
	}
	n := batch.Notifications[0]
	if n.Title != "New transfer" {
		t.Errorf("Title = %q, want tags stripped", n.Title)
	}
	if n.Message != "3 workers from Farm A" {
		t.Errorf("Message = %q, want script removed", n.Message)
	}
	if n.BatchID != batch.ID || n.Read {
		t.Errorf("notification = %+v", n)
	}
}

func TestStore_SendToFarm_OnlyActiveAdmins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	farm := fx.CreateFarm(ctx, "Farm A")
	other := fx.CreateFarm(ctx, "Farm B")
	admin1 := fx.CreateAdmin(ctx, "Admin One", "one@x.io", farm.ID)
	admin2 := fx.CreateAdmin(ctx, "Admin Two", "two@x.io", farm.ID)
	disabled := fx.CreateAdmin(ctx, "Gone", "gone@x.io", farm.ID)
	fx.CreateAdmin(ctx, "Elsewhere", "else@x.io", other.ID)
	fx.CreateUser(ctx, "Root", "root@x.io", models.RoleSuperAdmin, "", nil)
	if _, err := db.Collection("users").UpdateByID(ctx, disabled.ID, bson.M{"$set": bson.M{"status": models.StatusDisabled}}); err != nil {
		t.Fatalf("disable: %v", err)
	}

	batch, err := store.SendToFarm(ctx, farm.ID, notificationstore.Message{Type: models.NotifyTransferCompleted, Title: "done"}, admin2.ID)
	if err != nil {
		t.Fatalf("SendToFarm: %v", err)
	}
	if len(batch.Notifications) != 1 || batch.Notifications[0].RecipientID != admin1.ID {
		t.Fatalf("recipients = %+v, want admin1 only", batch.Notifications)
	}
	if fid := batch.Notifications[0].FarmID; fid == nil || *fid != farm.ID {
		t.Errorf("FarmID = %v, want %v", fid, farm.ID)
	}

	batch, err = store.SendToRole(ctx, models.RoleSuperAdmin, notificationstore.Message{Type: models.NotifyConflictResolved, Title: "x"})
	if err != nil {
		t.Fatalf("SendToRole: %v", err)
	}
	if len(batch.Notifications) != 1 {
		t.Errorf("SendToRole recipients = %d, want 1", len(batch.Notifications))
	}
}

func TestStore_MailboxIsScopedToRecipient(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me, them := primitive.NewObjectID(), primitive.NewObjectID()
	mine, _ := store.SendToUsers(ctx, []primitive.ObjectID{me}, notificationstore.Message{Type: "t", Title: "a"})
	store.SendToUsers(ctx, []primitive.ObjectID{me}, notificationstore.Message{Type: "t", Title: "b"})
	theirs, _ := store.SendToUsers(ctx, []primitive.ObjectID{them}, notificationstore.Message{Type: "t", Title: "c"})
	myID := mine.Notifications[0].ID
	theirID := theirs.Notifications[0].ID

	if n, _ := store.UnreadCount(ctx, me); n != 2 {
		t.Fatalf("UnreadCount = %d, want 2", n)
	}

	// Cross-user mutations are refused.
	if err := store.MarkRead(ctx, me, theirID); !errors.Is(err, notificationstore.ErrNotFound) {
		t.Errorf("MarkRead(theirs) = %v, want ErrNotFound", err)
	}
	if err := store.Acknowledge(ctx, me, theirID); !errors.Is(err, notificationstore.ErrNotFound) {
		t.Errorf("Acknowledge(theirs) = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, me, theirID); !errors.Is(err, notificationstore.ErrNotFound) {
		t.Errorf("Delete(theirs) = %v, want ErrNotFound", err)
	}

	if err := store.Acknowledge(ctx, me, myID); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	unread, err := store.List(ctx, me, true, 0)
	if err != nil {
		t.Fatalf("List unread: %v", err)
	}
	if len(unread) != 1 || unread[0].Title != "b" {
		t.Errorf("unread = %+v", unread)
	}
	all, _ := store.List(ctx, me, false, 0)
	if len(all) != 2 || !all[1].Acknowledged || all[1].ReadAt == nil {
		t.Errorf("all = %+v", all)
	}

	if n, err := store.MarkAllRead(ctx, me); err != nil || n != 1 {
		t.Errorf("MarkAllRead = %d, %v; want 1", n, err)
	}
	if n, _ := store.UnreadCount(ctx, them); n != 1 {
		t.Errorf("their UnreadCount = %d, want untouched 1", n)
	}

	if err := store.Delete(ctx, me, myID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if all, _ := store.List(ctx, me, false, 0); len(all) != 1 {
		t.Errorf("after delete = %d, want 1", len(all))
	}
}

func TestStore_PurgeOlderThan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me := primitive.NewObjectID()
	b, _ := store.SendToUsers(ctx, []primitive.ObjectID{me, primitive.NewObjectID()}, notificationstore.Message{Type: "t", Title: "old"})
	old := time.Now().UTC().Add(-60 * 24 * time.Hour)
	if _, err := db.Collection("notifications").UpdateMany(ctx, bson.M{"batch_id": b.ID}, bson.M{"$set": bson.M{"created_at": old}}); err != nil {
		t.Fatalf("backdate: %v", err)
	}
	// Only the read one is purged.
	if err := store.MarkRead(ctx, me, b.Notifications[0].ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	n, err := store.PurgeOlderThan(ctx, time.Now().UTC().Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
}

func TestStore_After(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	start := notificationstore.Cursor{CreatedAt: time.Now().UTC().Add(-time.Second)}
	if _, err := store.SendToUsers(ctx, []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()}, notificationstore.Message{Type: "t", Title: "x"}); err != nil {
		t.Fatalf("SendToUsers: %v", err)
	}

	got, err := store.After(ctx, start, 0)
	if err != nil {
		t.Fatalf("After: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("After = %d, want 2", len(got))
	}
	last := got[len(got)-1]
	got, err = store.After(ctx, notificationstore.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, 0)
	if err != nil {
		t.Fatalf("After(last): %v", err)
	}
	if len(got) != 0 {
		t.Errorf("After(last) = %+v, want none", got)
	}
}
