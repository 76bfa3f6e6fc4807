package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/dormhub/internal/app/store/users"
	"github.com/dalemusser/dormhub/internal/app/system/indexes"
	"github.com/dalemusser/dormhub/internal/app/system/paging"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/dalemusser/dormhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	farm := primitive.NewObjectID()
	created, err := store.Create(ctx, models.User{
		FullName: "  Fatima   Zahra ",
		Email:    "Fatima@Example.COM",
		Role:     models.RoleAdmin,
		FarmID:   &farm,
	}, "s3cret-pass")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.FullName != "Fatima Zahra" {
		t.Errorf("FullName = %q, want normalized", created.FullName)
	}
	if created.Email != "fatima@example.com" {
		t.Errorf("Email = %q, want lower-cased", created.Email)
	}
	if created.Status != models.StatusActive {
		t.Errorf("Status = %q, want active", created.Status)
	}
	if err := userstore.CheckPassword(created, "s3cret-pass"); err != nil {
		t.Errorf("CheckPassword(right) = %v", err)
	}
	if err := userstore.CheckPassword(created, "nope"); !errors.Is(err, userstore.ErrWrongPassword) {
		t.Errorf("CheckPassword(wrong) = %v, want ErrWrongPassword", err)
	}
}

func TestStore_Create_ScopeRules(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	farm := primitive.NewObjectID()
	tests := []struct {
		name string
		u    models.User
		want error
	}{
		{"admin without farm", models.User{Email: "a@x.io", Role: models.RoleAdmin}, userstore.ErrFarmNeeded},
		{"superadmin with farm", models.User{Email: "b@x.io", Role: models.RoleSuperAdmin, FarmID: &farm}, userstore.ErrFarmNotAllowed},
		{"unknown role", models.User{Email: "c@x.io", Role: "member"}, userstore.ErrBadRole},
		{"bad status", models.User{Email: "d@x.io", Role: models.RoleSuperAdmin, Status: "gone"}, userstore.ErrBadStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tt.u, ""); !errors.Is(err, tt.want) {
				t.Errorf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := userstore.New(db)

	u := models.User{FullName: "One", Email: "dup@example.com", Role: models.RoleSuperAdmin}
	if _, err := store.Create(ctx, u, ""); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	u.Email = "DUP@example.com"
	if _, err := store.Create(ctx, u, ""); !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("second Create error = %v, want ErrDuplicateEmail", err)
	}
}

func TestStore_GetByEmail_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.GetByEmail(ctx, "ghost@example.com"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("GetByEmail error = %v, want ErrNotFound", err)
	}
}

func TestStore_UpdateAndStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	farm := primitive.NewObjectID()
	u, err := store.Create(ctx, models.User{FullName: "Admin", Email: "admin@x.io", Role: models.RoleAdmin, FarmID: &farm}, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Promote to superadmin, which drops the farm.
	err = store.Update(ctx, u.ID, userstore.Update{FullName: "Boss", Email: "boss@x.io", Role: models.RoleSuperAdmin, Status: models.StatusActive})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Role != models.RoleSuperAdmin || got.FarmID != nil || got.FullName != "Boss" {
		t.Errorf("after Update = %+v", got)
	}

	if err := store.SetStatus(ctx, u.ID, models.StatusDisabled); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if f := userstore.NewFetcher(db).FetchUser(ctx, u.ID.Hex()); f != nil {
		t.Errorf("FetchUser on disabled user = %+v, want nil", f)
	}

	if err := store.SetStatus(ctx, primitive.NewObjectID(), models.StatusActive); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("SetStatus(missing) = %v, want ErrNotFound", err)
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	farm := primitive.NewObjectID()
	for _, name := range []string{"Zineb", "Ahmed", "Hassan"} {
		if _, err := store.Create(ctx, models.User{FullName: name, Email: name + "@x.io", Role: models.RoleAdmin, FarmID: &farm}, ""); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	rows, page, err := store.List(ctx, userstore.ListFilter{FarmID: &farm}, paging.Configure("", "", 2))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 || rows[0].FullName != "Ahmed" || rows[1].FullName != "Hassan" {
		t.Fatalf("first page = %v", rows)
	}
	if !page.HasNext {
		t.Fatal("expected a next page")
	}

	rows, _, err = store.List(ctx, userstore.ListFilter{FarmID: &farm}, paging.Configure("", page.Next, 2))
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if len(rows) != 1 || rows[0].FullName != "Zineb" {
		t.Errorf("second page = %v", rows)
	}

	rows, _, err = store.List(ctx, userstore.ListFilter{Search: "has"}, paging.Configure("", "", 10))
	if err != nil {
		t.Fatalf("List search: %v", err)
	}
	if len(rows) != 1 || rows[0].FullName != "Hassan" {
		t.Errorf("search = %v", rows)
	}
}

func TestStore_EnsureSuperAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.EnsureSuperAdmin(ctx, "root@example.com", "pw-123456")
	if err != nil || !created {
		t.Fatalf("first EnsureSuperAdmin = %v, %v", created, err)
	}
	created, err = store.EnsureSuperAdmin(ctx, "root@example.com", "other")
	if err != nil || created {
		t.Fatalf("second EnsureSuperAdmin = %v, %v; want false, nil", created, err)
	}
	u, err := store.GetByEmail(ctx, "root@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if err := userstore.CheckPassword(u, "pw-123456"); err != nil {
		t.Error("existing password must not be replaced")
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	farm := fx.CreateFarm(ctx, "Ain Farm")
	admin := fx.CreateAdmin(ctx, "Karim", "karim@x.io", farm.ID)

	su := userstore.NewFetcher(db).FetchUser(ctx, admin.ID.Hex())
	if su == nil {
		t.Fatal("FetchUser returned nil")
	}
	if su.Role != models.RoleAdmin || su.FarmID != farm.ID.Hex() || su.Email != "karim@x.io" {
		t.Errorf("FetchUser = %+v", su)
	}
	if userstore.NewFetcher(db).FetchUser(ctx, "not-an-id") != nil {
		t.Error("malformed id should return nil")
	}
}
