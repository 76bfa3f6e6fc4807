package dashboard

import (
	"testing"
	"time"

	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCompute(t *testing.T) {
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)
	day := func(n int) time.Time { return now.AddDate(0, 0, -n) }
	ptr := func(t time.Time) *time.Time { return &t }
	age := func(n int) *int { return &n }

	ain := models.Farm{ID: primitive.NewObjectID(), Name: "Ain"}
	oued := models.Farm{ID: primitive.NewObjectID(), Name: "Oued"}
	ids := func(n int) []primitive.ObjectID {
		out := make([]primitive.ObjectID, n)
		for i := range out {
			out[i] = primitive.NewObjectID()
		}
		return out
	}

	snap := Snapshot{
		// Oued first to check ordering by name.
		Farms: []models.Farm{oued, ain},
		Rooms: []models.Room{
			{FarmID: ain.ID, Capacity: 4, OccupantIDs: ids(3)},
			{FarmID: ain.ID, Capacity: 2, OccupantIDs: ids(2)},
			{FarmID: oued.ID, Capacity: 4, OccupantIDs: ids(1)},
			{FarmID: primitive.NewObjectID(), Capacity: 9},
		},
		Workers: []models.Worker{
			{FarmID: ain.ID, Status: models.WorkerActive, Gender: models.GenderMale, Age: age(20), EntryDate: day(5)},
			{FarmID: ain.ID, Status: models.WorkerActive, Gender: models.GenderMale, BirthDate: ptr(time.Date(1990, 7, 1, 0, 0, 0, 0, time.UTC)), Age: age(60), EntryDate: day(90)},
			{FarmID: ain.ID, Status: models.WorkerActive, Gender: models.GenderFemale, EntryDate: day(40)},
			{FarmID: ain.ID, Status: models.WorkerDeparted, Gender: models.GenderMale, Age: age(30), EntryDate: day(100), ExitDate: ptr(day(3))},
			{FarmID: oued.ID, Status: models.WorkerActive, Gender: models.GenderFemale, Age: age(55), EntryDate: day(30)},
			{FarmID: oued.ID, Status: models.WorkerTransferred, Gender: models.GenderFemale, Age: age(44), EntryDate: day(10), ExitDate: ptr(day(31))},
		},
		Stock: []models.StockItem{
			{FarmID: ain.ID, ArticleName: "Blankets", Quantity: 2, MinQuantity: 5, Unit: "piece"},
			{FarmID: ain.ID, ArticleName: "Boots", Quantity: 10, MinQuantity: 5},
			{FarmID: oued.ID, ArticleName: "Gloves", Quantity: 0, MinQuantity: 0},
		},
		Transfers: []models.Transfer{
			{FromFarmID: ain.ID, ToFarmID: oued.ID, Status: models.TransferPending},
			{FromFarmID: ain.ID, ToFarmID: oued.ID, Status: models.TransferPending},
			{FromFarmID: oued.ID, ToFarmID: ain.ID, Status: models.TransferRoomsAssigned},
			{FromFarmID: ain.ID, ToFarmID: oued.ID, Status: models.TransferCompleted},
		},
	}

	got := Compute(snap, now)

	wantAin := Counts{
		ActiveWorkers: 3, Male: 2, Female: 1,
		Rooms: 2, Beds: 6, Occupied: 5, FreeBeds: 1, OccupancyRate: 83.3,
		Ages:     AgeBrackets{Under25: 1, From35: 1, Unknown: 1},
		Arrivals: 1, Departures: 1,
		IncomingTransfers: TransferCounts{RoomsAssigned: 1},
		OutgoingTransfers: TransferCounts{Pending: 2},
		LowStockItems: 1,
	}
	wantOued := Counts{
		ActiveWorkers: 1, Female: 1,
		Rooms: 1, Beds: 4, Occupied: 1, FreeBeds: 3, OccupancyRate: 25,
		Ages:     AgeBrackets{From55: 1},
		Arrivals: 2,
		IncomingTransfers: TransferCounts{Pending: 2},
		OutgoingTransfers: TransferCounts{RoomsAssigned: 1},
		LowStockItems: 1,
	}
	want := Stats{
		GeneratedAt: now,
		Farms: []FarmStats{
			{FarmID: ain.ID, Name: "Ain", Counts: wantAin},
			{FarmID: oued.ID, Name: "Oued", Counts: wantOued},
		},
		Totals: Counts{
			ActiveWorkers: 4, Male: 2, Female: 2,
			Rooms: 3, Beds: 10, Occupied: 6, FreeBeds: 4, OccupancyRate: 60,
			Ages:     AgeBrackets{Under25: 1, From35: 1, From55: 1, Unknown: 1},
			Arrivals: 3, Departures: 1,
			IncomingTransfers: TransferCounts{Pending: 2, RoomsAssigned: 1},
			OutgoingTransfers: TransferCounts{Pending: 2, RoomsAssigned: 1},
			LowStockItems: 2,
		},
		LowStock: []LowStock{
			{FarmID: ain.ID, FarmName: "Ain", Article: "Blankets", Quantity: 2, MinQuantity: 5, Unit: "piece"},
			{FarmID: oued.ID, FarmName: "Oued", Article: "Gloves", Quantity: 0, MinQuantity: 0},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compute mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_Empty(t *testing.T) {
	got := Compute(Snapshot{}, time.Now())
	if len(got.Farms) != 0 || got.Totals != (Counts{}) || got.LowStock == nil {
		t.Errorf("Compute(empty) = %+v", got)
	}
}

func TestRate(t *testing.T) {
	cases := []struct {
		occ, beds int
		want      float64
	}{
		{0, 0, 0},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{4, 4, 100},
	}
	for _, tc := range cases {
		if got := rate(tc.occ, tc.beds); got != tc.want {
			t.Errorf("rate(%d, %d) = %v, want %v", tc.occ, tc.beds, got, tc.want)
		}
	}
}
