package models

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{TransferPending, TransferRoomsAssigned, true},
		{TransferPending, TransferRejected, true},
		{TransferPending, TransferCancelled, true},
		{TransferPending, TransferCompleted, false},
		{TransferRoomsAssigned, TransferRoomsAssigned, true},
		{TransferRoomsAssigned, TransferCompleted, true},
		{TransferRoomsAssigned, TransferRejected, true},
		{TransferRoomsAssigned, TransferCancelled, true},
		{TransferRoomsAssigned, TransferPending, false},
		{TransferCompleted, TransferCancelled, false},
		{TransferRejected, TransferRoomsAssigned, false},
		{TransferCancelled, TransferPending, false},
		{"bogus", TransferCompleted, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestRoomAccepts(t *testing.T) {
	tests := []struct {
		room, worker string
		want         bool
	}{
		{RoomMale, GenderMale, true},
		{RoomMale, GenderFemale, false},
		{RoomFemale, GenderFemale, true},
		{RoomFemale, GenderMale, false},
		{RoomMixed, GenderMale, true},
		{RoomMixed, GenderFemale, true},
		{RoomMixed, "", false},
	}
	for _, tt := range tests {
		r := Room{Gender: tt.room}
		if got := r.Accepts(tt.worker); got != tt.want {
			t.Errorf("Room{%s}.Accepts(%q) = %v, want %v", tt.room, tt.worker, got, tt.want)
		}
	}
}

func TestRoomFreeBeds(t *testing.T) {
	r := Room{Capacity: 2, OccupantIDs: []primitive.ObjectID{primitive.NewObjectID()}}
	if got := r.FreeBeds(); got != 1 {
		t.Errorf("FreeBeds() = %d, want 1", got)
	}
	r.Capacity = 0
	if got := r.FreeBeds(); got != 0 {
		t.Errorf("FreeBeds() over capacity = %d, want 0", got)
	}
}

func TestStayContains(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	closed := Stay{Start: start, End: &end}
	open := Stay{Start: start}

	tests := []struct {
		name string
		s    Stay
		at   time.Time
		want bool
	}{
		{"before start", closed, start.Add(-time.Second), false},
		{"at start", closed, start, true},
		{"inside", closed, start.AddDate(0, 0, 10), true},
		{"at end is excluded", closed, end, false},
		{"open far future", open, start.AddDate(5, 0, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Contains(tt.at); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestOpenStayIndex(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := t0.AddDate(0, 1, 0)
	w := Worker{History: []Stay{
		{Start: t0, End: &end},
		{Start: t0.AddDate(0, 2, 0)},
	}}
	if got := w.OpenStayIndex(); got != 1 {
		t.Errorf("OpenStayIndex() = %d, want 1", got)
	}
	if got := (Worker{}).OpenStayIndex(); got != -1 {
		t.Errorf("OpenStayIndex() on empty history = %d, want -1", got)
	}
}

func TestSecurityCodeUsable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	farm := primitive.NewObjectID()
	other := primitive.NewObjectID()

	tests := []struct {
		name    string
		code    SecurityCode
		purpose string
		farm    *primitive.ObjectID
		want    bool
	}{
		{"active any purpose", SecurityCode{Active: true, Purpose: PurposeAny}, PurposeWorkerDelete, nil, true},
		{"inactive", SecurityCode{Active: false, Purpose: PurposeAny}, PurposeWorkerDelete, nil, false},
		{"expired", SecurityCode{Active: true, Purpose: PurposeAny, ExpiresAt: &past}, PurposeWorkerDelete, nil, false},
		{"not yet expired", SecurityCode{Active: true, Purpose: PurposeAny, ExpiresAt: &future}, PurposeWorkerDelete, nil, true},
		{"wrong purpose", SecurityCode{Active: true, Purpose: PurposeConflictResolve}, PurposeWorkerDelete, nil, false},
		{"farm bound, same farm", SecurityCode{Active: true, Purpose: PurposeAny, FarmID: &farm}, PurposeWorkerDelete, &farm, true},
		{"farm bound, other farm", SecurityCode{Active: true, Purpose: PurposeAny, FarmID: &farm}, PurposeWorkerDelete, &other, false},
		{"farm bound, no farm given", SecurityCode{Active: true, Purpose: PurposeAny, FarmID: &farm}, PurposeConflictResolve, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.code.Usable(now, tt.purpose, tt.farm); got != tt.want {
				t.Errorf("Usable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStockItemIsLow(t *testing.T) {
	if !(StockItem{Quantity: 5, MinQuantity: 5}).IsLow() {
		t.Error("quantity equal to minimum should be low")
	}
	if (StockItem{Quantity: 6, MinQuantity: 5}).IsLow() {
		t.Error("quantity above minimum should not be low")
	}
}

func TestAgeAt(t *testing.T) {
	birth := time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want int
	}{
		{time.Date(2020, time.June, 14, 0, 0, 0, 0, time.UTC), 29},
		{time.Date(2020, time.June, 15, 0, 0, 0, 0, time.UTC), 30},
		{time.Date(2020, time.December, 1, 0, 0, 0, 0, time.UTC), 30},
		{time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC), 30},
	}
	for _, tt := range tests {
		if got := AgeAt(birth, tt.at); got != tt.want {
			t.Errorf("AgeAt(%s) = %d, want %d", tt.at.Format("2006-01-02"), got, tt.want)
		}
	}
}
