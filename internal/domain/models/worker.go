// internal/domain/models/worker.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Worker genders.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Worker statuses.
const (
	WorkerActive      = "active"
	WorkerDeparted    = "departed"
	WorkerTransferred = "transferred"
)

// Exit and stay reasons recorded on workers.
const (
	ReasonImport            = "import"
	ReasonCreated           = "created"
	ReasonTransfer          = "transfer"
	ReasonDeparture         = "departure"
	ReasonDuplicateResolved = "duplicate_resolved"
)

// Allocation is a quantity of a stock article handed to a worker.
type Allocation struct {
	ArticleNameID primitive.ObjectID `bson:"article_name_id" json:"article_name_id"`
	ArticleName   string             `bson:"article_name" json:"article_name"`
	Quantity      int                `bson:"quantity" json:"quantity"`
}

// Stay is one period a worker spent on a farm. End is nil while open.
type Stay struct {
	FarmID     primitive.ObjectID  `bson:"farm_id" json:"farm_id"`
	RoomID     *primitive.ObjectID `bson:"room_id,omitempty" json:"room_id,omitempty"`
	Start      time.Time           `bson:"start" json:"start"`
	End        *time.Time          `bson:"end,omitempty" json:"end,omitempty"`
	Reason     string              `bson:"reason" json:"reason"`
	TransferID *primitive.ObjectID `bson:"transfer_id,omitempty" json:"transfer_id,omitempty"`
}

// Open reports whether the stay has not been closed yet.
func (s Stay) Open() bool { return s.End == nil }

// Contains reports whether at falls within [Start, End).
func (s Stay) Contains(at time.Time) bool {
	if at.Before(s.Start) {
		return false
	}
	return s.End == nil || at.Before(*s.End)
}

// Worker is a seasonal worker housed on a farm.
//
// CIN (national identity card number) identifies a person across farms.
// At most one active record per CIN is expected; violations surface as
// conflicts.
type Worker struct {
	ID         primitive.ObjectID  `bson:"_id" json:"id"`
	FarmID     primitive.ObjectID  `bson:"farm_id" json:"farm_id"`
	RoomID     *primitive.ObjectID `bson:"room_id,omitempty" json:"room_id,omitempty"`
	RoomNumber string              `bson:"room_number,omitempty" json:"room_number,omitempty"`
	FullName   string              `bson:"full_name" json:"full_name"`
	FullNameCI string              `bson:"full_name_ci" json:"-"`
	CIN        string              `bson:"cin" json:"cin"`
	Gender     string              `bson:"gender" json:"gender"`
	BirthDate  *time.Time          `bson:"birth_date,omitempty" json:"birth_date,omitempty"`
	Age        *int                `bson:"age,omitempty" json:"age,omitempty"`
	Phone      string              `bson:"phone,omitempty" json:"phone,omitempty"`
	Status     string              `bson:"status" json:"status"`
	EntryDate  time.Time           `bson:"entry_date" json:"entry_date"`
	ExitDate   *time.Time          `bson:"exit_date,omitempty" json:"exit_date,omitempty"`
	ExitReason string              `bson:"exit_reason,omitempty" json:"exit_reason,omitempty"`

	Allocations []Allocation `bson:"allocations,omitempty" json:"allocations,omitempty"`
	History     []Stay       `bson:"history,omitempty" json:"history,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsActive reports whether the worker currently lives on a farm.
func (w Worker) IsActive() bool { return w.Status == WorkerActive }

// OpenStayIndex returns the index of the latest open stay, or -1.
func (w Worker) OpenStayIndex() int {
	idx := -1
	for i, s := range w.History {
		if s.Open() && (idx < 0 || !s.Start.Before(w.History[idx].Start)) {
			idx = i
		}
	}
	return idx
}

// AgeAt returns the age in whole years of someone born on birth at the
// instant at.
func AgeAt(birth, at time.Time) int {
	years := at.Year() - birth.Year()
	if at.Month() < birth.Month() || (at.Month() == birth.Month() && at.Day() < birth.Day()) {
		years--
	}
	return years
}
