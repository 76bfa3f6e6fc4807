// internal/app/system/reconcile/reconcile.go
//
// Package reconcile answers where a worker belongs and cleans up the
// duplicates that appear when the same person is registered as active on
// more than one record. Everything here is pure; callers load workers
// and persist the outcome.
package reconcile

import (
	"bytes"
	"errors"
	"sort"
	"time"

	"github.com/dalemusser/dormhub/internal/app/system/normalize"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FarmAt returns the farm the worker belonged to at the given instant.
//
// The stay whose [start, end) range contains at wins; among several, the
// one that started last. A worker without any history is assumed to have
// been on its current farm since its entry date, but only while active.
func FarmAt(w models.Worker, at time.Time) (primitive.ObjectID, bool) {
	best := -1
	for i, s := range w.History {
		if !s.Contains(at) {
			continue
		}
		if best < 0 || s.Start.After(w.History[best].Start) {
			best = i
		}
	}
	if best >= 0 {
		return w.History[best].FarmID, true
	}
	if len(w.History) == 0 && w.IsActive() && !at.Before(w.EntryDate) {
		return w.FarmID, true
	}
	return primitive.NilObjectID, false
}

// HomeFarm returns the farm of the worker's earliest stay, or the
// current farm when there is no history.
func HomeFarm(w models.Worker) primitive.ObjectID {
	if len(w.History) == 0 {
		return w.FarmID
	}
	first := 0
	for i, s := range w.History {
		if s.Start.Before(w.History[first].Start) {
			first = i
		}
	}
	return w.History[first].FarmID
}

// Conflict kinds.
const (
	KindCrossFarm = "cross_farm"
	KindSameFarm  = "same_farm"
)

// Conflict is a set of active records sharing one CIN.
type Conflict struct {
	CIN     string               `json:"cin"`
	Kind    string               `json:"kind"`
	FarmIDs []primitive.ObjectID `json:"farm_ids"`
	Workers []models.Worker      `json:"workers"`
}

// DetectConflicts groups active workers by normalized CIN and returns
// every group with more than one record, sorted by CIN. Records with no
// CIN are ignored.
func DetectConflicts(workers []models.Worker) []Conflict {
	groups := make(map[string][]models.Worker)
	for _, w := range workers {
		if !w.IsActive() {
			continue
		}
		cin := normalize.CIN(w.CIN)
		if cin == "" {
			continue
		}
		groups[cin] = append(groups[cin], w)
	}

	var out []Conflict
	for cin, ws := range groups {
		if len(ws) < 2 {
			continue
		}
		sort.Slice(ws, func(i, j int) bool { return lessID(ws[i].ID, ws[j].ID) })

		seen := make(map[primitive.ObjectID]bool)
		var farms []primitive.ObjectID
		for _, w := range ws {
			if !seen[w.FarmID] {
				seen[w.FarmID] = true
				farms = append(farms, w.FarmID)
			}
		}
		kind := KindSameFarm
		if len(farms) > 1 {
			kind = KindCrossFarm
		}
		out = append(out, Conflict{CIN: cin, Kind: kind, FarmIDs: farms, Workers: ws})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CIN < out[j].CIN })
	return out
}

// Resolution policies.
const (
	KeepLatest = "keep_latest"
	KeepFarm   = "keep_farm"
	KeepRecord = "keep_record"
)

var (
	ErrUnknownPolicy   = errors.New("unknown resolution policy")
	ErrNoRecordOnFarm  = errors.New("no conflicting record on that farm")
	ErrAmbiguousFarm   = errors.New("more than one conflicting record on that farm")
	ErrRecordNotFound  = errors.New("record is not part of the conflict")
	ErrNothingToSettle = errors.New("conflict has fewer than two records")
)

// Policy selects which record of a conflict survives.
type Policy struct {
	Kind   string
	FarmID primitive.ObjectID // KeepFarm
	KeepID primitive.ObjectID // KeepRecord
}

// Resolution names the surviving record and the records to retire.
type Resolution struct {
	Keeper models.Worker
	Losers []models.Worker
}

// Resolve applies p to c.
//
// keep_latest keeps the latest entry date, then the latest update, then
// the highest id. keep_farm keeps the only record on p.FarmID.
// keep_record keeps p.KeepID.
func Resolve(c Conflict, p Policy) (Resolution, error) {
	if len(c.Workers) < 2 {
		return Resolution{}, ErrNothingToSettle
	}

	keep := -1
	switch p.Kind {
	case KeepLatest:
		keep = 0
		for i := 1; i < len(c.Workers); i++ {
			if newer(c.Workers[i], c.Workers[keep]) {
				keep = i
			}
		}
	case KeepFarm:
		for i, w := range c.Workers {
			if w.FarmID != p.FarmID {
				continue
			}
			if keep >= 0 {
				return Resolution{}, ErrAmbiguousFarm
			}
			keep = i
		}
		if keep < 0 {
			return Resolution{}, ErrNoRecordOnFarm
		}
	case KeepRecord:
		for i, w := range c.Workers {
			if w.ID == p.KeepID {
				keep = i
				break
			}
		}
		if keep < 0 {
			return Resolution{}, ErrRecordNotFound
		}
	default:
		return Resolution{}, ErrUnknownPolicy
	}

	res := Resolution{Keeper: c.Workers[keep]}
	for i, w := range c.Workers {
		if i != keep {
			res.Losers = append(res.Losers, w)
		}
	}
	return res, nil
}

func newer(a, b models.Worker) bool {
	if !a.EntryDate.Equal(b.EntryDate) {
		return a.EntryDate.After(b.EntryDate)
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return lessID(b.ID, a.ID)
}

func lessID(a, b primitive.ObjectID) bool { return bytes.Compare(a[:], b[:]) < 0 }

// Retire returns loser as it must be stored once keeper wins: departed
// with reason duplicate_resolved, exit date set to the keeper's entry
// date, room released and open stays closed. A stay never ends before
// it started.
func Retire(loser, keeper models.Worker, now time.Time) models.Worker {
	exit := keeper.EntryDate
	out := loser
	out.Status = models.WorkerDeparted
	out.ExitReason = models.ReasonDuplicateResolved
	out.ExitDate = &exit
	out.RoomID = nil
	out.RoomNumber = ""
	out.UpdatedAt = now

	out.History = make([]models.Stay, len(loser.History))
	copy(out.History, loser.History)
	for i := range out.History {
		if !out.History[i].Open() {
			continue
		}
		end := exit
		if end.Before(out.History[i].Start) {
			end = out.History[i].Start
		}
		out.History[i].End = &end
	}
	return out
}

// Overlap is a pair of stays of one worker whose periods intersect.
type Overlap struct {
	First  int       `json:"first"`
	Second int       `json:"second"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"` // zero when both stays are still open
}

// Overlaps lists intersecting stay pairs in w's history. Indices refer
// to w.History and First always started no later than Second.
func Overlaps(w models.Worker) []Overlap {
	idx := make([]int, len(w.History))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return w.History[idx[a]].Start.Before(w.History[idx[b]].Start)
	})

	var out []Overlap
	for a := 0; a < len(idx); a++ {
		sa := w.History[idx[a]]
		for b := a + 1; b < len(idx); b++ {
			sb := w.History[idx[b]]
			if sa.End != nil && !sb.Start.Before(*sa.End) {
				break
			}
			o := Overlap{First: idx[a], Second: idx[b], From: sb.Start}
			switch {
			case sa.End == nil && sb.End == nil:
			case sa.End == nil:
				o.To = *sb.End
			case sb.End == nil:
				o.To = *sa.End
			case sa.End.Before(*sb.End):
				o.To = *sa.End
			default:
				o.To = *sb.End
			}
			out = append(out, o)
		}
	}
	return out
}

// WorkerOverlaps is the data-quality report entry for one worker.
type WorkerOverlaps struct {
	WorkerID primitive.ObjectID `json:"worker_id"`
	FullName string             `json:"full_name"`
	CIN      string             `json:"cin"`
	FarmID   primitive.ObjectID `json:"farm_id"`
	Overlaps []Overlap          `json:"overlaps"`
}

// ScanOverlaps runs Overlaps over every worker and keeps those with findings.
func ScanOverlaps(workers []models.Worker) []WorkerOverlaps {
	var out []WorkerOverlaps
	for _, w := range workers {
		if ov := Overlaps(w); len(ov) > 0 {
			out = append(out, WorkerOverlaps{WorkerID: w.ID, FullName: w.FullName, CIN: w.CIN, FarmID: w.FarmID, Overlaps: ov})
		}
	}
	return out
}
