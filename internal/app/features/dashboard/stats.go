// internal/app/features/dashboard/stats.go
package dashboard

import (
	"math"
	"sort"
	"time"

	"github.com/dalemusser/dormhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Window is the look-back period for arrivals and departures.
const Window = 30 * 24 * time.Hour

// Snapshot is the raw data the dashboard is computed from.
type Snapshot struct {
	Farms     []models.Farm
	Rooms     []models.Room
	Workers   []models.Worker
	Stock     []models.StockItem
	Transfers []models.Transfer
}

// AgeBrackets counts active workers by age. Unknown have neither a birth
// date nor a recorded age.
type AgeBrackets struct {
	Under25 int `json:"under_25"`
	From25  int `json:"25_34"`
	From35  int `json:"35_44"`
	From45  int `json:"45_54"`
	From55  int `json:"55_plus"`
	Unknown int `json:"unknown"`
}

func (a *AgeBrackets) add(age int, known bool) {
	switch {
	case !known:
		a.Unknown++
	case age < 25:
		a.Under25++
	case age < 35:
		a.From25++
	case age < 45:
		a.From35++
	case age < 55:
		a.From45++
	default:
		a.From55++
	}
}

func (a *AgeBrackets) merge(b AgeBrackets) {
	a.Under25 += b.Under25
	a.From25 += b.From25
	a.From35 += b.From35
	a.From45 += b.From45
	a.From55 += b.From55
	a.Unknown += b.Unknown
}

// LowStock is a stock line at or below its minimum.
type LowStock struct {
	FarmID      primitive.ObjectID `json:"farm_id"`
	FarmName    string             `json:"farm_name"`
	Article     string             `json:"article"`
	Quantity    int                `json:"quantity"`
	MinQuantity int                `json:"min_quantity"`
	Unit        string             `json:"unit,omitempty"`
}

// Counts are the figures shown per farm and summed in Totals.
type Counts struct {
	ActiveWorkers     int            `json:"active_workers"`
	Male              int            `json:"male"`
	Female            int            `json:"female"`
	Rooms             int            `json:"rooms"`
	Beds              int            `json:"beds"`
	Occupied          int            `json:"occupied"`
	FreeBeds          int            `json:"free_beds"`
	OccupancyRate     float64        `json:"occupancy_rate"`
	Ages              AgeBrackets    `json:"ages"`
	Arrivals          int            `json:"arrivals_30d"`
	Departures        int            `json:"departures_30d"`
	IncomingTransfers TransferCounts `json:"incoming_transfers"`
	OutgoingTransfers TransferCounts `json:"outgoing_transfers"`
	LowStockItems     int            `json:"low_stock_items"`
}

// TransferCounts splits open transfers by status.
type TransferCounts struct {
	Pending       int `json:"pending"`
	RoomsAssigned int `json:"rooms_assigned"`
}

func (c *TransferCounts) add(status string) {
	switch status {
	case models.TransferPending:
		c.Pending++
	case models.TransferRoomsAssigned:
		c.RoomsAssigned++
	}
}

func (c *TransferCounts) merge(o TransferCounts) {
	c.Pending += o.Pending
	c.RoomsAssigned += o.RoomsAssigned
}

func (c *Counts) merge(o Counts) {
	c.ActiveWorkers += o.ActiveWorkers
	c.Male += o.Male
	c.Female += o.Female
	c.Rooms += o.Rooms
	c.Beds += o.Beds
	c.Occupied += o.Occupied
	c.FreeBeds += o.FreeBeds
	c.Ages.merge(o.Ages)
	c.Arrivals += o.Arrivals
	c.Departures += o.Departures
	c.IncomingTransfers.merge(o.IncomingTransfers)
	c.OutgoingTransfers.merge(o.OutgoingTransfers)
	c.LowStockItems += o.LowStockItems
}

// FarmStats are the counts of one farm.
type FarmStats struct {
	FarmID primitive.ObjectID `json:"farm_id"`
	Name   string             `json:"name"`
	Counts
}

// Stats is the dashboard payload.
type Stats struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Farms       []FarmStats `json:"farms"`
	Totals      Counts      `json:"totals"`
	LowStock    []LowStock  `json:"low_stock"`
}

// Compute derives the dashboard from s as of now. Rows that reference a
// farm missing from s.Farms are ignored. Farms are ordered by name.
//
// A transfer between two farms of the snapshot counts as outgoing for
// one and incoming for the other, and once in each total.
func Compute(s Snapshot, now time.Time) Stats {
	since := now.Add(-Window)
	byFarm := make(map[primitive.ObjectID]*FarmStats, len(s.Farms))
	out := Stats{GeneratedAt: now, Farms: make([]FarmStats, 0, len(s.Farms)), LowStock: []LowStock{}}
	for _, f := range s.Farms {
		byFarm[f.ID] = &FarmStats{FarmID: f.ID, Name: f.Name}
	}

	for _, r := range s.Rooms {
		fs := byFarm[r.FarmID]
		if fs == nil {
			continue
		}
		fs.Rooms++
		fs.Beds += r.Capacity
		fs.Occupied += len(r.OccupantIDs)
		fs.FreeBeds += r.FreeBeds()
	}

	for _, w := range s.Workers {
		fs := byFarm[w.FarmID]
		if fs == nil {
			continue
		}
		if !w.EntryDate.Before(since) && !w.EntryDate.After(now) {
			fs.Arrivals++
		}
		if w.ExitDate != nil && !w.ExitDate.Before(since) && !w.ExitDate.After(now) {
			fs.Departures++
		}
		if !w.IsActive() {
			continue
		}
		fs.ActiveWorkers++
		switch w.Gender {
		case models.GenderMale:
			fs.Male++
		case models.GenderFemale:
			fs.Female++
		}
		age, known := workerAge(w, now)
		fs.Ages.add(age, known)
	}

	for _, t := range s.Transfers {
		if !t.IsOpen() {
			continue
		}
		if fs := byFarm[t.FromFarmID]; fs != nil {
			fs.OutgoingTransfers.add(t.Status)
		}
		if fs := byFarm[t.ToFarmID]; fs != nil {
			fs.IncomingTransfers.add(t.Status)
		}
	}

	for _, it := range s.Stock {
		fs := byFarm[it.FarmID]
		if fs == nil || it.Quantity > it.MinQuantity {
			continue
		}
		fs.LowStockItems++
		out.LowStock = append(out.LowStock, LowStock{
			FarmID:      it.FarmID,
			FarmName:    fs.Name,
			Article:     it.ArticleName,
			Quantity:    it.Quantity,
			MinQuantity: it.MinQuantity,
			Unit:        it.Unit,
		})
	}

	for _, f := range s.Farms {
		fs := byFarm[f.ID]
		fs.OccupancyRate = rate(fs.Occupied, fs.Beds)
		out.Totals.merge(fs.Counts)
		out.Farms = append(out.Farms, *fs)
	}
	out.Totals.OccupancyRate = rate(out.Totals.Occupied, out.Totals.Beds)

	sort.SliceStable(out.Farms, func(i, j int) bool { return out.Farms[i].Name < out.Farms[j].Name })
	sort.SliceStable(out.LowStock, func(i, j int) bool {
		a, b := out.LowStock[i], out.LowStock[j]
		if a.FarmName != b.FarmName {
			return a.FarmName < b.FarmName
		}
		return a.Article < b.Article
	})
	return out
}

// workerAge prefers the birth date; the recorded age was taken at entry.
func workerAge(w models.Worker, now time.Time) (int, bool) {
	if w.BirthDate != nil {
		return models.AgeAt(*w.BirthDate, now), true
	}
	if w.Age != nil {
		return *w.Age, true
	}
	return 0, false
}

// rate is occupied/beds as a percentage with one decimal.
func rate(occupied, beds int) float64 {
	if beds == 0 {
		return 0
	}
	return math.Round(float64(occupied)*1000/float64(beds)) / 10
}
