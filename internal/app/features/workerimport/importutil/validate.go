// internal/app/features/workerimport/importutil/validate.go
package importutil

import (
	"fmt"
	"time"

	roomstore "github.com/dalemusser/dormhub/internal/app/store/rooms"
	"github.com/dalemusser/dormhub/internal/app/system/inputval"
	"github.com/dalemusser/dormhub/internal/app/system/normalize"
	"github.com/dalemusser/dormhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Issue severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Default accepted age range.
const (
	DefaultMinAge = 18
	DefaultMaxAge = 65
)

// Issue is one problem found on a row.
type Issue struct {
	Line     int    `json:"line"`
	Field    string `json:"field"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// RoomRef is what validation needs to know about a room of the farm.
type RoomRef struct {
	ID       primitive.ObjectID
	Number   string
	Gender   string
	Capacity int
	Occupied int
	Disabled bool
}

// StockRef is a stock line of the farm.
type StockRef struct {
	ArticleNameID primitive.ObjectID
	Name          string
	Quantity      int
}

// ActiveRef is an active worker already holding a CIN.
type ActiveRef struct {
	WorkerID primitive.ObjectID
	FarmID   primitive.ObjectID
	FarmName string
}

// Ref is the farm state rows are checked against. Rooms are keyed by
// normalized number, stock by folded article name and active workers by CIN.
type Ref struct {
	FarmID primitive.ObjectID
	Rooms  map[string]RoomRef
	Stock  map[string]StockRef
	Active map[string]ActiveRef
}

// RoomKey and ArticleKey build the keys of Ref's maps.
func RoomKey(number string) string { return roomstore.NormalizeNumber(number) }
func ArticleKey(name string) string { return normalize.Header(name) }

// Options tune Validate. Zero values select the defaults.
type Options struct {
	MinAge int
	MaxAge int
	Now    time.Time
}

// Resolved holds the typed values of a valid row.
type Resolved struct {
	FullName    string
	CIN         string
	Gender      string
	Phone       string
	BirthDate   *time.Time
	Age         int
	EntryDate   time.Time
	Room        *RoomRef
	Allocations []models.Allocation
}

// Checked is a row with its issues.
type Checked struct {
	Row
	Issues   []Issue   `json:"issues"`
	Valid    bool      `json:"valid"`
	Resolved *Resolved `json:"-"`
}

// Summary counts rows by outcome; Warnings counts warning issues.
type Summary struct {
	Total    int `json:"total"`
	Valid    int `json:"valid"`
	Invalid  int `json:"invalid"`
	Warnings int `json:"warnings"`
}

// Result is the outcome of Validate.
type Result struct {
	Rows    []Checked `json:"rows"`
	Summary Summary   `json:"summary"`
}

// Issues flattens the issues of every row.
func (r Result) Issues() []Issue {
	var out []Issue
	for _, c := range r.Rows {
		out = append(out, c.Issues...)
	}
	return out
}

// ValidRows returns the resolved values of the valid rows in file order.
func (r Result) ValidRows() []Resolved {
	var out []Resolved
	for _, c := range r.Rows {
		if c.Valid && c.Resolved != nil {
			out = append(out, *c.Resolved)
		}
	}
	return out
}

// Validate checks rows in file order. A nil ref skips every check that
// needs farm data (rooms, stock, active workers), which is what offline
// checks use.
//
// Room capacity and stock quantity are consumed only by rows that end
// up valid, so a row is refused when it would push a room or an article
// past what earlier valid rows left.
func Validate(rows []Row, ref *Ref, opts Options) Result {
	if opts.MinAge == 0 {
		opts.MinAge = DefaultMinAge
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}
	today := time.Date(opts.Now.Year(), opts.Now.Month(), opts.Now.Day(), 0, 0, 0, 0, time.UTC)

	firstLine := map[string]int{}
	roomUsed := map[string]int{}
	stockUsed := map[string]int{}
	res := Result{Rows: make([]Checked, 0, len(rows))}

	for _, row := range rows {
		c := Checked{Row: row, Issues: []Issue{}}
		add := func(field, sev, format string, args ...any) {
			c.Issues = append(c.Issues, Issue{Line: row.Line, Field: field, Message: fmt.Sprintf(format, args...), Severity: sev})
		}
		v := Resolved{
			FullName: normalize.Name(row.FullName),
			CIN:      normalize.CIN(row.CIN),
			Gender:   normalize.Gender(row.Gender),
			Phone:    normalize.Phone(row.Phone),
		}

		if v.FullName == "" {
			add(FieldFullName, SeverityError, "full name is required")
		}

		switch {
		case v.CIN == "":
			add(FieldCIN, SeverityError, "CIN is required")
		case !inputval.IsValidCIN(v.CIN):
			add(FieldCIN, SeverityError, "CIN %q must look like AB123456", row.CIN)
		default:
			if first, dup := firstLine[v.CIN]; dup {
				add(FieldCIN, SeverityError, "CIN %s already appears on line %d", v.CIN, first)
			} else {
				firstLine[v.CIN] = row.Line
			}
			if ref != nil {
				if a, ok := ref.Active[v.CIN]; ok {
					if a.FarmID == ref.FarmID {
						add(FieldCIN, SeverityError, "CIN %s is already an active worker on this farm", v.CIN)
					} else {
						add(FieldCIN, SeverityError, "CIN %s is active on farm %s; use a transfer", v.CIN, a.FarmName)
					}
				}
			}
		}

		switch {
		case row.Gender == "":
			add(FieldGender, SeverityError, "gender is required")
		case v.Gender == "":
			add(FieldGender, SeverityError, "gender %q is not recognised", row.Gender)
		}

		v.EntryDate = today
		if row.EntryDate != "" {
			if d, ok := ParseDate(row.EntryDate); ok {
				v.EntryDate = d
			} else {
				add(FieldEntryDate, SeverityError, "entry date %q is not a date", row.EntryDate)
			}
		}

		checkAge(&v, row, opts, today, add)

		var room *RoomRef
		var roomKey string
		if row.Room != "" && ref != nil {
			roomKey = RoomKey(row.Room)
			r, ok := ref.Rooms[roomKey]
			switch {
			case !ok:
				add(FieldRoom, SeverityError, "room %s does not exist on this farm", row.Room)
			case r.Disabled:
				add(FieldRoom, SeverityError, "room %s is disabled", r.Number)
			case v.Gender != "" && r.Gender != models.RoomMixed && r.Gender != v.Gender:
				add(FieldRoom, SeverityError, "room %s is for %s workers", r.Number, r.Gender)
			case r.Occupied+roomUsed[roomKey] >= r.Capacity:
				add(FieldRoom, SeverityError, "room %s is full (%d beds)", r.Number, r.Capacity)
			default:
				room = &r
			}
		}

		want := map[string]int{}
		var keys []string
		for _, a := range row.Allocations {
			field := FieldAllocation + ":" + a.Article
			n, ok := ParseCount(a.Quantity)
			if !ok || n <= 0 {
				add(field, SeverityError, "quantity %q of %s must be a positive whole number", a.Quantity, a.Article)
				continue
			}
			key := ArticleKey(a.Article)
			if ref != nil {
				s, ok := ref.Stock[key]
				if !ok {
					add(field, SeverityError, "%s is not in this farm's stock", a.Article)
					continue
				}
				if stockUsed[key]+want[key]+n > s.Quantity {
					add(field, SeverityError, "not enough %s in stock (%d left)", s.Name, max(s.Quantity-stockUsed[key]-want[key], 0))
					continue
				}
			}
			if _, seen := want[key]; !seen {
				keys = append(keys, key)
			}
			want[key] += n
		}

		c.Valid = true
		for _, is := range c.Issues {
			if is.Severity == SeverityError {
				c.Valid = false
				break
			}
		}
		if c.Valid {
			if room != nil {
				roomUsed[roomKey]++
				v.Room = room
			}
			for _, key := range keys {
				stockUsed[key] += want[key]
				alloc := models.Allocation{ArticleName: key, Quantity: want[key]}
				if ref != nil {
					s := ref.Stock[key]
					alloc.ArticleNameID = s.ArticleNameID
					alloc.ArticleName = s.Name
				}
				v.Allocations = append(v.Allocations, alloc)
			}
			c.Resolved = &v
			res.Summary.Valid++
		} else {
			res.Summary.Invalid++
		}
		for _, is := range c.Issues {
			if is.Severity == SeverityWarning {
				res.Summary.Warnings++
			}
		}
		res.Rows = append(res.Rows, c)
	}
	res.Summary.Total = len(res.Rows)
	return res
}

func checkAge(v *Resolved, row Row, opts Options, today time.Time, add func(field, sev, format string, args ...any)) {
	var fromBirth, fromColumn *int
	if row.BirthDate != "" {
		birth, ok := ParseDate(row.BirthDate)
		switch {
		case !ok:
			add(FieldBirthDate, SeverityError, "birth date %q is not a date", row.BirthDate)
		case birth.After(today):
			add(FieldBirthDate, SeverityError, "birth date %s is in the future", birth.Format(DateLayout))
		default:
			v.BirthDate = &birth
			a := models.AgeAt(birth, v.EntryDate)
			fromBirth = &a
		}
	}
	if row.Age != "" {
		n, ok := ParseCount(row.Age)
		if !ok || n < 0 {
			add(FieldAge, SeverityError, "age %q must be a whole number", row.Age)
		} else {
			fromColumn = &n
		}
	}

	switch {
	case fromBirth != nil:
		v.Age = *fromBirth
		if fromColumn != nil && abs(*fromColumn-*fromBirth) > 1 {
			add(FieldAge, SeverityWarning, "age %d disagrees with birth date (%d)", *fromColumn, *fromBirth)
		}
	case fromColumn != nil:
		v.Age = *fromColumn
	case row.BirthDate == "" && row.Age == "":
		add(FieldBirthDate, SeverityError, "birth date or age is required")
		return
	default:
		return
	}
	if v.Age < opts.MinAge || v.Age > opts.MaxAge {
		add(FieldAge, SeverityError, "age %d is outside the accepted range %d-%d", v.Age, opts.MinAge, opts.MaxAge)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
