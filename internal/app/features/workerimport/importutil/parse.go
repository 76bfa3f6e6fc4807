// internal/app/features/workerimport/importutil/parse.go
package importutil

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DateLayout is the layout dates are normalized to.
const DateLayout = "2006-01-02"

// RowAllocation is a requested quantity of one stock article.
type RowAllocation struct {
	Article  string `json:"article" bson:"article"`
	Quantity string `json:"quantity" bson:"quantity"`
}

// Row is one data line of an import file. Values stay textual so that a
// preview can be edited and re-validated; dates recognised while parsing
// are rewritten as YYYY-MM-DD.
type Row struct {
	Line        int             `json:"line" bson:"line"`
	FullName    string          `json:"full_name" bson:"full_name"`
	CIN         string          `json:"cin" bson:"cin"`
	Gender      string          `json:"gender" bson:"gender"`
	BirthDate   string          `json:"birth_date,omitempty" bson:"birth_date,omitempty"`
	Age         string          `json:"age,omitempty" bson:"age,omitempty"`
	Phone       string          `json:"phone,omitempty" bson:"phone,omitempty"`
	Room        string          `json:"room,omitempty" bson:"room,omitempty"`
	EntryDate   string          `json:"entry_date,omitempty" bson:"entry_date,omitempty"`
	Allocations []RowAllocation `json:"allocations,omitempty" bson:"allocations,omitempty"`
}

// Header returns the first non-blank record and its index.
func Header(records [][]string) ([]string, int) {
	for i, rec := range records {
		for _, c := range rec {
			if strings.TrimSpace(c) != "" {
				return rec, i
			}
		}
	}
	return nil, -1
}

// ParseRows turns the records below the header into rows using m. Blank
// records are skipped; Line is the 1-based line in the file.
func ParseRows(records [][]string, m Mapping) []Row {
	_, h := Header(records)
	if h < 0 {
		return nil
	}
	cell := func(rec []string, field string) string {
		i := m.index(field)
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	for i := h + 1; i < len(records); i++ {
		rec := records[i]
		if blank(rec) {
			continue
		}
		row := Row{
			Line:      i + 1,
			FullName:  cell(rec, FieldFullName),
			CIN:       cell(rec, FieldCIN),
			Gender:    cell(rec, FieldGender),
			BirthDate: NormalizeDate(cell(rec, FieldBirthDate)),
			Age:       cell(rec, FieldAge),
			Phone:     cell(rec, FieldPhone),
			Room:      cell(rec, FieldRoom),
			EntryDate: NormalizeDate(cell(rec, FieldEntryDate)),
		}
		if row.FullName == "" {
			row.FullName = strings.TrimSpace(cell(rec, FieldFirstName) + " " + cell(rec, FieldLastName))
		}
		for _, c := range m.Columns {
			if c.Field != FieldAllocation || c.Index >= len(rec) {
				continue
			}
			if q := strings.TrimSpace(rec[c.Index]); q != "" {
				row.Allocations = append(row.Allocations, RowAllocation{Article: c.Article, Quantity: q})
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Day-first layouts come before month-first ones.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2.1.2006",
	"02/01/06",
	"2/1/06",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1-2-06",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// ParseDate reads a date cell. Excel serial numbers between 20000 and
// 80000 (1954 to 2119) are accepted; smaller numbers are too easily
// confused with years or ages.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial >= 20000 && serial <= 80000 {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
			}
		}
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// NormalizeDate rewrites a recognised date as YYYY-MM-DD and returns any
// other value unchanged so validation can report it.
func NormalizeDate(s string) string {
	if t, ok := ParseDate(s); ok {
		return t.Format(DateLayout)
	}
	return strings.TrimSpace(s)
}

// ParseCount reads a whole number written as "3" or "3.0".
func ParseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
