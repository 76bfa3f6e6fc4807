// internal/app/features/workerimport/importutil/headers.go
package importutil

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dalemusser/dormhub/internal/app/system/normalize"
	"gopkg.in/yaml.v3"
)

// Canonical import fields.
const (
	FieldFullName  = "full_name"
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldCIN       = "cin"
	FieldGender    = "gender"
	FieldBirthDate = "birth_date"
	FieldAge       = "age"
	FieldPhone     = "phone"
	FieldRoom      = "room"
	FieldEntryDate = "entry_date"
	// FieldAllocation columns carry the article name in Column.Article.
	FieldAllocation = "allocation"
)

// Aliases maps a canonical field to the header spellings that name it.
type Aliases map[string][]string

// DefaultAliases returns the built-in French, English and Darija spellings.
func DefaultAliases() Aliases {
	return Aliases{
		FieldFullName:  {"full name", "fullname", "name", "nom complet", "nom et prenom", "nom prenom", "prenom et nom", "smiya"},
		FieldFirstName: {"first name", "firstname", "given name", "prenom"},
		FieldLastName:  {"last name", "lastname", "surname", "family name", "nom", "nom de famille", "knya"},
		FieldCIN:       {"cin", "cni", "id card", "national id", "carte nationale", "numero cin", "n cin", "cin n", "num cin", "identity card", "bitaka"},
		FieldGender:    {"gender", "sex", "sexe", "genre", "jins"},
		FieldBirthDate: {"birth date", "birthdate", "date of birth", "dob", "date de naissance", "date naissance", "naissance", "ne le", "ne e le"},
		FieldAge:       {"age", "omr", "3mr", "umr"},
		FieldPhone:     {"phone", "telephone", "tel", "mobile", "gsm", "portable", "numero de telephone", "tilifoun"},
		FieldRoom:      {"room", "room number", "room no", "chambre", "n chambre", "numero chambre", "chambre n", "bit"},
		FieldEntryDate: {"entry date", "entree", "arrivee", "arrival", "arrival date", "start date", "date entree", "date d entree", "date arrivee", "date debut", "dkhla"},
	}
}

// Fields lists the canonical fields in a stable order.
func Fields() []string {
	return []string{FieldFullName, FieldFirstName, FieldLastName, FieldCIN, FieldGender,
		FieldBirthDate, FieldAge, FieldPhone, FieldRoom, FieldEntryDate}
}

func knownField(f string) bool {
	for _, k := range Fields() {
		if k == f {
			return true
		}
	}
	return false
}

// Merge returns a copy of a with the spellings of extra appended.
func (a Aliases) Merge(extra Aliases) Aliases {
	out := make(Aliases, len(a))
	for f, names := range a {
		out[f] = append([]string(nil), names...)
	}
	for f, names := range extra {
		out[f] = append(out[f], names...)
	}
	return out
}

// LoadAliases reads a YAML file of extra spellings, for example
//
//	cin: [numero carte, n carte]
//	room: [logement]
//
// and merges it onto the defaults. An empty path returns the defaults.
func LoadAliases(path string) (Aliases, error) {
	if path == "" {
		return DefaultAliases(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias file: %w", err)
	}
	return ParseAliases(data)
}

// ParseAliases decodes YAML alias data and merges it onto the defaults.
func ParseAliases(data []byte) (Aliases, error) {
	var extra Aliases
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("parse alias file: %w", err)
	}
	for f := range extra {
		if !knownField(f) {
			return nil, fmt.Errorf("alias file: unknown field %q", f)
		}
	}
	return DefaultAliases().Merge(extra), nil
}

// Column is one spreadsheet column bound to a field.
type Column struct {
	Index   int    `json:"index"`
	Header  string `json:"header"`
	Field   string `json:"field"`
	Article string `json:"article,omitempty"`
	// Distance is the edit distance of a fuzzy match, 0 for exact ones.
	Distance int `json:"distance"`
}

// Mapping is the outcome of MatchHeaders.
type Mapping struct {
	Columns []Column `json:"columns"`
	Ignored []string `json:"ignored,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// Complete reports whether every required field is bound.
func (m Mapping) Complete() bool { return len(m.Missing) == 0 }

func (m Mapping) index(field string) int {
	for _, c := range m.Columns {
		if c.Field == field {
			return c.Index
		}
	}
	return -1
}

// maxDistance is the largest edit distance accepted between a header and
// an alias of the given length.
func maxDistance(alias string) int {
	if len([]rune(alias)) <= 4 {
		return 1
	}
	return 2
}

type candidate struct {
	col      int
	field    string
	distance int
}

// MatchHeaders binds header cells to canonical fields. Exact folded alias
// matches win; other headers are matched to the closest alias within a
// small edit distance. A field is bound at most once. Headers written
// "article:<name>", or equal to the name of a stock article, become
// allocation columns.
func MatchHeaders(header []string, aliases Aliases, articles []string) Mapping {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	exact := map[string]string{}
	for _, f := range Fields() {
		for _, a := range aliases[f] {
			key := normalize.Header(a)
			if _, taken := exact[key]; !taken {
				exact[key] = f
			}
		}
	}
	articleByKey := map[string]string{}
	for _, a := range articles {
		articleByKey[normalize.Header(a)] = a
	}

	var m Mapping
	var cands []candidate
	for i, raw := range header {
		h := normalize.Header(raw)
		if h == "" {
			continue
		}
		if name, ok := allocationHeader(raw); ok {
			m.Columns = append(m.Columns, Column{Index: i, Header: raw, Field: FieldAllocation, Article: name})
			continue
		}
		if f, ok := exact[h]; ok {
			cands = append(cands, candidate{col: i, field: f})
			continue
		}
		if a, ok := articleByKey[h]; ok {
			m.Columns = append(m.Columns, Column{Index: i, Header: raw, Field: FieldAllocation, Article: a})
			continue
		}
		best := candidate{col: i, distance: -1}
		for _, f := range Fields() {
			for _, a := range aliases[f] {
				key := normalize.Header(a)
				d := Levenshtein(h, key)
				if d > maxDistance(key) {
					continue
				}
				if best.distance < 0 || d < best.distance {
					best.field, best.distance = f, d
				}
			}
		}
		if best.distance < 0 {
			m.Ignored = append(m.Ignored, raw)
			continue
		}
		cands = append(cands, best)
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].distance < cands[j].distance })
	bound := map[string]bool{}
	for _, c := range cands {
		if bound[c.field] {
			m.Ignored = append(m.Ignored, header[c.col])
			continue
		}
		bound[c.field] = true
		m.Columns = append(m.Columns, Column{Index: c.col, Header: header[c.col], Field: c.field, Distance: c.distance})
	}
	sort.SliceStable(m.Columns, func(i, j int) bool { return m.Columns[i].Index < m.Columns[j].Index })

	if !bound[FieldCIN] {
		m.Missing = append(m.Missing, FieldCIN)
	}
	if !bound[FieldGender] {
		m.Missing = append(m.Missing, FieldGender)
	}
	if !bound[FieldFullName] && !(bound[FieldFirstName] && bound[FieldLastName]) {
		m.Missing = append(m.Missing, FieldFullName)
	}
	return m
}

// allocationHeader recognises "article:<name>" and "allocation:<name>".
func allocationHeader(raw string) (string, bool) {
	i := strings.IndexByte(raw, ':')
	if i < 0 {
		return "", false
	}
	switch normalize.Header(raw[:i]) {
	case "article", "allocation":
		name := strings.TrimSpace(raw[i+1:])
		return name, name != ""
	}
	return "", false
}

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
