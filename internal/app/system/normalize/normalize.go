// internal/app/system/normalize/normalize.go
package normalize

import (
	"strings"
	"unicode"

	"github.com/dalemusser/dormhub/internal/domain/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Name trims surrounding whitespace and collapses inner runs of spaces.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CIN upper-cases a national identity card number and drops spaces,
// dashes, dots and slashes.
func CIN(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		switch r {
		case ' ', '\t', '-', '.', '/', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Phone keeps digits and a leading plus sign.
func Phone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		if unicode.IsDigit(r) || (i == 0 && r == '+') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var genderWords = map[string]string{
	"m":         models.GenderMale,
	"h":         models.GenderMale,
	"male":      models.GenderMale,
	"man":       models.GenderMale,
	"homme":     models.GenderMale,
	"masculin":  models.GenderMale,
	"masculine": models.GenderMale,
	"rajel":     models.GenderMale,
	"f":         models.GenderFemale,
	"female":    models.GenderFemale,
	"woman":     models.GenderFemale,
	"femme":     models.GenderFemale,
	"feminin":   models.GenderFemale,
	"feminine":  models.GenderFemale,
	"mra":       models.GenderFemale,
}

// Gender maps the many ways a gender is written in spreadsheets to
// "male" or "female". Unknown values return "".
func Gender(s string) string {
	return genderWords[strings.Trim(Fold(s), ". ")]
}

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lower-cases s and strips diacritics ("Féminin" → "feminin").
func Fold(s string) string {
	out, _, err := transform.String(foldChain, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Header folds a column header and collapses separators into single
// spaces, so "Date_de-Naissance" and "date de naissance" compare equal.
func Header(s string) string {
	s = Fold(strings.TrimPrefix(s, "\ufeff"))
	var b strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ':' {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}
