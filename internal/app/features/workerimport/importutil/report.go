// internal/app/features/workerimport/importutil/report.go
package importutil

import (
	"fmt"
	"io"
	"strings"
)

// CheckFile parses and validates records without farm data: header
// matching, row parsing and the row-level rules only.
func CheckFile(records [][]string, aliases Aliases, opts Options) (Mapping, Result) {
	header, _ := Header(records)
	m := MatchHeaders(header, aliases, nil)
	if !m.Complete() {
		return m, Result{}
	}
	return m, Validate(ParseRows(records, m), nil, opts)
}

// WriteReport prints a plain-text report of a check. At most maxShow
// issues are listed; maxShow <= 0 lists them all.
func WriteReport(w io.Writer, m Mapping, res Result, maxShow int) error {
	var b strings.Builder
	b.WriteString("Columns:\n")
	for _, c := range m.Columns {
		target := c.Field
		if c.Field == FieldAllocation {
			target += ":" + c.Article
		}
		fuzzy := ""
		if c.Distance > 0 {
			fuzzy = fmt.Sprintf(" (approximate, distance %d)", c.Distance)
		}
		fmt.Fprintf(&b, "  %-24s -> %s%s\n", c.Header, target, fuzzy)
	}
	if len(m.Ignored) > 0 {
		fmt.Fprintf(&b, "Ignored columns: %s\n", strings.Join(m.Ignored, ", "))
	}
	if !m.Complete() {
		fmt.Fprintf(&b, "Missing required columns: %s\n", strings.Join(m.Missing, ", "))
		_, err := io.WriteString(w, b.String())
		return err
	}

	s := res.Summary
	fmt.Fprintf(&b, "Rows: %d total, %d valid, %d invalid, %d warnings\n", s.Total, s.Valid, s.Invalid, s.Warnings)
	issues := res.Issues()
	shown := len(issues)
	if maxShow > 0 && shown > maxShow {
		shown = maxShow
	}
	for _, is := range issues[:shown] {
		fmt.Fprintf(&b, "  line %d %-7s %s: %s\n", is.Line, is.Severity, is.Field, is.Message)
	}
	if shown < len(issues) {
		fmt.Fprintf(&b, "  ... and %d more\n", len(issues)-shown)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
