package importutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMatchHeaders_Exact(t *testing.T) {
	header := []string{"Nom complet", "N° CIN", "Sexe", "Date de naissance", "Téléphone", "Chambre", "Couvertures", "article:Bottes", "Remarques"}
	m := MatchHeaders(header, nil, []string{"Couvertures"})

	want := []Column{
		{Index: 0, Header: "Nom complet", Field: FieldFullName},
		{Index: 1, Header: "N° CIN", Field: FieldCIN},
		{Index: 2, Header: "Sexe", Field: FieldGender},
		{Index: 3, Header: "Date de naissance", Field: FieldBirthDate},
		{Index: 4, Header: "Téléphone", Field: FieldPhone},
		{Index: 5, Header: "Chambre", Field: FieldRoom},
		{Index: 6, Header: "Couvertures", Field: FieldAllocation, Article: "Couvertures"},
		{Index: 7, Header: "article:Bottes", Field: FieldAllocation, Article: "Bottes"},
	}
	if diff := cmp.Diff(want, m.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Remarques"}, m.Ignored); diff != "" {
		t.Errorf("ignored mismatch (-want +got):\n%s", diff)
	}
	if !m.Complete() {
		t.Errorf("missing = %v, want none", m.Missing)
	}
}

func TestMatchHeaders_Fuzzy(t *testing.T) {
	m := MatchHeaders([]string{"Full nme", "CIN", "Genderr", "Telefone"}, nil, nil)
	want := []Column{
		{Index: 0, Header: "Full nme", Field: FieldFullName, Distance: 1},
		{Index: 1, Header: "CIN", Field: FieldCIN},
		{Index: 2, Header: "Genderr", Field: FieldGender, Distance: 1},
		{Index: 3, Header: "Telefone", Field: FieldPhone, Distance: 2},
	}
	if diff := cmp.Diff(want, m.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchHeaders_FieldBoundOnce(t *testing.T) {
	m := MatchHeaders([]string{"Name", "Full name", "CIN", "Sex"}, nil, nil)
	if len(m.Columns) != 3 || m.Columns[0].Index != 0 {
		t.Errorf("columns = %+v", m.Columns)
	}
	if diff := cmp.Diff([]string{"Full name"}, m.Ignored); diff != "" {
		t.Errorf("ignored mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchHeaders_Missing(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   []string
	}{
		{"first and last name", []string{"Prénom", "Nom", "CIN", "Genre"}, nil},
		{"only first name", []string{"Prénom", "CIN", "Genre"}, []string{FieldFullName}},
		{"no cin or gender", []string{"Name", "Age"}, []string{FieldCIN, FieldGender}},
		{"nothing", nil, []string{FieldCIN, FieldGender, FieldFullName}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MatchHeaders(tt.header, nil, nil)
			if diff := cmp.Diff(tt.want, m.Missing); diff != "" {
				t.Errorf("missing mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseAliases(t *testing.T) {
	aliases, err := ParseAliases([]byte("cin: [numero carte]\nroom: [logement]\n"))
	if err != nil {
		t.Fatalf("ParseAliases: %v", err)
	}
	m := MatchHeaders([]string{"Nom complet", "Numéro carte", "Sexe", "Logement"}, aliases, nil)
	if !m.Complete() || len(m.Columns) != 4 || m.Columns[1].Field != FieldCIN || m.Columns[3].Field != FieldRoom {
		t.Errorf("mapping = %+v", m)
	}
	if len(DefaultAliases()[FieldCIN]) == len(aliases[FieldCIN]) {
		t.Error("defaults must not be modified by Merge")
	}

	if _, err := ParseAliases([]byte("salary: [salaire]\n")); err == nil {
		t.Error("expected an error for an unknown field")
	}
	if _, err := ParseAliases([]byte("cin: {")); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"chambre", "chambres", 1},
		{"é", "e", 1},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		if got := Levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
