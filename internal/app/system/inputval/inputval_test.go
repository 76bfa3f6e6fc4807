package inputval

import "testing"

func TestValidate(t *testing.T) {
	type TestInput struct {
		Name  string `validate:"required,max=10" label:"Full name"`
		Email string `validate:"required,email" label:"Email address"`
	}

	tests := []struct {
		name       string
		input      TestInput
		wantErrors bool
		wantFirst  string
	}{
		{
			name:       "valid input",
			input:      TestInput{Name: "Karim", Email: "karim@example.com"},
			wantErrors: false,
		},
		{
			name:       "missing name",
			input:      TestInput{Name: "", Email: "karim@example.com"},
			wantErrors: true,
			wantFirst:  "Full name is required.",
		},
		{
			name:       "name too long",
			input:      TestInput{Name: "VeryLongNameThatExceedsLimit", Email: "karim@example.com"},
			wantErrors: true,
			wantFirst:  "Full name must be at most 10 characters.",
		},
		{
			name:       "invalid email",
			input:      TestInput{Name: "Karim", Email: "not-an-email"},
			wantErrors: true,
			wantFirst:  "A valid email address is required.",
		},
		{
			name:       "missing both",
			input:      TestInput{},
			wantErrors: true,
			wantFirst:  "Full name is required.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.input)

			if result.HasErrors() != tt.wantErrors {
				t.Errorf("HasErrors = %v, want %v", result.HasErrors(), tt.wantErrors)
			}
			if tt.wantErrors && result.First() != tt.wantFirst {
				t.Errorf("First() = %q, want %q", result.First(), tt.wantFirst)
			}
		})
	}
}

func TestValidate_CustomRules(t *testing.T) {
	type input struct {
		ID      string `validate:"omitempty,objectid" label:"Farm"`
		CIN     string `validate:"omitempty,cin" label:"CIN"`
		Role    string `validate:"omitempty,role" label:"Role"`
		Gender  string `validate:"omitempty,gender" label:"Gender"`
		RoomG   string `validate:"omitempty,roomgender" label:"Room gender"`
		Purpose string `validate:"omitempty,purpose" label:"Purpose"`
	}

	tests := []struct {
		name  string
		in    input
		first string
	}{
		{"all valid", input{ID: "507f1f77bcf86cd799439011", CIN: "AB123456", Role: "admin", Gender: "female", RoomG: "mixed", Purpose: "any"}, ""},
		{"bad id", input{ID: "nope"}, "Farm is not a valid ID."},
		{"bad cin", input{CIN: "123"}, "CIN must look like AB123456."},
		{"bad role", input{Role: "member"}, "Role must be superadmin or admin."},
		{"bad gender", input{Gender: "mixed"}, "Gender must be male or female."},
		{"bad room gender", input{RoomG: "other"}, "Room gender must be male, female or mixed."},
		{"bad purpose", input{Purpose: "launch"}, "Purpose is not a known purpose."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.in).First(); got != tt.first {
				t.Errorf("First() = %q, want %q", got, tt.first)
			}
		})
	}
}

func TestValidate_Numbers(t *testing.T) {
	type room struct {
		Capacity int `validate:"gte=1,lte=64" label:"Capacity"`
	}
	if got := Validate(room{Capacity: 0}).First(); got != "Capacity must be at least 1." {
		t.Errorf("got %q", got)
	}
	if got := Validate(room{Capacity: 100}).First(); got != "Capacity must be at most 64." {
		t.Errorf("got %q", got)
	}
}

func TestResult_All(t *testing.T) {
	r := &Result{}
	if r.All() != "" {
		t.Errorf("All() = %q, want empty", r.All())
	}

	r = &Result{Errors: []FieldError{{Message: "Error 1"}, {Message: "Error 2"}}}
	if want := "Error 1; Error 2"; r.All() != want {
		t.Errorf("All() = %q, want %q", r.All(), want)
	}
	if r.First() != "Error 1" {
		t.Errorf("First() = %q", r.First())
	}
}

func TestIsValidCIN(t *testing.T) {
	tests := []struct {
		cin  string
		want bool
	}{
		{"AB123456", true},
		{"J123", true},
		{"ABC123", false},
		{"AB12", false},
		{"A12", false},
		{"ab123456", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidCIN(tt.cin); got != tt.want {
			t.Errorf("IsValidCIN(%q) = %v, want %v", tt.cin, got, tt.want)
		}
	}
}
