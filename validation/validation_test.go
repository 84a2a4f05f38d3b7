// ABOUTME: Tests for field validators and form validation
// ABOUTME: Covers single validators, composed forms, and required field checks
package validation

import (
	"testing"

	"github.com/indik4/crm/models"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"", "Email is required"},
		{"not-an-email", "Invalid email format"},
		{"missing@domain", "Invalid email format"},
		{"has space@example.com", "Invalid email format"},
		{"user@example.com", ""},
		{"admin@indik4.com", ""},
	}
	for _, tt := range tests {
		if got := ValidateEmail(tt.email); got != tt.want {
			t.Errorf("ValidateEmail(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if got := ValidatePassword(""); got != "Password is required" {
		t.Errorf("empty password: got %q", got)
	}
	if got := ValidatePassword("12345"); got != "Password must be at least 6 characters" {
		t.Errorf("short password: got %q", got)
	}
	if got := ValidatePassword("admin123"); got != "" {
		t.Errorf("valid password: got %q", got)
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"", false},
		{"abc", false},
		{"+7 912 345 67 89", true},
		{"89123456789", true},
		{"+7(912)345-67-89", true},
		{"12345", false},
	}
	for _, tt := range tests {
		got := ValidatePhone(tt.phone)
		if tt.valid && got != "" {
			t.Errorf("ValidatePhone(%q) = %q, want valid", tt.phone, got)
		}
		if !tt.valid && got == "" {
			t.Errorf("ValidatePhone(%q) accepted, want rejection", tt.phone)
		}
	}
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		amount string
		valid  bool
	}{
		{"", false},
		{"abc", false},
		{"-10", false},
		{"0", true},
		{"150000.50", true},
	}
	for _, tt := range tests {
		got := ValidateAmount(tt.amount)
		if tt.valid != (got == "") {
			t.Errorf("ValidateAmount(%q) = %q, valid=%v", tt.amount, got, tt.valid)
		}
	}
}

func TestValidateProbability(t *testing.T) {
	tests := []struct {
		probability string
		valid       bool
	}{
		{"", false},
		{"-1", false},
		{"101", false},
		{"0", true},
		{"50", true},
		{"100", true},
	}
	for _, tt := range tests {
		got := ValidateProbability(tt.probability)
		if tt.valid != (got == "") {
			t.Errorf("ValidateProbability(%q) = %q, valid=%v", tt.probability, got, tt.valid)
		}
	}
}

func TestValidateDate(t *testing.T) {
	if got := ValidateDate(""); got != "Date is required" {
		t.Errorf("empty date: got %q", got)
	}
	if got := ValidateDate("15-03-2024"); got != "Invalid date" {
		t.Errorf("wrong format: got %q", got)
	}
	if got := ValidateDate("2024-03-15"); got != "" {
		t.Errorf("valid date: got %q", got)
	}
}

func TestValidateLeadForm(t *testing.T) {
	// Name only is enough
	result := ValidateLeadForm(map[string]string{"name": "Anna"})
	if !result.IsValid {
		t.Fatalf("name-only lead rejected: %v", result.Errors)
	}

	// Missing name fails
	result = ValidateLeadForm(map[string]string{"email": "a@b.com"})
	if result.IsValid {
		t.Fatal("lead without name accepted")
	}
	if result.Errors["name"] != "Name is required" {
		t.Errorf("name error = %q", result.Errors["name"])
	}

	// Email format checked only when present
	result = ValidateLeadForm(map[string]string{"name": "Anna", "email": "broken"})
	if result.IsValid {
		t.Fatal("lead with broken email accepted")
	}
	if result.Errors["email"] != "Invalid email format" {
		t.Errorf("email error = %q", result.Errors["email"])
	}

	result = ValidateLeadForm(map[string]string{
		"name":  "Anna",
		"email": "anna@example.com",
		"phone": "+7 912 345 67 89",
	})
	if !result.IsValid {
		t.Fatalf("complete lead rejected: %v", result.Errors)
	}
}

func TestValidateDealForm(t *testing.T) {
	result := ValidateDealForm(map[string]string{
		"title":         "Big contract",
		"amount":        "250000",
		"probability":   "60",
		"expectedClose": "2024-06-01",
	})
	if !result.IsValid {
		t.Fatalf("valid deal rejected: %v", result.Errors)
	}

	result = ValidateDealForm(map[string]string{
		"amount":        "-5",
		"probability":   "150",
		"expectedClose": "soon",
	})
	if result.IsValid {
		t.Fatal("invalid deal accepted")
	}
	for _, field := range []string{"title", "amount", "probability", "expectedClose"} {
		if result.Errors[field] == "" {
			t.Errorf("expected error for %s", field)
		}
	}
}

func TestValidateFormStopsAtFirstError(t *testing.T) {
	calls := 0
	rules := map[string][]Validator{
		"field": {
			func(string) string { calls++; return "first failure" },
			func(string) string { calls++; return "second failure" },
		},
	}
	result := ValidateForm(map[string]string{"field": "x"}, rules)
	if calls != 1 {
		t.Errorf("validators called %d times, want 1", calls)
	}
	if result.Errors["field"] != "first failure" {
		t.Errorf("error = %q", result.Errors["field"])
	}
}

func TestMissingRequiredFields(t *testing.T) {
	fields := models.CustomFields{
		"budget":   {Type: models.FieldNumber, Value: models.NumberValue(0)},
		"notes":    {Type: models.FieldText, Value: models.TextValue("  ")},
		"approved": {Type: models.FieldCheckbox, Value: models.CheckboxValue(false)},
	}

	missing := MissingRequiredFields([]string{"notes", "contract", "budget", "approved"}, fields)

	// Numbers and checkboxes are never empty; blank text and absent
	// fields are.
	want := []string{"contract", "notes"}
	if len(missing) != len(want) {
		t.Fatalf("missing = %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Fatalf("missing = %v, want %v", missing, want)
		}
	}

	msg := RequiredFieldsError(missing)
	if msg != "required fields are empty: contract, notes" {
		t.Errorf("message = %q", msg)
	}
}
