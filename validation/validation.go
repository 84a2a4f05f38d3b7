// ABOUTME: Pure field and form validators for CRM input
// ABOUTME: Each validator returns "" for valid input or a message
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/indik4/crm/models"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^(\+7|8)?[\s\-]?\(?[489][0-9]{2}\)?[\s\-]?[0-9]{3}[\s\-]?[0-9]{2}[\s\-]?[0-9]{2}$`)
)

// Validator checks a single field value. Empty string means valid.
type Validator func(value string) string

func ValidateEmail(email string) string {
	if email == "" {
		return "Email is required"
	}
	if !emailRe.MatchString(email) {
		return "Invalid email format"
	}
	return ""
}

func ValidatePassword(password string) string {
	if password == "" {
		return "Password is required"
	}
	if len(password) < 6 {
		return "Password must be at least 6 characters"
	}
	return ""
}

func ValidateRequired(value, label string) string {
	if strings.TrimSpace(value) == "" {
		return fmt.Sprintf("%s is required", label)
	}
	return ""
}

func ValidatePhone(phone string) string {
	if phone == "" {
		return "Phone is required"
	}
	if !phoneRe.MatchString(strings.ReplaceAll(phone, " ", "")) {
		return "Invalid phone format"
	}
	return ""
}

func ValidateAmount(amount string) string {
	if amount == "" {
		return "Amount is required"
	}
	n, err := strconv.ParseFloat(amount, 64)
	if err != nil || n < 0 {
		return "Amount must be a non-negative number"
	}
	return ""
}

func ValidateProbability(probability string) string {
	if probability == "" {
		return "Probability is required"
	}
	n, err := strconv.ParseFloat(probability, 64)
	if err != nil || n < 0 || n > 100 {
		return "Probability must be between 0 and 100"
	}
	return ""
}

func ValidateDate(date string) string {
	if date == "" {
		return "Date is required"
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "Invalid date"
	}
	return ""
}

// FormResult carries the outcome of whole-form validation. Errors maps
// field name to the first failing validator's message.
type FormResult struct {
	IsValid bool
	Errors  map[string]string
}

// ValidateForm runs each field's validators in order, stopping at the
// first failure per field.
func ValidateForm(data map[string]string, rules map[string][]Validator) FormResult {
	errors := make(map[string]string)
	for field, validators := range rules {
		for _, v := range validators {
			if msg := v(data[field]); msg != "" {
				errors[field] = msg
				break
			}
		}
	}
	return FormResult{IsValid: len(errors) == 0, Errors: errors}
}

// ValidateLoginForm checks login credentials for shape, not correctness.
func ValidateLoginForm(data map[string]string) FormResult {
	return ValidateForm(data, map[string][]Validator{
		"email":    {ValidateEmail},
		"password": {ValidatePassword},
	})
}

// ValidateDealForm requires title, amount, probability, and expected
// close date. Past close dates are allowed.
func ValidateDealForm(data map[string]string) FormResult {
	return ValidateForm(data, map[string][]Validator{
		"title":         {func(v string) string { return ValidateRequired(v, "Deal title") }},
		"amount":        {ValidateAmount},
		"probability":   {ValidateProbability},
		"expectedClose": {ValidateDate},
	})
}

// ValidateLeadForm requires only the name. Email and phone are optional
// but format-checked when present.
func ValidateLeadForm(data map[string]string) FormResult {
	rules := map[string][]Validator{
		"name": {func(v string) string { return ValidateRequired(v, "Name") }},
	}
	if data["email"] != "" {
		rules["email"] = []Validator{ValidateEmail}
	}
	if data["phone"] != "" {
		rules["phone"] = []Validator{ValidatePhone}
	}
	return ValidateForm(data, rules)
}

// ValidateContactForm requires name plus well-formed email and phone.
func ValidateContactForm(data map[string]string) FormResult {
	return ValidateForm(data, map[string][]Validator{
		"name":  {func(v string) string { return ValidateRequired(v, "Name") }},
		"email": {ValidateEmail},
		"phone": {ValidatePhone},
	})
}

// MissingRequiredFields returns the names from required that are absent
// or empty in fields, sorted for stable messages.
func MissingRequiredFields(required []string, fields models.CustomFields) []string {
	var missing []string
	for _, name := range required {
		f, ok := fields[name]
		if !ok || f.IsEmpty() {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// RequiredFieldsError formats the aggregated save-rejection message.
func RequiredFieldsError(missing []string) string {
	return fmt.Sprintf("required fields are empty: %s", strings.Join(missing, ", "))
}
