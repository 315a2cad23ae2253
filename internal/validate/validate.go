// Package validate holds the form-field rules shared by the login, signup,
// contact and profile forms.
//
// Every function here is pure: the verdict depends only on the field
// declaration and the raw value, never on previous calls.
package validate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind mirrors the HTML input type of a field.
type Kind int

const (
	KindText Kind = iota
	KindEmail
	KindPassword
	KindPhone
	KindNumber
)

// Field IDs used by the rendered forms. The age rule is keyed on the age
// inputs specifically, other number inputs carry no range rule.
const (
	LoginEmail     = "login-email"
	LoginPassword  = "login-password"
	SignupName     = "signup-full-name"
	SignupEmail    = "signup-email"
	SignupPhone    = "signup-mobile"
	SignupAge      = "signup-age"
	SignupPassword = "signup-password"
	ProfileName    = "profile-full-name"
	ProfilePhone   = "profile-mobile"
	ProfileAge     = "profile-age"
	ContactName    = "contact-name"
	ContactEmail   = "contact-email"
	ContactMessage = "contact-message"
)

// Messages, one per rule.
const (
	MsgRequired = "This field is required"
	MsgEmail    = "Please enter a valid email address"
	MsgPassword = "Password must be at least 6 characters long"
	MsgPhone    = "Please enter a valid 10-digit phone number"
	MsgAge      = "Age must be between 13 and 120"
)

const (
	minPasswordLen = 6
	phoneDigits    = 10
	minAge         = 13
	maxAge         = 120
)

var (
	emailRe  = regexp.MustCompile(`^[^\s\p{Z}@]+@[^\s\p{Z}@]+\.[^\s\p{Z}@]+$`)
	nonDigit = regexp.MustCompile(`\D`)

	// The dashboard edits the same value the signup form collects.
	ageFields = map[string]bool{SignupAge: true, ProfileAge: true}
)

// Field declares one form input.
type Field struct {
	ID       string
	Kind     Kind
	Required bool
}

// Result is the verdict for one value. Message is empty when Valid.
type Result struct {
	Valid   bool
	Message string
}

// Failure is a field that did not validate.
type Failure struct {
	Field   string
	Message string
}

var (
	LoginFields = []Field{
		{ID: LoginEmail, Kind: KindEmail, Required: true},
		{ID: LoginPassword, Kind: KindPassword, Required: true},
	}
	SignupFields = []Field{
		{ID: SignupName, Kind: KindText, Required: true},
		{ID: SignupEmail, Kind: KindEmail, Required: true},
		{ID: SignupPhone, Kind: KindPhone, Required: true},
		{ID: SignupAge, Kind: KindNumber, Required: true},
		{ID: SignupPassword, Kind: KindPassword, Required: true},
	}
	ProfileFields = []Field{
		{ID: ProfileName, Kind: KindText, Required: true},
		{ID: ProfilePhone, Kind: KindPhone, Required: true},
		{ID: ProfileAge, Kind: KindNumber, Required: true},
	}
)

// Validate checks value against f. The value is trimmed first.
// Required-and-empty always wins over the kind-specific rule.
func Validate(f Field, value string) Result {
	value = strings.TrimSpace(value)
	if f.Required && value == "" {
		return Result{Message: MsgRequired}
	}

	switch f.Kind {
	case KindEmail:
		return verdict(emailRe.MatchString(value), MsgEmail)
	case KindPassword:
		return verdict(utf8.RuneCountInString(value) >= minPasswordLen, MsgPassword)
	case KindPhone:
		return verdict(len(DigitsOnly(value)) == phoneDigits, MsgPhone)
	case KindNumber:
		if !ageFields[f.ID] {
			return Result{Valid: true}
		}
		_, ok := ParseAge(value)
		return verdict(ok, MsgAge)
	default:
		return Result{Valid: true}
	}
}

// ValidateAll checks every field against values (keyed by field ID) and
// returns the failures in declaration order.
func ValidateAll(fields []Field, values map[string]string) []Failure {
	var failures []Failure
	for _, f := range fields {
		if r := Validate(f, values[f.ID]); !r.Valid {
			failures = append(failures, Failure{Field: f.ID, Message: r.Message})
		}
	}
	return failures
}

// ParseAge parses an age value and reports whether it is in range.
func ParseAge(value string) (int, bool) {
	age, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	return age, age >= minAge && age <= maxAge
}

// DigitsOnly strips everything but digits from a phone number.
func DigitsOnly(value string) string {
	return nonDigit.ReplaceAllString(value, "")
}

func verdict(ok bool, msg string) Result {
	if ok {
		return Result{Valid: true}
	}
	return Result{Message: msg}
}
