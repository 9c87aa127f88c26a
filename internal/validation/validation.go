package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	emailRegex       = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	accountNameRegex = regexp.MustCompile(`^[a-z0-9]+$`)
)

// Account name length limits
const (
	MinAccountNameLen = 3
	MaxAccountNameLen = 20
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors collects field errors from a struct validation
type Errors []ValidationError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Error())
	}
	return strings.Join(parts, "; ")
}

// Fields maps each failing field to its message
func (e Errors) Fields() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		out[fe.Field] = fe.Message
	}
	return out
}

func (e Errors) sorted() Errors {
	sort.SliceStable(e, func(i, j int) bool { return e[i].Field < e[j].Field })
	return e
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// ValidateName checks a display name
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	return nil
}

// ValidateAccountName checks a login account name: lower-case letters and
// digits, 3 to 20 characters.
func ValidateAccountName(name string) error {
	if name == "" {
		return ValidationError{Field: "accountName", Message: "account name is required"}
	}
	if len(name) < MinAccountNameLen || len(name) > MaxAccountNameLen {
		return ValidationError{Field: "accountName", Message: fmt.Sprintf("account name must be %d-%d characters", MinAccountNameLen, MaxAccountNameLen)}
	}
	if !accountNameRegex.MatchString(name) {
		return ValidationError{Field: "accountName", Message: "account name may only contain lower-case letters and digits"}
	}
	return nil
}
