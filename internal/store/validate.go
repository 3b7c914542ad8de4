package store

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/currency"
)

var colorHexRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func validateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	return nil
}

func validateAmount(field string, cents int64) error {
	if cents < 0 {
		return &ValidationError{Field: field, Reason: "must not be negative"}
	}
	return nil
}

func validateDate(field, value string) error {
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return &ValidationError{Field: field, Reason: "must be an ISO date (YYYY-MM-DD)"}
	}
	return nil
}

func validateColor(field, value string) error {
	if !colorHexRe.MatchString(value) {
		return &ValidationError{Field: field, Reason: "must be #rrggbb"}
	}
	return nil
}

func validateCurrency(code string) error {
	if _, err := currency.ParseISO(code); err != nil {
		return &ValidationError{Field: "currency", Reason: "must be an ISO 4217 code"}
	}
	return nil
}

func validateMonth(year, month int) error {
	if year < 1900 || year > 3000 {
		return &ValidationError{Field: "year", Reason: "out of range"}
	}
	if month < 1 || month > 12 {
		return &ValidationError{Field: "month", Reason: "must be 1-12"}
	}
	return nil
}
