// Package validate holds the field validators of the immigration records.
//
// Every validator checks the format of a present value and returns nil when
// the value is accepted or a *apperr.FieldError carrying the offending value
// and a human-readable message. Whether a field is optional is decided by the
// caller, which skips empty values before validating.
package validate

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"immigration/internal/apperr"
)

const MaxAge = 120

var (
	phoneRe     = regexp.MustCompile(`^(\+252|0)[67][0-9]{7,8}$`)
	idNumberRe  = regexp.MustCompile(`^[A-Z0-9]{5,20}$`)
	licenseRe   = regexp.MustCompile(`^[A-Z0-9]{4,20}$`)
	docNumberRe = regexp.MustCompile(`^TD-\d{5}$`)
	referenceRe = regexp.MustCompile(`^(DEG|KAF)-\d{8}-\d{6}$`)
	emailRe     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneNoise  = regexp.MustCompile(`[\s\-()]`)
)

func invalid(value any, msg string) error {
	return &apperr.FieldError{Value: value, Message: msg}
}

// CleanPhone strips spaces, dashes and parentheses.
func CleanPhone(phone string) string {
	return phoneNoise.ReplaceAllString(phone, "")
}

// Phone accepts Somaliland mobile numbers with a +252 or 0 prefix,
// e.g. 063123456 or +25263123456.
func Phone(phone string) error {
	if !phoneRe.MatchString(CleanPhone(phone)) {
		return invalid(phone, "invalid phone number format, use +2526XXXXXXXX or 06XXXXXXXX")
	}
	return nil
}

// NormalizeIDNumber upper-cases and trims an identification number.
func NormalizeIDNumber(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// IDNumber accepts alphanumeric identification numbers of 5-20 characters
// after upper-casing.
func IDNumber(id string) error {
	if !idNumberRe.MatchString(strings.ToUpper(id)) {
		return invalid(id, "invalid identification number format, must be alphanumeric, 5-20 characters")
	}
	return nil
}

func LicenseNumber(license string) error {
	if !licenseRe.MatchString(strings.ToUpper(license)) {
		return invalid(license, "invalid license number format")
	}
	return nil
}

func DocumentNumber(number string) error {
	if !docNumberRe.MatchString(number) {
		return invalid(number, "invalid document number format, should be like TD-00001")
	}
	return nil
}

func Reference(ref string) error {
	if !referenceRe.MatchString(ref) {
		return invalid(ref, "invalid reference format, should be like DEG-20250101-120000")
	}
	return nil
}

func Email(email string) error {
	if !emailRe.MatchString(email) {
		return invalid(email, "invalid email address format")
	}
	return nil
}

// Name accepts letters, spaces, hyphens and apostrophes, at least 2
// characters after trimming.
func Name(name string) error {
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsSpace(r) || r == '-' || r == '\'' {
			continue
		}
		return invalid(name, "name can only contain letters, spaces, hyphens, and apostrophes")
	}
	if len([]rune(strings.TrimSpace(name))) < 2 {
		return invalid(name, "name must be at least 2 characters long")
	}
	return nil
}

// Region and District only require a meaningful length; the list of regions
// is open.
func Region(region string) error {
	if len([]rune(strings.TrimSpace(region))) < 2 {
		return invalid(region, "region name must be at least 2 characters")
	}
	return nil
}

func District(district string) error {
	if len([]rune(strings.TrimSpace(district))) < 2 {
		return invalid(district, "district name must be at least 2 characters")
	}
	return nil
}

func SponsorType(t string) error {
	switch t {
	case "SHASI", "WADAR":
		return nil
	}
	return invalid(t, "invalid sponsor type, must be SHASI or WADAR")
}

func NonNegative(n int) error {
	if n < 0 {
		return invalid(n, "value must be a positive number")
	}
	return nil
}

func TextLength(s string, min, max int) error {
	n := len([]rune(s))
	if min > 0 && n < min {
		return invalid(s, "text is too short")
	}
	if max > 0 && n > max {
		return invalid(s, "text is too long")
	}
	return nil
}

// Age returns the completed years between birth and now.
func Age(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

// BirthDate rejects dates after today and ages above MaxAge.
func BirthDate(birth, now time.Time) error {
	if dateOnly(birth).After(dateOnly(now)) {
		return invalid(birth.Format(time.DateOnly), "birth date cannot be in the future")
	}
	if Age(birth, now) > MaxAge {
		return invalid(birth.Format(time.DateOnly), "invalid birth date, age seems unrealistic")
	}
	return nil
}

// NotFuture rejects dates after today.
func NotFuture(d, now time.Time) error {
	if dateOnly(d).After(dateOnly(now)) {
		return invalid(d.Format(time.DateOnly), "date cannot be in the future")
	}
	return nil
}

// Adult requires an age of at least 18 years.
func Adult(birth, now time.Time) error {
	if Age(birth, now) < 18 {
		return invalid(birth.Format(time.DateOnly), "applicant must be at least 18 years old")
	}
	return nil
}

// DateRange requires from <= to when both are set.
func DateRange(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return invalid(from.Format(time.DateOnly), "start date must not be after end date")
	}
	return nil
}

// SplitName splits a full name into the first word and the rest.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
