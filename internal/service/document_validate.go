package service

import (
	"errors"
	"strings"
	"time"

	"immigration/internal/apperr"
	"immigration/internal/model"
	"immigration/internal/validate"

	"github.com/go-playground/validator/v10"
)

// documentCheck mirrors the validated fields of a TravelDocument.
type documentCheck struct {
	FullName             string    `json:"full_name" validate:"required,personname"`
	MotherName           string    `json:"mother_name" validate:"personname"`
	BirthDate            time.Time `json:"birth_date" validate:"birthdate"`
	IdentificationNumber string    `json:"identification_number" validate:"idnumber"`
	Region               string    `json:"region" validate:"required,min=2"`
	District             string    `json:"district" validate:"omitempty,min=2"`
	SponsorName          string    `json:"sponsor_name" validate:"required"`
	PhoneNumber          string    `json:"phone_number" validate:"sl_phone"`
	ContactNumber        string    `json:"contact_number" validate:"sl_phone"`
}

type childCheck struct {
	Name      string    `json:"name" validate:"required,personname"`
	BirthDate time.Time `json:"birth_date" validate:"birthdate"`
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// validateDocument checks a document about to be stored.
func validateDocument(v *validator.Validate, doc *model.TravelDocument, now time.Time) error {
	out := &apperr.ValidationError{}
	err := validate.Struct(v, documentCheck{
		FullName:             strings.TrimSpace(doc.FullName),
		MotherName:           strings.TrimSpace(doc.MotherName),
		BirthDate:            deref(doc.BirthDate),
		IdentificationNumber: doc.IdentificationNumber,
		Region:               strings.TrimSpace(doc.Region),
		District:             strings.TrimSpace(doc.District),
		SponsorName:          strings.TrimSpace(doc.SponsorName),
		PhoneNumber:          doc.PhoneNumber,
		ContactNumber:        doc.ContactNumber,
	})
	if err != nil {
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		out.Fields = append(out.Fields, ve.Fields...)
	}
	if doc.DocumentNumber != "" {
		out.AddErr("document_number", validate.DocumentNumber(doc.DocumentNumber))
	}
	if doc.LicenseNumber != "" {
		out.AddErr("license_number", validate.LicenseNumber(doc.LicenseNumber))
	}
	if doc.Date != nil {
		out.AddErr("date", validate.NotFuture(*doc.Date, now))
	}
	if doc.FilledDate != nil {
		out.AddErr("filled_date", validate.NotFuture(*doc.FilledDate, now))
	}
	for i := range doc.Children {
		if err := validateChild(v, &doc.Children[i]); err != nil {
			var ve *apperr.ValidationError
			if !errors.As(err, &ve) {
				return err
			}
			for _, f := range ve.Fields {
				out.Add("children."+f.Field, f.Value, f.Message)
			}
		}
	}
	return out.OrNil()
}

func validateChild(v *validator.Validate, c *model.TravelDocumentChild) error {
	return validate.Struct(v, childCheck{Name: strings.TrimSpace(c.Name), BirthDate: deref(c.BirthDate)})
}

// normalizeDocument trims free text and canonicalises phone and id numbers
// once they are known to be valid.
func normalizeDocument(doc *model.TravelDocument) {
	doc.FullName = strings.TrimSpace(doc.FullName)
	doc.MotherName = strings.TrimSpace(doc.MotherName)
	doc.Region = strings.TrimSpace(doc.Region)
	doc.District = strings.TrimSpace(doc.District)
	doc.SponsorName = strings.TrimSpace(doc.SponsorName)
	if doc.PhoneNumber != "" {
		doc.PhoneNumber = validate.CleanPhone(doc.PhoneNumber)
	}
	if doc.ContactNumber != "" {
		doc.ContactNumber = validate.CleanPhone(doc.ContactNumber)
	}
	if doc.IdentificationNumber != "" {
		doc.IdentificationNumber = validate.NormalizeIDNumber(doc.IdentificationNumber)
	}
	for i := range doc.Children {
		doc.Children[i].Name = strings.TrimSpace(doc.Children[i].Name)
	}
}

// DraftInput is a travel document submission checked before it is created,
// including the sponsor details the form collects.
type DraftInput struct {
	model.TravelDocument
	SponsorID    string `json:"sponsor_id"`
	SponsorPhone string `json:"sponsor_phone"`
}

// ValidateDraft runs the full pre-submission checks and returns every
// problem found. An empty result means the draft can be submitted.
func ValidateDraft(in DraftInput, now time.Time) []apperr.FieldError {
	out := &apperr.ValidationError{}
	d := &in.TravelDocument
	required := []struct {
		field string
		ok    bool
	}{
		{"full_name", strings.TrimSpace(d.FullName) != ""},
		{"mother_name", strings.TrimSpace(d.MotherName) != ""},
		{"birth_date", d.BirthDate != nil},
		{"birth_place", strings.TrimSpace(d.BirthPlace) != ""},
		{"identification_number", strings.TrimSpace(d.IdentificationNumber) != ""},
		{"region", strings.TrimSpace(d.Region) != ""},
		{"sponsor_name", strings.TrimSpace(d.SponsorName) != ""},
		{"sponsor_id", strings.TrimSpace(in.SponsorID) != ""},
	}
	for _, r := range required {
		if !r.ok {
			out.Add(r.field, nil, r.field+" is required")
		}
	}
	if d.FullName != "" {
		out.AddErr("full_name", validate.Name(d.FullName))
	}
	if d.PhoneNumber != "" {
		out.AddErr("phone_number", validate.Phone(d.PhoneNumber))
	}
	if d.IdentificationNumber != "" {
		out.AddErr("identification_number", validate.IDNumber(d.IdentificationNumber))
	}
	if d.BirthDate != nil {
		out.AddErr("birth_date", validate.BirthDate(*d.BirthDate, now))
	}
	if in.SponsorPhone != "" {
		if err := validate.Phone(in.SponsorPhone); err != nil {
			out.Add("sponsor_phone", in.SponsorPhone, "invalid sponsor phone number format")
		}
	}
	if out.Empty() {
		return []apperr.FieldError{}
	}
	return out.Fields
}
