package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"immigration/internal/apperr"
)

// New returns a validator with the custom tags registered and json field
// names used in error reports.
func New() *validator.Validate {
	return NewAt(time.Now)
}

// NewAt is New with the clock the birthdate tag compares against.
func NewAt(now func() time.Time) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	Register(v, now)
	return v
}

// Register installs sl_phone, idnumber, personname, birthdate and sponsortype.
// Empty values pass; combine with required when a field is mandatory.
func Register(v *validator.Validate, now func() time.Time) {
	str := func(check func(string) error) validator.Func {
		return func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || check(s) == nil
		}
	}
	_ = v.RegisterValidation("sl_phone", str(Phone))
	_ = v.RegisterValidation("idnumber", str(IDNumber))
	_ = v.RegisterValidation("personname", str(Name))
	_ = v.RegisterValidation("sponsortype", str(SponsorType))
	_ = v.RegisterValidation("birthdate", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		if !ok || t.IsZero() {
			return true
		}
		return BirthDate(t, now()) == nil
	})
}

// Struct validates s and converts failures into a *apperr.ValidationError.
func Struct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &apperr.ValidationError{}
	for _, fe := range verrs {
		out.Add(fe.Field(), fe.Value(), message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "sl_phone":
		return "invalid phone number format"
	case "idnumber":
		return "invalid identification number format"
	case "personname":
		return "name can only contain letters, spaces, hyphens, and apostrophes (min 2 characters)"
	case "birthdate":
		return "birth date cannot be in the future or more than 120 years ago"
	case "sponsortype":
		return "invalid sponsor type, must be SHASI or WADAR"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return fmt.Sprintf("failed %s check", fe.Tag())
}
