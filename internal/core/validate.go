package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("fueltype", func(fl validator.FieldLevel) bool {
		return FuelType(fl.Field().String()).Valid()
	})
	return v
}

// derivationFields are the inputs the live preview depends on.
var derivationFields = map[string]bool{
	"vehicleNumber": true,
	"fuelType":      true,
	"quantity":      true,
	"meterReading":  true,
}

// ValidateEntry checks every field of a normalized input and returns a
// *ValidationError listing each failing field.
func ValidateEntry(in EntryInput) error {
	fields := map[string]string{}
	if in.Date.IsZero() {
		fields["date"] = "is required"
	}

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate entry: %w", err)
		}
		for _, fe := range verrs {
			fields[fe.Field()] = message(fe)
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// ValidateDerivation reports only the problems that affect derived values.
func ValidateDerivation(in EntryInput) map[string]string {
	err := ValidateEntry(in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return nil
	}
	out := map[string]string{}
	for k, v := range verr.Fields {
		if derivationFields[k] {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ValidatePrice checks a price update value.
func ValidatePrice(price float64) error {
	if err := validate.Var(price, "gt=0"); err != nil {
		return NewValidationError("price", "must be greater than 0")
	}
	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "fueltype":
		names := make([]string, 0, 3)
		for _, t := range FuelTypes() {
			names = append(names, string(t))
		}
		return "must be one of " + strings.Join(names, ", ")
	default:
		return "is invalid"
	}
}
