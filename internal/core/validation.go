package core

// validation.go holds the input checks shared by the services and the
// importer.
//
// Validation happens at two levels:
//  1. Header validation: ensures required CSV columns are present
//  2. Struct validation: go-playground/validator tags on the domain types,
//     with the first failing field reported as a *ValidationError

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report json field names so messages match the API payloads.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("notblank", validators.NotBlank)

	return v
}

// validateStruct runs tag validation and converts the first failure.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return newValidationError("", "", err.Error())
	}

	fe := verrs[0]
	return newValidationError(fe.Field(), fmt.Sprint(fe.Value()), tagMessage(fe))
}

// tagMessage renders a human-readable message for a failed tag.
func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a well-formed email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}

// validatePositive rejects a present amount that is zero or negative.
func validatePositive(field string, d decimal.NullDecimal) error {
	if d.Valid && !d.Decimal.IsPositive() {
		return newValidationError(field, d.Decimal.String(), "must be positive")
	}
	return nil
}

// ValidateHeaders checks that every required column exists in the CSV
// header, case-insensitively and in any order. It returns the header index
// and the missing column names in the order they were required.
func ValidateHeaders(headers []string, required []string) (HeaderIndex, []string) {
	idx := MakeHeaderIndex(headers)
	var missing []string

	for _, name := range required {
		if _, ok := idx[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}

	return idx, missing
}
