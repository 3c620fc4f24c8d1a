package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

var defaultValidator = newValidator()

// Custom tags: notblank rejects whitespace-only strings, identity applies
// the participant token grammar.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("identity", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseIdentity(fl.Field().String())
		return err == nil
	})
	// Report fields by their wire names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks req's struct tags. Failures are CodeValidation errors
// describing the first offending field.
func Validate(req any) error {
	if err := defaultValidator.Struct(req); err != nil {
		return dErrors.New(dErrors.CodeValidation, ErrorMessage(err))
	}
	return nil
}

var tagMessages = map[string]string{
	"required":    "%s is required",
	"identity":    "%s must be a valid identity",
	"hexadecimal": "%s must be hex encoded",
	"notblank":    "%s must not be blank",
	"min":         "%s must be at least %s",
	"max":         "%s must be at most %s",
	"oneof":       "%s must be one of [%s]",
}

func ErrorMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "invalid request body"
	}
	fe := errs[0]
	field := fe.Field()
	if field == "" {
		field = strings.ToLower(fe.StructField())
	}
	if field == "" {
		return "invalid request body"
	}

	tmpl, ok := tagMessages[fe.ActualTag()]
	switch {
	case !ok:
		return field + " is invalid"
	case strings.Count(tmpl, "%s") == 2:
		return fmt.Sprintf(tmpl, field, fe.Param())
	default:
		return fmt.Sprintf(tmpl, field)
	}
}
