package apperror

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// formatFieldName turns a json field name into a readable label (created_at -> Created At).
func formatFieldName(s string) string {
	s = strings.ReplaceAll(s, "_", " ")

	caser := cases.Title(language.English)
	return caser.String(s)
}

// MapBindError classifies an error returned by gin's ShouldBind* helpers.
// Validation failures become constraint violations, everything else a bind error.
func MapBindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return MapValidationError(verrs)
	}
	return BindFailed(err)
}

func MapValidationError(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		// only the first failing field is reported
		e := errs[0]

		// e.Field() already carries the json name, see Init
		humanReadableField := formatFieldName(e.Field())

		switch e.Tag() {
		case "required":
			return RequiredField(humanReadableField)
		default:
			return InvalidField(humanReadableField)
		}
	}

	return ErrInvalidInput
}
