package apperror

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func formatFieldName(s string) string {
	// parent_id -> Parent Id
	s = strings.ReplaceAll(s, "_", " ")
	caser := cases.Title(language.English)
	return caser.String(s)
}

// MapValidationError mengubah validator.ValidationErrors menjadi VALIDATION_ERROR
// dengan daftar field di Details.
func MapValidationError(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		fields := make([]FieldError, 0, len(errs))
		for _, e := range errs {
			fields = append(fields, FieldError{Field: e.Field(), Reason: reasonForTag(e)})
		}

		first := errs[0]
		var base *AppError
		switch first.Tag() {
		case "required":
			base = RequiredField(formatFieldName(first.Field()))
		default:
			base = InvalidField(formatFieldName(first.Field()))
		}
		return base.WithDetails(fields)
	}

	return New(
		CodeValidation,
		"Invalid input",
		http.StatusBadRequest,
	).WithCause(err)
}

func reasonForTag(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + e.Param()
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "uuid", "uuid4":
		return "must be a valid uuid"
	case "datetime":
		return "must be a date in format " + e.Param()
	default:
		return "is invalid"
	}
}
