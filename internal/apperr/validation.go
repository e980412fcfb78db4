package apperr

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FromValidator turns an error from validator.Struct into a validation error
// whose message names each offending field.
func FromValidator(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return wrap(KindValidation, "invalid input", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		switch e.Tag() {
		case "required", "required_with":
			msgs = append(msgs, e.Field()+" is required")
		case "min":
			msgs = append(msgs, e.Field()+" must be at least "+e.Param())
		case "max":
			msgs = append(msgs, e.Field()+" must be at most "+e.Param())
		case "gtfield":
			msgs = append(msgs, e.Field()+" must be after "+e.Param())
		case "latitude", "longitude":
			msgs = append(msgs, e.Field()+" must be a valid "+e.Tag())
		default:
			msgs = append(msgs, e.Field()+" is invalid")
		}
	}
	return wrap(KindValidation, strings.Join(msgs, "; "), err)
}
