package apperr

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestFromValidator_NamesFields(t *testing.T) {
	type input struct {
		Service  string `validate:"required"`
		Duration int    `validate:"min=1"`
	}

	err := FromValidator(validator.New().Struct(input{}))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	msg := Message(err)
	if !strings.Contains(msg, "Service is required") || !strings.Contains(msg, "Duration must be at least 1") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestFromValidator_OtherError(t *testing.T) {
	err := FromValidator(errors.New("not a struct"))
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation kind, got %s", KindOf(err))
	}
}
