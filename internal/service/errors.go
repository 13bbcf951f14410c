package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"validationlake/internal/repository"

	"github.com/go-playground/validator/v10"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrRecordNotFound = repository.ErrRecordNotFound
)

// FieldError names one offending payload field by its JSON name.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError is returned for malformed creation payloads. It matches
// ErrValidation with errors.Is.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// fromValidator converts validator output; anything else is passed through.
func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{Field: fe.Field(), Reason: reason(fe)})
	}
	return out
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min", "gte":
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// DecodeError turns a JSON body decoding failure into a ValidationError so a
// mistyped field is reported the same way as a missing one.
func DecodeError(err error) *ValidationError {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return &ValidationError{Errors: []FieldError{{Field: field, Reason: "expected " + typeErr.Type.String()}}}
	case errors.As(err, &syntaxErr):
		return &ValidationError{Errors: []FieldError{{Field: "body", Reason: "malformed JSON"}}}
	case errors.Is(err, io.EOF):
		return &ValidationError{Errors: []FieldError{{Field: "body", Reason: "field required"}}}
	default:
		return &ValidationError{Errors: []FieldError{{Field: "body", Reason: err.Error()}}}
	}
}
