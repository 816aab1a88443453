package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
)

// Validator provides validation functionality
type Validator interface {
	// Validate checks obj's `validate` tags and returns the first failing field as
	// an *errors.AppError.
	Validate(obj interface{}) error
}

type validator struct {
	engine *playground.Validate
}

var messages = map[string]string{
	"required": "is required",
	"notblank": "is required",
	"email":    "must be a valid email",
	"oneof":    "has an unsupported value",
	"datetime": "has an invalid format",
	"min":      "is too short",
	"max":      "is too long",
	"gt":       "must be greater than %s",
	"gte":      "must be at least %s",
}

func New() Validator {
	engine := playground.New(playground.WithRequiredStructEnabled())
	engine.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// notblank rejects strings made of whitespace only.
	_ = engine.RegisterValidation("notblank", func(fl playground.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return !field.IsZero()
		}
		return strings.TrimSpace(field.String()) != ""
	})
	return &validator{engine: engine}
}

func (v *validator) Validate(obj interface{}) error {
	err := v.engine.Struct(obj)
	if err == nil {
		return nil
	}

	var verrs playground.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.BadRequest("invalid input", err)
	}

	first := verrs[0]
	msg, ok := messages[first.Tag()]
	if !ok {
		msg = "is invalid"
	}
	if strings.Contains(msg, "%s") {
		msg = fmt.Sprintf(msg, first.Param())
	}
	return apperrors.Validation(first.Field(), fmt.Sprintf("%s %s", first.Field(), msg))
}
