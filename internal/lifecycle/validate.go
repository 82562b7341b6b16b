package lifecycle

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"alert-case-service/internal/apperr"
	"alert-case-service/internal/config"
	"alert-case-service/internal/modal"
)

// FieldValidator checks case field payloads against the injected vocabulary.
type FieldValidator struct {
	v *validator.Validate
}

func NewFieldValidator(vocab config.Vocabulary) *FieldValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("casetype", func(fl validator.FieldLevel) bool {
		return vocab.AllowsCaseType(fl.Field().String())
	})
	_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		return vocab.AllowsPriority(fl.Field().String())
	})
	_ = v.RegisterValidation("typology", func(fl validator.FieldLevel) bool {
		return vocab.AllowsTypology(fl.Field().String())
	})
	return &FieldValidator{v: v}
}

// Validate returns nil or a validation error naming every offending field.
func (f *FieldValidator) Validate(action string, fields modal.CaseFields) *apperr.Error {
	err := f.v.Struct(fields)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.KindValidation, action, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return apperr.Validationf(action, "%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "casetype", "priority", "typology":
		return fmt.Sprintf("%s %v is not an allowed value", fe.Field(), fe.Value())
	case "gte", "lte":
		return fmt.Sprintf("%s must be between 0 and 100", fe.Field())
	case "max":
		return fmt.Sprintf("%s is longer than %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
