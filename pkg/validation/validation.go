package validation

import (
	"errors"
	"reflect"
	"strings"

	custom_error "aanganwadi/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// Validator checks request structs and reports failures as *custom_error.ValidationError
// keyed by JSON field name.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return &Validator{v: v}
}

func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	result := &custom_error.ValidationError{}
	for _, fe := range validationErrors {
		result.Add(fieldPath(fe), message(fe))
	}
	return result
}

// fieldPath drops the root struct name: "CreateAppealRequest.requestedItems[0].itemType"
// becomes "requestedItems[0].itemType".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "dive":
		return "is invalid"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
