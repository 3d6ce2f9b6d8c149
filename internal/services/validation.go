package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"storefront-api/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON name so clients can map errors onto form inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateDraft runs struct tag validation and converts failures to a ValidationError
func validateDraft(message string, draft any) error {
	err := validate.Struct(draft)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalid(message, models.ErrorDetail{Field: "body", Issue: err.Error()})
	}

	details := make([]models.ErrorDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, models.ErrorDetail{
			Field: trimNamespace(fe.Namespace()),
			Issue: describeTag(fe),
		})
	}
	return invalid(message, details...)
}

// trimNamespace drops the leading struct name, "OrderDraft.items[0].quantity" becomes "items[0].quantity"
func trimNamespace(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must contain at least " + fe.Param() + " element(s)"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gtefield":
		return "must not be before " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
