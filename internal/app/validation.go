package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"service-center/internal/core"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so messages match the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return lowerFirst(fld.Name)
		}
		return name
	})

	// Money fields validate as numbers (gte=0 and friends).
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	// cents runs on the float form above; shortest formatting recovers the
	// digits that were sent.
	_ = v.RegisterValidation("cents", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.Float64 {
			return false
		}
		d := decimal.NewFromFloat(fl.Field().Float())
		return d.Equal(d.Truncate(core.MoneyScale))
	})
	return v
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// validateRequest runs struct validation and converts failures into a domain
// error. Failures inside the customer block are CUSTOMER_DETAILS_INVALID,
// everything else VALIDATION_ERROR.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &core.Error{Kind: core.ErrValidation, Code: core.CodeValidation, Message: err.Error(), Err: err}
	}

	code := core.CodeValidation
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := fieldPath(fe)
		if strings.HasPrefix(path, "customerDetails.") || isCustomerRequest(req) {
			code = core.CodeCustomerDetailsInvalid
		}
		msgs = append(msgs, describe(path, fe))
	}
	return &core.Error{Kind: core.ErrValidation, Code: code, Message: strings.Join(msgs, "; "), Err: err}
}

func isCustomerRequest(req any) bool {
	switch req.(type) {
	case CustomerDetailsRequest, *CustomerDetailsRequest:
		return true
	}
	return false
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(path string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", path, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", path, fe.Param())
	case "cents":
		return fmt.Sprintf("%s must have at most %d decimal places", path, core.MoneyScale)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", path, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", path, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "uuid":
		return fmt.Sprintf("%s must be a valid id", path)
	default:
		return fmt.Sprintf("%s is invalid (%s)", path, fe.Tag())
	}
}
