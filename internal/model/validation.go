package model

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError reports the first field of a write payload that failed
// validation.  Handlers translate it into HTTP 400.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

var (
	clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9 -]{6,20}$`)
)

var validate = newValidate()

// newValidate reports fields by their JSON name and adds the "phone" and
// "clock" (HH:MM) rules.
func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" {
			return f.Name
		}
		return name
	})
	must := func(tag string, re *regexp.Regexp) {
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		}); err != nil {
			panic(err)
		}
	}
	must("phone", phoneRe)
	must("clock", clockRe)
	return v
}

// Check runs the validate tags of v and returns the first failure as a
// *ValidationError.
func Check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) || len(fes) == 0 {
		return err
	}
	fe := fes[0]
	return &ValidationError{Field: fe.Field(), Msg: message(fe)}
}

func message(fe validator.FieldError) string {
	isText := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if isText {
			return "can not be more than " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "min":
		if isText {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "email":
		return "please add a valid email"
	case "phone":
		return "please add a valid phone number"
	case "number":
		return "must contain digits only"
	case "clock":
		return "must be HH:MM"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "is invalid"
}

// Validator plugs Check into echo.Echo.Validator, so handlers validate
// bound payloads with c.Validate.
type Validator struct{}

func (Validator) Validate(i any) error { return Check(i) }

// checkOrder rejects a range whose end lies before its start.
func checkOrder(start, end time.Time) error {
	if end.Before(start) {
		return invalid("endDate", "must not be before startDate")
	}
	return nil
}
