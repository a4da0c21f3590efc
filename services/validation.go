package services

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

var phoneChars = regexp.MustCompile(`[^0-9+\-() ]`)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct runs the struct's validate tags and converts failures to a ValidationError.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required!"
	case "email":
		return "Invalid email address!"
	case "url":
		return "Must be a valid URL!"
	case "max":
		return "Must be at most " + fe.Param() + " characters long!"
	case "min":
		return "Must be at least " + fe.Param() + " characters long!"
	case "gt":
		return "Must be greater than " + fe.Param() + "!"
	default:
		return "Invalid value!"
	}
}

// SanitizePhone keeps digits and the usual phone punctuation.
func SanitizePhone(phone string) string {
	return strings.TrimSpace(phoneChars.ReplaceAllString(phone, ""))
}
