// Package validator wraps a shared go-playground validator configured to
// report JSON field names, so failures read like the wire payload they
// came from.
package validator

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the struct tags on s and flattens any failures into a
// single error with one clause per field.
func Validate(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	clauses := make([]string, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		clauses = append(clauses, fmt.Sprintf("field '%s' %s", e.Field(), reason(e)))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(clauses, "; "))
}

func reason(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	}
	return fmt.Sprintf("failed '%s' check", e.Tag())
}
