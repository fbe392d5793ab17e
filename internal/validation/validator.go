// Package validation wraps a shared go-playground/validator instance.
//
// The validator caches struct metadata, so one instance is reused for
// configuration checks and for the song records returned by AI providers.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Struct validates s against its `validate` tags and returns a single
// readable error listing every failing field.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Namespace(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Namespace(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Namespace(), fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Namespace())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Namespace(), fe.Tag())
	}
}
