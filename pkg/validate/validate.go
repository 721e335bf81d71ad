// Package validate wraps go-playground/validator with the project's custom
// tags and converts validation failures into domain errors.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the process-wide validator with custom tags registered.
//
// Custom tags:
//   - hhmm: "HH:MM" 24h clock string
//   - date: "YYYY-MM-DD" civil date string
//   - lecture_type: "", "theory", "practical" or "both" in any case
//   - mark_status: "present", "absent" or "unmarked" in any case
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		mustRegister(v, "hhmm", isClock)
		mustRegister(v, "date", isDate)
		mustRegister(v, "lecture_type", isLectureType)
		mustRegister(v, "mark_status", isMarkStatus)
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validate: register %s: %v", tag, err))
	}
}

// Struct validates s and returns a shared.ErrValidation domain error
// listing each failing field as field=tag.
func Struct(domain, op string, s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return shared.WrapError(domain, op, shared.ErrValidation, "invalid input", err)
	}
	return shared.NewDomainError(domain, op, shared.ErrValidation, Describe(ve))
}

// Describe renders validation errors deterministically.
func Describe(ve validator.ValidationErrors) string {
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s=%s(%s)", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", fe.Field(), fe.Tag()))
	}
	sort.Strings(parts)
	return "invalid fields: " + strings.Join(parts, ", ")
}

func isClock(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

func isDate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

func isLectureType(fl validator.FieldLevel) bool {
	switch strings.ToLower(strings.TrimSpace(fl.Field().String())) {
	case "", "theory", "practical", "both":
		return true
	}
	return false
}

func isMarkStatus(fl validator.FieldLevel) bool {
	switch strings.ToLower(strings.TrimSpace(fl.Field().String())) {
	case "present", "absent", "unmarked":
		return true
	}
	return false
}
