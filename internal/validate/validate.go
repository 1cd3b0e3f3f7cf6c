// Package validate normalizes and bounds-checks request input.  All
// failures are apperr Validation errors so handlers can return them
// unchanged.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/shop-management/internal/apperr"
)

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	leadingNonWord  = regexp.MustCompile(`^[^\w]`)
	mobilePattern   = regexp.MustCompile(`^\+?[0-9]{6,15}$`)
	mobileSeparator = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

	v = newValidator()
)

func newValidator() *validator.Validate {
	val := validator.New()
	_ = val.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(mobileSeparator.Replace(fl.Field().String()))
	})
	return val
}

// Normalize lowercases s, collapses whitespace runs to one space and trims.
func Normalize(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(strings.ToLower(s), " "))
}

// String normalizes raw and enforces min <= length <= max.  The label is
// used in messages, e.g. "Category must be at least 3 characters long".
func String(raw, label string, min, max int) (string, error) {
	s := Normalize(raw)
	if leadingNonWord.MatchString(s) {
		return "", apperr.Validation(label, label+" cannot start with a special character")
	}
	n := utf8.RuneCountInString(s)
	if n < min {
		return "", apperr.Validation(label, fmt.Sprintf("%s must be at least %d characters long", label, min))
	}
	if n > max {
		return "", apperr.Validation(label, fmt.Sprintf("%s can't be more than %d characters long", label, max))
	}
	return s, nil
}

// Required fails when value is falsy: nil, blank string, zero number,
// false, or an empty slice/map.  Callers pre-filter intentional zeros.
func Required(value any, message string) error {
	if isFalsy(value) {
		return apperr.Validation("", message)
	}
	return nil
}

func isFalsy(value any) bool {
	if value == nil {
		return true
	}
	switch t := value.(type) {
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	case json.Number:
		f, err := t.Float64()
		return err != nil || f == 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return isFalsy(rv.Elem().Interface())
	case reflect.Slice, reflect.Map:
		return rv.IsNil() || rv.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f == 0 || math.IsNaN(f)
	}
	return false
}

// RequiredObject fails unless value is a non-nil map or struct.
func RequiredObject(value any, message string) error {
	if value == nil {
		return apperr.Validation("", message)
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return apperr.Validation("", message)
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return apperr.Validation("", message)
		}
		return nil
	case reflect.Struct:
		return nil
	}
	return apperr.Validation("", message)
}

// Email checks the address format.
func Email(email string) error {
	if err := v.Var(email, "required,email"); err != nil {
		return apperr.Validation("email", "Invalid email address")
	}
	return nil
}

// Mobile accepts digits with an optional leading '+', ignoring common
// separators.
func Mobile(mobile string) error {
	if err := v.Var(mobile, "required,mobile"); err != nil {
		return apperr.Validation("mobile", "Invalid mobile number")
	}
	return nil
}

// Struct runs validator tags on a DTO and reports the first failure.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Validation(fe.Field(), fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
	}
	return apperr.Validation("", "Invalid request body")
}

// PositiveNumber parses a JSON number or numeric string and requires it
// to be > 0.  message is returned on any failure.
func PositiveNumber(raw any, message string) (float64, error) {
	f, ok := toFloat(raw)
	if !ok || f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apperr.Validation("", message)
	}
	return f, nil
}

// NonNegativeInt parses an integer value (JSON number or numeric string)
// and requires it to be >= 0.
func NonNegativeInt(raw any, message string) (int64, error) {
	f, ok := toFloat(raw)
	if !ok || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apperr.Validation("", message)
	}
	return int64(f), nil
}

func toFloat(raw any) (float64, bool) {
	switch t := raw.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
