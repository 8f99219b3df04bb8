package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrValidation marks errors carrying Violations.
var ErrValidation = errors.New("validation failed")

// Violations maps a JSON field name to a violation code (see i18n for messages).
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Err returns nil when v is empty, otherwise an error marked ErrValidation
// from which v can be recovered with AsViolations.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return errors.Mark(&violationsError{v: v}, ErrValidation)
}

type violationsError struct{ v Violations }

func (e *violationsError) Error() string {
	fields := make([]string, 0, len(e.v))
	for f := range e.v {
		fields = append(fields, f)
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

// AsViolations extracts the Violations carried by err, if any.
func AsViolations(err error) (Violations, bool) {
	var ve *violationsError
	if errors.As(err, &ve) {
		return ve.v, true
	}
	return nil, false
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func NonNegativeDecimal(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v[field] = "must_be_non_negative"
	}
}

func RangeDecimal(field string, val, minVal, maxVal decimal.Decimal, v Violations) {
	if val.LessThan(minVal) || val.GreaterThan(maxVal) {
		v[field] = "out_of_range"
	}
}

func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v[field] = "invalid_choice"
}

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator. Field errors are reported under
// their JSON names and decimal.Decimal fields compare as numbers.
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	})
	return validate
}

// Struct validates s with its `validate` tags and converts failures to Violations.
func Struct(s any) Violations {
	v := Violations{}
	err := Validator().Struct(s)
	if err == nil {
		return v
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v["_"] = "invalid"
		return v
	}
	for _, fe := range fieldErrs {
		v[fieldPath(fe)] = code(fe.Tag())
	}
	return v
}

// fieldPath drops the top-level struct name: "ProductForm.price" -> "price".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func code(tag string) string {
	switch tag {
	case "required":
		return "required"
	case "email":
		return "invalid_email"
	case "oneof":
		return "invalid_choice"
	case "gt", "gte", "lt", "lte", "min", "max":
		return "out_of_range"
	}
	return "invalid"
}
