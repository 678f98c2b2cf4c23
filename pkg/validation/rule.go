package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"travel-gateway/pkg/types"
)

var validate = validator.New()

// Kind is the type a field must have.
type Kind int

const (
	Number Kind = iota
	String
	Bool
	Array
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case String:
		return "string"
	case Bool:
		return "boolean"
	case Array:
		return "array"
	default:
		return "value"
	}
}

// Rule is a declarative constraint over one named field. Min and Max bound
// the value for numbers, the length for strings and the item count for
// arrays.
type Rule struct {
	Field    string
	Kind     Kind
	Required bool
	Min      *float64
	Max      *float64
	OneOf    []string
}

func NumberField(name string) Rule { return Rule{Field: name, Kind: Number} }
func StringField(name string) Rule { return Rule{Field: name, Kind: String} }
func BoolField(name string) Rule   { return Rule{Field: name, Kind: Bool} }
func ArrayField(name string) Rule  { return Rule{Field: name, Kind: Array} }

func (r Rule) Require() Rule {
	r.Required = true
	return r
}

func (r Rule) Between(min, max float64) Rule {
	r.Min, r.Max = &min, &max
	return r
}

func (r Rule) AtLeast(min float64) Rule {
	r.Min = &min
	return r
}

func (r Rule) AtMost(max float64) Rule {
	r.Max = &max
	return r
}

func (r Rule) In(values ...string) Rule {
	r.OneOf = values
	return r
}

// Check evaluates the rule against payload and returns nil when it holds.
func (r Rule) Check(payload map[string]interface{}) *types.FieldError {
	raw, present := payload[r.Field]
	if !present || raw == nil {
		if r.Required {
			return &types.FieldError{Field: r.Field, Message: "is required"}
		}
		return nil
	}

	value, ok := coerce(r.Kind, raw)
	if !ok {
		return &types.FieldError{Field: r.Field, Message: fmt.Sprintf("must be a %s", r.Kind)}
	}

	tag := r.tag()
	if tag == "" {
		return nil
	}
	if err := validate.Var(value, tag); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &types.FieldError{Field: r.Field, Message: r.describe(verrs[0].Tag(), verrs[0].Param())}
		}
		return &types.FieldError{Field: r.Field, Message: "is invalid"}
	}
	return nil
}

func (r Rule) tag() string {
	var parts []string
	switch r.Kind {
	case Number:
		if r.Min != nil {
			parts = append(parts, "gte="+formatFloat(*r.Min))
		}
		if r.Max != nil {
			parts = append(parts, "lte="+formatFloat(*r.Max))
		}
	case String, Array:
		if r.Min != nil {
			parts = append(parts, "min="+formatFloat(*r.Min))
		}
		if r.Max != nil {
			parts = append(parts, "max="+formatFloat(*r.Max))
		}
	}
	if r.Kind == String && len(r.OneOf) > 0 {
		parts = append(parts, "oneof="+strings.Join(r.OneOf, " "))
	}
	return strings.Join(parts, ",")
}

func (r Rule) describe(tag, param string) string {
	switch tag {
	case "gte":
		return "must be at least " + param
	case "lte":
		return "must be at most " + param
	case "min":
		if r.Kind == Array {
			return fmt.Sprintf("must contain at least %s items", param)
		}
		return fmt.Sprintf("must be at least %s characters", param)
	case "max":
		if r.Kind == Array {
			return fmt.Sprintf("must contain at most %s items", param)
		}
		return fmt.Sprintf("must be at most %s characters", param)
	case "oneof":
		return "must be one of: " + strings.Join(r.OneOf, ", ")
	default:
		return "is invalid"
	}
}

// coerce accepts JSON values and the string forms query parameters arrive in.
func coerce(kind Kind, raw interface{}) (interface{}, bool) {
	switch kind {
	case Number:
		return toFloat(raw)
	case String:
		s, ok := raw.(string)
		return s, ok
	case Bool:
		switch v := raw.(type) {
		case bool:
			return v, true
		case string:
			b, err := strconv.ParseBool(v)
			return b, err == nil
		}
		return nil, false
	case Array:
		switch v := raw.(type) {
		case []interface{}:
			return v, true
		case []string:
			return v, true
		}
		return nil, false
	}
	return nil, false
}

func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case interface{ Float64() (float64, error) }:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
