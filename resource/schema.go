package resource

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"go.uber.org/multierr"
	validator "gopkg.in/go-playground/validator.v9"
)

// UpdateStrategy declares how a change to an attribute is applied to a
// materialized resource.
type UpdateStrategy int

const (
	// UpdateInPlace attributes are mutated on the existing resource.
	UpdateInPlace UpdateStrategy = iota

	// UpdateReplace attributes cannot be changed in place; changing one
	// destroys the resource and creates a new one.
	UpdateReplace

	// UpdateRolling attributes describe a fleet's launch specification;
	// changing one replaces the fleet's members in rolling batches while
	// the fleet resource itself is kept.
	UpdateRolling
)

// An Attribute describes a single attribute within a kind schema.
type Attribute struct {
	// Type is the required value type.
	Type cty.Type

	// Required attributes must be set in config. Unknown values (pending
	// references) satisfy the requirement.
	Required bool

	// Computed attributes are issued by the provider and cannot be set in
	// config. Every schema carries at least the computed "id" attribute.
	Computed bool

	// Strategy declares how changes to the attribute are applied.
	Strategy UpdateStrategy

	// Validation holds a validation rule string, for example "min=3" or
	// "oneof=HTTP HTTPS". Rules are applied to known primitive values.
	Validation string

	// MinItems requires collection attributes to have at least this many
	// elements.
	MinItems int

	// Nested describes the attributes of list-of-object elements, one
	// level deep. Only Required and Validation are honored for nested
	// attributes.
	Nested map[string]Attribute
}

// A Schema describes the attributes of a resource kind.
type Schema struct {
	Attributes map[string]Attribute
}

// Inputs returns the names of non-computed attributes, sorted.
func (s Schema) Inputs() []string {
	names := make([]string, 0, len(s.Attributes))
	for name, attr := range s.Attributes {
		if attr.Computed {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks a decoded input object against the schema. All failures
// are combined into the returned error, each one naming the attribute.
func (s Schema) Validate(input cty.Value) error {
	var err error
	for name, attr := range s.Attributes {
		if attr.Computed {
			continue
		}
		if !input.Type().IsObjectType() || !input.Type().HasAttribute(name) {
			if attr.Required {
				err = multierr.Append(err, fmt.Errorf("%s: required attribute not set", name))
			}
			continue
		}
		v := input.GetAttr(name)
		if v.IsNull() {
			if attr.Required {
				err = multierr.Append(err, fmt.Errorf("%s: required attribute not set", name))
			}
			continue
		}
		if !v.IsKnown() {
			// Value resolves from another resource at apply time.
			continue
		}
		err = multierr.Append(err, validateValue(name, v, attr))
	}
	return err
}

func validateValue(name string, v cty.Value, attr Attribute) error {
	var err error
	if attr.MinItems > 0 && v.CanIterateElements() {
		if v.LengthInt() < attr.MinItems {
			err = multierr.Append(err, fmt.Errorf("%s: must have at least %d entries", name, attr.MinItems))
		}
	}
	if attr.Validation != "" {
		if verr := checkRule(v, attr.Validation); verr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %v", name, verr))
		}
	}
	for nested, na := range attr.Nested {
		i := 0
		for it := v.ElementIterator(); it.Next(); i++ {
			_, ev := it.Element()
			if !ev.IsKnown() || !ev.Type().IsObjectType() {
				continue
			}
			if !ev.Type().HasAttribute(nested) || ev.GetAttr(nested).IsNull() {
				if na.Required {
					err = multierr.Append(err, fmt.Errorf("%s[%d].%s: required attribute not set", name, i, nested))
				}
				continue
			}
			nv := ev.GetAttr(nested)
			if !nv.IsKnown() {
				continue
			}
			if na.MinItems > 0 && nv.CanIterateElements() && nv.LengthInt() < na.MinItems {
				err = multierr.Append(err, fmt.Errorf("%s[%d].%s: must have at least %d entries", name, i, nested, na.MinItems))
			}
			if na.Validation != "" {
				if verr := checkRule(nv, na.Validation); verr != nil {
					err = multierr.Append(err, fmt.Errorf("%s[%d].%s: %v", name, i, nested, verr))
				}
			}
		}
	}
	return err
}

var check = validator.New()

// checkRule applies a validation rule string to a known primitive value.
// Values that cannot be converted to a native type are skipped; the schema
// type check during decoding catches those.
func checkRule(v cty.Value, rule string) error {
	var native interface{}
	switch v.Type() {
	case cty.String:
		native = v.AsString()
	case cty.Number:
		f, _ := v.AsBigFloat().Float64()
		native = f
	case cty.Bool:
		native = v.True()
	default:
		return nil
	}
	err := check.Var(native, rule)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	once.Do(initFormats)
	fe := verrs[0]
	format, ok := formats[fe.Tag()]
	if !ok {
		return fmt.Errorf("must satisfy %s", fe.Tag())
	}
	if !strings.Contains(format, "%") {
		return fmt.Errorf(format)
	}
	return fmt.Errorf(format, fe.Param())
}

var once sync.Once
var formats map[string]string

func initFormats() {
	formats = map[string]string{
		"min":   "must be %v or more",
		"max":   "must be %v or less",
		"gte":   "must be %v or more",
		"gt":    "must be more than %v",
		"lte":   "must be %v or less",
		"lt":    "must be less than %v",
		"oneof": "must be one of: [%v]",
		"cidr":  "must be a valid CIDR block",
	}
}
