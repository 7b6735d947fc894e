package resource

import "github.com/zclconf/go-cty/cty"

// Attribute accessors for object values. All accessors return the zero value
// when the attribute is missing, null or not yet known, so callers that
// require a value must check HasAttr first or rely on schema validation.

// HasAttr returns true if obj contains a known, non-null attribute with the
// given name.
func HasAttr(obj cty.Value, name string) bool {
	if obj == cty.NilVal || obj.IsNull() || !obj.Type().IsObjectType() {
		return false
	}
	if !obj.Type().HasAttribute(name) {
		return false
	}
	v := obj.GetAttr(name)
	return v.IsKnown() && !v.IsNull()
}

// StringAttr returns the named string attribute.
func StringAttr(obj cty.Value, name string) string {
	if !HasAttr(obj, name) {
		return ""
	}
	v := obj.GetAttr(name)
	if v.Type() != cty.String {
		return ""
	}
	return v.AsString()
}

// IntAttr returns the named number attribute as an int.
func IntAttr(obj cty.Value, name string) int {
	if !HasAttr(obj, name) {
		return 0
	}
	v := obj.GetAttr(name)
	if v.Type() != cty.Number {
		return 0
	}
	f, _ := v.AsBigFloat().Float64()
	return int(f)
}

// BoolAttr returns the named bool attribute.
func BoolAttr(obj cty.Value, name string) bool {
	if !HasAttr(obj, name) {
		return false
	}
	v := obj.GetAttr(name)
	if v.Type() != cty.Bool {
		return false
	}
	return v.True()
}

// StringsAttr returns the named list or tuple attribute as a string slice.
func StringsAttr(obj cty.Value, name string) []string {
	if !HasAttr(obj, name) {
		return nil
	}
	v := obj.GetAttr(name)
	if !v.CanIterateElements() {
		return nil
	}
	var out []string
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		if !ev.IsKnown() || ev.IsNull() || ev.Type() != cty.String {
			continue
		}
		out = append(out, ev.AsString())
	}
	return out
}
