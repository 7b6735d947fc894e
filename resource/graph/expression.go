package graph

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// A Dependency is a dependency for a single field between two resources.
type Dependency struct {
	// Field is the path to the field within the dependent resource's
	// input.
	Field cty.Path

	// Expression produces the field's value. It may reference multiple
	// parent resources.
	Expression Expression
}

// Parents returns the names of the parent resources referenced by the
// dependency's expression.
func (d Dependency) Parents() []string {
	return d.Expression.Parents()
}

// An Expression describes a value for a field as a combination of literals
// and references to other resources' attributes.
type Expression []ExprPart

// ExprPart is one part of an Expression. The interface is closed; only
// ExprLiteral and ExprReference are allowed.
type ExprPart interface{ isExprPart() }

// ExprLiteral is a literal value in an expression.
type ExprLiteral struct {
	Value cty.Value
}

func (ExprLiteral) isExprPart() {}

// ExprReference references another resource's attribute. The first path step
// is the resource name, the remaining steps address into its attributes.
type ExprReference struct {
	Path cty.Path
}

func (ExprReference) isExprPart() {}

// References returns the referenced paths in the expression.
func (e Expression) References() []cty.Path {
	var refs []cty.Path
	for _, p := range e {
		if ref, ok := p.(ExprReference); ok {
			refs = append(refs, ref.Path)
		}
	}
	return refs
}

// Parents returns the names of the resources referenced by the expression.
func (e Expression) Parents() []string {
	refs := e.References()
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		step, ok := ref[0].(cty.GetAttrStep)
		if !ok {
			// The decoder only produces paths rooted at a name.
			panic(fmt.Sprintf("Reference does not start with a resource name: %#v", ref))
		}
		names = append(names, step.Name)
	}
	return names
}

// Value evaluates the expression against the given resource values.
//
// A single-part expression returns the part's value directly, preserving its
// type. Multi-part expressions are concatenated into a string; any unknown
// part makes the result an unknown string. Referencing a resource that is not
// present in vars is an error.
func (e Expression) Value(vars map[string]cty.Value) (cty.Value, error) {
	vals := make([]cty.Value, len(e))
	for i, part := range e {
		switch p := part.(type) {
		case ExprLiteral:
			vals[i] = p.Value
		case ExprReference:
			root, ok := p.Path[0].(cty.GetAttrStep)
			if !ok {
				return cty.NilVal, errors.Errorf("reference %d does not start with a resource name", i)
			}
			v, ok := vars[root.Name]
			if !ok {
				return cty.NilVal, errors.Errorf("value for %q not available", root.Name)
			}
			for _, step := range p.Path[1:] {
				next, err := step.Apply(v)
				if err != nil {
					return cty.NilVal, errors.Wrapf(err, "resolve %s", root.Name)
				}
				v = next
			}
			vals[i] = v
		default:
			panic(fmt.Sprintf("Not supported: %T", p))
		}
	}
	if len(vals) == 0 {
		return cty.NilVal, nil
	}
	if len(vals) == 1 {
		return vals[0], nil
	}
	var buf bytes.Buffer
	for i, v := range vals {
		if !v.IsWhollyKnown() {
			return cty.UnknownVal(cty.String), nil
		}
		if v.Type() != cty.String {
			conv, err := convert.Convert(v, cty.String)
			if err != nil {
				return cty.NilVal, errors.Wrapf(err, "convert part %d to string", i)
			}
			v = conv
		}
		buf.WriteString(v.AsString())
	}
	return cty.StringVal(buf.String()), nil
}
