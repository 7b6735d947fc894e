package hcldecoder

import (
	"fmt"

	"github.com/converge/converge/resource/graph"
	"github.com/hashicorp/hcl2/hcl"
	"github.com/hashicorp/hcl2/hcl/hclsyntax"
	"github.com/hashicorp/hcl2/hclpack"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// decodeExpr decodes one attribute expression.
//
// A static expression is evaluated and converted to the attribute's declared
// type. An expression with references returns an unknown value of that type
// together with the dependency that resolves it; the caller sets the
// dependency's field path.
func (d *decoder) decodeExpr(attr *hcl.Attribute, want cty.Type) (cty.Value, *graph.Dependency, hcl.Diagnostics) {
	expr := attr.Expr
	if packexpr, ok := expr.(*hclpack.Expression); ok {
		// Parse into hcl.Expression; reference extraction relies on the
		// native syntax types.
		parsed, diags := packexpr.Parse()
		if diags.HasErrors() {
			return cty.NilVal, nil, diags
		}
		expr = parsed
	}

	if len(expr.Variables()) == 0 {
		v, diags := expr.Value(nil)
		if diags.HasErrors() {
			return cty.NilVal, nil, diags
		}
		conv, err := convert.Convert(v, want)
		if err != nil {
			return cty.NilVal, nil, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Unsuitable value type",
				Detail:   fmt.Sprintf("Unsuitable value: %s.", err),
				Subject:  expr.StartRange().Ptr(),
				Context:  expr.Range().Ptr(),
			}}
		}
		return conv, nil, nil
	}

	parts, diags := d.exprParts(expr)
	if diags.HasErrors() {
		return cty.NilVal, nil, diags
	}
	return cty.UnknownVal(want), &graph.Dependency{Expression: parts}, nil
}

// exprParts flattens an expression into literal and reference parts.
func (d *decoder) exprParts(expr hcl.Expression) (graph.Expression, hcl.Diagnostics) {
	switch e := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		ref, diags := d.traversalRef(e.Traversal)
		if diags.HasErrors() {
			return nil, diags
		}
		return graph.Expression{ref}, nil

	case *hclsyntax.TemplateWrapExpr:
		return d.exprParts(e.Wrapped)

	case *hclsyntax.TemplateExpr:
		var parts graph.Expression
		var diags hcl.Diagnostics
		for _, p := range e.Parts {
			if st, ok := p.(*hclsyntax.ScopeTraversalExpr); ok {
				ref, morediags := d.traversalRef(st.Traversal)
				diags = append(diags, morediags...)
				if morediags.HasErrors() {
					continue
				}
				parts = append(parts, ref)
				continue
			}
			if len(p.Variables()) > 0 {
				diags = append(diags, unsupportedExpr(p))
				continue
			}
			v, morediags := p.Value(nil)
			diags = append(diags, morediags...)
			if morediags.HasErrors() {
				continue
			}
			parts = append(parts, graph.ExprLiteral{Value: v})
		}
		if diags.HasErrors() {
			return nil, diags
		}
		return parts, nil
	}

	return nil, hcl.Diagnostics{unsupportedExpr(expr)}
}

// traversalRef converts a {kind}.{name}.{attribute} traversal into a
// reference rooted at the resource name. The reference is checked against the
// decoded resources once all blocks are processed.
func (d *decoder) traversalRef(t hcl.Traversal) (graph.ExprReference, hcl.Diagnostics) {
	invalid := hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Invalid reference",
		Detail:   "A reference must have 3 fields: {kind}.{name}.{attribute}.",
		Subject:  t.SourceRange().Ptr(),
	}}
	if len(t) != 3 {
		return graph.ExprReference{}, invalid
	}
	nameStep, ok := t[1].(hcl.TraverseAttr)
	if !ok {
		return graph.ExprReference{}, invalid
	}
	attrStep, ok := t[2].(hcl.TraverseAttr)
	if !ok {
		return graph.ExprReference{}, invalid
	}

	d.refs = append(d.refs, pendingRef{
		kind: t.RootName(),
		name: nameStep.Name,
		attr: attrStep.Name,
		rng:  t.SourceRange(),
	})
	return graph.ExprReference{
		Path: cty.GetAttrPath(nameStep.Name).GetAttr(attrStep.Name),
	}, nil
}

func unsupportedExpr(expr hcl.Expression) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Unsupported expression",
		Detail:   "Only references ({kind}.{name}.{attribute}) and string literals are supported.",
		Subject:  expr.StartRange().Ptr(),
		Context:  expr.Range().Ptr(),
	}
}
