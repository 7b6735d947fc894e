package graph_test

import (
	"testing"

	"github.com/converge/converge/resource/graph"
	"github.com/google/go-cmp/cmp"
	"github.com/zclconf/go-cty/cty"
)

func TestExpression_Value(t *testing.T) {
	tests := []struct {
		name    string
		expr    graph.Expression
		vars    map[string]cty.Value
		want    cty.Value
		wantErr bool
	}{
		{
			name: "Empty",
			expr: graph.Expression{},
			want: cty.NilVal,
		},
		{
			name: "Literal",
			expr: graph.Expression{
				graph.ExprLiteral{Value: cty.StringVal("10.0.0.0/16")},
			},
			want: cty.StringVal("10.0.0.0/16"),
		},
		{
			name: "LiteralNum",
			expr: graph.Expression{
				graph.ExprLiteral{Value: cty.NumberIntVal(443)},
			},
			want: cty.NumberIntVal(443),
		},
		{
			name: "Reference",
			expr: graph.Expression{
				graph.ExprReference{Path: cty.GetAttrPath("net").GetAttr("id")},
			},
			vars: map[string]cty.Value{
				"net": cty.ObjectVal(map[string]cty.Value{
					"id": cty.StringVal("net-123"),
				}),
			},
			want: cty.StringVal("net-123"),
		},
		{
			name: "ReferenceKeepsType",
			expr: graph.Expression{
				graph.ExprReference{Path: cty.GetAttrPath("lb").GetAttr("port")},
			},
			vars: map[string]cty.Value{
				"lb": cty.ObjectVal(map[string]cty.Value{
					"port": cty.NumberIntVal(8080),
				}),
			},
			want: cty.NumberIntVal(8080),
		},
		{
			name: "Mixed",
			expr: graph.Expression{
				graph.ExprLiteral{Value: cty.StringVal("http://")},
				graph.ExprReference{Path: cty.GetAttrPath("lb").GetAttr("dns_name")},
				graph.ExprLiteral{Value: cty.StringVal(":")},
				graph.ExprLiteral{Value: cty.NumberIntVal(80)},
			},
			vars: map[string]cty.Value{
				"lb": cty.ObjectVal(map[string]cty.Value{
					"dns_name": cty.StringVal("lb.example.com"),
				}),
			},
			want: cty.StringVal("http://lb.example.com:80"),
		},
		{
			name: "UnknownSingle",
			expr: graph.Expression{
				graph.ExprReference{Path: cty.GetAttrPath("net").GetAttr("id")},
			},
			vars: map[string]cty.Value{
				"net": cty.ObjectVal(map[string]cty.Value{
					"id": cty.UnknownVal(cty.String),
				}),
			},
			want: cty.UnknownVal(cty.String),
		},
		{
			name: "UnknownMixed",
			expr: graph.Expression{
				graph.ExprLiteral{Value: cty.StringVal("known")},
				graph.ExprReference{Path: cty.GetAttrPath("net").GetAttr("id")},
			},
			vars: map[string]cty.Value{
				"net": cty.ObjectVal(map[string]cty.Value{
					"id": cty.UnknownVal(cty.String),
				}),
			},
			want: cty.UnknownVal(cty.String),
		},
		{
			name: "NotFoundRef",
			expr: graph.Expression{
				graph.ExprReference{Path: cty.GetAttrPath("net").GetAttr("id")},
			},
			vars:    map[string]cty.Value{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.expr.Value(tt.vars)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Value() err = %v, wantErr = %t", err, tt.wantErr)
			}
			if tt.wantErr {
				t.Logf("Got expected error: %v", err)
				return
			}
			if tt.want == cty.NilVal {
				if got != cty.NilVal {
					t.Errorf("Value() = %s, want NilVal", got.GoString())
				}
				return
			}
			if tt.want.IsWhollyKnown() {
				if !got.Equals(tt.want).True() {
					t.Errorf("Value does not match\nGot  %s\nWant %s", got.GoString(), tt.want.GoString())
				}
				return
			}
			if got.IsWhollyKnown() {
				t.Errorf("Got known value, want unknown value")
			}
		})
	}
}

func TestExpression_Parents(t *testing.T) {
	expr := graph.Expression{
		graph.ExprLiteral{Value: cty.StringVal("http://")},
		graph.ExprReference{Path: cty.GetAttrPath("lb").GetAttr("dns_name")},
		graph.ExprReference{Path: cty.GetAttrPath("listener").GetAttr("port")},
	}
	got := expr.Parents()
	want := []string{"lb", "listener"}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Parents() (-got +want)\n%s", diff)
	}
}

func TestDependency_Parents(t *testing.T) {
	dep := graph.Dependency{
		Field: cty.GetAttrPath("subnet"),
		Expression: graph.Expression{
			graph.ExprReference{Path: cty.GetAttrPath("sub").GetAttr("id")},
		},
	}
	got := dep.Parents()
	want := []string{"sub"}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Parents() (-got +want)\n%s", diff)
	}
}
