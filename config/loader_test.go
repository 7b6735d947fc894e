package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/converge/converge/config"
	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/hcl2/gohcl"
)

func TestLoader_Root(t *testing.T) {
	tests := []struct {
		name    string
		dir     string
		want    string
		wantErr bool
	}{
		{"Exact", "testdata/project", "testdata/project", false},
		{"Subdir", "testdata/project/svc", "testdata/project", false},
		{"NoProject", os.TempDir(), "", false},
		{"NotFound", "nonexisting", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &config.Loader{}
			got, err := l.Root(tt.dir)
			if (err != nil) != tt.wantErr {
				t.Errorf("Loader.Root() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.want == "" {
				if got != "" {
					t.Errorf("Loader.Root() = %v, want empty", got)
				}
				return
			}
			want, aerr := filepath.Abs(tt.want)
			if aerr != nil {
				t.Fatal(aerr)
			}
			if got != want {
				t.Errorf("Loader.Root() = %v, want %v", got, want)
			}
		})
	}
}

func TestLoader_Load(t *testing.T) {
	l := &config.Loader{}
	body, diags := l.Load("testdata/project")
	if diags.HasErrors() {
		t.Fatalf("Load() diagnostics: %v", diags)
	}

	var root config.Root
	diags = gohcl.DecodeBody(body, nil, &root)
	if diags.HasErrors() {
		t.Fatalf("DecodeBody() diagnostics: %v", diags)
	}

	if len(root.Projects) != 1 || root.Projects[0].Name != "webapp" {
		t.Errorf("projects = %+v, want one named webapp", root.Projects)
	}

	var names []string
	for _, r := range root.Resources {
		names = append(names, r.Kind+"."+r.Name)
	}
	want := []string{"network.main", "subnet.a"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("resources (-want +got)\n%s", diff)
	}

	if len(root.Policies) != 1 {
		t.Fatalf("policies = %+v, want one", root.Policies)
	}
	d, err := root.Policies[0].CooldownDuration()
	if err != nil {
		t.Fatal(err)
	}
	if d != 2*time.Minute {
		t.Errorf("cooldown = %v, want 2m", d)
	}
}

func TestScalingPolicy_CooldownDuration(t *testing.T) {
	tests := []struct {
		name     string
		cooldown string
		want     time.Duration
		wantErr  bool
	}{
		{"Blank", "", 0, false},
		{"Minutes", "5m", 5 * time.Minute, false},
		{"Invalid", "fast", 0, true},
		{"Negative", "-1m", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := config.ScalingPolicy{Name: "out", Cooldown: tt.cooldown}
			got, err := p.CooldownDuration()
			if (err != nil) != tt.wantErr {
				t.Fatalf("CooldownDuration() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("CooldownDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}
