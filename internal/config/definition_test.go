package config

import (
	"errors"
	"testing"
)

func TestBuilder_Build(t *testing.T) {
	def, err := NewBuilder("my-mod", "1.2.0").
		Policy(PolicyClobber).
		Add(
			NewKey("alpha", TypeString),
			NewKey("beta", TypeInt),
		).
		Add(NewKey("gamma", TypeBool)).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if def.Owner() != "my-mod" {
		t.Errorf("Owner() = %q", def.Owner())
	}
	if def.Version() != "1.2.0" {
		t.Errorf("Version() = %q", def.Version())
	}
	if def.Policy() != PolicyClobber {
		t.Errorf("Policy() = %v, want PolicyClobber", def.Policy())
	}
	if def.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", def.Len())
	}

	// Insertion order preserved.
	want := []string{"alpha", "beta", "gamma"}
	for i, k := range def.Keys() {
		if k.Name() != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, k.Name(), want[i])
		}
	}

	if _, ok := def.Key("beta"); !ok {
		t.Error("Key(beta) not found")
	}
	if _, ok := def.Key("missing"); ok {
		t.Error("Key(missing) unexpectedly found")
	}
}

func TestBuilder_DuplicateKeyName(t *testing.T) {
	_, err := NewBuilder("m", "1.0.0").
		Add(NewKey("a", TypeString), NewKey("a", TypeInt)).
		Build()
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("Build() error = %v, want ErrDuplicateKey", err)
	}
}

func TestBuilder_SingleUse(t *testing.T) {
	b := NewBuilder("m", "1.0.0")
	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build() error = %v", err)
	}
	if _, err := b.Build(); !errors.Is(err, ErrBuilderUsed) {
		t.Fatalf("second Build() error = %v, want ErrBuilderUsed", err)
	}
}

func TestBuilder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		owner   string
		version string
		keys    []Key
		wantErr error
	}{
		{"missing owner", "", "1.0.0", nil, ErrMissingOwner},
		{"bad version", "m", "one", nil, ErrInvalidVersion},
		{"partial version", "m", "1.0", nil, ErrInvalidVersion},
		{"empty key name", "m", "1.0.0", []Key{NewKey("", TypeString)}, ErrEmptyKeyName},
		{"prerelease version ok", "m", "1.0.0-rc.1", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder(tt.owner, tt.version).Add(tt.keys...).Build()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Build() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Build() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    MismatchPolicy
		wantErr bool
	}{
		{"", PolicyPreserve, false},
		{"preserve", PolicyPreserve, false},
		{"clobber", PolicyClobber, false},
		{"error", PolicyError, false},
		{"explode", PolicyPreserve, true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParsePolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
