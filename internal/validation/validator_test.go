package validation

import (
	"strings"
	"testing"
)

type sample struct {
	Name  string `validate:"required"`
	Kind  string `validate:"oneof=a b"`
	Count int    `validate:"min=1"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     sample
		wantErr   bool
		fragments []string
	}{
		{
			name:  "valid",
			input: sample{Name: "x", Kind: "a", Count: 1},
		},
		{
			name:      "missing name",
			input:     sample{Kind: "b", Count: 2},
			wantErr:   true,
			fragments: []string{"sample.Name is required"},
		},
		{
			name:      "several failures",
			input:     sample{Kind: "c"},
			wantErr:   true,
			fragments: []string{"Name is required", "Kind must be one of [a b]", "Count must be at least 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, f := range tt.fragments {
				if !strings.Contains(err.Error(), f) {
					t.Errorf("Expected error to contain %q, got %q", f, err.Error())
				}
			}
		})
	}
}
