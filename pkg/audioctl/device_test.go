package audioctl

import "testing"

func TestEqualID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"identical", "{0.0.0.00000000}.{abc}", "{0.0.0.00000000}.{abc}", true},
		{"case insensitive", "{0.0.0.00000000}.{ABC}", "{0.0.0.00000000}.{abc}", true},
		{"different", "{0.0.0.00000000}.{abc}", "{0.0.0.00000000}.{def}", false},
		{"both empty", "", "", true},
		{"empty never matches concrete", "", "X", false},
		{"concrete never matches empty", "X", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EqualID(tt.a, tt.b); got != tt.want {
				t.Errorf("EqualID(%q, %q) = %t, want %t", tt.a, tt.b, got, tt.want)
			}

			// symmetry
			if got := EqualID(tt.b, tt.a); got != tt.want {
				t.Errorf("EqualID(%q, %q) = %t, want %t", tt.b, tt.a, got, tt.want)
			}
		})
	}

	// reflexivity over a few shapes
	for _, id := range []string{"", "x", "DEV-1", "{guid}"} {
		if !EqualID(id, id) {
			t.Errorf("EqualID(%q, %q) = false, want true", id, id)
		}
	}
}
