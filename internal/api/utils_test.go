package api

import "testing"

func TestPathToken(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"200", "200"},
		{"%32%30%30", "200"},
		{"a%2Fb", "a/b"},
		{"%2F", "/"},
		{"%zz", "%zz"},
		{"100%", "100%"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := pathToken(tt.raw); got != tt.want {
			t.Errorf("pathToken(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
