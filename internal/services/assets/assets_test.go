package assets

import "testing"

func TestResolve(t *testing.T) {
	r := NewResolver("https://cdn.example.com/")

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"relative path", "gifts/bear.png", "https://cdn.example.com/gifts/bear.png"},
		{"leading slash", "/gifts/bear.png", "https://cdn.example.com/gifts/bear.png"},
		{"absolute url passthrough", "https://other.example.com/x.png", "https://other.example.com/x.png"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Resolve(tc.in); got != tc.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestResolveWithoutBase(t *testing.T) {
	r := NewResolver("")
	if got := r.Resolve("gifts/bear.png"); got != "gifts/bear.png" {
		t.Fatalf("expected passthrough without base url, got %q", got)
	}
}

func TestNormalize(t *testing.T) {
	r := NewResolver("https://cdn.example.com")

	if got := r.Normalize("https://cdn.example.com/gifts/bear.png"); got != "gifts/bear.png" {
		t.Fatalf("expected stripped prefix, got %q", got)
	}
	if got := r.Normalize("https://other.example.com/x.png"); got != "https://other.example.com/x.png" {
		t.Fatalf("foreign urls should pass through, got %q", got)
	}
}
