package service

import "testing"

func TestRenderTemplate(t *testing.T) {
	fields := map[string]string{
		"first_name": "Jane",
		"address":    "123 Main St",
		"city":       "Phoenix",
	}

	got := RenderTemplate("Hi {{first_name}}, interested in selling {{address}} in {{city}}?", fields)
	want := "Hi Jane, interested in selling 123 Main St in Phoenix?"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderTemplateUnknownPlaceholder(t *testing.T) {
	got := RenderTemplate("Hi {{first_name}}, about {{nonexistent}} your house", map[string]string{"first_name": "Bob"})
	want := "Hi Bob, about your house"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderTemplateWhitespaceInBraces(t *testing.T) {
	got := RenderTemplate("Hi {{ first_name }}", map[string]string{"first_name": "Ann"})
	if got != "Hi Ann" {
		t.Fatalf("got %q", got)
	}
}

func TestFirstName(t *testing.T) {
	cases := []struct {
		owner string
		want  string
	}{
		{"John Smith", "John"},
		{"SMITH, JOHN A", "John"},
		{"SMITH,JOHN", "John"},
		{"MARIA GARCIA-LOPEZ", "Maria"},
		{"ACME PROPERTIES LLC", "there"},
		{"THE SMITH FAMILY TRUST", "there"},
		{"ESTATE OF JANE DOE", "there"},
		{"", "there"},
	}
	for _, tc := range cases {
		if got := firstName(tc.owner); got != tc.want {
			t.Errorf("firstName(%q) = %q, want %q", tc.owner, got, tc.want)
		}
	}
}
