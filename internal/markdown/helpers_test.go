package markdown_test

import (
	"booksummary/internal/markdown"
	"testing"
)

func TestEscapeV2(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dune", "Dune"},
		{"Sorry, I couldn't find a summary for 'Dune'.", `Sorry, I couldn't find a summary for 'Dune'\.`},
		{"Hmm... (maybe)", `Hmm\.\.\. \(maybe\)`},
		{"a_b*c[d]", `a\_b\*c\[d\]`},
		{`C:\path`, `C:\\path`},
		{"Élan vital… ok!", `Élan vital… ok\!`},
	}

	for _, test := range tests {
		if got := markdown.EscapeV2(test.in); got != test.want {
			t.Fatalf("unexpected escape for %q: got %q want %q", test.in, got, test.want)
		}
	}
}

func TestBold(t *testing.T) {
	if got, want := markdown.Bold("Title: Dune"), `*Title: Dune*`; got != want {
		t.Fatalf("unexpected bold: got %q want %q", got, want)
	}
	if got, want := markdown.Bold("v1.0"), `*v1\.0*`; got != want {
		t.Fatalf("unexpected bold: got %q want %q", got, want)
	}
}
