package domain_test

import (
	"booksummary/internal/domain"
	"testing"
)

func TestBookDisplayAuthor(t *testing.T) {
	known := domain.Book{Title: "Dune", Author: "Frank Herbert"}
	if !known.HasAuthor() {
		t.Fatalf("expected author to be known")
	}
	if got := known.DisplayAuthor(); got != "Frank Herbert" {
		t.Fatalf("unexpected author: got %q want %q", got, "Frank Herbert")
	}

	unknown := domain.Book{Title: "Dune"}
	if unknown.HasAuthor() {
		t.Fatalf("expected author to be unknown")
	}
	if got := unknown.DisplayAuthor(); got != "Unknown" {
		t.Fatalf("unexpected author: got %q want %q", got, "Unknown")
	}
}

func TestSummaryStatusString(t *testing.T) {
	tests := []struct {
		status domain.SummaryStatus
		want   string
	}{
		{domain.SummaryFound, "found"},
		{domain.SummaryNotFound, "not_found"},
		{domain.SummaryFailed, "failed"},
		{domain.SummaryStatus(42), "unknown"},
	}

	for _, test := range tests {
		if got := test.status.String(); got != test.want {
			t.Errorf("unexpected status string: got %q want %q", got, test.want)
		}
	}
}
