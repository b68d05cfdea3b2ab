package evidence_test

import (
	"booksummary/internal/evidence"
	"booksummary/internal/pacer"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type stubSearcher struct {
	mu         sync.Mutex
	candidates []evidence.Candidate
	err        error
	queries    []string
	limits     []int
}

func (s *stubSearcher) Search(
	_ context.Context,
	query string,
	limit int,
) ([]evidence.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries = append(s.queries, query)
	s.limits = append(s.limits, limit)

	return s.candidates, s.err
}

type pageServer struct {
	*httptest.Server

	mu   sync.Mutex
	hits map[string]int
	at   map[string]time.Time
}

func newPageServer(t *testing.T) *pageServer {
	t.Helper()

	ps := &pageServer{
		hits: make(map[string]int),
		at:   make(map[string]time.Time),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/summary-1", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><p>Dune follows Paul Atreides.</p></body></html>`))
	})
	mux.HandleFunc("/summary-2", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>The spice must flow.</p></body></html>`))
	})
	mux.HandleFunc("/summary-3", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>Arrakis is a desert planet.</p></body></html>`))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><div>No paragraphs here</div></body></html>`))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	})
	mux.HandleFunc("/pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(300 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>Too late.</p></body></html>`))
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /summary-2\n"))
	})

	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		ps.hits[r.URL.Path]++
		ps.at[r.URL.Path] = time.Now()
		ps.mu.Unlock()

		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(ps.Close)

	return ps
}

func (ps *pageServer) hitCount(path string) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	return ps.hits[path]
}

func (ps *pageServer) hitTime(path string) time.Time {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	return ps.at[path]
}

func (ps *pageServer) candidate(path string) evidence.Candidate {
	return evidence.Candidate{URL: ps.URL + path}
}

func newProvider(searcher evidence.Searcher, opts evidence.Options) *evidence.Provider {
	return evidence.New(searcher, opts, slog.Default())
}

func TestGatherCollectsInDiscoveryOrder(t *testing.T) {
	ps := newPageServer(t)
	searcher := &stubSearcher{candidates: []evidence.Candidate{
		ps.candidate("/missing"),
		ps.candidate("/summary-1"),
		ps.candidate("/empty"),
		ps.candidate("/pdf"),
		ps.candidate("/summary-2"),
	}}

	set, err := newProvider(searcher, evidence.Options{}).Gather(context.Background(), " Dune ", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(set) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(set), set)
	}
	if set[0].URL != ps.URL+"/summary-1" || set[0].Text != "Dune follows Paul Atreides." {
		t.Fatalf("unexpected first item: %+v", set[0])
	}
	if set[1].URL != ps.URL+"/summary-2" || set[1].Text != "The spice must flow." {
		t.Fatalf("unexpected second item: %+v", set[1])
	}

	if len(searcher.queries) != 1 || searcher.queries[0] != "Dune book summary" {
		t.Fatalf("unexpected search queries: %v", searcher.queries)
	}
}

func TestGatherStopsAtMaxResults(t *testing.T) {
	ps := newPageServer(t)
	searcher := &stubSearcher{candidates: []evidence.Candidate{
		ps.candidate("/summary-1"),
		ps.candidate("/summary-2"),
		ps.candidate("/summary-3"),
	}}

	set, err := newProvider(searcher, evidence.Options{Candidates: 3}).Gather(context.Background(), "Dune", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(set) != 2 {
		t.Fatalf("expected 2 items, got %d", len(set))
	}
	if got := ps.hitCount("/summary-3"); got != 0 {
		t.Fatalf("expected no fetch after reaching maxResults, got %d", got)
	}
}

func TestGatherRequestsAtLeastMaxResultsCandidates(t *testing.T) {
	searcher := &stubSearcher{}

	if _, err := newProvider(searcher, evidence.Options{Candidates: 3}).Gather(context.Background(), "Dune", 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(searcher.limits) != 1 || searcher.limits[0] != 7 {
		t.Fatalf("unexpected search limits: %v", searcher.limits)
	}
}

func TestGatherSkipsAdsAndDuplicates(t *testing.T) {
	ps := newPageServer(t)
	searcher := &stubSearcher{candidates: []evidence.Candidate{
		{URL: ps.URL + "/summary-3", Ad: true},
		{URL: ps.URL + "/summary-1?gclid=abc"},
		ps.candidate("/summary-1"),
		{URL: ps.URL + "/summary-1#plot"},
		{URL: "not a url"},
	}}

	set, err := newProvider(searcher, evidence.Options{}).Gather(context.Background(), "Dune", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(set) != 1 {
		t.Fatalf("expected 1 item, got %d: %+v", len(set), set)
	}
	if got := ps.hitCount("/summary-3"); got != 0 {
		t.Fatalf("expected ad not to be fetched, got %d hits", got)
	}
	if got := ps.hitCount("/summary-1"); got != 1 {
		t.Fatalf("expected duplicate URL to be fetched once, got %d hits", got)
	}
}

func TestGatherEmptyIsNotAnError(t *testing.T) {
	ps := newPageServer(t)

	tests := []struct {
		name     string
		searcher *stubSearcher
	}{
		{"No candidates", &stubSearcher{}},
		{"Only failures", &stubSearcher{candidates: []evidence.Candidate{
			ps.candidate("/missing"),
			ps.candidate("/empty"),
		}}},
		{"Search failure", &stubSearcher{err: errors.New("blocked")}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			set, err := newProvider(test.searcher, evidence.Options{}).Gather(context.Background(), "Obscure Title", 10)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if set == nil || len(set) != 0 {
				t.Fatalf("expected empty non-nil set, got %#v", set)
			}
		})
	}
}

func TestGatherInvalidArguments(t *testing.T) {
	p := newProvider(&stubSearcher{}, evidence.Options{})
	ctx := context.Background()

	if _, err := p.Gather(ctx, "  ", 10); !errors.Is(err, evidence.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	if _, err := p.Gather(ctx, "Dune", 0); !errors.Is(err, evidence.ErrInvalidMaxResults) {
		t.Fatalf("expected ErrInvalidMaxResults, got %v", err)
	}
}

func TestGatherCancelledContext(t *testing.T) {
	ps := newPageServer(t)
	searcher := &stubSearcher{candidates: []evidence.Candidate{
		ps.candidate("/summary-1"),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	set, err := newProvider(searcher, evidence.Options{}).Gather(ctx, "Dune", 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(set) != 0 {
		t.Fatalf("expected no items, got %+v", set)
	}
}

func TestGatherRespectsRobots(t *testing.T) {
	ps := newPageServer(t)
	searcher := &stubSearcher{candidates: []evidence.Candidate{
		ps.candidate("/summary-2"),
		ps.candidate("/summary-1"),
	}}

	set, err := newProvider(searcher, evidence.Options{RespectRobots: true}).Gather(context.Background(), "Dune", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(set) != 1 || set[0].URL != ps.URL+"/summary-1" {
		t.Fatalf("unexpected items: %+v", set)
	}
	if got := ps.hitCount("/summary-2"); got != 0 {
		t.Fatalf("expected disallowed page not to be fetched, got %d hits", got)
	}
	if got := ps.hitCount("/robots.txt"); got != 1 {
		t.Fatalf("expected robots.txt to be fetched once, got %d", got)
	}
}

func TestGatherSkipsSlowPage(t *testing.T) {
	ps := newPageServer(t)
	searcher := &stubSearcher{candidates: []evidence.Candidate{
		ps.candidate("/slow"),
		ps.candidate("/summary-1"),
		ps.candidate("/summary-2"),
	}}

	provider := newProvider(searcher, evidence.Options{FetchTimeout: 100 * time.Millisecond})

	set, err := provider.Gather(context.Background(), "Dune", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(set) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(set), set)
	}
	if set[0].URL != ps.URL+"/summary-1" || set[1].URL != ps.URL+"/summary-2" {
		t.Fatalf("unexpected items: %+v", set)
	}
	if got := ps.hitCount("/slow"); got != 1 {
		t.Fatalf("expected slow page to be attempted once, got %d", got)
	}
}

func TestGatherPacesBetweenAttempts(t *testing.T) {
	const delay = 50 * time.Millisecond

	ps := newPageServer(t)
	searcher := &stubSearcher{candidates: []evidence.Candidate{
		ps.candidate("/summary-1"),
		ps.candidate("/missing"),
		ps.candidate("/summary-2"),
	}}

	provider := newProvider(searcher, evidence.Options{Pacer: pacer.New(delay, delay)})

	start := time.Now()
	set, err := provider.Gather(context.Background(), "Dune", 10)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(set), set)
	}

	if elapsed < 2*delay {
		t.Fatalf("expected two pacing waits for three attempts, elapsed %v", elapsed)
	}
	if first := ps.hitTime("/summary-1").Sub(start); first >= delay {
		t.Fatalf("expected no wait before the first attempt, got %v", first)
	}

	paths := []string{"/summary-1", "/missing", "/summary-2"}
	for i := 1; i < len(paths); i++ {
		gap := ps.hitTime(paths[i]).Sub(ps.hitTime(paths[i-1]))
		if gap < delay {
			t.Fatalf("expected at least %v between %s and %s, got %v", delay, paths[i-1], paths[i], gap)
		}
	}
}

func TestGatherStopsPacingOnCancel(t *testing.T) {
	ps := newPageServer(t)
	searcher := &stubSearcher{candidates: []evidence.Candidate{
		ps.candidate("/summary-1"),
		ps.candidate("/summary-2"),
	}}

	provider := newProvider(searcher, evidence.Options{Pacer: pacer.New(time.Minute, time.Minute)})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	set, err := provider.Gather(ctx, "Dune", 10)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if len(set) != 1 || set[0].URL != ps.URL+"/summary-1" {
		t.Fatalf("expected the item collected before the wait, got %+v", set)
	}
	if got := ps.hitCount("/summary-2"); got != 0 {
		t.Fatalf("expected second page not to be fetched, got %d hits", got)
	}
}
