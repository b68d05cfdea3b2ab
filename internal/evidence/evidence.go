package evidence

import (
	"booksummary/internal/config"
	"booksummary/internal/domain"
	"booksummary/internal/pacer"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	querySuffix         = " book summary"
	defaultFetchTimeout = 5 * time.Second
	defaultCandidates   = 10
	maxPageBytes        = 4 << 20
)

var (
	ErrEmptyQuery        = errors.New("query is empty")
	ErrInvalidMaxResults = errors.New("maxResults must be at least 1")

	errEmptyPage = errors.New("no paragraph text")
)

// Candidate is a search hit in engine rank order.
type Candidate struct {
	URL string
	Ad  bool
}

type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
}

type Options struct {
	// Candidates is how many results to request from the search engine.
	Candidates    int
	FetchTimeout  time.Duration
	UserAgent     string
	RespectRobots bool
	Pacer         *pacer.Pacer
}

// Provider gathers paragraph text from the pages a search engine returns.
type Provider struct {
	searcher      Searcher
	client        *http.Client
	pacer         *pacer.Pacer
	userAgent     string
	candidates    int
	respectRobots bool
	log           *slog.Logger
}

func New(searcher Searcher, opts Options, log *slog.Logger) *Provider {
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}

	candidates := opts.Candidates
	if candidates <= 0 {
		candidates = defaultCandidates
	}

	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = userAgent
	}

	return &Provider{
		searcher:      searcher,
		client:        &http.Client{Timeout: fetchTimeout},
		pacer:         opts.Pacer,
		userAgent:     ua,
		candidates:    candidates,
		respectRobots: opts.RespectRobots,
		log:           log,
	}
}

func NewFromConfig(cfg config.Config, log *slog.Logger) *Provider {
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = userAgent
	}

	searchClient := &http.Client{Timeout: cfg.FetchTimeout}

	var searcher Searcher
	switch cfg.SearchEngine {
	case config.SearchEngineBing:
		searcher = NewBingRSS(searchClient, ua)
	default:
		searcher = NewDuckDuckGo(searchClient, ua, log)
	}

	return New(searcher, Options{
		Candidates:    cfg.SearchCandidates,
		FetchTimeout:  cfg.FetchTimeout,
		UserAgent:     ua,
		RespectRobots: cfg.RespectRobots,
		Pacer:         pacer.New(cfg.PaceMin, cfg.PaceMax),
	}, log)
}

// Gather searches for "{query} book summary" and returns up to maxResults
// items. Failing candidates are logged and skipped, so an empty set is a
// normal result. The error is non-nil only for invalid arguments or a done
// ctx; in the latter case the items collected so far are returned too.
func (p *Provider) Gather(
	ctx context.Context,
	query string,
	maxResults int,
) (domain.EvidenceSet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if maxResults < 1 {
		return nil, fmt.Errorf("%w (maxResults = %d)", ErrInvalidMaxResults, maxResults)
	}

	searchQuery := query + querySuffix

	candidates, err := p.searcher.Search(ctx, searchQuery, max(p.candidates, maxResults))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.EvidenceSet{}, ctxErr
		}

		p.log.WarnContext(ctx, "Failed to search",
			"error", err,
			"query", searchQuery)

		return domain.EvidenceSet{}, nil
	}

	var robots *robotsCache
	if p.respectRobots {
		robots = newRobotsCache(p.client, p.userAgent, p.log)
	}

	set := make(domain.EvidenceSet, 0, min(maxResults, len(candidates)))
	seen := make(map[string]struct{}, len(candidates))
	attempts := 0
	var errs []error

	for _, candidate := range candidates {
		if len(set) >= maxResults {
			break
		}

		pageURL, ok := normalizeCandidate(candidate.URL)
		if !ok {
			continue
		}
		if _, dup := seen[pageURL]; dup {
			continue
		}
		seen[pageURL] = struct{}{}

		if candidate.Ad || IsAd(pageURL) {
			p.log.DebugContext(ctx, "Skipping ad",
				"url", pageURL)

			continue
		}

		if robots != nil && !robots.allowed(ctx, pageURL) {
			p.log.InfoContext(ctx, "Skipping URL disallowed by robots.txt",
				"url", pageURL)

			continue
		}

		if attempts > 0 {
			if err = p.pacer.Wait(ctx); err != nil {
				return set, err
			}
		}
		attempts++

		item, fetchErr := p.fetch(ctx, pageURL)
		if fetchErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return set, ctxErr
			}

			p.log.WarnContext(ctx, "Failed to fetch evidence",
				"error", fetchErr,
				"url", pageURL)

			errs = append(errs, fmt.Errorf("fetch %s: %w", pageURL, fetchErr))
			continue
		}

		set = append(set, item)
	}

	p.log.InfoContext(ctx, "Evidence is gathered",
		"query", searchQuery,
		"candidates", len(candidates),
		"attempts", attempts,
		"items", len(set),
		"failures", len(errs))
	if len(errs) > 0 {
		p.log.DebugContext(ctx, "Evidence failures",
			"error", errors.Join(errs...))
	}

	return set, nil
}

func (p *Provider) fetch(ctx context.Context, pageURL string) (domain.EvidenceItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.EvidenceItem{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.client.Do(req) //nolint:gosec // search result URL
	if err != nil {
		return domain.EvidenceItem{}, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			p.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"operation", "fetch",
				"url", pageURL)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return domain.EvidenceItem{}, fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	if contentType := resp.Header.Get("Content-Type"); contentType != "" && !strings.Contains(contentType, "html") {
		return domain.EvidenceItem{}, fmt.Errorf("unexpected content type: %s", contentType)
	}

	text, err := ExtractParagraphs(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return domain.EvidenceItem{}, fmt.Errorf("extract paragraphs: %w", err)
	}
	if text == "" {
		return domain.EvidenceItem{}, errEmptyPage
	}

	return domain.EvidenceItem{URL: pageURL, Text: text}, nil
}

func resolveURL(base *url.URL, ref string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, err
	}
	if base != nil && !u.IsAbs() {
		u = base.ResolveReference(u)
	}
	return u, nil
}
