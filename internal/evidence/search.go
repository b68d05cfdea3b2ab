package evidence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const (
	duckDuckGoEndpoint = "https://html.duckduckgo.com/html/"
	bingEndpoint       = "https://www.bing.com/search"
)

// DuckDuckGo scrapes the no-JavaScript HTML results page.
type DuckDuckGo struct {
	endpoint  string
	client    *http.Client
	userAgent string
	log       *slog.Logger
}

func NewDuckDuckGo(client *http.Client, userAgent string, log *slog.Logger) *DuckDuckGo {
	return &DuckDuckGo{
		endpoint:  duckDuckGoEndpoint,
		client:    client,
		userAgent: userAgent,
		log:       log,
	}
}

func (d *DuckDuckGo) Search(
	ctx context.Context,
	query string,
	limit int,
) ([]Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	endpoint, err := url.Parse(d.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	endpoint.RawQuery = url.Values{"q": {query}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"operation", "search",
				"query", query)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("create document from reader: %w", err)
	}

	return parseDuckDuckGoResults(doc, endpoint, limit), nil
}

func parseDuckDuckGoResults(doc *goquery.Document, base *url.URL, limit int) []Candidate {
	var candidates []Candidate
	organic := 0

	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if limit > 0 && organic >= limit {
			return false
		}

		href, ok := s.Find("a.result__a").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}

		ad := s.HasClass("result--ad") || s.HasClass("result--ad--small")

		target, redirectAd, ok := unwrapDuckDuckGoHref(base, href)
		if !ok {
			return true
		}

		candidates = append(candidates, Candidate{URL: target, Ad: ad || redirectAd})
		if !ad && !redirectAd {
			organic++
		}

		return true
	})

	return candidates
}

// unwrapDuckDuckGoHref resolves /l/?uddg= redirects to their target.
// Links through /y.js are sponsored.
func unwrapDuckDuckGoHref(base *url.URL, href string) (string, bool, bool) {
	u, err := resolveURL(base, href)
	if err != nil {
		return "", false, false
	}

	if !isDuckDuckGoHost(strings.ToLower(u.Hostname())) {
		return u.String(), false, true
	}

	switch strings.TrimSuffix(u.Path, "/") {
	case "/l":
		target := strings.TrimSpace(u.Query().Get("uddg"))
		if target == "" {
			return "", false, false
		}
		return target, false, true
	case "/y.js":
		return u.String(), true, true
	default:
		return "", false, false
	}
}

// BingRSS reads Bing's RSS rendering of a web search.
type BingRSS struct {
	endpoint string
	parser   *gofeed.Parser
}

func NewBingRSS(client *http.Client, userAgent string) *BingRSS {
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent

	return &BingRSS{
		endpoint: bingEndpoint,
		parser:   parser,
	}
}

func (b *BingRSS) Search(
	ctx context.Context,
	query string,
	limit int,
) ([]Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	endpoint, err := url.Parse(b.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	values := url.Values{
		"q":      {query},
		"format": {"rss"},
	}
	if limit > 0 {
		values.Set("count", strconv.Itoa(limit))
	}
	endpoint.RawQuery = values.Encode()

	feed, err := b.parser.ParseURLWithContext(endpoint.String(), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	if feed == nil {
		return nil, errors.New("parse feed: empty feed")
	}

	candidates := make([]Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if limit > 0 && len(candidates) >= limit {
			break
		}

		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}

		candidates = append(candidates, Candidate{URL: link})
	}

	return candidates, nil
}
