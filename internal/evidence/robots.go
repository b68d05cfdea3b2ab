package evidence

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/temoto/robotstxt"
)

// robotsCache holds robots.txt rules for the hosts seen during one Gather
// call. Unreachable or unparsable robots.txt allows everything.
type robotsCache struct {
	client    *http.Client
	userAgent string
	hosts     map[string]*robotstxt.RobotsData
	log       *slog.Logger
}

func newRobotsCache(client *http.Client, userAgent string, log *slog.Logger) *robotsCache {
	return &robotsCache{
		client:    client,
		userAgent: userAgent,
		hosts:     make(map[string]*robotstxt.RobotsData),
		log:       log,
	}
}

func (r *robotsCache) allowed(ctx context.Context, pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}

	key := u.Scheme + "://" + u.Host
	data, ok := r.hosts[key]
	if !ok {
		data = r.fetch(ctx, key)
		r.hosts[key] = data
	}
	if data == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	return data.TestAgent(path, r.userAgent)
}

func (r *robotsCache) fetch(ctx context.Context, origin string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req) //nolint:gosec // search result origin
	if err != nil {
		r.log.DebugContext(ctx, "Failed to fetch robots.txt",
			"error", err,
			"origin", origin)

		return nil
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			r.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"operation", "robots",
				"origin", origin)
		}
	}()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		r.log.DebugContext(ctx, "Failed to parse robots.txt",
			"error", err,
			"origin", origin)

		return nil
	}

	return data
}
