package evidence

import (
	"net/url"
	"regexp"
	"strings"

	"mvdan.cc/xurls/v2"
)

var (
	httpURLRe = mustHTTPURLRe()

	adHostSuffixes = []string{
		"doubleclick.net",
		"googleadservices.com",
		"googlesyndication.com",
		"adservice.google.com",
		"bat.bing.com",
		"ads.yahoo.com",
		"amazon-adsystem.com",
		"taboola.com",
		"outbrain.com",
	}

	adQueryParams = []string{"ad_domain", "ad_provider", "ad_type", "gclid", "msclkid"}
)

func mustHTTPURLRe() *regexp.Regexp {
	re, err := xurls.StrictMatchingScheme(`https?://`)
	if err != nil {
		panic(err)
	}
	return re
}

// normalizeCandidate returns an absolute http(s) URL without fragment.
func normalizeCandidate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !httpURLRe.MatchString(raw) {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return "", false
	}

	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), true
}

// IsAd reports whether rawURL looks like a sponsored result or an ad
// network click-through rather than a content page.
func IsAd(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	for _, suffix := range adHostSuffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}

	path := strings.ToLower(u.Path)
	if isDuckDuckGoHost(host) && path == "/y.js" {
		return true
	}
	if strings.HasPrefix(path, "/aclk") || strings.Contains(path, "/pagead/") {
		return true
	}

	query := u.Query()
	for _, param := range adQueryParams {
		if query.Has(param) {
			return true
		}
	}

	return false
}

func isDuckDuckGoHost(host string) bool {
	return host == "duckduckgo.com" || strings.HasSuffix(host, ".duckduckgo.com")
}
