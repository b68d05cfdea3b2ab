package evidence

import (
	"net/url"
	"testing"
)

func TestNormalizeCandidate(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"Plain https", "https://example.com/dune", "https://example.com/dune", true},
		{"Trims and drops fragment", "  https://example.com/dune#plot ", "https://example.com/dune", true},
		{"Keeps query", "http://example.com/s?id=1", "http://example.com/s?id=1", true},
		{"Relative", "/dune", "", false},
		{"Other scheme", "ftp://example.com/dune", "", false},
		{"Empty", "   ", "", false},
		{"Missing host", "https://", "", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, ok := normalizeCandidate(test.raw)
			if ok != test.wantOK {
				t.Fatalf("unexpected ok: got %v want %v", ok, test.wantOK)
			}
			if got != test.want {
				t.Fatalf("unexpected URL: got %q want %q", got, test.want)
			}
		})
	}
}

func TestIsAd(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.goodreads.com/book/show/44767458-dune", false},
		{"https://www.supersummary.com/dune/summary/", false},
		{"https://en.wikipedia.org/wiki/Dune_(novel)", false},
		{"https://reader.example.com/articles/adventure", false},
		{"https://duckduckgo.com/y.js?ad_domain=example.com&u3=x", true},
		{"https://ad.doubleclick.net/ddm/clk/123", true},
		{"https://www.googleadservices.com/pagead/aclk?sa=L", true},
		{"https://www.google.com/aclk?sa=l&ai=abc", true},
		{"https://shop.example.com/dune?gclid=abc", true},
		{"https://shop.example.com/dune?msclkid=abc", true},
	}

	for _, test := range tests {
		if got := IsAd(test.url); got != test.want {
			t.Errorf("IsAd(%q): got %v want %v", test.url, got, test.want)
		}
	}
}

func TestUnwrapDuckDuckGoHref(t *testing.T) {
	base, err := url.Parse(duckDuckGoEndpoint)
	if err != nil {
		t.Fatalf("parse base: %v", err)
	}

	tests := []struct {
		name   string
		href   string
		want   string
		wantAd bool
		wantOK bool
	}{
		{
			"Redirect",
			"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fdune&rut=abc",
			"https://example.com/dune",
			false,
			true,
		},
		{
			"Direct link",
			"https://example.com/dune",
			"https://example.com/dune",
			false,
			true,
		},
		{
			"Sponsored",
			"https://duckduckgo.com/y.js?ad_domain=shop.example&u3=x",
			"https://duckduckgo.com/y.js?ad_domain=shop.example&u3=x",
			true,
			true,
		},
		{
			"Redirect without target",
			"/l/?rut=abc",
			"",
			false,
			false,
		},
		{
			"Internal page",
			"/settings",
			"",
			false,
			false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, ad, ok := unwrapDuckDuckGoHref(base, test.href)
			if ok != test.wantOK {
				t.Fatalf("unexpected ok: got %v want %v", ok, test.wantOK)
			}
			if ad != test.wantAd {
				t.Fatalf("unexpected ad flag: got %v want %v", ad, test.wantAd)
			}
			if got != test.want {
				t.Fatalf("unexpected target: got %q want %q", got, test.want)
			}
		})
	}
}
