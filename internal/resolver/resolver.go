package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"dealfeed/internal/config"
	"dealfeed/internal/scraper"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ErrInvalidURL reports input that is not a resolvable marketplace
// product URL. Callers must not proceed to extraction.
var ErrInvalidURL = errors.New("not a valid marketplace product URL")

// asinPattern matches the product-id marker in a URL path: a /dp/ or
// /gp/product/ segment followed by a 10-character ASIN.
var asinPattern = regexp.MustCompile(`/(?:dp|gp/product)/([A-Z0-9]{10})`)

var asinShape = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// Resolved is a validated, canonicalized product reference.
type Resolved struct {
	URL  string
	ASIN string
}

// Resolver validates product references and expands short links to
// their terminal product-page form.
type Resolver struct {
	cfg    config.ScraperConfig
	client *http.Client
	logger *zap.Logger
}

func New(cfg config.ScraperConfig, logger *zap.Logger) *Resolver {
	return &Resolver{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		logger: logger,
	}
}

// WithClient replaces the HTTP client used for short-link expansion.
func (r *Resolver) WithClient(client *http.Client) *Resolver {
	r.client = client
	return r
}

// Resolve validates rawURL and returns its canonical product-page
// form together with the extracted ASIN. Short links are expanded by
// following redirects; campaign landing pages are unwrapped via their
// canonical link, social-metadata URL, or first product anchor, in
// that order.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (Resolved, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return Resolved{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	target := parsed.String()
	if r.isShortLink(parsed.Hostname()) {
		expanded, err := r.expand(ctx, target)
		if err != nil {
			r.logger.Warn("Short link expansion failed", zap.String("url", target), zap.Error(err))
		} else {
			target = expanded
		}
		if parsed, err = url.Parse(target); err != nil {
			return Resolved{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
		}
	}

	host := parsed.Hostname()
	if !r.isMarketplace(host) && !r.isShortLink(host) {
		return Resolved{}, fmt.Errorf("%w: unsupported host %q", ErrInvalidURL, host)
	}

	asin := extractASIN(parsed)
	if asin == "" {
		return Resolved{}, fmt.Errorf("%w: no product id in %q", ErrInvalidURL, target)
	}

	r.logger.Info("Resolved product URL", zap.String("url", target), zap.String("asin", asin))
	return Resolved{URL: target, ASIN: asin}, nil
}

// expand follows redirects to the terminal URL. Campaign and mission
// landing pages wrap the product link instead of redirecting to it,
// so those are unwrapped from the page body.
func (r *Resolver) expand(ctx context.Context, shortURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shortURL, nil)
	if err != nil {
		return "", err
	}
	for k, v := range scraper.Headers() {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to expand short link: %w", err)
	}
	defer resp.Body.Close()

	terminal := resp.Request.URL
	if !isCampaignPage(terminal) {
		return terminal.String(), nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return terminal.String(), nil
	}
	if product := r.productLinkFromPage(doc); product != "" {
		return product, nil
	}
	return terminal.String(), nil
}

// productLinkFromPage tries, in priority order: the canonical link
// tag, the og:url metadata tag, and finally any anchor carrying a
// product-id marker. Relative links are joined onto the configured
// marketplace base URL.
func (r *Resolver) productLinkFromPage(doc *goquery.Document) string {
	if href, ok := doc.Find("link[rel='canonical']").First().Attr("href"); ok {
		if asinPattern.MatchString(href) {
			return r.absolutize(href)
		}
	}

	if content, ok := doc.Find("meta[property='og:url']").First().Attr("content"); ok {
		if asinPattern.MatchString(content) {
			return r.absolutize(content)
		}
	}

	found := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !strings.Contains(href, "/dp/") {
			return true
		}
		if abs := r.absolutize(href); abs != "" {
			found = abs
			return false
		}
		return true
	})
	return found
}

// absolutize joins a page-relative link onto the marketplace base URL.
// Absolute links pass through untouched.
func (r *Resolver) absolutize(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return href
	}
	base, err := url.Parse(r.cfg.BaseURL)
	if err != nil || base.Host == "" {
		return ""
	}
	return base.ResolveReference(u).String()
}

func isCampaignPage(u *url.URL) bool {
	s := u.String()
	return strings.Contains(s, "mission") || strings.Contains(s, "campaign")
}

// extractASIN pulls the product id from the path first, then from
// query parameters.
func extractASIN(u *url.URL) string {
	if m := asinPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	if asin := u.Query().Get("asin"); asinShape.MatchString(asin) {
		return asin
	}
	return ""
}

func (r *Resolver) isMarketplace(host string) bool {
	return hostMatches(host, r.cfg.MarketplaceDomains)
}

func (r *Resolver) isShortLink(host string) bool {
	return hostMatches(host, r.cfg.ShortLinkDomains)
}

func hostMatches(host string, domains []string) bool {
	host = strings.ToLower(host)
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
