package scraper

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"dealfeed/internal/config"
	"dealfeed/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ErrExtractionFailed reports that the product page could not be
// fetched or parsed after every retry. The page may be blocked,
// removed, or out of stock.
var ErrExtractionFailed = errors.New("product extraction failed")

// Extractor fetches product pages and pulls structured fields out of
// them.
type Extractor struct {
	cfg    config.ScraperConfig
	logger *zap.Logger

	// newClient builds a fresh client per attempt so retries do not
	// share cookies or keep-alive connections with a blocked fetch.
	newClient func() *http.Client
}

func NewExtractor(cfg config.ScraperConfig, logger *zap.Logger) *Extractor {
	return &Extractor{
		cfg:    cfg,
		logger: logger,
		newClient: func() *http.Client {
			return &http.Client{Timeout: cfg.RequestTimeout}
		},
	}
}

// WithClientFactory replaces the per-attempt client constructor.
func (e *Extractor) WithClientFactory(factory func() *http.Client) *Extractor {
	e.newClient = factory
	return e
}

// Extract fetches pageURL and returns the scraped product fields.
// The affiliate tag is appended before fetching so the stored link is
// already monetized. Title and price are mandatory; a page yielding
// neither counts as a failed attempt.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (domain.ProductFields, error) {
	target := withAffiliateTag(pageURL, e.cfg.AffiliateTag)

	attempts := e.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, retryDelay(attempt-1, e.cfg.RetryBackoffUnit)); err != nil {
				return domain.ProductFields{}, err
			}
		}

		fields, err := e.attempt(ctx, target)
		if err == nil {
			e.logger.Info("Extracted product",
				zap.String("title", fields.Title),
				zap.String("price", fields.Price),
				zap.Int("attempt", attempt))
			return fields, nil
		}
		if ctx.Err() != nil {
			return domain.ProductFields{}, ctx.Err()
		}

		lastErr = err
		e.logger.Warn("Extraction attempt failed",
			zap.String("url", target),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	return domain.ProductFields{}, fmt.Errorf("%w after %d attempts: %v", ErrExtractionFailed, attempts, lastErr)
}

func (e *Extractor) attempt(ctx context.Context, target string) (domain.ProductFields, error) {
	// A short randomized pause before each fetch keeps the request
	// cadence away from obvious automation patterns.
	if err := sleepCtx(ctx, randDuration(e.cfg.FetchDelayMin, e.cfg.FetchDelayMax)); err != nil {
		return domain.ProductFields{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return domain.ProductFields{}, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range Headers() {
		req.Header.Set(k, v)
	}

	resp, err := e.newClient().Do(req)
	if err != nil {
		return domain.ProductFields{}, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.ProductFields{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.ProductFields{}, fmt.Errorf("failed to parse page: %w", err)
	}

	return e.extractFields(doc, resp.Request.URL, target)
}

func (e *Extractor) extractFields(doc *goquery.Document, page *url.URL, link string) (domain.ProductFields, error) {
	title := firstMatch(doc, titleChain)
	price := CleanPrice(firstMatch(doc, priceChain), e.cfg.CurrencySymbol)
	if title == "" || price == "" {
		return domain.ProductFields{}, fmt.Errorf("page missing title or price")
	}

	original := CleanPrice(firstMatch(doc, originalPriceChain), e.cfg.CurrencySymbol)

	fields := domain.ProductFields{
		Title: title,
		Price: price,
		Details: domain.ProductDetails{
			OriginalPrice: original,
			Discount:      Discount(price, original),
			Rating:        parseRating(firstMatch(doc, ratingChain)),
			Reviews:       parseCount(firstMatch(doc, reviewCountChain)),
			Description:   firstMatch(doc, descriptionChain),
			Features:      extractFeatures(doc),
			ImageURL:      extractImage(doc, page),
			Link:          link,
		},
	}
	return fields, nil
}

// withAffiliateTag appends the tag parameter unless the URL already
// carries one.
func withAffiliateTag(pageURL, tag string) string {
	if tag == "" {
		return pageURL
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	q := u.Query()
	if q.Get("tag") != "" {
		return pageURL
	}
	q.Set("tag", tag)
	u.RawQuery = q.Encode()
	return u.String()
}

// retryDelay spreads the wait after the n-th failed attempt over
// [3n, 6n] backoff units.
func retryDelay(n int, unit time.Duration) time.Duration {
	lo, hi := 3*n, 6*n
	return time.Duration(lo+rand.Intn(hi-lo+1)) * unit
}

func randDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
