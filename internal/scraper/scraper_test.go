package scraper

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"dealfeed/internal/config"

	"go.uber.org/zap"
)

func testConfig() config.ScraperConfig {
	return config.ScraperConfig{
		AffiliateTag:     "test-21",
		CurrencySymbol:   "₹",
		MaxAttempts:      3,
		FetchDelayMin:    0,
		FetchDelayMax:    time.Millisecond,
		RetryBackoffUnit: time.Millisecond,
		RequestTimeout:   5 * time.Second,
	}
}

const productPage = `
<html><body>
  <span id="productTitle"> Wipro 9W Smart LED Bulb </span>
  <span class="a-price"><span class="a-offscreen">₹499.00</span></span>
  <span class="a-text-strike">₹999.00</span>
  <span data-hook="rating-out-of-text">4.3 out of 5</span>
  <span id="acrCustomerReviewText">1,205 ratings</span>
  <div id="feature-bullets">
    <span class="a-list-item">Works with Alexa and Google Assistant</span>
    <span class="a-list-item">16 million colors</span>
    <span class="a-list-item">ok</span>
    <span class="a-list-item">9W brightness, B22 holder</span>
  </div>
  <img id="landingImage" src="/images/I/41x._SL160_.jpg" data-old-hires="https://m.media.example/images/I/41x._SL1500_.jpg"/>
</body></html>`

func TestExtractProductPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tag") != "test-21" {
			t.Errorf("fetch missing affiliate tag, got query %q", r.URL.RawQuery)
		}
		w.Write([]byte(productPage))
	}))
	defer srv.Close()

	extractor := NewExtractor(testConfig(), zap.NewNop())

	fields, err := extractor.Extract(context.Background(), srv.URL+"/dp/B09TEST123")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if fields.Title != "Wipro 9W Smart LED Bulb" {
		t.Errorf("unexpected title %q", fields.Title)
	}
	if fields.Price != "₹499.00" {
		t.Errorf("unexpected price %q", fields.Price)
	}
	if fields.Details.OriginalPrice != "₹999.00" {
		t.Errorf("unexpected original price %q", fields.Details.OriginalPrice)
	}
	if fields.Details.Discount != "50%" {
		t.Errorf("unexpected discount %q", fields.Details.Discount)
	}
	if fields.Details.Rating != "4.3" {
		t.Errorf("unexpected rating %q", fields.Details.Rating)
	}
	if fields.Details.Reviews != "1,205" {
		t.Errorf("unexpected review count %q", fields.Details.Reviews)
	}
	if len(fields.Details.Features) != 3 {
		t.Errorf("expected 3 usable features, got %v", fields.Details.Features)
	}
	if fields.Details.ImageURL != "https://m.media.example/images/I/41x._SL1500_.jpg" {
		t.Errorf("unexpected image %q", fields.Details.ImageURL)
	}
	if !strings.Contains(fields.Details.Link, "tag=test-21") {
		t.Errorf("stored link not monetized: %q", fields.Details.Link)
	}
}

func TestExtractRetriesAreBounded(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	extractor := NewExtractor(testConfig(), zap.NewNop())

	_, err := extractor.Extract(context.Background(), srv.URL+"/dp/B09TEST123")
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("expected exactly 3 fetch attempts, got %d", got)
	}
}

func TestExtractMissingPriceFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><span id="productTitle">Ghost Item</span></body></html>`))
	}))
	defer srv.Close()

	extractor := NewExtractor(testConfig(), zap.NewNop())

	_, err := extractor.Extract(context.Background(), srv.URL+"/dp/B09TEST123")
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtractCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	extractor := NewExtractor(testConfig(), zap.NewNop())
	if _, err := extractor.Extract(ctx, srv.URL+"/dp/B09TEST123"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWithAffiliateTag(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"appends tag", "https://www.amazon.in/dp/B09X", "tag=test-21"},
		{"keeps existing tag", "https://www.amazon.in/dp/B09X?tag=other-21", "tag=other-21"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := withAffiliateTag(tt.in, "test-21")
			u, err := url.Parse(got)
			if err != nil {
				t.Fatalf("result not a URL: %v", err)
			}
			if !strings.Contains(u.RawQuery, tt.want) {
				t.Errorf("expected query to contain %q, got %q", tt.want, u.RawQuery)
			}
		})
	}
}

func TestHeadersLookLikeABrowser(t *testing.T) {
	h := Headers()
	if !strings.Contains(h["User-Agent"], "Mozilla/5.0") {
		t.Errorf("unexpected user agent %q", h["User-Agent"])
	}
	if h["Accept-Language"] == "" {
		t.Error("missing Accept-Language")
	}
	// A hand-set Accept-Encoding disables the transport's automatic
	// gzip decompression; the transport must own this header.
	if _, ok := h["Accept-Encoding"]; ok {
		t.Error("Accept-Encoding must be left to the transport")
	}
}

func TestExtractGzippedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			t.Errorf("fetch did not offer gzip, got %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Type", "text/html")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(productPage))
		gz.Close()
	}))
	defer srv.Close()

	extractor := NewExtractor(testConfig(), zap.NewNop())

	fields, err := extractor.Extract(context.Background(), srv.URL+"/dp/B09TEST123")
	if err != nil {
		t.Fatalf("extract of gzip-served page failed: %v", err)
	}
	if fields.Title != "Wipro 9W Smart LED Bulb" {
		t.Errorf("unexpected title %q", fields.Title)
	}
	if fields.Price != "₹499.00" {
		t.Errorf("unexpected price %q", fields.Price)
	}
}
