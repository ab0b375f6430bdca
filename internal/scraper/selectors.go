package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// lookup pulls one candidate value out of a parsed page. Lookups are
// arranged in chains ordered from the current page layout down to
// legacy and seller-specific layouts; the first non-empty result wins.
type lookup func(doc *goquery.Document) string

func text(selector string) lookup {
	return func(doc *goquery.Document) string {
		return strings.TrimSpace(doc.Find(selector).First().Text())
	}
}

// joinedText collects up to limit matches and joins their trimmed
// text with a single space.
func joinedText(selector string, limit int) lookup {
	return func(doc *goquery.Document) string {
		var parts []string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := strings.TrimSpace(s.Text()); t != "" {
				parts = append(parts, t)
			}
			return len(parts) < limit
		})
		return strings.Join(parts, " ")
	}
}

func firstMatch(doc *goquery.Document, chain []lookup) string {
	for _, fn := range chain {
		if v := fn(doc); v != "" {
			return v
		}
	}
	return ""
}

var titleChain = []lookup{
	text("#productTitle"),
	text("h1.product-title"),
	text(`h1[data-test-id="product-title"]`),
	text(".product-title-word-break"),
}

var priceChain = []lookup{
	text(".a-price .a-offscreen"),
	text("#priceblock_ourprice"),
	text("#priceblock_dealprice"),
	text(".a-price-whole"),
	text(".a-color-price"),
}

var originalPriceChain = []lookup{
	text(".a-text-strike"),
	text("#priceblock_listprice"),
	text(`.a-price.a-text-price span[aria-hidden="true"]`),
	text(".a-text-price"),
}

var ratingChain = []lookup{
	text(`span[data-hook="rating-out-of-text"]`),
	text(".a-icon-star .a-icon-alt"),
	text("#acrPopover .a-color-base"),
}

var reviewCountChain = []lookup{
	text("#acrCustomerReviewText"),
	text(`span[data-hook="total-review-count"]`),
	text("#reviewsMedley .a-color-secondary"),
}

var descriptionChain = []lookup{
	joinedText("#feature-bullets .a-list-item", 2),
	joinedText("#productDescription p", 2),
	joinedText("#product-description", 2),
	joinedText(".a-spacing-mini:not(.a-spacing-top-small)", 2),
}

var featureSelectors = []string{
	"#feature-bullets .a-list-item",
	".a-unordered-list .a-list-item",
}

// extractFeatures returns up to four bullet points, skipping entries
// too short to carry meaning.
func extractFeatures(doc *goquery.Document) []string {
	for _, selector := range featureSelectors {
		var features []string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := strings.TrimSpace(s.Text()); len(t) > 5 {
				features = append(features, t)
			}
			return len(features) < 4
		})
		if len(features) > 0 {
			return features
		}
	}
	return nil
}
