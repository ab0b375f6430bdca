package scraper

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	nonPriceChars    = regexp.MustCompile(`[^0-9.]`)
	decimalPattern   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	countPattern     = regexp.MustCompile(`\d+(?:,\d+)*`)
	sizeTokenPattern = regexp.MustCompile(`_(?:SY|SX)\d+_`)
)

// CleanPrice strips currency symbols, separators and surrounding text
// from a scraped price and re-prefixes the configured symbol. Returns
// empty when no numeric value survives.
func CleanPrice(raw, symbol string) string {
	cleaned := nonPriceChars.ReplaceAllString(raw, "")
	cleaned = strings.Trim(cleaned, ".")
	if cleaned == "" {
		return ""
	}
	if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
		return ""
	}
	return symbol + cleaned
}

// Discount derives a whole-percentage markdown from the current and
// original prices. Empty when either price is missing, unparseable,
// or the original is not higher than the current.
func Discount(current, original string) string {
	cur, okCur := priceValue(current)
	orig, okOrig := priceValue(original)
	if !okCur || !okOrig || orig <= 0 || orig <= cur {
		return ""
	}
	pct := math.Round(100 * (orig - cur) / orig)
	return fmt.Sprintf("%d%%", int(pct))
}

func priceValue(price string) (float64, bool) {
	m := decimalPattern.FindString(nonPriceChars.ReplaceAllString(price, ""))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseRating keeps only the leading decimal of a rating phrase such
// as "4.3 out of 5 stars".
func parseRating(raw string) string {
	return decimalPattern.FindString(raw)
}

// parseCount keeps the first comma-grouped integer of a review-count
// phrase such as "1,205 ratings".
func parseCount(raw string) string {
	return countPattern.FindString(raw)
}

// upgradeSizeTokens rewrites thumbnail size markers in an image URL
// to request the 500px rendition.
func upgradeSizeTokens(imageURL string) string {
	if strings.Contains(imageURL, "_SL160_") {
		return strings.ReplaceAll(imageURL, "_SL160_", "_SL500_")
	}
	return sizeTokenPattern.ReplaceAllString(imageURL, "_SL500_")
}

// largestDynamicImage picks the widest rendition out of a
// data-a-dynamic-image attribute, a JSON object mapping image URLs to
// [width, height] pairs.
func largestDynamicImage(raw string) string {
	var renditions map[string][]float64
	if err := json.Unmarshal([]byte(raw), &renditions); err != nil {
		return ""
	}
	best, bestWidth := "", -1.0
	for u, dims := range renditions {
		if len(dims) > 0 && dims[0] > bestWidth {
			best, bestWidth = u, dims[0]
		}
	}
	return best
}

// absoluteHTTPS resolves imageURL against the page URL and forces the
// https scheme.
func absoluteHTTPS(imageURL string, base *url.URL) string {
	resolved, err := base.Parse(imageURL)
	if err != nil {
		return ""
	}
	if resolved.Scheme != "https" {
		resolved.Scheme = "https"
	}
	return resolved.String()
}
