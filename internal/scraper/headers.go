package scraper

import (
	"fmt"
	"math/rand"
)

var chromeMajorVersions = []int{120, 121, 122, 123, 124, 125}

var platforms = []string{
	"Windows NT 10.0; Win64; x64",
	"Macintosh; Intel Mac OS X 10_15_7",
	"X11; Linux x86_64",
}

// fallbackUserAgents is the static pool used when generation is not
// wanted, e.g. to keep a header set stable across a session.
var fallbackUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-IN,en;q=0.9,hi;q=0.8",
	"en-GB,en;q=0.8",
}

func randomUserAgent() string {
	major := chromeMajorVersions[rand.Intn(len(chromeMajorVersions))]
	platform := platforms[rand.Intn(len(platforms))]
	return fmt.Sprintf("Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.%d.%d Safari/537.36",
		platform, major, rand.Intn(5000)+1000, rand.Intn(200))
}

// Headers returns a randomized browser-like header set. Product pages
// serve stripped-down or blocked responses to obvious bot traffic, so
// each fetch presents a plausible desktop browser fingerprint.
// Accept-Encoding is deliberately absent: setting it by hand turns off
// net/http's transparent gzip negotiation and the body would arrive
// still compressed.
func Headers() map[string]string {
	ua := randomUserAgent()
	if rand.Intn(4) == 0 {
		ua = fallbackUserAgents[rand.Intn(len(fallbackUserAgents))]
	}
	return map[string]string{
		"User-Agent":                ua,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           acceptLanguages[rand.Intn(len(acceptLanguages))],
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Cache-Control":             "max-age=0",
	}
}
