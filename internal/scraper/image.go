package scraper

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

var imageSelectors = []string{
	"#imgBlkFront",
	"#landingImage",
	"#main-image",
	".a-dynamic-image",
	"#imgTagWrapperId img",
	".image-wrapper img",
	".a-stretch-horizontal img",
	"img[data-old-hires]",
	"img[data-a-dynamic-image]",
}

// extractImage walks the image selector chain and returns an absolute
// https URL for the best rendition it finds. Per element the high-res
// attribute wins over the dynamic-image map, which wins over a plain
// src with its size tokens upgraded.
func extractImage(doc *goquery.Document, page *url.URL) string {
	for _, selector := range imageSelectors {
		found := ""
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := s.Attr("data-old-hires"); ok && v != "" {
				found = v
				return false
			}
			if v, ok := s.Attr("data-a-dynamic-image"); ok {
				if best := largestDynamicImage(v); best != "" {
					found = best
					return false
				}
			}
			if v, ok := s.Attr("src"); ok && v != "" {
				found = upgradeSizeTokens(v)
				return false
			}
			return true
		})
		if found != "" {
			return absoluteHTTPS(found, page)
		}
	}
	return ""
}
