package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FieldRule extracts one candidate value for a field from a container.
// Rules run in priority order; the first non-empty result wins.
type FieldRule func(s *goquery.Selection) string

// Containers locates the listing containers of a page by trying each selector
// in turn; the first one yielding at least one match is used for the whole
// page. Sites change markup, so adapters carry a fallback chain.
func Containers(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			return found
		}
	}
	return doc.Find(selectors[len(selectors)-1])
}

// First applies field rules in order and returns the first non-empty result.
func First(s *goquery.Selection, rules []FieldRule) string {
	for _, rule := range rules {
		if rule == nil {
			continue
		}
		if result := rule(s); result != "" {
			return result
		}
	}
	return ""
}

// Text returns a rule reading the trimmed text of the first match.
func Text(selector string) FieldRule {
	return func(s *goquery.Selection) string {
		found := s.Find(selector)
		if found.Length() == 0 {
			return ""
		}
		return strings.TrimSpace(found.First().Text())
	}
}

// Attr returns a rule reading an attribute off the first match.
func Attr(selector, attr string) FieldRule {
	return func(s *goquery.Selection) string {
		found := s.Find(selector)
		if found.Length() == 0 {
			return ""
		}
		v, _ := found.First().Attr(attr)
		return strings.TrimSpace(v)
	}
}

// decorative assets are never product photos.
var decorativeRe = regexp.MustCompile(`(?i)\.(svg|gif)(\?|$)|sprite|icon|logo`)

// IsDecorative reports whether an image source is an icon, logo, sprite or
// vector/animated placeholder rather than a product photo.
func IsDecorative(src string) bool {
	return decorativeRe.MatchString(src)
}

// SrcsetLargest picks the candidate with the highest declared width from a
// srcset attribute value. Candidates without a width descriptor count as
// width zero.
func SrcsetLargest(srcset string) string {
	best := ""
	bestWidth := -1
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(candidate))
		if len(fields) == 0 {
			continue
		}
		width := 0
		if len(fields) > 1 && strings.HasSuffix(fields[1], "w") {
			if n, err := strconv.Atoi(strings.TrimSuffix(fields[1], "w")); err == nil {
				width = n
			}
		}
		if width > bestWidth {
			best = fields[0]
			bestWidth = width
		}
	}
	return best
}

// ImageRules builds the image fallback chain for a container: zoom attribute,
// large-image attribute, srcset (largest width), then plain src. Decorative
// sources are rejected at every step.
func ImageRules(imgSelector string) []FieldRule {
	attrs := []string{"data-zoom-image", "data-large_image", "data-src"}

	rules := make([]FieldRule, 0, len(attrs)+2)
	for _, attr := range attrs {
		a := attr
		rules = append(rules, func(s *goquery.Selection) string {
			return cleanImage(Attr(imgSelector, a)(s))
		})
	}
	rules = append(rules, func(s *goquery.Selection) string {
		srcset := Attr(imgSelector, "srcset")(s)
		if srcset == "" {
			return ""
		}
		return cleanImage(SrcsetLargest(srcset))
	})
	rules = append(rules, func(s *goquery.Selection) string {
		return cleanImage(Attr(imgSelector, "src")(s))
	})
	return rules
}

func cleanImage(src string) string {
	if src == "" || IsDecorative(src) {
		return ""
	}
	return src
}

var pricelikeRe = regexp.MustCompile(`^[\$£€]?\s*[\d,.]+`)

// FallbackTitle is the degraded extraction path for containers without a
// structured title element: the first visible text line longer than 10 chars
// that is neither a price nor a byline. Best-effort only.
func FallbackTitle(s *goquery.Selection) string {
	for _, line := range strings.Split(s.Text(), "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= 10 {
			continue
		}
		if pricelikeRe.MatchString(line) {
			continue
		}
		if strings.HasPrefix(strings.ToLower(line), "by ") {
			continue
		}
		return line
	}
	return ""
}

// ResolveURL resolves href against the page base URL. Absolute hrefs pass
// through; unparsable input returns the href unchanged.
func ResolveURL(base, href string) string {
	if href == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	refURL, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(refURL).String()
}
