// Package classify derives comparable attributes from the free text that
// sellers put in titles and descriptions. All functions are pure.
package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"audubonwatch/internal/listing"
)

var priceRe = regexp.MustCompile(`[\$£€]?\s*(\d+(?:\.\d{2})?)`)

// ParsePrice extracts the first numeric token from price text. Currency
// symbols and thousands separators are stripped. Only strictly positive
// values are accepted; anything else reports no price.
func ParsePrice(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	m := priceRe.FindStringSubmatch(strings.ReplaceAll(text, ",", ""))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// Edition detection is an ordered rule table: the first rule whose marker
// appears in the text wins. Havell markers must be checked before the octavo
// rules because "double elephant folio octavo-sized" style titles exist.
var editionRules = []struct {
	edition listing.Edition
	markers []string
}{
	{listing.EditionHavell, []string{"havell", "double elephant", "elephant folio"}},
	{listing.EditionBien, []string{"bien", "chromolithograph"}},
	{listing.EditionOctavoFirst, []string{"1st ed", "first ed", "1840", "1841", "1842", "1843", "1844"}},
	{listing.EditionOctavoLater, []string{"later ed", "2nd ed", "second ed", "1856", "1859", "1860", "1861", "1865", "1871"}},
	{listing.EditionOctavo, []string{"octavo"}},
}

// ClassifyEdition detects which printing a listing belongs to from its text.
func ClassifyEdition(text string) listing.Edition {
	lower := strings.ToLower(text)
	for _, rule := range editionRules {
		for _, marker := range rule.markers {
			if strings.Contains(lower, marker) {
				return rule.edition
			}
		}
	}
	return listing.EditionUnknown
}

// Plate number patterns in priority order. The bare-integer pattern is last
// and bounded to three digits so years and catalog numbers do not match.
var plateRes = []*regexp.Regexp{
	regexp.MustCompile(`[Pp]l(?:ate)?\.?\s*#?\s*(\d+)`),
	regexp.MustCompile(`[Pp]late\s+(\d+)`),
	regexp.MustCompile(`\b[Nn]o\.?\s*(\d+)`),
	regexp.MustCompile(`#\s*(\d+)`),
	regexp.MustCompile(`\b(\d{1,3})\s`),
}

// ExtractPlateNumber finds a plate number in listing text. Birds of America
// has 435 plates; anything outside [1,500] is a false positive and the next
// pattern is tried instead.
func ExtractPlateNumber(text string) (int, bool) {
	for _, re := range plateRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n >= 1 && n <= 500 {
			return n, true
		}
	}
	return 0, false
}

// MakeID derives the stable cross-run identity of a listing from its source
// key and URL: a truncated content hash, so the same listing hashes to the
// same id on every run.
func MakeID(sourceKey, url string) string {
	sum := sha256.Sum256([]byte(sourceKey + ":" + url))
	return hex.EncodeToString(sum[:])[:12]
}
