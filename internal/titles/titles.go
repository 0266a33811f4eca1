// Package titles normalizes scraped listing titles. All functions are pure:
// the same input always produces the same output, which is what makes the
// derived dedup keys stable across import runs.
package titles

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// Placeholder replaces titles that degrade to nothing after cleanup. Dedup
// keys must never be empty, so a price-only title like "500 ₽" maps here.
const Placeholder = "Товар"

// currency matches ruble tokens: the symbol, word forms and the RUB/RUR codes.
const currency = `(?:₽|руб(?:лей|ля)?\.?|rub|rur)`

var (
	reControl    = regexp.MustCompile(`[\x{0000}-\x{001F}\x{007F}]`)
	reTryCatch   = regexp.MustCompile(`(?is)try\s*\{.*?\}\s*catch\s*\(.*?\)\s*\{.*?\}`)
	reFunction   = regexp.MustCompile(`(?is)function\b.{0,600}?\}`)
	reCodeIdent  = regexp.MustCompile(`(?i)\b(document\.cookie|window\.[a-zA-Z_]\w*|setCookie|getCookie|deleteCookie|reloadPage)\b`)
	reCodePunct  = regexp.MustCompile(`[{};<>]`)
	reSpaces     = regexp.MustCompile(`\s+`)
	reLeadingNum = regexp.MustCompile(`(?i)^(?:от\s*)?\d[\d\s.,]{0,9}\s*(?:k|к|тыс\.?)*\s*` + currency + `?`)
	rePercent    = regexp.MustCompile(`[\(\[\-–—\s]*[-+−]?\d{1,3}\s*%[\)\]\s]*`)
	rePromoRu    = regexp.MustCompile(`(?i)(^|[^\p{L}])(скидк[а-я]*|распродажа|акци[яий])($|[^\p{L}])`)
	rePromoEn    = regexp.MustCompile(`(?i)\b(sale|off)\b`)
	reSeparators = regexp.MustCompile(`[|/•&]+`)
	reBrackets   = regexp.MustCompile(`[()\[\]]`)
	reDashRun    = regexp.MustCompile(`[\-–—]{2,}`)
	rePunctRun   = regexp.MustCompile(`[,.;:]{2,}`)

	// price token removal, applied to a fixed point because removing one
	// token can expose another contiguous one
	rePriceTrailing = regexp.MustCompile(`(?i)\s*[\(\[]?\s*\d[\d\s.,]{0,9}\s*` + currency + `\s*[\)\]]?\s*$`)
	rePriceDashEnd  = regexp.MustCompile(`(?i)\s*[-–—]\s*\d[\d\s.,]{0,9}\s*` + currency + `\s*$`)
	rePriceEmbedded = regexp.MustCompile(`(?i)(^|[\s\-–—(\[])(?:от\s*)?\d[\d\s.,]{0,9}\s*` + currency)
	rePriceBareRub  = regexp.MustCompile(`(?i)(^|[\s\-–—(\[])(?:от\s*)?\d[\d\s.,]{0,9}\s*р\.?($|[\s)\]\-–—,.:;])`)
	reOrphanCur     = regexp.MustCompile(`(?i)(^|[\s\-–—(\[])` + currency + `($|[\s)\]\-–—,.:;])`)
	reTrimSepEnd    = regexp.MustCompile(`\s*[-–—,:;]+\s*$`)
	reTrimSepStart  = regexp.MustCompile(`^[-–—,:;]+\s*`)

	reCodeSuffix = regexp.MustCompile(`(?:\s*[\-–—#№]\s*\d{4,})+$`)
	reNumSuffix  = regexp.MustCompile(`\s+\d{4,}$`)
)

// RemovePriceTokens strips price and currency tokens anywhere in the string:
// trailing bracketed prices, dash-separated prices, embedded tokens and
// orphan currency symbols left behind by earlier removals.
func RemovePriceTokens(input string) string {
	t := input
	t = rePriceTrailing.ReplaceAllString(t, "")
	t = rePriceDashEnd.ReplaceAllString(t, "")
	for {
		prev := t
		t = rePriceEmbedded.ReplaceAllString(t, " ")
		t = rePriceBareRub.ReplaceAllString(t, " $2")
		if t == prev {
			break
		}
	}
	t = reOrphanCur.ReplaceAllString(t, " $2")
	t = reTrimSepEnd.ReplaceAllString(t, "")
	t = reTrimSepStart.ReplaceAllString(t, "")
	return t
}

// Cleanup produces the display title for a raw scraped string: control
// characters, script-like fragments, promo noise and every price token are
// removed, whitespace and punctuation are collapsed. Falls back to
// Placeholder when fewer than two letters/digits survive.
func Cleanup(raw string) string {
	t := raw
	t = reControl.ReplaceAllString(t, " ")
	t = reTryCatch.ReplaceAllString(t, " ")
	t = reFunction.ReplaceAllString(t, " ")
	t = reCodeIdent.ReplaceAllString(t, " ")
	t = reCodePunct.ReplaceAllString(t, " ")
	t = strings.TrimSpace(reSpaces.ReplaceAllString(t, " "))
	if t == "" {
		return Placeholder
	}
	// leading numeric token is assumed to be a price even without currency,
	// e.g. "5999PUBG аккаунт" or "14 000 ₽Хороший сет"
	for reLeadingNum.MatchString(t) {
		next := strings.TrimLeft(reLeadingNum.ReplaceAllString(t, " "), " ")
		if next == t {
			break
		}
		t = next
	}
	t = rePercent.ReplaceAllString(t, " ")
	for {
		next := rePromoRu.ReplaceAllString(t, "$1 $3")
		if next == t {
			break
		}
		t = next
	}
	t = rePromoEn.ReplaceAllString(t, " ")
	t = reSeparators.ReplaceAllString(t, " ")
	t = RemovePriceTokens(t)
	t = reBrackets.ReplaceAllString(t, " ")
	t = strings.TrimSpace(reSpaces.ReplaceAllString(t, " "))
	t = reDashRun.ReplaceAllString(t, "—")
	t = rePunctRun.ReplaceAllStringFunc(t, func(m string) string {
		return m[:1]
	})
	t = reTrimSepEnd.ReplaceAllString(t, "")
	t = strings.TrimSpace(t)
	if countAlnum(t) < 2 {
		return Placeholder
	}
	return t
}

// NormalizeForDedup builds the comparison key for a title: cleaned,
// lowercased, with trailing long numeric or code-like suffixes stripped
// ("#1234", "№ 5678", "- 12345", bare " 123456"). Never displayed.
func NormalizeForDedup(raw string) string {
	t := strings.ToLower(Cleanup(raw))
	t = strings.TrimSpace(reCodeSuffix.ReplaceAllString(t, ""))
	t = strings.TrimSpace(reNumSuffix.ReplaceAllString(t, ""))
	return strings.TrimSpace(reSpaces.ReplaceAllString(t, " "))
}

// ShortToken hashes s (djb2 xor variant, 32-bit) into a stable three-digit
// token used to disambiguate equal titles. The absolute value is taken in
// 64-bit space: negating math.MinInt32 in int32 would overflow and leak a
// sign into the token.
func ShortToken(s string) string {
	var h int32 = 5381
	for _, b := range []byte(s) {
		h = ((h << 5) + h) ^ int32(b)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return fmt.Sprintf("%03d", v%1000)
}

// Disambiguate appends a stable hash-derived token to a title so two
// listings with the same cleaned title stay distinct. The token is computed
// from the image key and price, so re-imports produce the same suffix.
func Disambiguate(title, imageURL string, price int64) (newTitle, newKey string) {
	token := ShortToken(ImageKey(imageURL) + "|" + fmt.Sprintf("%d", price))
	newTitle = title + " #" + token
	return newTitle, NormalizeForDedup(newTitle)
}

// ImageKey normalizes an image URL to a lowercase path key so the same photo
// served with different query strings or hosts case is deduplicated.
func ImageKey(raw string) string {
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return strings.ToLower(strings.TrimRight(u.Path, "/"))
	}
	s := raw
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.TrimRight(s, "/"))
}

func countAlnum(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
