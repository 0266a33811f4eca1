package importer

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"market-service/internal/titles"

	"github.com/PuerkitoBio/goquery"
)

const (
	cardSelector   = "a, div, li, article, section, main"
	titleNodeSel   = `[data-qa*="title"],[data-testid*="title"],[data-test*="title"],[data-name],[data-title],[itemprop="name"]`
	headingSel     = `h1,h2,h3,h4,h5,[class*="title"],[class*="name"],[class*="caption"],[class*="card"],a,span,p`
	priceNodeSel   = `[class*="price"],[data-qa*="price"],[data-testid*="price"],[data-test*="price"],[itemprop="price"]`
	lazyImageSel   = `[data-bg], [data-background], [data-background-image], [data-original], [data-src], [data-lazy], [data-image], [data-img], [data-thumbnail], [itemprop="image"]`
	minDOMTitleLen = 4
)

var (
	reDOMSpaces   = regexp.MustCompile(`\s+`)
	reCurPrice    = regexp.MustCompile(`(?i)([0-9\s\x{00A0}.,]+)\s*(₽|руб|RUB|\$|USD|€|EUR|грн|₴)`)
	reLongNum     = regexp.MustCompile(`(?:^|[^0-9])([0-9][0-9\s\x{00A0}.,]{3,})`)
	reNumBlock    = regexp.MustCompile(`[0-9\s\x{00A0}.,]+`)
	reBgURL       = regexp.MustCompile(`(?i)url\(['"]?([^)'"]+)['"]?\)`)
	reAnyLetter   = regexp.MustCompile(`[A-Za-zА-Яа-я]`)
	reDigitStrip  = regexp.MustCompile(`[\s\x{00A0},]+`)
	reFileSep     = regexp.MustCompile(`[-_]+`)
	reFileExt     = regexp.MustCompile(`(?i)\.[a-z0-9]+$`)
	lazyImageAttr = []string{"data-bg", "data-background", "data-background-image",
		"data-original", "data-src", "data-lazy", "data-image", "data-img",
		"data-thumbnail", "content"}
)

func textTrim(sel *goquery.Selection) string {
	return strings.TrimSpace(reDOMSpaces.ReplaceAllString(sel.Text(), " "))
}

// cleanNonEmpty applies title cleanup only to non-blank input, so a missing
// candidate stays empty instead of degrading to the placeholder.
func cleanNonEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return titles.Cleanup(s)
}

func domPrice(priceText, fullText string) int64 {
	if priceText != "" {
		block := reNumBlock.FindString(priceText)
		if block == "" {
			return 0
		}
		n, err := strconv.ParseFloat(reDigitStrip.ReplaceAllString(block, ""), 64)
		if err != nil {
			return 0
		}
		return int64(n + 0.5)
	}
	// fallback: first long numeric block anywhere in the card text
	if m := reLongNum.FindStringSubmatch(fullText); m != nil {
		n, err := strconv.ParseFloat(reDigitStrip.ReplaceAllString(m[1], ""), 64)
		if err == nil {
			return int64(n + 0.5)
		}
	}
	return 0
}

func domImageSrc(el *goquery.Selection, base *url.URL) string {
	src := ""
	img := el.Find("img").First()
	if img.Length() > 0 {
		src = img.AttrOr("src", "")
		if src == "" {
			src = img.AttrOr("data-src", img.AttrOr("data-lazy", ""))
		}
		if src == "" {
			src = firstSrcset(img.AttrOr("srcset", img.AttrOr("data-srcset", "")))
		}
	}
	if src == "" {
		source := el.Find("source[srcset], source[data-srcset]").First()
		src = firstSrcset(source.AttrOr("srcset", source.AttrOr("data-srcset", "")))
	}
	if src == "" {
		style := el.Find(`[style*=background]`).First().AttrOr("style", "")
		if style == "" {
			if self := el.AttrOr("style", ""); strings.Contains(strings.ToLower(self), "background") {
				style = self
			}
		}
		if m := reBgURL.FindStringSubmatch(style); m != nil {
			src = strings.TrimSpace(m[1])
		}
	}
	if src == "" {
		node := el.Find(lazyImageSel).First()
		for _, attr := range lazyImageAttr {
			if v := node.AttrOr(attr, ""); v != "" {
				src = v
				break
			}
		}
	}
	return absURL(base, src)
}

func firstSrcset(srcset string) string {
	if srcset == "" {
		return ""
	}
	first := strings.TrimSpace(strings.SplitN(srcset, ",", 2)[0])
	return strings.SplitN(first, " ", 2)[0]
}

func domTitleCand(el *goquery.Selection) string {
	if alt := el.Find("img").First().AttrOr("alt", ""); alt != "" {
		return alt
	}
	if v := el.AttrOr("aria-label", el.AttrOr("title", "")); v != "" {
		return v
	}
	if v := el.Find("[title]").First().AttrOr("title", ""); v != "" {
		return v
	}
	node := el.Find(titleNodeSel).First()
	if v := node.AttrOr("content", ""); v != "" {
		return v
	}
	if v := node.Text(); strings.TrimSpace(v) != "" {
		return v
	}
	return el.Find(headingSel).First().Text()
}

// findNearbyTitle widens the search when the card itself yields no usable
// title: own attributes, then up to three ancestors, then siblings, then the
// card text with the price stripped, then the image filename.
func findNearbyTitle(el *goquery.Selection, fullText, priceText, imgSrc string, base *url.URL) string {
	cand := el.AttrOr("aria-label", el.AttrOr("title", ""))
	if cand == "" {
		cand = el.Find("[title]").First().AttrOr("title", "")
	}
	if cand == "" {
		node := el.Find(titleNodeSel).First()
		cand = node.AttrOr("content", node.Text())
	}
	if t := cleanNonEmpty(cand); t != "" {
		return t
	}

	p := el.Parent()
	for i := 0; i < 3 && p.Length() > 0; i++ {
		t := p.Find(`h1,h2,h3,h4,h5,[class*="title"],[class*="name"],[itemprop="name"],a`).First().Text()
		if strings.TrimSpace(t) == "" {
			t = p.AttrOr("aria-label", p.AttrOr("title", ""))
		}
		if cleaned := cleanNonEmpty(t); cleaned != "" {
			return cleaned
		}
		p = p.Parent()
	}

	if t := cleanNonEmpty(el.Prev().Text()); t != "" {
		return t
	}
	if t := cleanNonEmpty(el.Next().Text()); t != "" {
		return t
	}

	if fullText != "" {
		t := fullText
		if priceText != "" {
			t = strings.Replace(t, priceText, " ", 1)
		}
		if cleaned := cleanNonEmpty(t); cleaned != "" && reAnyLetter.MatchString(cleaned) {
			return cleaned
		}
	}

	if imgSrc != "" {
		if u, err := url.Parse(absURL(base, imgSrc)); err == nil {
			segs := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
			if len(segs) > 0 {
				name := reFileExt.ReplaceAllString(segs[len(segs)-1], "")
				name = strings.TrimSpace(reFileSep.ReplaceAllString(name, " "))
				if cleaned := cleanNonEmpty(name); cleaned != "" {
					return cleaned
				}
			}
		}
	}
	return ""
}

// ScanDOM walks generic card-shaped elements and feeds every (title, price,
// image) triple it can assemble into the merger. Unlike the structured
// sources, a DOM candidate must carry a positive price.
func ScanDOM(doc *goquery.Document, base *url.URL, m *Merger) {
	doc.Find(cardSelector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if m.Full() {
			return false
		}
		fullText := textTrim(el)

		title := strings.TrimSpace(reDOMSpaces.ReplaceAllString(domTitleCand(el), " "))

		priceText := ""
		priceNode := el.Find(priceNodeSel).First()
		if priceNode.Length() > 0 {
			priceText = priceNode.Text()
			if strings.TrimSpace(priceText) == "" {
				priceText = priceNode.AttrOr("content", priceNode.AttrOr("value", ""))
			}
		}
		if priceText == "" {
			priceText = el.AttrOr("data-price", el.AttrOr("data-amount", el.AttrOr("data-cost", "")))
		}
		if priceText == "" {
			if mt := reCurPrice.FindStringSubmatch(fullText); mt != nil {
				priceText = mt[1]
			}
		}
		price := domPrice(priceText, fullText)

		src := domImageSrc(el, base)
		if title == "" || utf8.RuneCountInString(cleanNonEmpty(title)) < minDOMTitleLen {
			if near := findNearbyTitle(el, fullText, priceText, src, base); near != "" {
				title = near
			}
		}
		if title == "" || price <= 0 || src == "" {
			return true
		}

		clean := titles.Cleanup(title)
		m.Add(Candidate{
			Title:    clean,
			TitleKey: titles.NormalizeForDedup(clean),
			Price:    price,
			ImageURL: src,
		})
		return true
	})
}
