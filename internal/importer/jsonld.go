package importer

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"market-service/internal/titles"

	"github.com/PuerkitoBio/goquery"
)

func absURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || base == nil {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return base.ResolveReference(u).String()
}

func toList(v interface{}) []interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return x
	default:
		return []interface{}{x}
	}
}

func asString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

func priceFromAny(v interface{}) int64 {
	switch x := v.(type) {
	case float64:
		if x < 0 {
			return -1
		}
		return int64(x + 0.5)
	case string:
		return parsePrice(x)
	default:
		return -1
	}
}

// appendCandidate cleans and normalizes a raw (name, price, image) triple and
// appends it when all three parts survive.
func appendCandidate(out []Candidate, base *url.URL, name string, price int64, image interface{}) []Candidate {
	img := ""
	switch x := image.(type) {
	case string:
		img = x
	case []interface{}:
		if len(x) > 0 {
			img = asString(x[0])
		}
	}
	img = absURL(base, img)

	if name == "" || price < 0 || img == "" {
		return out
	}
	title := titles.Cleanup(name)
	return append(out, Candidate{
		Title:    title,
		TitleKey: titles.NormalizeForDedup(title),
		Price:    price,
		ImageURL: img,
	})
}

func extractJSONLDNode(v interface{}, base *url.URL, out []Candidate) []Candidate {
	node, ok := v.(map[string]interface{})
	if !ok {
		return out
	}
	switch node["@type"] {
	case "ItemList", "CollectionPage", "SearchResultsPage":
		for _, it := range toList(node["itemListElement"]) {
			entry := it
			if m, ok := it.(map[string]interface{}); ok && m["item"] != nil {
				entry = m["item"]
			}
			out = extractJSONLDNode(entry, base, out)
		}
	case "ListItem":
		out = extractJSONLDNode(node["item"], base, out)
	default:
		if node["@type"] != "Product" && node["name"] == nil && node["image"] == nil && node["offers"] == nil {
			return out
		}
		name := asString(node["name"])
		if name == "" {
			name = asString(node["title"])
		}
		image := node["image"]
		if image == nil {
			image = node["photo"]
		}
		if image == nil {
			image = node["thumbnailUrl"]
		}
		price := int64(-1)
		for _, ofr := range toList(node["offers"]) {
			m, ok := ofr.(map[string]interface{})
			if !ok {
				continue
			}
			for _, k := range []string{"price", "lowPrice", "highPrice"} {
				if p := priceFromAny(m[k]); p >= 0 {
					price = p
					break
				}
			}
			if price >= 0 {
				break
			}
		}
		out = appendCandidate(out, base, name, price, image)
	}
	return out
}

// ExtractJSONLD pulls product candidates out of the page's structured-data
// blocks. Malformed JSON blocks are skipped.
func ExtractJSONLD(doc *goquery.Document, base *url.URL) []Candidate {
	var out []Candidate
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		var data interface{}
		if err := json.Unmarshal([]byte(text), &data); err != nil {
			return
		}
		for _, node := range toList(data) {
			out = extractJSONLDNode(node, base, out)
		}
	})
	return out
}
