package importer

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxAppStateDepth = 6

func appStateName(node map[string]interface{}) string {
	for _, k := range []string{"name", "title", "name_ru", "name_en", "label"} {
		if s := asString(node[k]); s != "" {
			return s
		}
	}
	return ""
}

func appStateImage(node map[string]interface{}) interface{} {
	for _, k := range []string{"image", "img", "photo", "imageUrl", "thumbnailUrl", "cover"} {
		if node[k] != nil {
			return node[k]
		}
	}
	if images := toList(node["images"]); len(images) > 0 {
		if m, ok := images[0].(map[string]interface{}); ok {
			return m["url"]
		}
		return images[0]
	}
	return nil
}

func appStatePrice(node map[string]interface{}) int64 {
	for _, k := range []string{"price", "cost", "amount", "priceValue", "lowPrice", "highPrice"} {
		if p := priceFromAny(node[k]); p >= 0 {
			return p
		}
	}
	if offer, ok := node["offer"].(map[string]interface{}); ok {
		for _, k := range []string{"price", "amount", "value"} {
			if p := priceFromAny(offer[k]); p >= 0 {
				return p
			}
		}
	}
	if prices := toList(node["prices"]); len(prices) > 0 {
		if m, ok := prices[0].(map[string]interface{}); ok {
			if p := priceFromAny(m["price"]); p >= 0 {
				return p
			}
		} else if p := priceFromAny(prices[0]); p >= 0 {
			return p
		}
	}
	return -1
}

// collectFromAppState walks the framework state tree looking for objects that
// carry a name, an image and a price. The depth cap keeps the scan away from
// deeply nested unrelated state.
func collectFromAppState(v interface{}, base *url.URL, depth, max int, out []Candidate) []Candidate {
	if v == nil || depth > maxAppStateDepth || len(out) >= max {
		return out
	}
	switch node := v.(type) {
	case []interface{}:
		for _, item := range node {
			out = collectFromAppState(item, base, depth+1, max, out)
		}
	case map[string]interface{}:
		name := appStateName(node)
		image := appStateImage(node)
		price := appStatePrice(node)
		if name != "" && image != nil && price >= 0 {
			out = appendCandidate(out, base, name, price, image)
		}
		for _, child := range node {
			out = collectFromAppState(child, base, depth+1, max, out)
		}
	}
	return out
}

// ExtractAppState pulls candidates out of the embedded SPA state blob
// (script#__NEXT_DATA__). Absent or malformed state yields nothing.
func ExtractAppState(doc *goquery.Document, base *url.URL, max int) []Candidate {
	sel := doc.Find("script#__NEXT_DATA__").First()
	text := strings.TrimSpace(sel.Text())
	if text == "" {
		return nil
	}
	var data interface{}
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil
	}
	return collectFromAppState(data, base, 0, max, nil)
}
