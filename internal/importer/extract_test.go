package importer

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func baseURL(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse("https://market.example.com/catalog")
	require.NoError(t, err)
	return u
}

func TestExtractJSONLD(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"ItemList","itemListElement":[
{"@type":"ListItem","position":1,"item":{"@type":"Product","name":"Dragon Sword - 1500 ₽","image":"/img/sword.png","offers":{"@type":"Offer","price":"1500"}}},
{"@type":"ListItem","position":2,"item":{"@type":"Product","name":"Shield of Dawn","image":["/img/shield.png"],"offers":{"price":2000}}}
]}</script>
<script type="application/ld+json">{not valid json</script>
</head><body></body></html>`

	cards := ExtractJSONLD(docFromHTML(t, html), baseURL(t))

	require.Len(t, cards, 2)
	assert.Equal(t, "Dragon Sword", cards[0].Title)
	assert.Equal(t, int64(1500), cards[0].Price)
	assert.Equal(t, "https://market.example.com/img/sword.png", cards[0].ImageURL)
	assert.Equal(t, "Shield of Dawn", cards[1].Title)
	assert.Equal(t, int64(2000), cards[1].Price)
	assert.Equal(t, "https://market.example.com/img/shield.png", cards[1].ImageURL)
}

func TestExtractJSONLDSkipsIncomplete(t *testing.T) {
	html := `<script type="application/ld+json">{"@type":"Product","name":"No price","image":"/i/x.png"}</script>`
	assert.Empty(t, ExtractJSONLD(docFromHTML(t, html), baseURL(t)))

	html = `<script type="application/ld+json">{"@type":"Product","name":"No image","offers":{"price":100}}</script>`
	assert.Empty(t, ExtractJSONLD(docFromHTML(t, html), baseURL(t)))
}

func TestExtractAppState(t *testing.T) {
	html := `<script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"items":[
{"name":"Лук теней","price":900,"image":"/i/bow.png"},
{"title":"Без цены","image":"/i/x.png"}
]}}}</script>`

	cards := ExtractAppState(docFromHTML(t, html), baseURL(t), 10)

	require.Len(t, cards, 1)
	assert.Equal(t, "Лук теней", cards[0].Title)
	assert.Equal(t, int64(900), cards[0].Price)
	assert.Equal(t, "https://market.example.com/i/bow.png", cards[0].ImageURL)
}

func TestExtractAppStateMissing(t *testing.T) {
	assert.Empty(t, ExtractAppState(docFromHTML(t, "<html><body></body></html>"), baseURL(t), 10))
}

func TestScanDOM(t *testing.T) {
	html := `<html><body><main>
<div class="card">
<img src="/i/sword.png" alt="Dragon Sword Lvl 80">
<span class="price">1 500 ₽</span>
</div>
</main></body></html>`

	m := NewMerger(10)
	ScanDOM(docFromHTML(t, html), baseURL(t), m)

	cards := m.Cards()
	require.Len(t, cards, 1)
	assert.Equal(t, "Dragon Sword Lvl 80", cards[0].Title)
	assert.Equal(t, int64(1500), cards[0].Price)
	assert.Equal(t, "https://market.example.com/i/sword.png", cards[0].ImageURL)
}

func TestScanDOMRequiresPrice(t *testing.T) {
	html := `<div class="card"><img src="/i/sword.png" alt="Dragon Sword Lvl 80"></div>`

	m := NewMerger(10)
	ScanDOM(docFromHTML(t, html), baseURL(t), m)

	assert.Empty(t, m.Cards())
}

func TestFindNextURL(t *testing.T) {
	base := baseURL(t)

	doc := docFromHTML(t, `<head><link rel="next" href="/catalog?page=2"></head>`)
	assert.Equal(t, "https://market.example.com/catalog?page=2", findNextURL(doc, base))

	doc = docFromHTML(t, `<body><a rel="next" href="/catalog?page=3">2</a></body>`)
	assert.Equal(t, "https://market.example.com/catalog?page=3", findNextURL(doc, base))

	doc = docFromHTML(t, `<body><a aria-label="следующая" href="/catalog?page=4">»</a></body>`)
	assert.Equal(t, "https://market.example.com/catalog?page=4", findNextURL(doc, base))

	doc = docFromHTML(t, `<body><a href="/somewhere">x</a></body>`)
	assert.Equal(t, "", findNextURL(doc, base))
}

func TestAttemptWithRetry(t *testing.T) {
	calls := 0
	err := attemptWithRetry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = attemptWithRetry(context.Background(), 1, time.Millisecond, func() error {
		calls++
		return errors.New("always")
	})
	assert.EqualError(t, err, "always")
	assert.Equal(t, 2, calls)
}

func TestExtFromContentType(t *testing.T) {
	assert.Equal(t, ".png", extFromContentType("image/png"))
	assert.Equal(t, ".webp", extFromContentType("image/webp"))
	assert.Equal(t, ".gif", extFromContentType("image/gif"))
	assert.Equal(t, ".jpg", extFromContentType("image/jpeg"))
	assert.Equal(t, ".jpg", extFromContentType(""))
}
