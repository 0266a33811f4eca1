package titles

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanupStripsPrices(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Dragon Sword - 1500 ₽", "Dragon Sword"},
		{"Меч (1500 руб.)", "Меч"},
		{"14 000 ₽Хороший сет", "Хороший сет"},
		{"5999PUBG аккаунт", "PUBG аккаунт"},
		{"Меч 1500 ₽ огня", "Меч огня"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Cleanup(tc.in), "input: %q", tc.in)
	}
}

func TestCleanupStripsPromoNoise(t *testing.T) {
	assert.Equal(t, "Меч", Cleanup("-89% СКИДКА Меч"))
	assert.Equal(t, "Epic Bundle", Cleanup("Epic Bundle SALE (50%)"))
	assert.Equal(t, "Аккаунт сета", Cleanup("Аккаунт | Распродажа сета"))
}

func TestCleanupPromoWordRemoved(t *testing.T) {
	got := Cleanup("Аккаунт распродажа года")
	assert.NotContains(t, got, "распродажа")
	assert.Contains(t, got, "Аккаунт")
}

func TestCleanupStripsCodeJunk(t *testing.T) {
	got := Cleanup("try { steal() } catch (e) { log(e) } Нож керамбит")
	assert.Equal(t, "Нож керамбит", got)

	got = Cleanup("document.cookie window.open Нож")
	assert.NotContains(t, got, "document.cookie")
	assert.NotContains(t, got, "window.open")
}

func TestCleanupPlaceholder(t *testing.T) {
	assert.Equal(t, Placeholder, Cleanup("500 ₽"))
	assert.Equal(t, Placeholder, Cleanup("   "))
	assert.Equal(t, Placeholder, Cleanup("-89%"))
}

func TestNormalizeForDedupStripsSuffixes(t *testing.T) {
	assert.Equal(t, "gold pack", NormalizeForDedup("Gold Pack 2000"))
	assert.Equal(t, "gold pack", NormalizeForDedup("Gold Pack - 12345"))
	assert.Equal(t, "gold pack", NormalizeForDedup("Gold Pack № 56789"))
	// three-digit hash tokens survive, that is what keeps
	// disambiguated titles distinct
	assert.Equal(t, "gold pack #123", NormalizeForDedup("Gold Pack #123"))
}

func TestNormalizeForDedupStable(t *testing.T) {
	key := NormalizeForDedup("ВНЕШКА -50% 3 750 ₽ Комплект #999")
	assert.Equal(t, key, NormalizeForDedup("ВНЕШКА -50% 3 750 ₽ Комплект #999"))
	assert.Equal(t, key, NormalizeForDedup(Cleanup("ВНЕШКА -50% 3 750 ₽ Комплект #999")))
}

func TestShortToken(t *testing.T) {
	// djb2 seed with empty input
	assert.Equal(t, "381", ShortToken(""))
	assert.Len(t, ShortToken("anything"), 3)
	assert.Equal(t, ShortToken("abc"), ShortToken("abc"))
	assert.NotEqual(t, ShortToken("/img/a.png|100"), ShortToken("/img/b.png|100"))
}

func TestShortTokenAlwaysThreeDigits(t *testing.T) {
	for i := 0; i < 5000; i++ {
		in := fmt.Sprintf("/img/p-%d.png|%d", i, i*31)
		tok := ShortToken(in)
		assert.Len(t, tok, 3, "input %q", in)
		assert.NotContains(t, tok, "-", "input %q", in)
	}
}

func TestDisambiguate(t *testing.T) {
	title, key := Disambiguate("Меч", "https://cdn.example.com/img/sword.png?v=2", 1500)
	token := ShortToken("/img/sword.png|1500")
	assert.Equal(t, "Меч #"+token, title)
	assert.Equal(t, "меч #"+token, key)

	// same image and price always produce the same suffix
	title2, _ := Disambiguate("Меч", "https://cdn.example.com/img/sword.png?other=1", 1500)
	assert.Equal(t, title, title2)
}

func TestImageKey(t *testing.T) {
	assert.Equal(t, "/images/a.png", ImageKey("https://CDN.example.com/Images/A.PNG?x=1"))
	assert.Equal(t, "/images/a.png", ImageKey("https://other-host.com/Images/A.PNG#frag"))
	assert.Equal(t, "", ImageKey(""))
}

func TestRemovePriceTokensFixedPoint(t *testing.T) {
	got := RemovePriceTokens("Сет 100 ₽ 200 ₽ 300 ₽")
	assert.NotContains(t, got, "₽")
	assert.Contains(t, got, "Сет")
}
