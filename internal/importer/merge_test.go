package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-service/internal/titles"
)

func TestMergerCap(t *testing.T) {
	m := NewMerger(3)
	m.AddBatch([]Candidate{
		{Title: "Меч", Price: 100, ImageURL: "https://x/i/1.png"},
		{Title: "Щит", Price: 200, ImageURL: "https://x/i/2.png"},
		{Title: "Лук", Price: 300, ImageURL: "https://x/i/3.png"},
		{Title: "Копьё", Price: 400, ImageURL: "https://x/i/4.png"},
		{Title: "Топор", Price: 500, ImageURL: "https://x/i/5.png"},
	})

	assert.True(t, m.Full())
	assert.Len(t, m.Cards(), 3)
	assert.False(t, m.Add(Candidate{Title: "Кинжал", Price: 50, ImageURL: "https://x/i/6.png"}))
}

func TestMergerRejectsInvalid(t *testing.T) {
	m := NewMerger(10)
	assert.False(t, m.Add(Candidate{Title: "", Price: 100, ImageURL: "https://x/i/1.png"}))
	assert.False(t, m.Add(Candidate{Title: "Меч", Price: -1, ImageURL: "https://x/i/1.png"}))
	assert.False(t, m.Add(Candidate{Title: "Меч", Price: 100, ImageURL: ""}))
	assert.Empty(t, m.Cards())
}

func TestMergerDropsRepeatedImage(t *testing.T) {
	m := NewMerger(10)
	require.True(t, m.Add(Candidate{Title: "Меч", Price: 100, ImageURL: "https://x/i/sword.png"}))

	// same path with a different query string is the same photo
	assert.False(t, m.Add(Candidate{Title: "Другой меч", Price: 200, ImageURL: "https://x/i/sword.png?v=2"}))
	assert.Len(t, m.Cards(), 1)
}

func TestMergerDisambiguatesRepeatedTitle(t *testing.T) {
	m := NewMerger(10)
	require.True(t, m.Add(Candidate{Title: "Меч", Price: 100, ImageURL: "https://x/i/a.png"}))
	require.True(t, m.Add(Candidate{Title: "Меч", Price: 200, ImageURL: "https://x/i/b.png"}))

	cards := m.Cards()
	require.Len(t, cards, 2)
	assert.Equal(t, "Меч", cards[0].Title)
	assert.Equal(t, "Меч #"+titles.ShortToken("/i/b.png|200"), cards[1].Title)
	assert.NotEqual(t, cards[0].TitleKey, cards[1].TitleKey)
	assert.Equal(t, 1, m.AltUsed)
}

func TestDedupAgainstExistingUsesAlt(t *testing.T) {
	cards := []Candidate{{Title: "Gold Pack", TitleKey: "gold pack", Price: 100, ImageURL: "https://x/i/gp.png"}}
	existing := map[string]bool{"gold pack": true}

	uniq, stats := DedupAgainstExisting(cards, existing, 10)

	require.Len(t, uniq, 1)
	wantTitle, wantKey := titles.Disambiguate("Gold Pack", "https://x/i/gp.png", 100)
	assert.Equal(t, wantTitle, uniq[0].Title)
	assert.Equal(t, wantKey, uniq[0].TitleKey)
	assert.Equal(t, 1, stats.UsedAlt)
	assert.Zero(t, stats.SkipExisting)
}

func TestDedupAgainstExistingSuffixLadder(t *testing.T) {
	cards := []Candidate{{Title: "Gold Pack", TitleKey: "gold pack", Price: 100, ImageURL: "https://x/i/gp.png"}}
	altTitle, altKey := titles.Disambiguate("Gold Pack", "https://x/i/gp.png", 100)
	existing := map[string]bool{"gold pack": true, altKey: true}

	uniq, stats := DedupAgainstExisting(cards, existing, 10)

	require.Len(t, uniq, 1)
	assert.Equal(t, altTitle+"-a", uniq[0].Title)
	assert.Equal(t, 1, stats.UsedAlt)
}

func TestDedupAgainstExistingSkipsWhenLadderExhausted(t *testing.T) {
	c := Candidate{Title: "Gold Pack", TitleKey: "gold pack", Price: 100, ImageURL: "https://x/i/gp.png"}
	altTitle, altKey := titles.Disambiguate(c.Title, c.ImageURL, c.Price)

	existing := map[string]bool{"gold pack": true, altKey: true}
	for _, suf := range altSuffixes {
		existing[titles.NormalizeForDedup(altTitle+suf)] = true
	}

	uniq, stats := DedupAgainstExisting([]Candidate{c}, existing, 10)

	assert.Empty(t, uniq)
	assert.Equal(t, 1, stats.SkipExisting)
	assert.Zero(t, stats.UsedAlt)
}

func TestDedupAgainstExistingInRunCollisions(t *testing.T) {
	c := Candidate{Title: "Gold Pack", TitleKey: "gold pack", Price: 100, ImageURL: "https://x/i/gp.png"}
	cards := make([]Candidate, 0, 40)
	for i := 0; i < 40; i++ {
		cards = append(cards, c)
	}

	uniq, stats := DedupAgainstExisting(cards, map[string]bool{}, 100)

	// 1 plain + 1 hash token + 35 ladder suffixes, the rest have nowhere to go
	assert.Len(t, uniq, 2+len(altSuffixes))
	assert.Equal(t, 1+len(altSuffixes), stats.UsedAlt)
	assert.Equal(t, 40-(2+len(altSuffixes)), stats.SkipInRun)
	assert.Zero(t, stats.SkipExisting)
}

func TestDedupAgainstExistingHonorsMax(t *testing.T) {
	cards := []Candidate{
		{Title: "A1", TitleKey: "a1", Price: 1, ImageURL: "https://x/1.png"},
		{Title: "A2", TitleKey: "a2", Price: 2, ImageURL: "https://x/2.png"},
		{Title: "A3", TitleKey: "a3", Price: 3, ImageURL: "https://x/3.png"},
	}
	uniq, _ := DedupAgainstExisting(cards, map[string]bool{}, 2)
	assert.Len(t, uniq, 2)
}

func TestParsePrice(t *testing.T) {
	assert.Equal(t, int64(1500), parsePrice("1 500 ₽"))
	assert.Equal(t, int64(1235), parsePrice("1 234,56"))
	assert.Equal(t, int64(99), parsePrice("от 99 руб."))
	assert.Equal(t, int64(-1), parsePrice(""))
	assert.Equal(t, int64(-1), parsePrice("договорная"))
}
