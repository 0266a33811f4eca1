package importer

import (
	"market-service/internal/titles"
)

// altSuffixes is the fallback ladder when the hash token still collides.
var altSuffixes = []string{
	"-a", "-b", "-c", "-d", "-e", "-f", "-g", "-h", "-i", "-j", "-k", "-l", "-m",
	"-n", "-o", "-p", "-q", "-r", "-s", "-t", "-u", "-v", "-w", "-x", "-y", "-z",
	"-1", "-2", "-3", "-4", "-5", "-6", "-7", "-8", "-9",
}

// Merger accumulates candidates from all extraction sources while keeping
// titles and images unique within the run. Sources are pushed in priority
// order, so structured data wins over DOM heuristics.
type Merger struct {
	max       int
	cards     []Candidate
	seenTitle map[string]bool
	seenImage map[string]bool

	AltUsed  int
	DupDrops int
}

// NewMerger creates a merger that stops accepting once max candidates are
// collected.
func NewMerger(max int) *Merger {
	return &Merger{
		max:       max,
		seenTitle: make(map[string]bool),
		seenImage: make(map[string]bool),
	}
}

// Full reports whether the merger reached its cap.
func (m *Merger) Full() bool {
	return len(m.cards) >= m.max
}

// Cards returns the merged candidates in acceptance order.
func (m *Merger) Cards() []Candidate {
	return m.cards
}

// Add offers one candidate. A repeated image is dropped outright; a repeated
// title key walks the disambiguation ladder (hash token, then alphabetic
// suffixes) before giving up.
func (m *Merger) Add(c Candidate) bool {
	if m.Full() || c.Title == "" || c.Price < 0 || c.ImageURL == "" {
		return false
	}
	key := c.TitleKey
	if key == "" {
		key = titles.NormalizeForDedup(c.Title)
	}
	imgKey := titles.ImageKey(c.ImageURL)
	if imgKey != "" && m.seenImage[imgKey] {
		return false
	}

	title := c.Title
	if m.seenTitle[key] {
		altTitle, altKey := titles.Disambiguate(title, c.ImageURL, c.Price)
		if !m.seenTitle[altKey] {
			title, key = altTitle, altKey
			m.AltUsed++
		} else if found, fTitle, fKey := trySuffixes(title, " ", m.seenTitle); found {
			title, key = fTitle, fKey
			m.AltUsed++
		} else {
			m.DupDrops++
			return false
		}
	}

	m.seenTitle[key] = true
	if imgKey != "" {
		m.seenImage[imgKey] = true
	}
	m.cards = append(m.cards, Candidate{Title: title, TitleKey: key, Price: c.Price, ImageURL: c.ImageURL})
	return true
}

// AddBatch offers candidates until the cap is hit.
func (m *Merger) AddBatch(batch []Candidate) {
	for _, c := range batch {
		if m.Full() {
			return
		}
		m.Add(c)
	}
}

func trySuffixes(base, sep string, seen map[string]bool) (bool, string, string) {
	for _, suf := range altSuffixes {
		candTitle := base + sep + suf
		candKey := titles.NormalizeForDedup(candTitle)
		if !seen[candKey] {
			return true, candTitle, candKey
		}
	}
	return false, "", ""
}

// DedupAgainstExisting filters merged candidates against title keys already
// present in the database, retrying the same disambiguation ladder before
// skipping. Returns up to max unique candidates plus counters for the report.
func DedupAgainstExisting(cards []Candidate, existing map[string]bool, max int) ([]Candidate, Stats) {
	stats := Stats{TotalFound: len(cards)}
	seen := make(map[string]bool, len(existing))
	for k := range existing {
		seen[k] = true
	}

	var uniq []Candidate
	for _, c := range cards {
		key := c.TitleKey
		if key == "" {
			key = titles.NormalizeForDedup(c.Title)
		}
		item := c
		if seen[key] {
			altTitle, altKey := titles.Disambiguate(c.Title, c.ImageURL, c.Price)
			if !seen[altKey] {
				item.Title, item.TitleKey = altTitle, altKey
				key = altKey
				stats.UsedAlt++
			} else if found, fTitle, fKey := trySuffixes(altTitle, "", seen); found {
				item.Title, item.TitleKey = fTitle, fKey
				key = fKey
				stats.UsedAlt++
			} else {
				if existing[key] || existing[altKey] {
					stats.SkipExisting++
				} else {
					stats.SkipInRun++
				}
				continue
			}
		}
		seen[key] = true
		uniq = append(uniq, item)
		if len(uniq) >= max {
			break
		}
	}
	return uniq, stats
}
