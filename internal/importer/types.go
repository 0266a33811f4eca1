// Package importer implements the catalog import pipeline: fetching listing
// pages from the external marketplace, extracting item candidates from
// structured data and DOM heuristics, and deduplicating them within a run and
// against the database.
package importer

import (
	"regexp"
	"strconv"
	"strings"
)

// Candidate is one extracted listing before persistence. Title is already
// cleaned for display and TitleKey is its dedup normalization.
type Candidate struct {
	Title    string
	TitleKey string
	Price    int64
	ImageURL string
}

// Stats summarizes a dedup pass for the import report.
type Stats struct {
	TotalFound   int `json:"totalFound"`
	UsedAlt      int `json:"usedAlt"`
	SkipExisting int `json:"skipExisting"`
	SkipInRun    int `json:"skipInRun"`
	DBDup        int `json:"dbDup"`
}

var (
	reNumber = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
	reSpaces = regexp.MustCompile(`[\x{00A0}\s]+`)
)

// parsePrice pulls the first numeric group out of a price string, tolerating
// thin spaces and comma decimals. Returns -1 when nothing numeric is found.
func parsePrice(s string) int64 {
	if s == "" {
		return -1
	}
	cleaned := reSpaces.ReplaceAllString(s, "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	m := reNumber.FindString(cleaned)
	if m == "" {
		return -1
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return -1
	}
	return int64(f + 0.5)
}
