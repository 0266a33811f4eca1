// Package dedup builds the composite keys that keep a seller from listing
// the same item twice in one game's catalog.
package dedup

import "fmt"

// Scheme is the source prefix of a dedup key. Older records were written
// with the manual/playerok prefixes before the schemes were unified, so
// uniqueness checks must match those variants too.
type Scheme string

const (
	SchemeItem     Scheme = "item" // current, uniform across sources
	SchemeManual   Scheme = "manual"
	SchemePlayerOk Scheme = "playerok"
)

// legacySchemes are matched on lookup but never written.
var legacySchemes = []Scheme{SchemeManual, SchemePlayerOk}

// BuildKey composes the stable dedup key for a listing's coordinates.
// Format: "{scheme}|{gameID}|{sellerID}|{titleKey}".
func BuildKey(scheme Scheme, gameID, sellerID int64, titleKey string) string {
	return fmt.Sprintf("%s|%d|%d|%s", scheme, gameID, sellerID, titleKey)
}

// CurrentKey builds the key under the current scheme.
func CurrentKey(gameID, sellerID int64, titleKey string) string {
	return BuildKey(SchemeItem, gameID, sellerID, titleKey)
}

// AllVariants returns the current key plus every legacy variant for the same
// coordinates. An insert conflicts if any of these already exists.
func AllVariants(gameID, sellerID int64, titleKey string) []string {
	keys := make([]string, 0, 1+len(legacySchemes))
	keys = append(keys, CurrentKey(gameID, sellerID, titleKey))
	for _, s := range legacySchemes {
		keys = append(keys, BuildKey(s, gameID, sellerID, titleKey))
	}
	return keys
}
