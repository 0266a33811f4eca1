package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-service/internal/importer"
)

func TestImportReportJSONKeys(t *testing.T) {
	report := ImportReport{
		TotalFound:   3,
		Processed:    2,
		CreatedCount: 1,
		Created:      []CreatedItem{{ID: 1, Title: "Меч", Price: 100, PhotoURL: "uploads/items/x.png"}},
		Errors:       []ImportError{{Title: "Щит", ImageURL: "https://x/i.png", Error: "image download: status 404"}},
		Stats:        importer.Stats{TotalFound: 3, UsedAlt: 1, SkipExisting: 1},
	}

	data, err := json.Marshal(report)
	require.NoError(t, err)
	body := string(data)

	for _, key := range []string{
		`"totalFound"`, `"processed"`, `"createdCount"`, `"created"`, `"errors"`, `"stats"`,
		`"photoUrl"`, `"imageUrl"`, `"usedAlt"`, `"skipExisting"`, `"skipInRun"`, `"dbDup"`,
	} {
		assert.Contains(t, body, key)
	}
	assert.NotContains(t, body, "total_found")
	assert.NotContains(t, body, "created_count")
}
