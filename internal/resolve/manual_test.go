package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/xray/pkg/logger"
)

func TestLoadManualTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mappings.json")

	content := `{
		"AAPL": "US0378331005",
		"vod.l": "GB00BH4HKS39",
		"BAD": "not-an-id"
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table := LoadManualTable(path, logger.NewNop())

	assert.Equal(t, 2, table.Len(), "invalid ids must be skipped")

	id, ok := table.Lookup("AAPL")
	require.True(t, ok)
	assert.Equal(t, "US0378331005", id)

	// Lookup normalizes the ticker the same way loading does
	id, ok = table.Lookup("VOD.L")
	require.True(t, ok)
	assert.Equal(t, "GB00BH4HKS39", id)

	_, ok = table.Lookup("BAD")
	assert.False(t, ok)
}

func TestLoadManualTableMissingFile(t *testing.T) {
	table := LoadManualTable(filepath.Join(t.TempDir(), "nope.json"), logger.NewNop())
	assert.Zero(t, table.Len())

	_, ok := table.Lookup("AAPL")
	assert.False(t, ok)
}

func TestLoadManualTableMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))

	table := LoadManualTable(path, logger.NewNop())
	assert.Zero(t, table.Len())
}

func TestWritebackDropsWhenFull(t *testing.T) {
	// No worker running: construct directly with a tiny channel
	w := &Writeback{
		ch:     make(chan writebackItem, 1),
		logger: logger.NewNop(),
	}

	w.Enqueue(writebackItem{Ticker: "A", CanonicalID: "US0000000001"})
	w.Enqueue(writebackItem{Ticker: "B", CanonicalID: "US0000000002"})

	assert.Equal(t, 1, w.Dropped(), "second enqueue must drop, not block")
}
