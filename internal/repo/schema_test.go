package repo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Line order is part of the order aggregate: benefit strategies break price
// ties by insertion order, so a reloaded order must present its items in the
// sequence they were inserted. The seq identity column carries that sequence.
func TestSchemaCarriesItemInsertionOrder(t *testing.T) {
	start := strings.Index(schemaSQL, "CREATE TABLE IF NOT EXISTS order_items")
	require.GreaterOrEqual(t, start, 0)
	block := schemaSQL[start:]
	block = block[:strings.Index(block, ";")]

	require.Contains(t, block, "seq")
	require.Contains(t, block, "GENERATED ALWAYS AS IDENTITY")
}
