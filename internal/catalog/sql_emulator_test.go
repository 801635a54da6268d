//go:build emulator
// +build emulator

package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The SQL strategy needs INFORMATION_SCHEMA views, which the emulator only
// partially implements. The tests below are wired up for the emulator but
// skipped until its INFORMATION_SCHEMA support catches up; drop the skips
// and run with:
//
//	go test -tags emulator ./internal/catalog

func TestSQLCatalogListDatasets(t *testing.T) {
	t.Skip("emulator INFORMATION_SCHEMA support incomplete")

	endpoint := setupTestServer(t)
	cat := NewSQLCatalog(newEmulatorClient(t, endpoint))

	datasets, err := cat.ListDatasets(context.Background())
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	assert.Equal(t, "test_dataset", datasets[0].DatasetID)
	// SCHEMATA carries no metadata; the friendly name mirrors the identifier.
	assert.Equal(t, "test_dataset", datasets[0].FriendlyName)
}

// Both strategies must agree on dataset identifiers even though the SQL path
// returns less metadata per dataset.
func TestVariantsReturnSameDatasetIDs(t *testing.T) {
	t.Skip("emulator INFORMATION_SCHEMA support incomplete")

	endpoint := setupTestServer(t)
	client := newEmulatorClient(t, endpoint)

	apiDatasets, err := NewAPICatalog(client).ListDatasets(context.Background())
	require.NoError(t, err)
	sqlDatasets, err := NewSQLCatalog(client).ListDatasets(context.Background())
	require.NoError(t, err)

	apiIDs := make([]string, 0, len(apiDatasets))
	for _, d := range apiDatasets {
		apiIDs = append(apiIDs, d.DatasetID)
	}
	sqlIDs := make([]string, 0, len(sqlDatasets))
	for _, d := range sqlDatasets {
		sqlIDs = append(sqlIDs, d.DatasetID)
	}
	assert.ElementsMatch(t, apiIDs, sqlIDs)
}

func TestSQLCatalogTableSchemaModes(t *testing.T) {
	t.Skip("emulator INFORMATION_SCHEMA support incomplete")

	endpoint := setupTestServer(t)
	cat := NewSQLCatalog(newEmulatorClient(t, endpoint))

	fields, err := cat.TableSchema(context.Background(), "test_dataset", "test_table")
	require.NoError(t, err)
	for _, f := range fields {
		// is_nullable can only yield these two; REPEATED is not derivable.
		assert.Contains(t, []string{ModeNullable, ModeRequired}, f.Mode)
		assert.Empty(t, f.Description)
	}
}
