package catalog

import (
	"context"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/goccy/bigquery-emulator/server"
	"github.com/goccy/bigquery-emulator/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func setupTestServer(t *testing.T) string {
	t.Helper()

	testServer, err := server.New(server.TempStorage)
	require.NoError(t, err)

	require.NoError(t, testServer.Load(
		server.StructSource(
			types.NewProject("test-project",
				types.NewDataset("test_dataset",
					types.NewTable("test_table",
						[]*types.Column{
							{Name: "id", Type: types.INTEGER},
							{Name: "name", Type: types.STRING},
							{Name: "created_at", Type: types.TIMESTAMP},
						},
						types.Data{
							{
								"id":         1,
								"name":       "test_user_1",
								"created_at": "2023-01-01 00:00:00",
							},
						},
					),
				),
			),
		),
	))

	require.NoError(t, testServer.Start())
	t.Cleanup(func() { testServer.Stop() })

	return testServer.URL()
}

func newEmulatorClient(t *testing.T, endpoint string) *bigquery.Client {
	t.Helper()

	client, err := bigquery.NewClient(context.Background(), "test-project",
		option.WithEndpoint(endpoint),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestAPICatalogListDatasets(t *testing.T) {
	endpoint := setupTestServer(t)
	cat := NewAPICatalog(newEmulatorClient(t, endpoint))

	datasets, err := cat.ListDatasets(context.Background())
	require.NoError(t, err)

	require.Len(t, datasets, 1)
	assert.Equal(t, "test_dataset", datasets[0].DatasetID)
	assert.Equal(t, "test-project", datasets[0].ProjectID)
}

func TestAPICatalogListTables(t *testing.T) {
	endpoint := setupTestServer(t)
	cat := NewAPICatalog(newEmulatorClient(t, endpoint))

	tables, err := cat.ListTables(context.Background(), "test_dataset")
	require.NoError(t, err)

	require.Len(t, tables, 1)
	assert.Equal(t, "test_table", tables[0].TableID)
	assert.Equal(t, "test_dataset", tables[0].DatasetID)
	assert.Equal(t, "test-project", tables[0].ProjectID)
	// The listing avoids per-table metadata calls, so the type is fixed.
	assert.Equal(t, "TABLE", tables[0].Type)
}

func TestAPICatalogTableSchema(t *testing.T) {
	endpoint := setupTestServer(t)
	cat := NewAPICatalog(newEmulatorClient(t, endpoint))

	fields, err := cat.TableSchema(context.Background(), "test_dataset", "test_table")
	require.NoError(t, err)

	require.Len(t, fields, 3)
	assert.Equal(t, "id", fields[0].Name)
	assert.Equal(t, "INTEGER", fields[0].Type)
	assert.Equal(t, ModeNullable, fields[0].Mode)
	assert.Equal(t, "name", fields[1].Name)
	assert.Equal(t, "STRING", fields[1].Type)
	assert.Equal(t, "created_at", fields[2].Name)
	assert.Equal(t, "TIMESTAMP", fields[2].Type)
}

func TestAPICatalogTableSchemaNotFound(t *testing.T) {
	endpoint := setupTestServer(t)
	cat := NewAPICatalog(newEmulatorClient(t, endpoint))

	_, err := cat.TableSchema(context.Background(), "test_dataset", "no_such_table")
	require.Error(t, err)
}

func TestAPICatalogTestConnection(t *testing.T) {
	endpoint := setupTestServer(t)
	cat := NewAPICatalog(newEmulatorClient(t, endpoint))

	require.NoError(t, cat.TestConnection(context.Background()))
}
