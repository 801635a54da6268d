package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariantString(t *testing.T) {
	assert.Equal(t, "api", VariantAPI.String())
	assert.Equal(t, "sql", VariantSQL.String())
}

func TestVariantCapabilities(t *testing.T) {
	api := VariantCapabilities(VariantAPI)
	assert.True(t, api.FieldDescriptions)
	assert.True(t, api.RepeatedMode)

	sql := VariantCapabilities(VariantSQL)
	assert.False(t, sql.FieldDescriptions)
	assert.False(t, sql.RepeatedMode)
}

func TestSchemataQuery(t *testing.T) {
	assert.Equal(t,
		"SELECT schema_name, catalog_name FROM `my-project`.INFORMATION_SCHEMA.SCHEMATA ORDER BY schema_name",
		schemataQuery("my-project"))
}

func TestTablesQuery(t *testing.T) {
	assert.Equal(t,
		"SELECT table_name, table_type, creation_time FROM `my-project.my_dataset`.INFORMATION_SCHEMA.TABLES ORDER BY table_name",
		tablesQuery("my-project", "my_dataset"))
}

func TestColumnsQueryUsesParameter(t *testing.T) {
	q := columnsQuery("my-project", "my_dataset")
	assert.Contains(t, q, "`my-project.my_dataset`.INFORMATION_SCHEMA.COLUMNS")
	assert.Contains(t, q, "table_name = @table")
	assert.Contains(t, q, "ORDER BY ordinal_position")
}
