package catalog

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// sqlCatalog reads metadata through INFORMATION_SCHEMA queries executed as
// query jobs. It produces the same records as the native strategy with
// reduced fidelity: dataset listings carry identifiers only, and field mode
// is derived from nullability (REPEATED is not expressible here).
type sqlCatalog struct {
	client    *bigquery.Client
	projectID string
}

// NewSQLCatalog wraps an existing BigQuery client in the INFORMATION_SCHEMA
// strategy. The caller keeps ownership of the client.
func NewSQLCatalog(client *bigquery.Client) Catalog {
	return &sqlCatalog{client: client, projectID: client.Project()}
}

func schemataQuery(projectID string) string {
	return fmt.Sprintf(
		"SELECT schema_name, catalog_name FROM `%s`.INFORMATION_SCHEMA.SCHEMATA ORDER BY schema_name",
		projectID)
}

func tablesQuery(projectID, datasetID string) string {
	return fmt.Sprintf(
		"SELECT table_name, table_type, creation_time FROM `%s.%s`.INFORMATION_SCHEMA.TABLES ORDER BY table_name",
		projectID, datasetID)
}

func columnsQuery(projectID, datasetID string) string {
	return fmt.Sprintf(
		"SELECT column_name, data_type, is_nullable FROM `%s.%s`.INFORMATION_SCHEMA.COLUMNS "+
			"WHERE table_name = @table ORDER BY ordinal_position",
		projectID, datasetID)
}

func (c *sqlCatalog) ListDatasets(ctx context.Context) ([]Dataset, error) {
	q := c.client.Query(schemataQuery(c.projectID))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query INFORMATION_SCHEMA.SCHEMATA: %w", err)
	}

	datasets := make([]Dataset, 0)
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate schemata rows: %w", err)
		}

		name, _ := row[0].(string)
		datasets = append(datasets, Dataset{
			DatasetID: name,
			ProjectID: c.projectID,
			// SCHEMATA exposes no friendly name; mirror the identifier.
			FriendlyName: name,
		})
	}

	return datasets, nil
}

func (c *sqlCatalog) ListTables(ctx context.Context, datasetID string) ([]Table, error) {
	q := c.client.Query(tablesQuery(c.projectID, datasetID))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query INFORMATION_SCHEMA.TABLES for dataset %s: %w", datasetID, err)
	}

	tables := make([]Table, 0)
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate table rows for dataset %s: %w", datasetID, err)
		}

		name, _ := row[0].(string)
		tableType, _ := row[1].(string)
		t := Table{
			TableID:   name,
			DatasetID: datasetID,
			ProjectID: c.projectID,
			Type:      tableType,
		}
		if created, ok := row[2].(time.Time); ok {
			t.CreationTime = created.UnixMilli()
		}
		tables = append(tables, t)
	}

	return tables, nil
}

func (c *sqlCatalog) TableSchema(ctx context.Context, datasetID, tableID string) ([]Field, error) {
	q := c.client.Query(columnsQuery(c.projectID, datasetID))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "table", Value: tableID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query INFORMATION_SCHEMA.COLUMNS for table %s.%s: %w", datasetID, tableID, err)
	}

	fields := make([]Field, 0)
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate column rows for table %s.%s: %w", datasetID, tableID, err)
		}

		name, _ := row[0].(string)
		dataType, _ := row[1].(string)
		nullable, _ := row[2].(string)

		mode := ModeRequired
		if nullable == "YES" {
			mode = ModeNullable
		}
		fields = append(fields, Field{
			Name: name,
			Type: dataType,
			Mode: mode,
			// COLUMNS carries no description.
		})
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("table %s.%s has no columns: %w", datasetID, tableID, ErrNotFound)
	}
	return fields, nil
}

func (c *sqlCatalog) TestConnection(ctx context.Context) error {
	it, err := c.client.Query(schemataQuery(c.projectID)).Read(ctx)
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	var row []bigquery.Value
	if err := it.Next(&row); err != nil && err != iterator.Done {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}
