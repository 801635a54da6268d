package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// apiCatalog reads metadata through the native BigQuery API.
type apiCatalog struct {
	client    *bigquery.Client
	projectID string
}

// NewAPICatalog wraps an existing BigQuery client in the native strategy.
// The caller keeps ownership of the client.
func NewAPICatalog(client *bigquery.Client) Catalog {
	return &apiCatalog{client: client, projectID: client.Project()}
}

func (c *apiCatalog) ListDatasets(ctx context.Context) ([]Dataset, error) {
	datasets := make([]Dataset, 0)
	it := c.client.Datasets(ctx)

	for {
		ds, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate datasets: %w", err)
		}

		md, err := ds.Metadata(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get metadata for dataset %s: %w", ds.DatasetID, err)
		}

		d := Dataset{
			DatasetID:    ds.DatasetID,
			ProjectID:    c.projectID,
			FriendlyName: md.Name,
			Description:  md.Description,
			Location:     md.Location,
		}
		if !md.CreationTime.IsZero() {
			d.CreationTime = md.CreationTime.UnixMilli()
		}
		datasets = append(datasets, d)
	}

	return datasets, nil
}

func (c *apiCatalog) ListTables(ctx context.Context, datasetID string) ([]Table, error) {
	tables := make([]Table, 0)
	it := c.client.Dataset(datasetID).Tables(ctx)

	for {
		table, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("dataset %s: %w", datasetID, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to iterate tables in dataset %s: %w", datasetID, err)
		}

		// The listing response only carries identifiers. The real type would
		// need a per-table metadata call, which is deliberately avoided.
		tables = append(tables, Table{
			TableID:   table.TableID,
			DatasetID: datasetID,
			ProjectID: c.projectID,
			Type:      "TABLE",
		})
	}

	return tables, nil
}

func (c *apiCatalog) TableSchema(ctx context.Context, datasetID, tableID string) ([]Field, error) {
	md, err := c.client.Dataset(datasetID).Table(tableID).Metadata(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("table %s.%s: %w", datasetID, tableID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get metadata for table %s.%s: %w", datasetID, tableID, err)
	}
	if md.Schema == nil {
		return nil, fmt.Errorf("table %s.%s has no schema: %w", datasetID, tableID, ErrNotFound)
	}

	fields := make([]Field, 0, len(md.Schema))
	for _, fs := range md.Schema {
		fields = append(fields, Field{
			Name:        fs.Name,
			Type:        string(fs.Type),
			Mode:        fieldMode(fs),
			Description: fs.Description,
		})
	}
	return fields, nil
}

func (c *apiCatalog) TestConnection(ctx context.Context) error {
	// Listing the first page of datasets is the cheapest authenticated call.
	it := c.client.Datasets(ctx)
	if _, err := it.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

func fieldMode(fs *bigquery.FieldSchema) string {
	switch {
	case fs.Repeated:
		return ModeRepeated
	case fs.Required:
		return ModeRequired
	default:
		return ModeNullable
	}
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
