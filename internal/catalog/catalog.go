// Package catalog reads BigQuery metadata (datasets, tables, schemas)
// through one of two interchangeable strategies: the native BigQuery API or
// INFORMATION_SCHEMA SQL queries.
package catalog

import (
	"context"
	"errors"
	"fmt"
)

// Catalog is the common surface of both metadata strategies. Listings are
// all-or-nothing: any underlying failure aborts the call with no partial
// results.
type Catalog interface {
	ListDatasets(ctx context.Context) ([]Dataset, error)
	ListTables(ctx context.Context, datasetID string) ([]Table, error)
	TableSchema(ctx context.Context, datasetID, tableID string) ([]Field, error)
	TestConnection(ctx context.Context) error
}

// Variant selects the metadata strategy backing a Catalog.
type Variant int

const (
	// VariantAPI uses the native BigQuery API.
	VariantAPI Variant = iota
	// VariantSQL uses INFORMATION_SCHEMA queries executed as query jobs.
	VariantSQL
)

func (v Variant) String() string {
	switch v {
	case VariantAPI:
		return "api"
	case VariantSQL:
		return "sql"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Capabilities reports which schema details a variant can populate. The SQL
// strategy derives field mode from nullability alone and INFORMATION_SCHEMA
// carries no column descriptions.
type Capabilities struct {
	FieldDescriptions bool
	RepeatedMode      bool
}

// VariantCapabilities returns the fidelity of the given strategy.
func VariantCapabilities(v Variant) Capabilities {
	switch v {
	case VariantSQL:
		return Capabilities{FieldDescriptions: false, RepeatedMode: false}
	default:
		return Capabilities{FieldDescriptions: true, RepeatedMode: true}
	}
}

// ErrNotFound marks a missing dataset, table, or schema. A table without a
// schema is an error, not an empty result.
var ErrNotFound = errors.New("not found")
