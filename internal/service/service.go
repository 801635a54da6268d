// Package service orchestrates metadata reads: resolve the session's
// credential, build a BigQuery client bound to it, delegate to the requested
// catalog strategy. Nothing is cached across calls; every call constructs a
// fresh client so a re-uploaded key takes effect immediately.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"cloud.google.com/go/bigquery"

	"bqgate/internal/catalog"
	"bqgate/internal/credentials"
)

// Service exposes the metadata operations of both catalog variants.
type Service struct {
	store     *credentials.Store
	projectID string
	log       *zap.Logger

	clientOpts []option.ClientOption
	skipCreds  bool
}

// Option configures a Service.
type Option func(*Service)

// WithClientOptions appends BigQuery client options to every client the
// service builds, e.g. an emulator endpoint.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(s *Service) { s.clientOpts = append(s.clientOpts, opts...) }
}

// WithoutCredentials skips credential resolution entirely; used together
// with option.WithoutAuthentication against an emulator.
func WithoutCredentials() Option {
	return func(s *Service) { s.skipCreds = true }
}

// New builds a Service for a fixed project.
func New(store *credentials.Store, projectID string, log *zap.Logger, opts ...Option) *Service {
	s := &Service{store: store, projectID: projectID, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TestConnection verifies the session's credential can reach BigQuery.
func (s *Service) TestConnection(ctx context.Context, token string, v catalog.Variant) error {
	cat, done, err := s.catalog(ctx, token, v)
	if err != nil {
		return err
	}
	defer done()
	return cat.TestConnection(ctx)
}

// ListDatasets lists the project's datasets through the given strategy.
func (s *Service) ListDatasets(ctx context.Context, token string, v catalog.Variant) ([]catalog.Dataset, error) {
	cat, done, err := s.catalog(ctx, token, v)
	if err != nil {
		return nil, err
	}
	defer done()
	return cat.ListDatasets(ctx)
}

// ListTables lists the tables of a dataset through the given strategy.
func (s *Service) ListTables(ctx context.Context, token string, v catalog.Variant, datasetID string) ([]catalog.Table, error) {
	cat, done, err := s.catalog(ctx, token, v)
	if err != nil {
		return nil, err
	}
	defer done()
	return cat.ListTables(ctx, datasetID)
}

// TableSchema fetches the column schema of a table through the given strategy.
func (s *Service) TableSchema(ctx context.Context, token string, v catalog.Variant, datasetID, tableID string) ([]catalog.Field, error) {
	cat, done, err := s.catalog(ctx, token, v)
	if err != nil {
		return nil, err
	}
	defer done()
	return cat.TableSchema(ctx, datasetID, tableID)
}

// catalog builds a fresh client bound to the session's credential and wraps
// it in the requested strategy. The returned func closes the client.
func (s *Service) catalog(ctx context.Context, token string, v catalog.Variant) (catalog.Catalog, func(), error) {
	client, err := s.newClient(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	done := func() {
		if err := client.Close(); err != nil {
			s.log.Warn("failed to close BigQuery client", zap.Error(err))
		}
	}

	switch v {
	case catalog.VariantSQL:
		return catalog.NewSQLCatalog(client), done, nil
	default:
		return catalog.NewAPICatalog(client), done, nil
	}
}

func (s *Service) newClient(ctx context.Context, token string) (*bigquery.Client, error) {
	opts := append([]option.ClientOption(nil), s.clientOpts...)

	if !s.skipCreds {
		cred, err := s.store.Load(token)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve credentials: %w", err)
		}
		s.log.Debug("resolved credentials",
			zap.String("session", token),
			zap.String("source", string(cred.Source)),
			zap.String("email", cred.Email))
		opts = append(opts, option.WithCredentialsJSON(cred.JSON))
	}

	client, err := bigquery.NewClient(ctx, s.projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}
	return client, nil
}
