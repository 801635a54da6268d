// Package httpapi exposes the metadata and credential-management REST
// surface. The same handler set serves /api/bigquery (native strategy) and
// /api/bigquery-jdbc (INFORMATION_SCHEMA strategy).
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"bqgate/internal/catalog"
	"bqgate/internal/credentials"
)

// MetadataService is the slice of the service layer the facade needs.
type MetadataService interface {
	TestConnection(ctx context.Context, token string, v catalog.Variant) error
	ListDatasets(ctx context.Context, token string, v catalog.Variant) ([]catalog.Dataset, error)
	ListTables(ctx context.Context, token string, v catalog.Variant, datasetID string) ([]catalog.Table, error)
	TableSchema(ctx context.Context, token string, v catalog.Variant, datasetID, tableID string) ([]catalog.Field, error)
}

// CredentialStore is the slice of the credential store the facade needs.
type CredentialStore interface {
	Save(token string, raw []byte) (*credentials.Credential, error)
	Load(token string) (*credentials.Credential, error)
	Has(token string) bool
	Clear(token string) error
}

type handler struct {
	svc   MetadataService
	store CredentialStore
	log   *zap.Logger
}

// NewRouter assembles the full REST surface with logging, recovery, CORS,
// and session middleware applied.
func NewRouter(svc MetadataService, store CredentialStore, log *zap.Logger) http.Handler {
	h := &handler{svc: svc, store: store, log: log}

	r := chi.NewRouter()
	r.Use(RequestLogger(log))
	r.Use(Recoverer(log))
	r.Use(CORS)
	r.Use(Session)

	r.Route("/api/bigquery", func(r chi.Router) {
		h.metadataRoutes(r, catalog.VariantAPI)
	})
	r.Route("/api/bigquery-jdbc", func(r chi.Router) {
		h.metadataRoutes(r, catalog.VariantSQL)
	})
	r.Route("/api/service-account", func(r chi.Router) {
		r.Get("/info", h.credentialInfo)
		r.Post("/upload", h.uploadKey)
		r.Post("/update", h.updateKey)
		r.Get("/permissions", h.permissions)
		r.Delete("/", h.clearKey)
	})

	return r
}

func (h *handler) metadataRoutes(r chi.Router, v catalog.Variant) {
	r.Get("/test", h.testConnection(v))
	r.Get("/datasets", h.listDatasets(v))
	r.Get("/datasets/{datasetId}/tables", h.listTables(v))
	r.Get("/datasets/{datasetId}/tables/{tableId}/schema", h.tableSchema(v))
}

func (h *handler) testConnection(v catalog.Variant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.TestConnection(r.Context(), sessionToken(r.Context()), v); err != nil {
			h.log.Error("connection test failed", zap.Stringer("variant", v), zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Connection failed: " + err.Error()))
			return
		}
		w.Write([]byte("Connection successful!"))
	}
}

func (h *handler) listDatasets(v catalog.Variant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		datasets, err := h.svc.ListDatasets(r.Context(), sessionToken(r.Context()), v)
		if err != nil {
			h.log.Error("failed to list datasets", zap.Stringer("variant", v), zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, http.StatusOK, datasets)
	}
}

func (h *handler) listTables(v catalog.Variant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		datasetID := pathParam(r, "datasetId")
		if datasetID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		tables, err := h.svc.ListTables(r.Context(), sessionToken(r.Context()), v, datasetID)
		if err != nil {
			h.log.Error("failed to list tables",
				zap.Stringer("variant", v), zap.String("dataset", datasetID), zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, http.StatusOK, tables)
	}
}

func (h *handler) tableSchema(v catalog.Variant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		datasetID := pathParam(r, "datasetId")
		tableID := pathParam(r, "tableId")
		if datasetID == "" || tableID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		fields, err := h.svc.TableSchema(r.Context(), sessionToken(r.Context()), v, datasetID, tableID)
		if err != nil {
			h.log.Error("failed to get table schema",
				zap.Stringer("variant", v),
				zap.String("dataset", datasetID),
				zap.String("table", tableID),
				zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, http.StatusOK, fields)
	}
}

// pathParam returns a trimmed, unescaped URL parameter; chi hands back the
// raw segment, so an encoded blank would otherwise slip past validation.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return strings.TrimSpace(raw)
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("failed to encode response", zap.Error(err))
	}
}
