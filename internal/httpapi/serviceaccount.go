package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"bqgate/internal/credentials"
)

// maxKeySize caps uploaded key files; real service account keys are ~2.5 KB.
const maxKeySize = 64 << 10

// credentialInfo reports non-sensitive facts about the credential the
// current session resolves to.
func (h *handler) credentialInfo(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r.Context())

	cred, err := h.store.Load(token)
	if err != nil {
		h.log.Error("failed to resolve session credentials", zap.String("session", token), zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":               "active",
		"serviceAccountEmail":  cred.Email,
		"projectId":            cred.ProjectID,
		"sessionId":            token,
		"hasCustomCredentials": h.store.Has(token),
		"credentialsSource":    string(cred.Source),
		"credentialsPath":      cred.Path,
	})
}

// uploadKey accepts a service account key as a multipart file upload.
func (h *handler) uploadKey(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"status":  "error",
			"message": "missing file upload",
		})
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxKeySize))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"status":  "error",
			"message": "failed to read uploaded file: " + err.Error(),
		})
		return
	}
	if len(raw) == 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"status":  "error",
			"message": "File is empty",
		})
		return
	}

	h.saveKey(w, r, raw)
}

// updateKey accepts a service account key as raw JSON in the request body.
func (h *handler) updateKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ServiceAccountJSON string `json:"serviceAccountJson"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxKeySize)).Decode(&body); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"status":  "error",
			"message": "invalid request body: " + err.Error(),
		})
		return
	}
	if strings.TrimSpace(body.ServiceAccountJSON) == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"status":  "error",
			"message": "serviceAccountJson is required",
		})
		return
	}

	h.saveKey(w, r, []byte(body.ServiceAccountJSON))
}

func (h *handler) saveKey(w http.ResponseWriter, r *http.Request, raw []byte) {
	token := sessionToken(r.Context())

	cred, err := h.store.Save(token, raw)
	if err != nil {
		var verr *credentials.ValidationError
		if errors.As(err, &verr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"status":  "error",
				"message": verr.Error(),
			})
			return
		}
		h.log.Error("failed to save session credentials", zap.String("session", token), zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":              "uploaded",
		"message":             "Service account uploaded successfully for your session",
		"serviceAccountEmail": cred.Email,
		"projectId":           cred.ProjectID,
		"sessionId":           token,
		"savedTo":             cred.Path,
	})
}

// clearKey removes the session's credential and expires the session cookie,
// forcing a fresh token on next use.
func (h *handler) clearKey(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r.Context())

	if err := h.store.Clear(token); err != nil {
		h.log.Error("failed to clear session credentials", zap.String("session", token), zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	expireSessionCookie(w)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "cleared",
		"message": "Session credentials cleared",
	})
}

// permissions returns static reference documentation about the IAM roles the
// service account needs.
func (h *handler) permissions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"requiredPermissions": requiredPermissions,
		"permissionGuide":     permissionGuide,
		"gcloudCommands":      gcloudCommands,
	})
}

var requiredPermissions = map[string]any{
	"minimum": []map[string]string{
		{
			"role":        "roles/bigquery.metadataViewer",
			"description": "View metadata for all datasets and tables",
			"purpose":     "Required to list datasets, tables, and schemas",
			"permissions": "bigquery.datasets.get, bigquery.tables.get, bigquery.tables.list",
		},
		{
			"role":        "roles/bigquery.jobUser",
			"description": "Run BigQuery jobs (queries)",
			"purpose":     "Required for the INFORMATION_SCHEMA strategy to execute SQL queries",
			"permissions": "bigquery.jobs.create",
		},
	},
	"optional": []map[string]string{
		{
			"role":        "roles/bigquery.dataViewer",
			"description": "Read table data and metadata",
			"purpose":     "Optional: only needed to query actual table data",
			"permissions": "bigquery.tables.getData",
		},
	},
	"notRecommended": []map[string]string{
		{
			"role":        "roles/bigquery.admin",
			"description": "Full BigQuery access",
			"purpose":     "Too permissive for metadata browsing",
			"permissions": "All BigQuery permissions",
		},
	},
}

var permissionGuide = map[string]any{
	"summary": "Your service account needs these permissions to work with this application",
	"minimumRoles": []string{
		"roles/bigquery.metadataViewer - View datasets, tables, and schemas",
		"roles/bigquery.jobUser - Run INFORMATION_SCHEMA queries",
	},
	"howToAssign": []string{
		"Option 1: Use Google Cloud Console (IAM & Admin > Service Accounts)",
		"Option 2: Use gcloud CLI commands (see gcloudCommands)",
	},
	"verification": []string{
		"Test with: GET /api/bigquery/test (native API strategy)",
		"Test with: GET /api/bigquery-jdbc/test (INFORMATION_SCHEMA strategy)",
	},
}

var gcloudCommands = map[string]any{
	"description": "Use these commands to assign the required permissions to your service account",
	"step1": map[string]string{
		"description": "Set your service account email and project ID",
		"command":     "export SERVICE_ACCOUNT_EMAIL=\"your-service-account@your-project.iam.gserviceaccount.com\"\nexport PROJECT_ID=\"your-project-id\"",
	},
	"step2": map[string]string{
		"description": "Assign BigQuery Metadata Viewer role",
		"command":     "gcloud projects add-iam-policy-binding $PROJECT_ID \\\n  --member=\"serviceAccount:$SERVICE_ACCOUNT_EMAIL\" \\\n  --role=\"roles/bigquery.metadataViewer\"",
	},
	"step3": map[string]string{
		"description": "Assign BigQuery Job User role",
		"command":     "gcloud projects add-iam-policy-binding $PROJECT_ID \\\n  --member=\"serviceAccount:$SERVICE_ACCOUNT_EMAIL\" \\\n  --role=\"roles/bigquery.jobUser\"",
	},
	"step4": map[string]string{
		"description": "Verify permissions",
		"command":     "gcloud projects get-iam-policy $PROJECT_ID \\\n  --flatten=\"bindings[].members\" \\\n  --filter=\"bindings.members:serviceAccount:$SERVICE_ACCOUNT_EMAIL\"",
	},
	"optional": map[string]string{
		"description": "If you need to read actual table data (not just metadata)",
		"command":     "gcloud projects add-iam-policy-binding $PROJECT_ID \\\n  --member=\"serviceAccount:$SERVICE_ACCOUNT_EMAIL\" \\\n  --role=\"roles/bigquery.dataViewer\"",
	},
}
