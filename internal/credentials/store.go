// Package credentials manages per-session BigQuery service account keys.
// Each session token maps to at most one cached credential and one key file
// on disk; sessions without an uploaded key fall back to the process-wide
// default key.
package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
)

// Source tells where a resolved credential came from.
type Source string

const (
	SourceSession Source = "Session-specific"
	SourceDefault Source = "Default"
)

// Credential is a validated service account key together with the metadata
// the API surface exposes. JSON holds the raw key, ready for
// option.WithCredentialsJSON.
type Credential struct {
	Email     string
	ProjectID string
	Path      string
	Source    Source
	JSON      []byte
}

// ValidationError marks an uploaded key that is malformed or not a service
// account key. It maps to a 400 at the HTTP boundary.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// serviceAccountKey is the subset of the key file the store needs to read.
type serviceAccountKey struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// Store maps session tokens to credentials, backed by one JSON key file per
// token under dir. The in-memory cache is replaced atomically per key; the
// default key is reloaded on every use so a rotated default takes effect
// without invalidation logic.
type Store struct {
	dir         string
	defaultPath string
	log         *zap.Logger

	mu    sync.RWMutex
	cache map[string]*Credential
}

// NewStore creates the session key directory if needed.
func NewStore(dir, defaultPath string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session credentials directory %s: %w", dir, err)
	}
	log.Info("session credentials directory initialized", zap.String("dir", dir))
	return &Store{
		dir:         dir,
		defaultPath: defaultPath,
		log:         log,
		cache:       make(map[string]*Credential),
	}, nil
}

// Path returns the key file location for a session token.
func (s *Store) Path(token string) string {
	return filepath.Join(s.dir, "service-account-"+token+".json")
}

// tokenSafe rejects tokens that could escape the store directory. Tokens
// normally arrive as UUIDs, but they originate in a client cookie, so path
// separators must never reach Path.
func tokenSafe(token string) bool {
	return token != "" && !strings.ContainsAny(token, `/\`) && token != "." && token != ".."
}

// Save validates raw as a service account key, writes it to the session's
// key file, and replaces the cache entry. A failed validation leaves both
// cache and disk untouched. The write and the cache replacement share the
// lock so concurrent saves for one token cannot leave the file from one
// upload behind the cache entry of another.
func (s *Store) Save(token string, raw []byte) (*Credential, error) {
	if !tokenSafe(token) {
		return nil, &ValidationError{msg: "invalid session token"}
	}

	path := s.Path(token)
	cred, err := parseServiceAccountKey(raw, path, SourceSession)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to write session credentials %s: %w", path, err)
	}
	s.cache[token] = cred
	s.mu.Unlock()

	s.log.Info("session credentials saved",
		zap.String("session", token),
		zap.String("email", cred.Email),
		zap.String("project", cred.ProjectID),
		zap.String("path", path))
	return cred, nil
}

// Load resolves the credential for a session: cache, then the session's key
// file, then the default key. An empty or malformed token (no HTTP session,
// e.g. background use) goes straight to the default.
func (s *Store) Load(token string) (*Credential, error) {
	if tokenSafe(token) {
		s.mu.RLock()
		cred, ok := s.cache[token]
		s.mu.RUnlock()
		if ok {
			s.log.Debug("using cached credentials", zap.String("session", token))
			return cred, nil
		}

		path := s.Path(token)
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			cred, err := parseServiceAccountKey(raw, path, SourceSession)
			if err != nil {
				return nil, fmt.Errorf("invalid session credentials %s: %w", path, err)
			}
			s.mu.Lock()
			s.cache[token] = cred
			s.mu.Unlock()
			s.log.Info("loaded session credentials from disk", zap.String("path", path))
			return cred, nil
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read session credentials %s: %w", path, err)
		}
	}

	return s.loadDefault()
}

// loadDefault reads the default key fresh on every call, never caching it.
func (s *Store) loadDefault() (*Credential, error) {
	raw, err := os.ReadFile(s.defaultPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read default credentials %s: %w", s.defaultPath, err)
	}
	cred, err := parseServiceAccountKey(raw, s.defaultPath, SourceDefault)
	if err != nil {
		return nil, fmt.Errorf("invalid default credentials %s: %w", s.defaultPath, err)
	}
	return cred, nil
}

// Has reports whether a session key file exists on disk. Cache state is
// deliberately not consulted.
func (s *Store) Has(token string) bool {
	if !tokenSafe(token) {
		return false
	}
	_, err := os.Stat(s.Path(token))
	return err == nil
}

// Clear drops the cache entry and deletes the session's key file. A missing
// file is not an error.
func (s *Store) Clear(token string) error {
	if !tokenSafe(token) {
		return nil
	}

	s.mu.Lock()
	delete(s.cache, token)
	s.mu.Unlock()

	path := s.Path(token)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete session credentials %s: %w", path, err)
	}
	s.log.Info("deleted session credentials", zap.String("path", path))
	return nil
}

func parseServiceAccountKey(raw []byte, path string, source Source) (*Credential, error) {
	var key serviceAccountKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, &ValidationError{msg: "invalid service account key: not valid JSON"}
	}
	if key.Type != "service_account" {
		return nil, &ValidationError{msg: fmt.Sprintf("invalid service account key format: type %q", key.Type)}
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, &ValidationError{msg: "invalid service account key: missing client_email or private_key"}
	}
	// Let the oauth2 parser reject anything the struct check missed.
	if _, err := google.JWTConfigFromJSON(raw, bigquery.Scope); err != nil {
		return nil, &ValidationError{msg: fmt.Sprintf("invalid service account key: %v", err)}
	}

	return &Credential{
		Email:     key.ClientEmail,
		ProjectID: key.ProjectID,
		Path:      path,
		Source:    source,
		JSON:      raw,
	}, nil
}
