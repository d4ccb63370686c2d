package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/go-logr/logr"
)

// Store persists manifests as JSON at caller-chosen project-local paths.
// Timestamps serialize as RFC 3339 strings and enumerations as plain strings.
type Store struct {
	log logr.Logger
}

// NewStore creates a manifest store.
func NewStore(log logr.Logger) *Store {
	return &Store{log: log}
}

// Load reads a manifest from path. A missing file surfaces as an error
// wrapping fs.ErrNotExist so callers can fall back to creating a fresh
// manifest.
func (s *Store) Load(path string) (*ChangeManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m ChangeManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, err)
	}

	if m.Environments == nil {
		m.Environments = make(map[string]*EnvironmentStatus)
	}
	if m.Templates == nil {
		m.Templates = make(map[string]TemplateVersion)
	}
	if m.TemplateGraph == nil {
		m.TemplateGraph = make(map[string][]string)
	}

	s.log.V(1).Info("loaded manifest", "path", path, "project", m.ProjectName)
	return &m, nil
}

// Save writes a manifest to path atomically: the content goes to a temporary
// file in the same directory which then replaces the target. When the
// serialized content is identical to what is already on disk, the write is
// skipped.
func (s *Store) Save(m *ChangeManifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if existing, err := os.ReadFile(path); err == nil {
		if xxhash.Sum64(existing) == xxhash.Sum64(data) {
			s.log.V(1).Info("manifest unchanged, skipping write", "path", path)
			return nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary manifest file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close manifest file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace manifest %s: %w", path, err)
	}

	s.log.V(1).Info("saved manifest", "path", path, "bytes", len(data))
	return nil
}
