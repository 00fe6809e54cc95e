// Package archive keeps rendered HTML copies of sent notifications on disk,
// one file per recipient. The directory is both the audit record of a send
// run and the source content for retry passes.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Store is a filesystem archive of rendered notifications. It implements
// core.ArchiveStore.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates the archive directory if needed and returns a store
// rooted there.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the archive directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the rendered HTML under {member_id}_{FIRST}_{LAST}.html and
// returns the filename. Spaces in any name component become underscores so
// the filename stays parseable.
func (s *Store) Save(memberID, firstName, lastName, html string) (string, error) {
	name := fmt.Sprintf("%s_%s_%s.html", memberID, firstName, lastName)
	name = strings.ReplaceAll(name, " ", "_")
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", path, err)
	}
	s.logger.Debug("Archived rendered email", zap.String("artifact", name))
	return name, nil
}

// List returns the archived artifact filenames, sorted for determinism.
func (s *Store) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("list archive %s: %w", s.dir, err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the archived HTML for one artifact.
func (s *Store) Read(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("read artifact %s: %w", name, err)
	}
	return string(data), nil
}
