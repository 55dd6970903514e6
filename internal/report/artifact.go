package report

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// ArtifactStore persists rendered report artifacts and returns a locator the
// customer record can expose.
type ArtifactStore interface {
	Store(ctx context.Context, name string, data []byte) (string, error)
}

// FSArtifactStore writes artifacts under a base directory on local disk.
type FSArtifactStore struct {
	baseDir string
}

// NewFSArtifactStore creates the base directory if needed.
func NewFSArtifactStore(baseDir string) (*FSArtifactStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create artifact dir %s", baseDir)
	}
	return &FSArtifactStore{baseDir: baseDir}, nil
}

// Store writes the artifact and returns its absolute path. The name may
// contain directory components (customer slug prefixes).
func (s *FSArtifactStore) Store(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", eris.Wrap(err, "report: store artifact")
	}

	path := filepath.Join(s.baseDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", eris.Wrapf(err, "report: create artifact dir for %s", name)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "report: write artifact %s", name)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}
