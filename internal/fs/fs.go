package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/sokinpui/ask.go/model"
)

// PathResolver normalizes paths against a working directory.
type PathResolver struct {
	workDir string
}

// NewPathResolver creates a PathResolver rooted at workDir. An empty workDir
// means the current working directory.
func NewPathResolver(workDir string) (*PathResolver, error) {
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
		workDir = wd
	}
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("invalid working directory %q: %w", workDir, err)
	}
	return &PathResolver{workDir: abs}, nil
}

// WorkDir returns the absolute directory paths are resolved against.
func (r *PathResolver) WorkDir() string {
	return r.workDir
}

// Abs returns path as an absolute path. Relative paths are taken relative to
// the resolver's working directory.
func (r *PathResolver) Abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(r.workDir, path)
}

// Identity returns path relative to the working directory, slash separated.
// Paths outside the working directory keep their "../" prefix; paths on a
// different volume fall back to the cleaned absolute path.
func (r *PathResolver) Identity(path string) string {
	abs := r.Abs(path)
	rel, err := filepath.Rel(r.workDir, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// Extension returns the type tag of path without the leading dot.
func Extension(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

// LoadFiles reads every path into a TrackedFile, in order. A path given twice
// (by any spelling) is loaded once. Any read failure aborts the load.
func (r *PathResolver) LoadFiles(paths []string) ([]model.TrackedFile, error) {
	files := make([]model.TrackedFile, 0, len(paths))
	seen := make(map[string]int, len(paths))

	for _, path := range paths {
		identity := r.Identity(path)
		if i, dup := seen[identity]; dup {
			logger.Debugf("duplicate input path %q (%s) loaded once", path, identity)
			if f := &files[i]; path != f.OriginalPath && !slices.Contains(f.Aliases, path) {
				f.Aliases = append(f.Aliases, path)
			}
			continue
		}

		info, err := os.Stat(r.Abs(path))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("failed to load %s: is a directory", path)
		}

		content, err := os.ReadFile(r.Abs(path))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}

		seen[identity] = len(files)
		files = append(files, model.TrackedFile{
			Identity:     identity,
			OriginalPath: path,
			Content:      string(content),
			Extension:    Extension(path),
		})
		logger.Debugf("loaded %s (%d bytes)", identity, len(content))
	}
	return files, nil
}
