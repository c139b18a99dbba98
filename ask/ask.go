// Package ask exposes reply extraction and safe apply for use as a library.
package ask

import (
	"fmt"

	"github.com/sokinpui/ask.go/internal/fs"
	"github.com/sokinpui/ask.go/internal/parser"
	"github.com/sokinpui/ask.go/internal/patcher"
	"github.com/sokinpui/ask.go/model"
)

// Parse loads paths relative to the working directory and returns the
// changes content proposes for them.
func Parse(content string, paths []string) ([]model.ProposedChange, error) {
	_, changes, err := parse(content, paths)
	return changes, err
}

// Apply parses content like Parse and writes every proposed change, keeping
// each previous version next to its file with a .orig suffix. A file that
// fails does not stop the others; its path is listed in Summary.Failed.
func Apply(content string, paths []string) (model.Summary, error) {
	resolver, changes, err := parse(content, paths)
	if err != nil {
		return model.Summary{}, err
	}
	if len(changes) == 0 {
		return model.Summary{Message: "No file changes proposed."}, nil
	}

	summary := model.Summarize(patcher.New(resolver).Apply(changes))
	summary.Message = fmt.Sprintf("%d updated, %d unchanged, %d failed",
		len(summary.Updated), len(summary.Unchanged), len(summary.Failed))
	return summary, nil
}

func parse(content string, paths []string) (*fs.PathResolver, []model.ProposedChange, error) {
	resolver, err := fs.NewPathResolver("")
	if err != nil {
		return nil, nil, err
	}
	files, err := resolver.LoadFiles(paths)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load files: %w", err)
	}
	return resolver, parser.Extract(content, files), nil
}
