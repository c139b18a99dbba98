package parser

import (
	logger "github.com/sirupsen/logrus"

	"github.com/sokinpui/ask.go/model"
)

// fileIndex resolves labels to tracked files by exact path match.
type fileIndex struct {
	byIdentity map[string]model.TrackedFile
	byOriginal map[string]model.TrackedFile
}

func newFileIndex(files []model.TrackedFile) *fileIndex {
	idx := &fileIndex{
		byIdentity: make(map[string]model.TrackedFile, len(files)),
		byOriginal: make(map[string]model.TrackedFile, len(files)),
	}
	for _, f := range files {
		idx.byIdentity[f.Identity] = f
		for _, spelling := range append([]string{f.OriginalPath}, f.Aliases...) {
			if _, exists := idx.byOriginal[spelling]; !exists {
				idx.byOriginal[spelling] = f
			}
		}
	}
	return idx
}

// resolve matches label against identities first, then original paths.
func (idx *fileIndex) resolve(label string) (model.TrackedFile, bool) {
	if f, ok := idx.byIdentity[label]; ok {
		return f, true
	}
	f, ok := idx.byOriginal[label]
	return f, ok
}

// Extract finds every proposed full-file replacement in text that targets one
// of files. A file restated later in the text takes the later content but
// keeps the position of its first appearance. Labels naming files outside the
// set are dropped.
func Extract(text string, files []model.TrackedFile) []model.ProposedChange {
	idx := newFileIndex(files)
	changes := newOrderedChanges()

	known := func(label string) bool {
		_, ok := idx.resolve(label)
		return ok
	}
	for block := range BlocksFor(text, known) {
		file, ok := idx.resolve(block.Label)
		if !ok {
			logger.Debugf("ignoring block for untracked path %q", block.Label)
			continue
		}
		changes.Set(file.Identity, model.ProposedChange{
			Label:      block.Label,
			NewContent: block.Content,
			File:       file,
		})
	}
	return changes.Values()
}
