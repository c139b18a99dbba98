package parser

import "github.com/sokinpui/ask.go/model"

// orderedChanges maps a file identity to its latest change while remembering
// the order in which identities were first inserted.
type orderedChanges struct {
	keys   []string
	values map[string]model.ProposedChange
}

func newOrderedChanges() *orderedChanges {
	return &orderedChanges{values: make(map[string]model.ProposedChange)}
}

// Set stores change under key. An existing key keeps its position and takes
// the new value.
func (o *orderedChanges) Set(key string, change model.ProposedChange) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = change
}

func (o *orderedChanges) Len() int {
	return len(o.keys)
}

// Values returns the stored changes in first-insertion order.
func (o *orderedChanges) Values() []model.ProposedChange {
	out := make([]model.ProposedChange, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.values[k])
	}
	return out
}
