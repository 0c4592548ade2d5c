// Package failure normalizes nested failure chains, live or serialized, into
// parallel per-entry sequences linked by parent index.
package failure

import (
	"encoding/json"
	"log/slog"
	"slices"
)

// Chain is a normalized, outermost-first sequence of causally linked failures
// stored as four parallel slices. Entry i was caused by entry ParentIndices()[i];
// the root has parent -1.
type Chain struct {
	types         []*string
	messages      []string
	stackTraces   []*string
	parentIndices []int
}

// New assembles a Chain from already-computed sequences. The slices are owned
// by the Chain afterwards.
func New(types []*string, messages []string, stackTraces []*string, parentIndices []int) Chain {
	return Chain{
		types:         types,
		messages:      messages,
		stackTraces:   stackTraces,
		parentIndices: parentIndices,
	}
}

// Len returns the number of entries, which is the length of the parent index
// sequence.
func (c Chain) Len() int { return len(c.parentIndices) }

// Types returns the fully qualified type name of each entry; nil marks an absent type.
func (c Chain) Types() []*string { return slices.Clone(c.types) }

// Messages returns the message of each entry.
func (c Chain) Messages() []string { return slices.Clone(c.messages) }

// StackTraces returns the stack trace of each entry; nil marks a trace that was not captured.
func (c Chain) StackTraces() []*string { return slices.Clone(c.stackTraces) }

// ParentIndices returns the cause link of each entry.
func (c Chain) ParentIndices() []int { return slices.Clone(c.parentIndices) }

// Consistent reports whether all four sequences have the same length. Chains
// parsed from legacy text can disagree when the message and stack trace blobs
// segment into a different number of entries.
func (c Chain) Consistent() bool {
	n := len(c.parentIndices)
	return len(c.types) == n && len(c.messages) == n && len(c.stackTraces) == n
}

type chainJSON struct {
	Types         []*string `json:"types"`
	Messages      []string  `json:"messages"`
	StackTraces   []*string `json:"stack_traces"`
	ParentIndices []int     `json:"parent_indices"`
}

// MarshalJSON encodes the chain with absent values as null.
func (c Chain) MarshalJSON() ([]byte, error) {
	return json.Marshal(chainJSON{
		Types:         nonNil(c.types),
		Messages:      nonNil(c.messages),
		StackTraces:   nonNil(c.stackTraces),
		ParentIndices: nonNil(c.parentIndices),
	})
}

// UnmarshalJSON restores a chain encoded by MarshalJSON.
func (c *Chain) UnmarshalJSON(data []byte) error {
	var wire chainJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*c = New(wire.Types, wire.Messages, wire.StackTraces, wire.ParentIndices)
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// LogValue renders the chain as a log group of entry count, types and messages.
func (c Chain) LogValue() slog.Value {
	types := make([]string, len(c.types))
	for i, t := range c.types {
		if t != nil {
			types[i] = *t
		}
	}
	return slog.GroupValue(
		slog.Int("entries", c.Len()),
		slog.Any("types", types),
		slog.Any("messages", c.messages),
	)
}

// String returns a pointer to s, for building optional chain values.
func String(s string) *string { return &s }
