// Package model defines the core memory data types.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document is a resource's metadata: a JSON object whose top-level keys are
// the unit of merge on update.
type Document map[string]json.RawMessage

// Resource is the unit of storage, identified by an opaque string id.
type Resource struct {
	ID            string    `json:"id"`
	WorkingMemory *string   `json:"working_memory,omitempty"`
	Metadata      Document  `json:"metadata"`
	Rev           string    `json:"rev,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Type returns the document's "type" tag, or "" when absent or not a string.
func (d Document) Type() string {
	raw, ok := d["type"]
	if !ok {
		return ""
	}
	var t string
	if err := json.Unmarshal(raw, &t); err != nil {
		return ""
	}
	return t
}

// EncodeDocument converts a struct into a Document keyed by its JSON field names.
func EncodeDocument(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("document is not an object: %w", err)
	}
	return d, nil
}

// Merge returns a copy of d with every key of patch written over it.
func (d Document) Merge(patch Document) Document {
	out := make(Document, len(d)+len(patch))
	for k, v := range d {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Role is the speaker of a context entry handed to the agent.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContextEntry is one message prepended to the live user turn.
type ContextEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
