// Package domain defines the content, queue and search types shared by the
// indexing pipeline, the queue consumers and the search engine.
package domain

import "fmt"

// Content is anything that can be indexed and searched. Identity is the
// (ID, Path) pair; Language is assigned by the pipeline during indexing.
type Content struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
}

// Valid reports whether the content carries the mandatory identity fields.
func (c *Content) Valid() bool {
	return c != nil && c.ID != "" && c.Path != ""
}

func (c *Content) String() string {
	if c == nil {
		return "Content{nil}"
	}
	return fmt.Sprintf("Content{id=%s path=%s}", c.ID, c.Path)
}

// Operation is the index mutation requested for a content.
type Operation string

const (
	OpAdd    Operation = "ADD"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Valid reports whether the operation is one of the known mutations.
func (o Operation) Valid() bool {
	switch o {
	case OpAdd, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Status is the queue lifecycle state of an index request. Transitions are
// forward-only: QUEUED -> LOCKED -> CONSUMED -> purged. There is no path
// back to QUEUED.
type Status string

const (
	StatusQueued   Status = "QUEUED"
	StatusLocked   Status = "LOCKED"
	StatusConsumed Status = "CONSUMED"
)

// IndexRequest asks for a content mutation to be applied to the index.
type IndexRequest struct {
	Content   *Content  `json:"content"`
	Operation Operation `json:"operation"`
	Status    Status    `json:"status,omitempty"`
}

// Valid reports whether the request can enter the queue.
func (r *IndexRequest) Valid() bool {
	return r != nil && r.Content.Valid() && r.Operation.Valid()
}

func (r *IndexRequest) String() string {
	return fmt.Sprintf("IndexRequest{content=%s operation=%s}", r.Content, r.Operation)
}
