// Package archive stores redacted projections of closed sessions in an
// embedded document/vector store and exposes the filtered retrieval the
// analytics engine runs on.
package archive

import (
	"context"
	"errors"
)

// Sentinel errors for archive operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")
)

// Document is one archived session projection: free text plus a metadata map
// carrying status, quantized duration, epoch start time and linkage fields.
type Document struct {
	ID       string         `json:"id"`
	Text     string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
	Score    float32        `json:"score,omitempty"`
}

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
	OpLte Op = "<="
)

// Predicate compares one metadata field against a value.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Eq builds an equality predicate.
func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

// Gte builds a greater-or-equal predicate.
func Gte(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpGte, Value: value}
}

// Lte builds a less-or-equal predicate.
func Lte(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpLte, Value: value}
}

// Filter is a conjunction of predicates. A single predicate passes through
// unwrapped; the grammar has no disjunction or negation.
type Filter struct {
	Predicates []Predicate
}

// And combines predicates into a conjunctive filter.
func And(preds ...Predicate) Filter {
	return Filter{Predicates: preds}
}

// DocumentStore is the document/vector store collaborator boundary.
type DocumentStore interface {
	// Add stores documents with their metadata.
	Add(ctx context.Context, docs []Document) error

	// Get returns up to limit documents whose metadata satisfies the filter,
	// text and metadata only, never raw embeddings.
	Get(ctx context.Context, filter Filter, limit int) ([]Document, error)

	// Search performs similarity search scoped by equality filters.
	Search(ctx context.Context, query string, k int, where map[string]string) ([]Document, error)
}
