package archive

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
)

// anchorQuery is the fixed text embedded for metadata-only retrieval, where
// similarity ordering is irrelevant.
const anchorQuery = "work session"

// Config holds configuration for the chromem-backed store.
type Config struct {
	// Path is the directory for persistent storage; empty means in-memory.
	Path string
	// Collection is the collection name.
	Collection string
	// Compress enables gzip compression for stored data.
	Compress bool
}

// Store implements DocumentStore over chromem-go, an embeddable vector
// database with no external service dependency. chromem's where-filters are
// equality-only, so range predicates from the filter grammar are applied
// after retrieval.
type Store struct {
	collection *chromem.Collection
	logger     *slog.Logger
}

// NewStore creates a chromem-backed document store.
func NewStore(cfg Config, embed chromem.EmbeddingFunc, logger *slog.Logger) (*Store, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}
	if embed == nil {
		return nil, fmt.Errorf("%w: embedding function required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	var db *chromem.DB
	var err error
	if cfg.Path != "" {
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", cfg.Collection, err)
	}

	return &Store{collection: collection, logger: logger}, nil
}

// Add stores documents with their metadata.
func (s *Store) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return ErrEmptyDocuments
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromemDocs[i] = chromem.Document{
			ID:       doc.ID,
			Content:  doc.Text,
			Metadata: metadataToString(doc.Metadata),
		}
	}

	if err := s.collection.AddDocuments(ctx, chromemDocs, 1); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}

	s.logger.Debug("archived documents", "count", len(docs))
	return nil
}

// Archive stores a single closed-session projection. Satisfies the lifecycle
// service's archiver dependency.
func (s *Store) Archive(ctx context.Context, id, text string, metadata map[string]any) error {
	return s.Add(ctx, []Document{{ID: id, Text: text, Metadata: metadata}})
}

// Get returns up to limit documents matching the filter. Equality predicates
// run as chromem where-filters; range predicates are evaluated on the
// returned metadata.
func (s *Store) Get(ctx context.Context, filter Filter, limit int) ([]Document, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	k := count
	if limit > 0 && limit < k {
		k = limit
	}

	where := make(map[string]string)
	var ranges []Predicate
	for _, pred := range filter.Predicates {
		if pred.Op == OpEq {
			where[pred.Field] = fmt.Sprintf("%v", pred.Value)
		} else {
			ranges = append(ranges, pred)
		}
	}
	if len(where) == 0 {
		where = nil
	}

	results, err := s.collection.Query(ctx, anchorQuery, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	var docs []Document
	for _, r := range results {
		meta := metadataFromString(r.Metadata)
		if !matchRanges(meta, ranges) {
			continue
		}
		docs = append(docs, Document{ID: r.ID, Text: r.Content, Metadata: meta})
	}
	return docs, nil
}

// Search performs similarity search scoped by equality where-filters.
func (s *Store) Search(ctx context.Context, query string, k int, where map[string]string) ([]Document, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k <= 0 || k > count {
		k = count
	}
	if len(where) == 0 {
		where = nil
	}

	results, err := s.collection.Query(ctx, query, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	docs := make([]Document, len(results))
	for i, r := range results {
		docs[i] = Document{
			ID:       r.ID,
			Text:     r.Content,
			Metadata: metadataFromString(r.Metadata),
			Score:    r.Similarity,
		}
	}
	return docs, nil
}

func matchRanges(meta map[string]any, preds []Predicate) bool {
	for _, pred := range preds {
		val, ok := numeric(meta[pred.Field])
		if !ok {
			return false
		}
		bound, ok := numeric(pred.Value)
		if !ok {
			return false
		}
		switch pred.Op {
		case OpGte:
			if val < bound {
				return false
			}
		case OpLte:
			if val > bound {
				return false
			}
		}
	}
	return true
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// metadataToString converts metadata to chromem's string map.
func metadataToString(metadata map[string]any) map[string]string {
	if metadata == nil {
		return nil
	}

	result := make(map[string]string, len(metadata))
	for k, v := range metadata {
		switch val := v.(type) {
		case string:
			result[k] = val
		case int:
			result[k] = strconv.Itoa(val)
		case int64:
			result[k] = strconv.FormatInt(val, 10)
		case float64:
			result[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			result[k] = strconv.FormatBool(val)
		default:
			result[k] = fmt.Sprintf("%v", val)
		}
	}
	return result
}

// metadataFromString converts chromem's string map back, restoring numeric
// values so aggregation can run on duration and start_time.
func metadataFromString(metadata map[string]string) map[string]any {
	if metadata == nil {
		return nil
	}

	result := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			result[k] = i
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			result[k] = f
			continue
		}
		result[k] = v
	}
	return result
}

// Ensure Store implements DocumentStore.
var _ DocumentStore = (*Store)(nil)
