package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ganot/worklog/internal/archive"
)

// NoDocumentsSentinel distinguishes "the filter matched nothing" from an
// empty list; callers surface it verbatim.
const NoDocumentsSentinel = "No documents available for this filter."

// maxResults caps how many archived documents one filter run retrieves.
const maxResults = 100

// sensitiveKeys are stripped from every returned metadata map regardless of
// what the sanitizer does downstream.
var sensitiveKeys = []string{"user_id", "log_id", "task_id"}

// Item is one matched archived session: document text plus scrubbed metadata.
type Item struct {
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
}

// Result is the metadata engine's outcome. Empty means the sentinel applies
// and the other fields are zero. Total is valid for the total action, Longest
// for the longest action; Items always carries the matched set.
type Result struct {
	Action  string  `json:"action"`
	Empty   bool    `json:"-"`
	Total   float64 `json:"total_duration,omitempty"`
	Longest *Item   `json:"longest_task,omitempty"`
	Items   []Item  `json:"tasks"`
}

// MetadataEngine turns a parsed filter into document-store predicates,
// executes the lookup and aggregates the matches.
type MetadataEngine struct {
	store  archive.DocumentStore
	logger *slog.Logger
}

// NewMetadataEngine creates an engine over the archived-session store.
func NewMetadataEngine(store archive.DocumentStore, logger *slog.Logger) *MetadataEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetadataEngine{store: store, logger: logger}
}

// Run executes the filter scoped to userID. The user scope is always applied;
// everything else in the filter is optional. Store-level filtering is
// re-checked in process for status, since the store's filter support is the
// weaker of the two.
func (e *MetadataEngine) Run(ctx context.Context, filter Filter, userID string) (*Result, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id required")
	}

	preds := []archive.Predicate{archive.Eq("user_id", userID)}

	if filter.StartDate != "" {
		startTS, endTS, err := dateBounds(filter.StartDate, filter.EndDate)
		if err != nil {
			return nil, err
		}
		preds = append(preds,
			archive.Gte("start_time", startTS),
			archive.Lte("start_time", endTS),
		)
	}
	if filter.Status != "" {
		preds = append(preds, archive.Eq("status", filter.Status))
	}
	if filter.Duration > 0 {
		preds = append(preds, archive.Gte("duration", filter.Duration))
	}

	docs, err := e.store.Get(ctx, archive.And(preds...), maxResults)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}

	var items []Item
	for _, doc := range docs {
		meta := scrubMetadata(doc.Metadata)
		if filter.Status != "" {
			if status, _ := doc.Metadata["status"].(string); status != filter.Status {
				continue
			}
		}
		items = append(items, Item{Document: doc.Text, Metadata: meta})
	}

	if len(items) == 0 {
		return &Result{Action: filter.Action, Empty: true}, nil
	}

	result := &Result{Action: filter.Action, Items: items}
	switch filter.Action {
	case ActionTotal:
		for _, item := range items {
			result.Total += durationOf(item)
		}
	case ActionLongest:
		longest := &items[0]
		for i := 1; i < len(items); i++ {
			if durationOf(items[i]) > durationOf(*longest) {
				longest = &items[i]
			}
		}
		result.Longest = longest
	}
	return result, nil
}

// dateBounds converts the ISO date range to epoch bounds on start_time.
// A same-day range expands to the whole day; otherwise the end boundary is
// midnight at the start of the end date.
func dateBounds(startDate, endDate string) (int64, int64, error) {
	start, err := time.ParseInLocation("2006-01-02", startDate, time.Local)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing start date: %w", err)
	}
	if endDate == "" {
		endDate = startDate
	}
	var end time.Time
	if startDate == endDate {
		end = start.AddDate(0, 0, 1).Add(-time.Second)
	} else {
		end, err = time.ParseInLocation("2006-01-02", endDate, time.Local)
		if err != nil {
			return 0, 0, fmt.Errorf("parsing end date: %w", err)
		}
	}
	return start.Unix(), end.Unix(), nil
}

// scrubMetadata copies the map, drops identifier keys and rewrites the epoch
// start_time to a readable timestamp.
func scrubMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	for _, key := range sensitiveKeys {
		delete(out, key)
	}
	if ts, ok := epochOf(out["start_time"]); ok {
		out["start_time"] = time.Unix(ts, 0).Format(time.DateTime)
	}
	return out
}

func epochOf(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func durationOf(item Item) float64 {
	switch d := item.Metadata["duration"].(type) {
	case float64:
		return d
	case int64:
		return float64(d)
	case int:
		return float64(d)
	default:
		return 0
	}
}
