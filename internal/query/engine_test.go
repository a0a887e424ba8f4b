package query_test

import (
	"context"
	"testing"

	"github.com/ganot/worklog/internal/archive"
	"github.com/ganot/worklog/internal/query"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// scriptedModel returns responses in order, one per call.
type scriptedModel struct {
	responses []string
	calls     int
}

func (s *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	response := s.responses[s.calls]
	s.calls++
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: response}},
	}, nil
}

func (s *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	response := s.responses[s.calls]
	s.calls++
	return response, nil
}

type mapCache struct {
	entries map[string]string
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]string)}
}

func (c *mapCache) Get(key string) (string, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *mapCache) Put(key, value string) {
	c.entries[key] = value
}

func newEngine(store *fakeStore, model llms.Model, cache query.Cache) *query.Engine {
	return query.NewEngine(
		query.NewRouter(),
		query.NewParser(model, nil),
		query.NewMetadataEngine(store, nil),
		store,
		model,
		cache,
		nil,
	)
}

func TestEngineMetadataPath(t *testing.T) {
	store := &fakeStore{docs: []archive.Document{
		sessionDoc("Website - Fix login: done", 1.25, "Completed"),
	}}
	model := &scriptedModel{responses: []string{
		`{"action": "total", "status": "Completed", "duration": null, "start_date": "2025-08-25", "end_date": "2025-08-31"}`,
		"I completed 1 task for a total of 1.25 unit of time",
	}}

	engine := newEngine(store, model, nil)

	answer, err := engine.Ask(context.Background(), "total time on completed tasks last week", "user-1")
	require.NoError(t, err)
	// Perspective and units are normalized on the way out.
	require.Equal(t, "You completed 1 task for a total of 1.25 hrs", answer)
	require.Equal(t, 2, model.calls)
}

func TestEngineSentinelBypassesSynthesis(t *testing.T) {
	store := &fakeStore{}
	model := &scriptedModel{responses: []string{
		`{"action": "list", "status": null, "duration": null, "start_date": null, "end_date": null}`,
	}}

	engine := newEngine(store, model, nil)

	answer, err := engine.Ask(context.Background(), "show completed tasks last week", "user-1")
	require.NoError(t, err)
	require.Equal(t, query.NoDocumentsSentinel, answer)
	// Only the parse call happened; nothing to synthesize from.
	require.Equal(t, 1, model.calls)
}

func TestEngineSemanticPathSearchesStore(t *testing.T) {
	store := &fakeStore{searchDocs: []archive.Document{
		sessionDoc("Website - Fix login: rewrote the auth flow", 2.0, "Completed"),
	}}
	model := &scriptedModel{responses: []string{
		"You worked on the auth flow rewrite for 2 hrs",
	}}

	engine := newEngine(store, model, nil)

	answer, err := engine.Ask(context.Background(), "Find tasks related to Project Website", "user-1")
	require.NoError(t, err)
	require.Equal(t, "You worked on the auth flow rewrite for 2 hrs", answer)

	// The semantic path searches scoped to the user, no filter parse involved.
	require.Equal(t, "Find tasks related to Project Website", store.searchQuery)
	require.Equal(t, map[string]string{"user_id": "user-1"}, store.searchWhere)
	require.Equal(t, 1, model.calls)
}

func TestEngineCachesAnswers(t *testing.T) {
	store := &fakeStore{docs: []archive.Document{sessionDoc("doc", 1, "Completed")}}
	model := &scriptedModel{responses: []string{
		`{"action": "list", "status": null, "duration": null, "start_date": null, "end_date": null}`,
		"You completed 1 task",
	}}
	cache := newMapCache()

	engine := newEngine(store, model, cache)

	first, err := engine.Ask(context.Background(), "show completed tasks last week", "user-1")
	require.NoError(t, err)

	second, err := engine.Ask(context.Background(), "show completed tasks last week", "user-1")
	require.NoError(t, err)
	require.Equal(t, first, second)
	// The second ask is served from cache without new model calls.
	require.Equal(t, 2, model.calls)
}

func TestEngineRejectsEmptyInput(t *testing.T) {
	engine := newEngine(&fakeStore{}, &scriptedModel{}, nil)

	_, err := engine.Ask(context.Background(), "", "user-1")
	require.Error(t, err)
	_, err = engine.Ask(context.Background(), "question", "")
	require.Error(t, err)
}
