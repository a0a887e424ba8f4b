package query_test

import (
	"testing"

	"github.com/ganot/worklog/internal/query"
	"github.com/stretchr/testify/require"
)

func TestRouterSemanticQuestion(t *testing.T) {
	router := query.NewRouter()

	route := router.Classify("Find tasks related to Project X")
	require.Equal(t, query.IntentSemantic, route.Intent)
	require.GreaterOrEqual(t, route.Confidence, 0.7)
}

func TestRouterMetadataQuestion(t *testing.T) {
	router := query.NewRouter()

	route := router.Classify("Show completed tasks last week")
	require.Equal(t, query.IntentMetadata, route.Intent)
	require.GreaterOrEqual(t, route.Confidence, 0.7)
}

func TestRouterDefaultsToMetadata(t *testing.T) {
	router := query.NewRouter()

	route := router.Classify("hello there")
	require.Equal(t, query.IntentMetadata, route.Intent)
	require.Equal(t, 0.3, route.Confidence)
}

func TestRouterTieBreakPrefersNamedProject(t *testing.T) {
	router := query.NewRouter()

	// Mentions both a named project and a relative date.
	route := router.Classify("Show me all tasks for Project A last week")
	require.Equal(t, query.IntentSemantic, route.Intent)
	require.Equal(t, 0.7, route.Confidence)
}

func TestRouterTieBreakFallsToDate(t *testing.T) {
	router := query.NewRouter()

	// A semantic phrase without a named project, plus a date phrase.
	route := router.Classify("Get details about what I finished in September, find tasks related to that")
	require.Equal(t, query.IntentMetadata, route.Intent)
	require.Equal(t, 0.6, route.Confidence)
}

func TestRouterAmbiguous(t *testing.T) {
	router := query.NewRouter()

	// Semantic phrase plus a status word, no named project and no date.
	route := router.Classify("Get details about completed work")
	require.Equal(t, query.IntentAmbiguous, route.Intent)
	require.Equal(t, 0.4, route.Confidence)
}

func TestRouterConfidenceScaling(t *testing.T) {
	router := query.NewRouter()

	// Two metadata indicators: status word and aggregation word.
	route := router.Classify("how much time did I spend on completed work")
	require.Equal(t, query.IntentMetadata, route.Intent)
	require.InDelta(t, 0.9, route.Confidence, 0.0001)
}
