// Package query answers natural-language questions about archived work
// sessions. A deterministic router classifies each question, a model-backed
// parser extracts a structured filter, and the metadata engine or the
// semantic search path produces the answer, which is sanitized before it
// leaves the package.
package query

import (
	"fmt"
	"regexp"
)

// Intent is the routing recommendation for a question.
type Intent string

const (
	IntentSemantic  Intent = "semantic"
	IntentMetadata  Intent = "metadata"
	IntentAmbiguous Intent = "ambiguous"
)

// Route is the router's advisory recommendation. The downstream reasoning
// step keeps final tool choice; confidence and reasoning travel with the
// question as a hint.
type Route struct {
	Intent     Intent
	Confidence float64
	Reasoning  string
}

// Router classifies questions with two curated pattern sets and a fixed
// decision table. No model call is involved, so routing is free and
// reproducible.
type Router struct {
	semantic    []*regexp.Regexp
	metadata    []*regexp.Regexp
	projectTask []*regexp.Regexp
	date        []*regexp.Regexp
}

var semanticPatterns = []string{
	`(?i)\bproject\s+\w+`,
	`(?i)\btask\s+\w+`,
	`(?i)\bfind\s+tasks?\s+related\s+to`,
	`(?i)\bget\s+details?\s+about`,
	`(?i)\bwhat\s+comments?\s+did\s+i\s+add`,
	`(?i)\bshow\s+me\s+all\s+tasks?\s+for\s+\w+`,
	`(?i)\btasks?\s+associated\s+with`,
	`(?i)\btasks?\s+for\s+\w+`,
}

var metadataPatterns = []string{
	`(?i)\b(august|september|october|november|december|january|february|march|april|may|june|july)\b`,
	`(?i)\b(last\s+week|last\s+month|last\s+year|last\s+\d+\s+months?|last\s+\d+\s+days?|last\s+\d+\s+weeks?)`,
	`(?i)\b(completed|in\s+progress|pending|done|finished)\b`,
	`(?i)\b(total\s+time|time\s+spent|duration|how\s+much\s+time)`,
	`(?i)\b(longest|shortest|most\s+time|least\s+time)`,
	`(?i)\bfrom\s+\d{4}-\d{2}-\d{2}\s+to\s+\d{4}-\d{2}-\d{2}`,
	`(?i)\b(give\s+me\s+tasks?|show\s+me\s+tasks?|list\s+tasks?)\s+(in|from|during)`,
	`(?i)\bsummarize\s+(my\s+)?(completed\s+)?tasks?`,
	`(?i)\btasks?\s+(completed|done|finished)\s+(in|during|from)`,
}

// Tie-break subsets: a specific project/task mention wins for semantic, a
// date phrase wins for metadata.
var projectTaskPatterns = []string{
	`(?i)\bproject\s+\w+`,
	`(?i)\btask\s+\w+`,
	`(?i)\bshow\s+me\s+all\s+tasks?\s+for\s+\w+`,
	`(?i)\btasks?\s+for\s+\w+`,
}

var datePatterns = []string{
	`(?i)\b(august|september|october|november|december|january|february|march|april|may|june|july)\b`,
	`(?i)\b(last\s+week|last\s+month|last\s+year|last\s+\d+\s+months?|last\s+\d+\s+days?|last\s+\d+\s+weeks?)`,
	`(?i)\bfrom\s+\d{4}-\d{2}-\d{2}\s+to\s+\d{4}-\d{2}-\d{2}`,
}

// NewRouter compiles the pattern sets.
func NewRouter() *Router {
	return &Router{
		semantic:    compileAll(semanticPatterns),
		metadata:    compileAll(metadataPatterns),
		projectTask: compileAll(projectTaskPatterns),
		date:        compileAll(datePatterns),
	}
}

func compileAll(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

// Classify applies the decision table: semantic-only hits recommend semantic
// search, metadata-only hits recommend the filter engine, mixed hits
// tie-break on project/task mentions then date phrases, and no hits default
// to metadata at low confidence.
func (r *Router) Classify(question string) Route {
	semanticHits := countMatches(r.semantic, question)
	metadataHits := countMatches(r.metadata, question)

	switch {
	case semanticHits > 0 && metadataHits == 0:
		return Route{
			Intent:     IntentSemantic,
			Confidence: scaled(semanticHits),
			Reasoning:  fmt.Sprintf("found %d semantic indicators", semanticHits),
		}
	case semanticHits == 0 && metadataHits > 0:
		return Route{
			Intent:     IntentMetadata,
			Confidence: scaled(metadataHits),
			Reasoning:  fmt.Sprintf("found %d metadata indicators", metadataHits),
		}
	case semanticHits > 0 && metadataHits > 0:
		if countMatches(r.projectTask, question) > 0 {
			return Route{
				Intent:     IntentSemantic,
				Confidence: 0.7,
				Reasoning:  "ambiguous but specific project/task mentioned",
			}
		}
		if countMatches(r.date, question) > 0 {
			return Route{
				Intent:     IntentMetadata,
				Confidence: 0.6,
				Reasoning:  "ambiguous but date indicators present",
			}
		}
		return Route{
			Intent:     IntentAmbiguous,
			Confidence: 0.4,
			Reasoning:  "both semantic and metadata indicators found",
		}
	default:
		return Route{
			Intent:     IntentMetadata,
			Confidence: 0.3,
			Reasoning:  "no clear indicators, defaulting to metadata",
		}
	}
}

func countMatches(patterns []*regexp.Regexp, question string) int {
	hits := 0
	for _, p := range patterns {
		if p.MatchString(question) {
			hits++
		}
	}
	return hits
}

func scaled(hits int) float64 {
	c := 0.5 + float64(hits)*0.2
	if c > 0.9 {
		c = 0.9
	}
	return c
}

// Hint renders the route as the hint string prefixed to the reasoning step.
func (r Route) Hint() string {
	return fmt.Sprintf("recommended path is %s (confidence: %.2f; %s)", r.Intent, r.Confidence, r.Reasoning)
}
