package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

// Filter is the structured form of a question: what to aggregate, over which
// date range, scoped by status and a duration threshold. A non-empty Err
// marks a degraded parse; callers must check it, the parser never fails.
type Filter struct {
	Action    string
	Status    string
	Duration  float64 // hours threshold, 0 means unset
	StartDate string  // ISO date, empty means unbounded
	EndDate   string
	Err       string
}

// Degraded reports whether the model output could not be decoded and the
// filter carries no constraints.
func (f Filter) Degraded() bool {
	return f.Err != ""
}

// Actions the metadata engine aggregates on. Anything else falls through to
// the list behaviour.
const (
	ActionTotal   = "total"
	ActionLongest = "longest"
	ActionList    = "list"
)

// Model output arrives fenced more often than not.
var fenceRe = regexp.MustCompile("(?m)^```(?:json)?\\s*|\\s*```$")

// Parser converts a natural-language question into a Filter by delegating to
// a language model with a fixed instruction template. The model is treated as
// untrusted: output is unfenced, decoded leniently, and any decode failure
// degrades to an empty filter with an error marker instead of propagating.
type Parser struct {
	model  llms.Model
	tmpl   prompts.PromptTemplate
	logger *slog.Logger
}

// NewParser creates a parser over the given model.
func NewParser(model llms.Model, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl := prompts.NewPromptTemplate(filterPromptTemplate, []string{"examples", "today", "question"})
	return &Parser{model: model, tmpl: tmpl, logger: logger}
}

// Parse extracts a Filter from the question. today anchors relative-date
// resolution ("last week", "last 6 months") inside the template.
func (p *Parser) Parse(ctx context.Context, question string, today time.Time) Filter {
	if p.model == nil {
		return degraded(fmt.Errorf("no model configured"))
	}

	prompt, err := p.tmpl.Format(map[string]any{
		"examples": strings.Join(exampleQuestions, "; "),
		"today":    today.Format("2006-01-02"),
		"question": question,
	})
	if err != nil {
		return degraded(fmt.Errorf("rendering prompt: %w", err))
	}

	raw, err := llms.GenerateFromSinglePrompt(ctx, p.model, prompt)
	if err != nil {
		return degraded(fmt.Errorf("model call: %w", err))
	}

	filter, err := decodeFilter(raw)
	if err != nil {
		p.logger.Warn("filter parse degraded", "error", err)
		return degraded(err)
	}
	return filter
}

func degraded(err error) Filter {
	return Filter{Err: err.Error()}
}

// decodeFilter strips code fencing and decodes the model's JSON. Fields are
// coerced leniently because the model emits numbers as strings and nulls
// interchangeably.
func decodeFilter(raw string) (Filter, error) {
	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(raw, ""))

	var fields map[string]any
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return Filter{}, fmt.Errorf("decoding filter: %w", err)
	}

	return Filter{
		Action:    asString(fields["action"]),
		Status:    asString(fields["status"]),
		Duration:  asHours(fields["duration"]),
		StartDate: asString(fields["start_date"]),
		EndDate:   asString(fields["end_date"]),
	}, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

var leadingNumberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// asHours accepts a JSON number, a bare numeric string, or phrasing like
// "5 hours" and returns the numeric threshold.
func asHours(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		match := leadingNumberRe.FindString(n)
		if match == "" {
			return 0
		}
		f, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
