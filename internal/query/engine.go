package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"

	"github.com/ganot/worklog/internal/archive"
)

// timeNow is a variable for testing purposes.
var timeNow = time.Now

// semanticK bounds how many documents the semantic path retrieves.
const semanticK = 5

// Cache stores answers keyed by (user, question). The calling layer owns the
// implementation and its eviction policy; a nil cache disables caching.
type Cache interface {
	Get(key string) (string, bool)
	Put(key, value string)
}

// Engine orchestrates the full answer path: route, parse, retrieve via the
// metadata engine or semantic search, synthesize and sanitize.
type Engine struct {
	router    *Router
	parser    *Parser
	meta      *MetadataEngine
	store     archive.DocumentStore
	model     llms.Model
	sanitizer *Sanitizer
	cache     Cache
	tmpl      prompts.PromptTemplate
	logger    *slog.Logger
}

// NewEngine wires the engine. model may be nil, in which case answers are
// formatted deterministically from the retrieved data; cache may be nil.
func NewEngine(
	router *Router,
	parser *Parser,
	meta *MetadataEngine,
	store archive.DocumentStore,
	model llms.Model,
	cache Cache,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		router:    router,
		parser:    parser,
		meta:      meta,
		store:     store,
		model:     model,
		sanitizer: NewSanitizer(),
		cache:     cache,
		tmpl:      prompts.NewPromptTemplate(answerPromptTemplate, []string{"hint", "context", "question"}),
		logger:    logger,
	}
}

// Ask answers a question about the user's archived sessions.
func (e *Engine) Ask(ctx context.Context, question, userID string) (string, error) {
	if question == "" || userID == "" {
		return "", fmt.Errorf("question and user id required")
	}

	key := userID + "\x00" + question
	if e.cache != nil {
		if answer, ok := e.cache.Get(key); ok {
			return answer, nil
		}
	}

	route := e.router.Classify(question)
	e.logger.Debug("routed question",
		"intent", route.Intent, "confidence", route.Confidence, "reasoning", route.Reasoning)

	var retrieved string
	var err error
	if route.Intent == IntentSemantic {
		retrieved, err = e.semanticContext(ctx, question, userID)
	} else {
		// Ambiguous falls through to metadata, the safer default.
		retrieved, err = e.metadataContext(ctx, question, userID)
	}
	if err != nil {
		return "", err
	}
	if retrieved == NoDocumentsSentinel {
		return NoDocumentsSentinel, nil
	}

	answer, err := e.synthesize(ctx, question, route, retrieved)
	if err != nil {
		return "", err
	}
	answer = e.sanitizer.Sanitize(e.sanitizer.NormalizePerspective(answer))

	if e.cache != nil {
		e.cache.Put(key, answer)
	}
	return answer, nil
}

func (e *Engine) metadataContext(ctx context.Context, question, userID string) (string, error) {
	filter := e.parser.Parse(ctx, question, timeNow())
	if filter.Degraded() {
		// Fall back to the user scope only; the answer still reflects real
		// data instead of failing the whole question.
		e.logger.Warn("running unconstrained filter after degraded parse", "error", filter.Err)
	}

	result, err := e.meta.Run(ctx, filter, userID)
	if err != nil {
		return "", err
	}
	if result.Empty {
		return NoDocumentsSentinel, nil
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return string(encoded), nil
}

func (e *Engine) semanticContext(ctx context.Context, question, userID string) (string, error) {
	docs, err := e.store.Search(ctx, question, semanticK, map[string]string{"user_id": userID})
	if err != nil {
		return "", fmt.Errorf("semantic search: %w", err)
	}
	if len(docs) == 0 {
		return NoDocumentsSentinel, nil
	}

	var sb strings.Builder
	for _, doc := range docs {
		sb.WriteString(doc.Text)
		meta := scrubMetadata(doc.Metadata)
		if len(meta) > 0 {
			encoded, err := json.Marshal(meta)
			if err == nil {
				sb.WriteString("\nMetadata: ")
				sb.Write(encoded)
			}
		}
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

// synthesize renders the final answer. With a model configured the retrieved
// data and routing hint go through the answer template; without one the
// retrieved data is returned as-is and the sanitizer does the formatting.
func (e *Engine) synthesize(ctx context.Context, question string, route Route, retrieved string) (string, error) {
	if e.model == nil {
		return retrieved, nil
	}

	prompt, err := e.tmpl.Format(map[string]any{
		"hint":     route.Hint(),
		"context":  retrieved,
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("rendering answer prompt: %w", err)
	}

	answer, err := llms.GenerateFromSinglePrompt(ctx, e.model, prompt)
	if err != nil {
		return "", fmt.Errorf("answer synthesis: %w", err)
	}
	return answer, nil
}
