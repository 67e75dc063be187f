package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"deepscan/internal/ai"
	"deepscan/internal/merge"
	"deepscan/internal/types"
)

// Extraction categories. Each is dispatched as its own model call so a
// refusal or garbage answer in one category cannot poison the others.
var extractionCategories = []extractionCategory{
	{"security", "security vulnerabilities: injections, auth bypasses, secrets in code, insecure crypto", schemaIssues},
	{"performance", "performance problems: N+1 queries, hot loops, oversized payloads, memory pressure", schemaIssues},
	{"dependencies", "dependency health: vulnerable, outdated, and deprecated packages", schemaDependencies},
	{"code-quality", "code quality issues: complexity, duplication, dead code, missing types", schemaIssues},
	{"architecture", "architecture observations and team/process metrics", schemaArchitecture},
	{"breaking-changes", "breaking changes introduced on this branch", schemaBreaking},
	{"educational", "documentation and onboarding assessment", schemaDocumentation},
	{"recommendations", "prioritized improvement recommendations", schemaRecommendations},
}

type extractionCategory struct {
	name   string
	focus  string
	schema string
}

const (
	schemaIssues          = `{"issues":[{"title":"...","severity":"critical|high|medium|low","category":"...","location":{"file":"path","line":1},"codeSnippet":"...","recommendation":"..."}]}`
	schemaDependencies    = `{"dependencies":{"vulnerable":[{"name":"pkg","version":"1.0.0","advisory":"..."}],"outdated":[{"name":"pkg","version":"1.0.0","latest":"2.0.0"}],"deprecated":[{"name":"pkg"}]}}`
	schemaArchitecture    = `{"architecture":{"style":"...","components":["..."],"concerns":["..."]},"teamMetrics":{"contributors":0,"reviewCulture":"..."}}`
	schemaBreaking        = `{"breakingChanges":["..."]}`
	schemaDocumentation   = `{"documentation":{"readme":"...","apiDocs":"...","gaps":["..."]}}`
	schemaRecommendations = `{"recommendations":["..."]}`
)

// aiTier extracts structure from prose by fanning out one model call per
// category. Categories run concurrently; each owns its primary → fallback
// cascade and failures stay isolated per category.
type aiTier struct {
	client        Completer
	primaryModel  string
	fallbackModel string
	merger        *merge.Merger
	log           *slog.Logger
}

func newAITier(client Completer, primaryModel, fallbackModel string, log *slog.Logger) *aiTier {
	if primaryModel == "" {
		primaryModel = ai.PrimaryModel()
	}
	if fallbackModel == "" {
		fallbackModel = ai.FallbackModel()
	}
	return &aiTier{
		client:        client,
		primaryModel:  primaryModel,
		fallbackModel: fallbackModel,
		merger:        merge.NewMerger(),
		log:           log,
	}
}

func (t *aiTier) Name() string { return "ai" }

// Applicable for any non-trivial text; the JSON tier already claimed strict
// JSON documents that carried report keys.
func (t *aiTier) Applicable(raw string) bool {
	return len(strings.TrimSpace(raw)) > 0
}

type categoryOutcome struct {
	partial    *types.PartialResult
	confidence float64
	method     types.ExtractionMethod
}

func (t *aiTier) Extract(ctx context.Context, raw string, rc RoundContext) (*types.PartialResult, error) {
	outcomes := make([]*categoryOutcome, len(extractionCategories))

	// Fan out one task per category. Tasks never return errors: a category
	// that fails both models is simply absent from the combined result, and
	// its data may still be recovered by the pattern tier per category.
	g, gctx := errgroup.WithContext(ctx)
	for i, cat := range extractionCategories {
		i, cat := i, cat
		g.Go(func() error {
			outcomes[i] = t.extractCategory(gctx, cat, raw, rc)
			return nil
		})
	}
	_ = g.Wait()

	combined := emptyPartial()
	for _, outcome := range outcomes {
		if outcome == nil {
			continue
		}
		t.merger.Merge(&combined.AccumulatedResult, outcome.partial)

		// Attribution is keyed by the report keys the category filled, same
		// vocabulary as the JSON tier. When two categories contribute to one
		// key (security and performance both emit issues), the weakest
		// contributor's confidence stands.
		for _, key := range populatedKeys(outcome.partial) {
			if existing, ok := combined.Categories[key]; ok && existing.Confidence <= outcome.confidence {
				continue
			}
			combined.Categories[key] = types.CategoryResult{
				Confidence: outcome.confidence,
				Method:     outcome.method,
			}
		}
	}

	return combined, nil
}

// extractCategory runs one category's cascade: primary model, then one
// fallback retry, then deterministic pattern recovery scoped to the
// category. Returns nil when nothing could be recovered.
func (t *aiTier) extractCategory(ctx context.Context, cat extractionCategory, raw string, rc RoundContext) *categoryOutcome {
	prompt := t.buildPrompt(cat, raw, rc)

	if partial := t.tryModel(ctx, t.primaryModel, prompt); partial != nil {
		return &categoryOutcome{partial, confidenceAIPrimary, types.MethodAIPrimary}
	}

	t.log.Debug("primary extraction failed, trying fallback model",
		"category", cat.name, "fallback", t.fallbackModel)
	if partial := t.tryModel(ctx, t.fallbackModel, prompt); partial != nil {
		return &categoryOutcome{partial, confidenceAIFallback, types.MethodAIFallback}
	}

	if partial := extractCategoryPatterns(raw, cat.name); partial != nil {
		return &categoryOutcome{partial, confidencePattern, types.MethodPattern}
	}
	return nil
}

func (t *aiTier) tryModel(ctx context.Context, model, prompt string) *types.PartialResult {
	response, err := t.client.Complete(ctx, model, prompt, 4096)
	if err != nil {
		return nil
	}

	partial := emptyPartial()
	if !decodeLenient(response, partial) {
		return nil
	}
	if isEmptyPartial(partial) {
		return nil
	}
	normalizeFindings(partial.Issues)
	return partial
}

func (t *aiTier) buildPrompt(cat extractionCategory, raw string, rc RoundContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are extracting structured data from a repository analysis report.\n")
	fmt.Fprintf(&b, "Repository: %s", rc.Repository)
	if rc.Branch != "" {
		fmt.Fprintf(&b, " (branch %s)", rc.Branch)
	}
	if rc.Language != "" {
		fmt.Fprintf(&b, ", primarily %s", rc.Language)
	}
	if rc.FileCount > 0 {
		fmt.Fprintf(&b, ", ~%d files", rc.FileCount)
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Extract ONLY %s.\n", cat.focus)
	fmt.Fprintf(&b, "Respond with exactly this JSON shape, and nothing else:\n%s\n", cat.schema)
	b.WriteString("If the report contains nothing relevant, respond with {}.\n\n")
	b.WriteString("Report:\n---\n")
	b.WriteString(raw)
	b.WriteString("\n---\n")
	return b.String()
}
