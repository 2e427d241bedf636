package engine

import (
	"strings"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/yellowstone-kql/ast"
	"github.com/flanksource/yellowstone-kql/cache"
	"github.com/flanksource/yellowstone-kql/catalog"
	"github.com/flanksource/yellowstone-kql/classifier"
	"github.com/flanksource/yellowstone-kql/cypher"
	"github.com/flanksource/yellowstone-kql/diag"
	"github.com/flanksource/yellowstone-kql/emit"
	"github.com/flanksource/yellowstone-kql/gremlin"
	"github.com/flanksource/yellowstone-kql/optimizer"
	"github.com/flanksource/yellowstone-kql/plan"
	"github.com/flanksource/yellowstone-kql/resolver"
)

// Options configures a TranslatorEngine. The zero value is not usable;
// callers should start from DefaultOptions.
type Options struct {
	StrictMode            bool
	EnableAI              bool
	CacheCapacity         int
	CacheTTL              time.Duration
	OptimizerIterationCap int
	RouteSuccessThreshold float64
}

// DefaultOptions returns the engine's out-of-the-box tuning. Its
// OptimizerIterationCap of 20 overrides the optimizer's own
// MaxIterations default of 32.
func DefaultOptions() Options {
	return Options{
		StrictMode:            false,
		EnableAI:              true,
		CacheCapacity:         4096,
		CacheTTL:              24 * time.Hour,
		OptimizerIterationCap: 20,
		RouteSuccessThreshold: 0.5,
	}
}

// TranslatorEngine is the single owner of the shared, concurrency-safe
// state (catalog, pattern cache, classifier route stats) that every
// Translate call reads and updates; all per-request state (parsed AST,
// resolved query, plan tree) lives on the call's own stack, per spec.md
// §5's isolation model. Grounded on the teacher's ast.Coordinator, a
// value constructed once and handed its dependencies explicitly rather
// than reaching for package-level globals.
type TranslatorEngine struct {
	catalog    *catalog.Catalog
	cache      *cache.Cache
	classifier *classifier.Classifier
	ai         AiTranslator
	opts       Options
}

// New constructs a TranslatorEngine. ai may be nil, in which case AI
// fallback is never attempted regardless of Options.EnableAI or a
// request's RequestContext.EnableAI.
func New(c *catalog.Catalog, ai AiTranslator, opts Options) *TranslatorEngine {
	return &TranslatorEngine{
		catalog:    c,
		cache:      cache.New(opts.CacheCapacity, opts.CacheTTL),
		classifier: classifier.New(opts.RouteSuccessThreshold),
		ai:         ai,
		opts:       opts,
	}
}

// WithStore attaches a persistent cache.Store, preloading its entries
// into the engine's pattern cache so subsequent Put calls also persist
// through it. Callers that want the cache to survive process restarts
// wire this in right after New, before the first Translate call.
func (e *TranslatorEngine) WithStore(s cache.Store) error {
	_, err := e.cache.WithStore(s)
	return err
}

// Translate turns one Cypher or Gremlin source string into a KqlQuery.
//
// A pattern-cache hit short-circuits straight to Strategy FastPath. On a
// miss, Translate always attempts the deterministic pipeline
// (lex/parse -> resolve -> plan -> optimize -> emit) first, regardless of
// the classifier's nominal route recommendation, since that pipeline is
// this engine's only built-in executor; the classifier's RouteDecision
// supplies only the reported Confidence. Whether a pipeline failure falls
// through to the AI translator depends on the failure's kind
// (FallbackEligible) and on the AI being enabled for the engine and the
// request. The classifier's per-route counters are updated from the
// outcome either way. A successful pipeline run reports Strategy
// PlanPath; a successful AI fallback reports Strategy AiPath. This
// division of labor is this engine's resolution of the routing-vs-
// reporting distinction spec.md's glossary draws between the
// classifier's FastPath/AiPath/Fallback routing decision and the
// KqlQuery-level FastPath/PlanPath/AiPath strategy report — see
// DESIGN.md.
func (e *TranslatorEngine) Translate(ctx Context, source string, dialect Dialect, reqCtx RequestContext) (*KqlQuery, diag.List) {
	select {
	case <-ctx.Done():
		return nil, diag.List{diag.New(diag.Cancelled, "translation cancelled before it started: %s", ctx.Err())}
	default:
	}

	fingerprint := cache.Fingerprint(source)
	if entry, ok := e.cache.Get(fingerprint); ok {
		e.classifier.RecordSuccess(classifier.FastPath)
		return &KqlQuery{Query: entry.KqlTemplate, Strategy: FastPath, Confidence: 1}, nil
	}

	score := classifier.Score(source)
	decision := e.classifier.Classify(score, false)

	kql, warnings, perr := e.runPipeline(source, dialect)
	if perr == nil {
		e.classifier.RecordSuccess(classifier.FastPath)
		e.cache.Put(fingerprint, kql, string(score.Overall))
		e.cache.RecordSuccess(fingerprint)
		return &KqlQuery{Query: kql, Strategy: PlanPath, Confidence: decision.Confidence, Diagnostics: warnings}, nil
	}
	e.classifier.RecordFailure(classifier.FastPath)

	select {
	case <-ctx.Done():
		return nil, diag.List{perr, diag.New(diag.Cancelled, "translation cancelled during fallback: %s", ctx.Err())}
	default:
	}

	if !perr.FallbackEligible() || !e.aiAllowed(reqCtx) {
		return nil, diag.List{perr}
	}

	logger.Debugf("translate: pipeline failed (%s), falling through to AI: %s", perr.Kind, perr.Message)
	result, aerr := e.translateAI(ctx, source)
	if aerr != nil {
		e.classifier.RecordFailure(classifier.AiPath)
		return nil, diag.List{perr, aerr}
	}
	e.classifier.RecordSuccess(classifier.AiPath)
	e.cache.Put(fingerprint, result.Query, string(score.Overall))
	e.cache.RecordSuccess(fingerprint)
	return result, nil
}

// aiAllowed reports whether the AI fallback may be attempted: the engine
// must have been constructed with a translator, the deployment must have
// AI enabled overall, and the individual request must opt in.
func (e *TranslatorEngine) aiAllowed(reqCtx RequestContext) bool {
	return e.ai != nil && e.opts.EnableAI && reqCtx.EnableAI
}

// runPipeline runs the full deterministic pipeline to completion, or
// returns the first diagnostic produced by whichever stage failed.
func (e *TranslatorEngine) runPipeline(source string, dialect Dialect) (string, diag.List, *diag.Diagnostic) {
	var query *ast.Query
	switch dialect {
	case Gremlin:
		q, gerr := gremlin.Translate(source)
		if gerr != nil {
			return "", nil, gerr
		}
		query = q
	default:
		q, errs := cypher.Parse(source)
		if len(errs) > 0 {
			errs.Sort()
			return "", nil, errs[0]
		}
		query = q
	}

	resolved, errs := resolver.New(e.catalog).Resolve(query)
	if len(errs) > 0 {
		errs.Sort()
		return "", nil, errs[0]
	}

	root, perr := plan.New(e.catalog).Plan(resolved)
	if perr != nil {
		return "", nil, perr
	}

	optimized, oerr := optimizer.New(e.catalog).WithMaxIterations(e.opts.OptimizerIterationCap).Run(root)
	if oerr != nil {
		return "", nil, oerr
	}

	kql, warnings := emit.New(e.catalog).Emit(optimized, query.Match.Optional)
	return kql, warnings, nil
}

func (e *TranslatorEngine) translateAI(ctx Context, source string) (*KqlQuery, *diag.Diagnostic) {
	prompt := "Translate the following graph query into Kusto Query Language (KQL). " +
		"Respond with only the KQL query, no explanation.\n\n" + source
	result, err := e.ai.Translate(ctx, prompt, 1024, 0, "")
	if err != nil {
		return nil, diag.New(diag.UnsupportedPattern, "AI fallback translation failed: %s", err.Error())
	}
	return &KqlQuery{
		Query:      result.Content,
		Strategy:   AiPath,
		Confidence: 0.5,
		Diagnostics: diag.List{
			diag.New(diag.UnrepresentableConstruct, "query produced by the AI fallback translator, not the deterministic pipeline").
				WithSeverity(diag.SeverityWarning),
		},
	}, nil
}

// Validate checks that kql is structurally plausible KQL without
// executing it: balanced parentheses and brackets, a non-empty body, and
// a mention of at least one catalog table name anywhere in the text, per
// spec.md §6's validate() contract.
func (e *TranslatorEngine) Validate(kql string) bool {
	if strings.TrimSpace(kql) == "" {
		return false
	}
	if !balanced(kql, '(', ')') || !balanced(kql, '[', ']') {
		return false
	}
	return e.catalog.HasTableReference(kql)
}

// RouteStats exposes the classifier's per-route running success rates.
func (e *TranslatorEngine) RouteStats() []classifier.Stats { return e.classifier.Stats() }

// CacheStats exposes the pattern cache's hit/miss counters.
func (e *TranslatorEngine) CacheStats() cache.Stats { return e.cache.Stats() }

func balanced(s string, open, close byte) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case close:
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
