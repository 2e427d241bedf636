// Package engine assembles the catalog, pattern cache, and classifier into
// a single TranslatorEngine, and defines the contracts that engine
// consumes but never implements: the backend that executes emitted KQL
// and the AI translator used as a last-resort fallback.
package engine

import (
	"time"

	flanksourceContext "github.com/flanksource/commons/context"
	"github.com/flanksource/yellowstone-kql/diag"
)

// Context is the ambient context type threaded through every engine entry
// point, matching the teacher's pervasive use of flanksource/commons'
// context.Context (a context.Context with an attached structured logger)
// in place of the bare stdlib type.
type Context = flanksourceContext.Context

// Dialect selects which front end parses the request source.
type Dialect string

const (
	Cypher  Dialect = "Cypher"
	Gremlin Dialect = "Gremlin"
)

// Strategy records which of the three routing strategies actually
// produced a KqlQuery: FastPath is a pattern-cache hit, PlanPath is a
// full parse -> resolve -> plan -> optimize -> emit run, and AiPath is
// the external AiTranslator fallback.
type Strategy string

const (
	FastPath Strategy = "FastPath"
	PlanPath Strategy = "PlanPath"
	AiPath   Strategy = "AiPath"
)

// RequestContext carries the caller identity and per-request feature
// gates that Translate needs but that do not belong in the query source
// itself.
type RequestContext struct {
	UserID      string
	TenantID    string
	Permissions []string
	EnableAI    bool
}

// KqlQuery is the result of a successful translation.
type KqlQuery struct {
	Query       string
	Strategy    Strategy
	Confidence  float64
	Diagnostics diag.List
}

// ExecutionStatus is the outcome of running a KqlQuery against a backend.
type ExecutionStatus string

const (
	Success ExecutionStatus = "Success"
	Partial ExecutionStatus = "Partial"
	Failure ExecutionStatus = "Failure"
)

// ExecutionResult is what a BackendClient returns for a query run.
type ExecutionResult struct {
	Status   ExecutionStatus
	RowCount int
	Columns  []string
	Rows     [][]any
	Message  string
}

// ManagementResult is what a BackendClient returns for an administrative
// command (table creation, policy changes) rather than a query.
type ManagementResult struct {
	Status  ExecutionStatus
	Message string
}

// BackendClient is the consumed-only contract to whatever executes
// emitted KQL (an Azure Data Explorer / Kusto cluster in production).
// This module never implements it; callers inject their own client.
type BackendClient interface {
	ExecuteKql(ctx Context, query string, timespan time.Duration) (ExecutionResult, error)
	ExecuteManagementCommand(ctx Context, command string) (ManagementResult, error)
}

// AiUsage reports token accounting for one AI translation call.
type AiUsage struct {
	InputTokens  int
	OutputTokens int
}

// AiResult is one non-streaming AI translation response.
type AiResult struct {
	Content    string
	StopReason string
	Usage      AiUsage
}

// AiStreamEvent is one chunk of a streaming AI translation response.
type AiStreamEvent struct {
	Delta string
	Done  bool
	Err   error
}

// AiTranslator is the consumed-only contract to an external large
// language model used as a fallback when the deterministic pipeline
// cannot represent a construct (spec.md §6.1). Its method shape mirrors
// the anthropic-sdk-go message-create call so a thin adapter over that
// SDK satisfies it directly; this module never imports the SDK itself.
type AiTranslator interface {
	Translate(ctx Context, prompt string, maxTokens int, temperature float64, system string) (AiResult, error)
	TranslateStream(ctx Context, prompt string, maxTokens int, temperature float64, system string) (<-chan AiStreamEvent, error)
}
