// Package diag defines the translator's single structured error value and
// its stable taxonomy of kinds.
package diag

import (
	"fmt"
	"sort"

	"github.com/samber/oops"
)

// Kind is a stable taxonomy identifier for a translation failure. Kinds are
// strings so they round-trip cleanly through logs and API responses, but
// callers should switch on the typed constants below, not raw strings.
type Kind string

const (
	// Lex/Parse
	UnterminatedString Kind = "UnterminatedString"
	BadNumber          Kind = "BadNumber"
	BadEscape          Kind = "BadEscape"
	UnexpectedToken    Kind = "UnexpectedToken"
	UnexpectedEof      Kind = "UnexpectedEof"

	// Gremlin
	UnsupportedStart              Kind = "UnsupportedStart"
	UnsupportedPattern            Kind = "UnsupportedPattern"
	UnsupportedProjectionType     Kind = "UnsupportedProjectionType"
	UnsupportedTraversalDirection Kind = "UnsupportedTraversalDirection"
	UnsupportedMultiLabel         Kind = "UnsupportedMultiLabel"
	WrongArgCount                 Kind = "WrongArgCount"

	// Resolution
	UnknownLabel              Kind = "UnknownLabel"
	UnknownRelationship       Kind = "UnknownRelationship"
	UnknownProperty           Kind = "UnknownProperty"
	UnboundVariable           Kind = "UnboundVariable"
	DuplicateAlias            Kind = "DuplicateAlias"
	RelationshipArityMismatch Kind = "RelationshipArityMismatch"

	// Planning
	EmptyTraversal       Kind = "EmptyTraversal"
	InvalidPathStructure Kind = "InvalidPathStructure"
	MultiplePaths        Kind = "MultiplePaths"

	// Optimizer
	OptimizerErr Kind = "OptimizerError"

	// Emission
	UnrepresentableConstruct Kind = "UnrepresentableConstruct"

	// Runtime envelope
	Timeout   Kind = "Timeout"
	Cancelled Kind = "Cancelled"
)

// fallbackEligible is the set of kinds the classifier is permitted to
// downgrade into a fallback route, per spec.md §7's propagation policy.
var fallbackEligible = map[Kind]bool{
	OptimizerErr:                  true,
	UnrepresentableConstruct:      true,
	UnsupportedStart:              true,
	UnsupportedPattern:            true,
	UnsupportedProjectionType:     true,
	UnsupportedTraversalDirection: true,
	UnsupportedMultiLabel:         true,
}

// Span locates a diagnostic in the original source text.
type Span struct {
	Start, End int
	Line, Col  int
}

// Severity distinguishes a fatal translation failure from a non-fatal
// note attached to an otherwise-successful translation (spec.md §6's
// `KqlQuery.diagnostics: [Warning]`, e.g. the best-effort OPTIONAL MATCH
// and bidirectional-shortest-path emissions).
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostic is the translator's single error value. It always carries a
// taxonomy Kind and a human message, and optionally a source Span and a
// suggested fix string.
type Diagnostic struct {
	Kind         Kind
	Message      string
	Span         *Span
	SuggestedFix string
	Severity     Severity
	cause        error
}

// WithSeverity sets the diagnostic's severity and returns it for chaining.
func (d *Diagnostic) WithSeverity(s Severity) *Diagnostic {
	d.Severity = s
	return d
}

// New builds a Diagnostic, wrapping it in samber/oops for structured
// context (the "code" is the taxonomy Kind) so that a Diagnostic keeps
// composing with %w the way the rest of this codebase wraps errors.
func New(kind Kind, format string, args ...any) *Diagnostic {
	msg := fmt.Sprintf(format, args...)
	err := oops.Code(string(kind)).Errorf("%s", msg)
	return &Diagnostic{Kind: kind, Message: msg, cause: err}
}

// WithSpan attaches a source span to the diagnostic and returns it for
// chaining.
func (d *Diagnostic) WithSpan(s Span) *Diagnostic {
	d.Span = &s
	d.cause = oops.Code(string(d.Kind)).With("span_start", s.Start).With("span_end", s.End).Wrap(d.cause)
	return d
}

// WithFix attaches a suggested fix and returns the diagnostic for chaining.
func (d *Diagnostic) WithFix(fix string) *Diagnostic {
	d.SuggestedFix = fix
	return d
}

func (d *Diagnostic) Error() string {
	if d.Span != nil {
		return fmt.Sprintf("%s at %d:%d: %s", d.Kind, d.Span.Line, d.Span.Col, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

func (d *Diagnostic) Unwrap() error { return d.cause }

// FallbackEligible reports whether the classifier may downgrade this
// diagnostic's kind into a fallback route rather than surfacing it.
func (d *Diagnostic) FallbackEligible() bool {
	return fallbackEligible[d.Kind]
}

// List is an ordered collection of diagnostics, sorted by source span as
// required by spec.md §7 ("Error lists are sorted by span").
type List []*Diagnostic

func (l List) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		si, sj := l[i].Span, l[j].Span
		if si == nil && sj == nil {
			return false
		}
		if si == nil {
			return false
		}
		if sj == nil {
			return true
		}
		return si.Start < sj.Start
	})
}

func (l List) Error() string {
	if len(l) == 0 {
		return ""
	}
	l.Sort()
	out := l[0].Error()
	for _, d := range l[1:] {
		out += "; " + d.Error()
	}
	return out
}
