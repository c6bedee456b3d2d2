// Package enrich implements the list enrichment engine.
//
// A run takes raw markdown text, applies the configured text replacements,
// locates repository references, fetches their metadata under a bounded
// worker pool, rewrites the document with inline status annotations,
// optionally reorders qualifying lists, and derives a structured JSON
// representation. The rewritten text and the JSON document are computed
// from the same enriched tree, but JSON item order is captured before any
// sorting is applied to the rendered output.
package enrich

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"starmark/pkg/cache"
	"starmark/pkg/errors"
	"starmark/pkg/export"
	"starmark/pkg/github"
	"starmark/pkg/httputil"
	"starmark/pkg/markdown"
	"starmark/pkg/observability"
	"starmark/pkg/replace"
)

// Sort orders for qualifying lists.
const (
	SortByStars      = "stars"
	SortByLastCommit = "last_commit"
	SortByNone       = ""
)

// DefaultMinReferences is the minimum count of reference-bearing items a
// list needs before it is sorted or exported as a JSON section.
const DefaultMinReferences = 2

// Fetcher resolves a repository reference to its metadata record.
type Fetcher interface {
	FetchRepo(ctx context.Context, ref github.Ref) (*github.RepoInfo, error)
}

// Options configures an enrichment run.
type Options struct {
	// Token is the API credential used when no Fetcher is supplied.
	Token string

	// SortBy selects the list ordering metric: SortByStars,
	// SortByLastCommit, or SortByNone to leave lists untouched.
	SortBy string

	// MinReferences gates sorting and JSON export per list (default 2).
	MinReferences int

	// Rules are the ordered pre-parse text replacements.
	Rules []replace.Rule

	// LinkPrefix, when set, is prepended to relative, non-fragment link
	// targets so the document can be relocated to a different directory.
	LinkPrefix string

	// Source identifies the document in the JSON export metadata.
	Source string

	// Logger defaults to a discard logger.
	Logger *log.Logger

	// Fetcher defaults to an uncached GitHub client using Token.
	Fetcher Fetcher

	// Retry policy for rate-limited fetches. Zero values use the
	// httputil defaults (3 attempts, 300s wait cap).
	MaxAttempts int
	MaxWait     time.Duration

	// Now and Sleep are injectable for deterministic tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error

	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	switch o.SortBy {
	case SortByStars, SortByLastCommit, SortByNone:
	default:
		return errors.New(errors.ErrCodeInvalidSort,
			"invalid sort order %q (must be one of: stars, last_commit)", o.SortBy)
	}
	if o.MinReferences <= 0 {
		o.MinReferences = DefaultMinReferences
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = httputil.DefaultMaxAttempts
	}
	if o.MaxWait <= 0 {
		o.MaxWait = httputil.DefaultMaxWait
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Fetcher == nil {
		o.Fetcher = github.NewClient(o.Token, cache.NewNullCache(), 0)
	}
	o.validated = true
	return nil
}

// Result contains the outputs of an enrichment run.
type Result struct {
	// Output is the rewritten document text.
	Output []byte

	// Changed reports whether Output differs from the input.
	Changed bool

	// Export is the structured representation of the document.
	Export *export.Document

	// Stats contains reference and fetch counts.
	Stats Stats
}

// Stats contains run statistics.
type Stats struct {
	References int // unique candidate URLs
	Fetched    int // references with a metadata record
	Failed     int // references whose fetch failed
	Annotated  int // annotations inserted this run
}

// Engine runs the enrichment pipeline with a fixed set of options.
type Engine struct {
	opts Options
}

// New creates an engine, validating the options.
func New(opts Options) (*Engine, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Engine{opts: opts}, nil
}

// Run enriches a single document. Individual fetch failures never abort the
// run; the only errors returned are context cancellation during fetching.
func (e *Engine) Run(ctx context.Context, src []byte) (*Result, error) {
	start := e.opts.Now()

	text := []byte(replace.Apply(e.opts.Logger, e.opts.Rules, string(src)))
	doc := markdown.Parse(text)

	refs := extractReferences(doc)
	records, failed := e.fetchAll(ctx, refs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// JSON item order is source order: build the export before any edits
	// move list items around.
	jsonDoc := e.buildExport(doc, records)

	edits, annotated := e.annotationEdits(doc, records)
	edits = append(edits, e.linkPrefixEdits(doc)...)
	text = markdown.Apply(text, edits)

	if e.opts.SortBy != SortByNone {
		resorted := markdown.Parse(text)
		text = markdown.Apply(text, e.sortEdits(resorted, records))
	}

	out := markdown.MatchTrailingNewline(text, src)
	changed := !bytes.Equal(out, src)

	observability.Engine().OnEnrichComplete(ctx, e.opts.Source, changed, e.opts.Now().Sub(start), nil)

	return &Result{
		Output:  out,
		Changed: changed,
		Export:  jsonDoc,
		Stats: Stats{
			References: len(refs),
			Fetched:    len(records),
			Failed:     failed,
			Annotated:  annotated,
		},
	}, nil
}
