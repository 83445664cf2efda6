package dispatch

import (
	"context"
	"log/slog"

	"github.com/franciscod/campus-fetch/internal/model"
)

// Request is one link to route, with the context needed to place its
// output and to diagnose it.
type Request struct {
	// Link is the link to handle.
	Link model.ResourceLink

	// Section is the title of the section containing the link.
	Section string

	// Page is the title of the page containing the link.
	Page string

	// Dir overrides the directory, relative to the live root, that the
	// handler writes into. Empty means derived from Section.
	Dir string
}

// Handler processes one classified link.
type Handler func(ctx context.Context, req Request) error

// Table maps each resource kind to its handler.
type Table map[model.ResourceKind]Handler

// Dispatcher classifies links and routes them through a Table, at most
// once per VisitKey.
//
// A Dispatcher belongs to one traversal and is not safe for concurrent
// Dispatch calls; the VisitSet it shares with the traversal is.
type Dispatcher struct {
	classifier Classifier
	visited    *model.VisitSet
	table      Table
	logger     *slog.Logger

	duplicates int
	unhandled  int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for unhandled and duplicate links.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New creates a Dispatcher. visited is shared with the caller, which
// records the pages it visits in the same set.
func New(classifier Classifier, visited *model.VisitSet, table Table, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		classifier: classifier,
		visited:    visited,
		table:      table,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.visited == nil {
		d.visited = model.NewVisitSet()
	}
	if d.table == nil {
		d.table = Table{}
	}
	return d
}

// Classify returns the kind the dispatcher would assign to rawURL.
func (d *Dispatcher) Classify(rawURL string) model.ResourceKind {
	return d.classifier.Classify(rawURL)
}

// Dispatch classifies req.Link, claims its VisitKey and calls the handler
// for its kind. A link that already carries a kind keeps it.
//
// Duplicates and links without a handler are not errors: they are counted,
// logged and skipped. The key is claimed before the handler runs, so a
// handler that fails is not retried by a later occurrence of the link.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) error {
	kind := req.Link.Kind
	if kind == model.KindUnhandled {
		kind = d.classifier.Classify(req.Link.URL)
	}
	req.Link.Kind = kind

	if !d.visited.Add(model.KeyFor(kind, req.Link.URL)) {
		d.duplicates++
		d.logger.Debug("skipping already handled link",
			"url", req.Link.URL,
			"kind", kind.String(),
			"page", req.Page,
		)
		return nil
	}

	handler, ok := d.table[kind]
	if !ok || handler == nil {
		d.unhandled++
		d.logger.Info("unhandled link",
			"url", req.Link.URL,
			"text", req.Link.Text,
			"kind", kind.String(),
			"section", req.Section,
			"page", req.Page,
		)
		return nil
	}

	return handler(ctx, req)
}

// Duplicates returns how many links were skipped as already handled.
func (d *Dispatcher) Duplicates() int {
	return d.duplicates
}

// Unhandled returns how many links had no handler.
func (d *Dispatcher) Unhandled() int {
	return d.unhandled
}
