// Package crawler synchronizes a Moodle course into a local directory tree.
//
// # Architecture
//
// The package is designed around the Engine type, which holds the
// configuration of a sync and builds one traversal per run. The traversal
// is the only mutable state of a run: the set of VisitKeys already handled,
// the dispatcher routing each link to its handler, the downloader bound to
// the course snapshot, and the report being filled in.
//
// # Run lifecycle
//
//  1. The previous output of the course is rotated into the shadow tree.
//  2. The root page is fetched. Navigation tabs are expanded depth-first
//     before the content of any page is processed.
//  3. Every section with non-empty text becomes a Markdown artifact, and
//     its links are dispatched in document order.
//  4. Files whose shadow copy still matches the origin's ETag are moved
//     back into the live tree instead of being downloaded.
//  5. The shadow tree is discarded, or restored if the root failed.
//
// A failing link is recorded in the report and its siblings continue. Only
// a root page that cannot be established fails the run.
//
// # Usage
//
//	engine := crawler.NewEngine(client, extract.NewMoodle(),
//		crawler.WithOutputDir("downloads"),
//		crawler.WithForums(true),
//	)
//	report, err := engine.Sync(ctx, model.SyncRoot{ID: "42", Name: "Algoritmos I"})
package crawler
