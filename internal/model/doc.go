// Package model defines the data structures shared by the sync engine.
//
// This package contains the following main types:
//   - VisitKey and VisitSet: per-run deduplication of crawl work
//   - ResourceKind and ResourceLink: classified outbound links
//   - Section and CrawlNode: page content being processed
//   - DownloadTarget: where a fetched file lands
//   - SyncRoot: one course and its output directory name
//   - SyncReport: the outcome of one run, persisted in the history database
//
// Design decision: We keep these types in their own package because the
// crawler, dispatcher, downloader, database and report packages all use
// them, and centralizing them prevents import cycles.
package model
