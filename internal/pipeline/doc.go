// Package pipeline runs course synchronizations as a sequence of steps and
// processes several courses concurrently.
//
// A Pipeline executes its Steps in order over one model.SyncReport. The
// standard SyncPipeline runs the crawl engine and then records the run in
// the history database, also when the sync failed or was interrupted.
//
// BatchProcessor runs one pipeline per course with a concurrency limit
// (errgroup.SetLimit). A course failing does not cancel the others;
// ProcessBatchWithCallback streams each report as soon as its course ends.
package pipeline
