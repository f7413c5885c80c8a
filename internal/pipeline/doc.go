// Package pipeline runs one crawl of a seed URL through a fixed sequence of
// steps: cache decision, crawl, extraction, asset download, normalization
// with validation, bundle emission and cache recording.
//
// Each step receives the Run and fills in its part of it. A step that
// decides the run has nothing left to do marks it skipped, which ends the
// pipeline without an error. Recoverable failures are logged and counted in
// the run summary; only failures that would leave no valid document stop
// the pipeline.
//
// BatchProcessor runs several seeds with bounded concurrency, each with its
// own pipeline and its own cache decision.
package pipeline
