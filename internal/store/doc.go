// Package store defines the persistence boundary of the pipeline: the
// TaskStore interface over durable task records (the single source of
// truth for task state) and the ResultCache interface over completed
// classification results. Implementations live under
// internal/platform/postgres and internal/platform/memory.
package store
