// Package domain defines the core business entities of the classification
// pipeline: fingerprints, tasks with their lifecycle state machine, and
// classification results. It has no dependencies on storage, transport,
// or inference concerns.
package domain
