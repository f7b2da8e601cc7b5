// Package memory provides in-process implementations of the store
// interfaces, mirroring the postgres adapters. They back local
// development and the test suites; the shared contract tests keep their
// behavior aligned with the durable implementations.
package memory
