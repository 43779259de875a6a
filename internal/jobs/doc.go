// Package jobs runs fire-and-forget background work on a bounded in-memory
// queue drained by a fixed pool of workers. Jobs are not persisted: anything
// still queued when the process stops is dropped.
package jobs
