// Package engine runs resumable batches of score lookups.
//
// A run reads the requested identifiers and the identifiers already recorded
// in the output, looks up the sorted difference one identifier at a time,
// and appends each result to the output before moving on. Because progress
// is derived from the output itself, an interrupted run resumes where it
// stopped and a completed run is a no-op.
//
// Lookups report a tagged Outcome: a score, no score (recorded as NoScore),
// or an unexpected service status. An unexpected status aborts the run with
// an *UnexpectedStatusError; everything appended before it stays recorded.
package engine
