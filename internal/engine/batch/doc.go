// Package batch runs a callback over a list of items strictly one at a time.
//
// A Processor caps how many items a single run handles, waits a fixed delay
// between consecutive items to stay under an external rate limit, stops at
// the first failing item, and reports progress after every item. Cancelling
// the context stops the run before the next item starts.
package batch
