// Package workflow runs the job queue. Jobs are executed strictly one at a
// time by a single consumer goroutine; enqueueing never blocks and a failing
// job never stops the queue.
package workflow
