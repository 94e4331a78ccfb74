// Package pipeline executes one job end to end: audio conversion, speech
// recognition, artifact collection, and the optional detached summarization
// pass. Progress and log lines are written through the job store so every
// mutation is persisted before listeners hear about it.
package pipeline
