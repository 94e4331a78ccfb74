// Package events fans job change notifications out to observers.
//
// The Hub keeps a bounded in-memory ring of sequenced events. Publishing is
// fire-and-forget; consumers poll with Fetch (optionally long-polling until
// something arrives) or grab the recent window with Tail. The Publisher
// adapter plugs the Hub into the job store's notification contract, so every
// durably saved mutation becomes a job:updated or job:log event.
package events
