package events_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"murmur/internal/events"
	"murmur/internal/jobs"
)

func TestPublishAssignsSequenceAndTimestamp(t *testing.T) {
	hub := events.NewHub(16)
	hub.Publish(events.Event{Type: events.TypeJobLog, JobID: "job_1_1", Line: "hello"})
	hub.Publish(events.Event{Type: events.TypeJobLog, JobID: "job_1_1", Line: "world"})

	got, next := hub.Tail(10)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Sequence != 1 || got[1].Sequence != 2 {
		t.Fatalf("unexpected sequences: %d, %d", got[0].Sequence, got[1].Sequence)
	}
	if next != 2 {
		t.Fatalf("expected next sequence 2, got %d", next)
	}
	if got[0].Timestamp.IsZero() {
		t.Fatal("expected timestamp to be assigned")
	}
}

func TestRingDropsOldestOnOverflow(t *testing.T) {
	hub := events.NewHub(4)
	for i := 0; i < 10; i++ {
		hub.Publish(events.Event{Type: events.TypeJobLog, Line: fmt.Sprintf("line %d", i)})
	}
	got, _ := hub.Tail(10)
	if len(got) != 4 {
		t.Fatalf("expected buffer capped at 4, got %d", len(got))
	}
	if got[0].Line != "line 6" || got[3].Line != "line 9" {
		t.Fatalf("expected newest window, got %q..%q", got[0].Line, got[3].Line)
	}
	if hub.FirstSequence() != 7 {
		t.Fatalf("expected first buffered sequence 7, got %d", hub.FirstSequence())
	}
}

func TestFetchSinceSkipsSeenEvents(t *testing.T) {
	hub := events.NewHub(16)
	for i := 0; i < 5; i++ {
		hub.Publish(events.Event{Type: events.TypeJobLog, Line: fmt.Sprintf("line %d", i)})
	}
	got, next, err := hub.Fetch(context.Background(), 3, 10, false)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 unseen events, got %d", len(got))
	}
	if got[0].Sequence != 4 || got[1].Sequence != 5 {
		t.Fatalf("unexpected sequences: %d, %d", got[0].Sequence, got[1].Sequence)
	}
	if next != 5 {
		t.Fatalf("expected next 5, got %d", next)
	}
}

func TestFetchLimitedCursorResumesWithoutLoss(t *testing.T) {
	hub := events.NewHub(16)
	for i := 0; i < 3; i++ {
		hub.Publish(events.Event{Type: events.TypeJobLog, Line: fmt.Sprintf("line %d", i)})
	}

	first, cursor, err := hub.Fetch(context.Background(), 0, 1, false)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(first) != 1 || first[0].Sequence != 1 {
		t.Fatalf("expected single event with sequence 1, got %+v", first)
	}
	if cursor != 1 {
		t.Fatalf("expected cursor at last delivered event 1, got %d", cursor)
	}

	rest, cursor, err := hub.Fetch(context.Background(), cursor, 10, false)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("expected remaining 2 events after resume, got %d", len(rest))
	}
	if rest[0].Sequence != 2 || rest[1].Sequence != 3 {
		t.Fatalf("unexpected sequences: %d, %d", rest[0].Sequence, rest[1].Sequence)
	}
	if cursor != 3 {
		t.Fatalf("expected cursor 3, got %d", cursor)
	}
}

func TestFetchWaitWakesOnPublish(t *testing.T) {
	hub := events.NewHub(16)

	var wg sync.WaitGroup
	wg.Add(1)
	var got []events.Event
	var fetchErr error
	go func() {
		defer wg.Done()
		got, _, fetchErr = hub.Fetch(context.Background(), 0, 10, true)
	}()

	time.Sleep(20 * time.Millisecond)
	hub.Publish(events.Event{Type: events.TypeJobLog, JobID: "job_9_9", Line: "woke up"})
	wg.Wait()

	if fetchErr != nil {
		t.Fatalf("Fetch failed: %v", fetchErr)
	}
	if len(got) != 1 || got[0].Line != "woke up" {
		t.Fatalf("unexpected events after wake: %v", got)
	}
}

func TestFetchWaitHonorsContext(t *testing.T) {
	hub := events.NewHub(16)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, _, err := hub.Fetch(ctx, 0, 10, true)
	if err == nil {
		t.Fatal("expected context error from blocked fetch")
	}
}

func TestPublisherBridgesStoreNotifications(t *testing.T) {
	hub := events.NewHub(16)
	publisher := events.NewPublisher(hub)

	job := jobs.NewJob("/tmp/sample.m4a")
	publisher.JobUpdated(*job)
	publisher.JobLog(job.ID, "stage started")

	got, _ := hub.Tail(10)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Type != events.TypeJobUpdated || got[0].Job == nil || got[0].Job.ID != job.ID {
		t.Fatalf("unexpected update event: %+v", got[0])
	}
	if got[1].Type != events.TypeJobLog || got[1].JobID != job.ID || got[1].Line != "stage started" {
		t.Fatalf("unexpected log event: %+v", got[1])
	}
}

type captureSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *captureSink) Append(evt events.Event) {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
}

func TestSinksReceiveEveryEvent(t *testing.T) {
	hub := events.NewHub(16)
	sink := &captureSink{}
	hub.AddSink(sink)

	hub.Publish(events.Event{Type: events.TypeJobLog, Line: "one"})
	hub.Publish(events.Event{Type: events.TypeJobLog, Line: "two"})

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 2 {
		t.Fatalf("expected sink to see 2 events, got %d", len(sink.events))
	}
	if sink.events[0].Line != "one" || sink.events[1].Line != "two" {
		t.Fatalf("unexpected sink contents: %v", sink.events)
	}
}
