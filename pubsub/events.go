package pubsub

import "context"

// EventType identifies what happened.
type EventType string

const (
	// IngestStarted fires when a file begins ingestion.
	IngestStarted EventType = "ingest_started"
	// IngestFinished fires when a file's chunks are committed.
	IngestFinished EventType = "ingest_finished"
	// IngestFailed fires when a single file's ingestion aborts.
	IngestFailed EventType = "ingest_failed"
	// QuestionReceived fires when a query passes validation.
	QuestionReceived EventType = "question_received"
	// WebSearchPerformed fires after the agent's search round.
	WebSearchPerformed EventType = "web_search_performed"
	// AnswerReady fires when the final answer is produced.
	AnswerReady EventType = "answer_ready"
)

// Event is one occurrence in a resource's lifecycle.
type Event[T any] struct {
	Type    EventType
	Payload T
}

// Notice is the payload published by the ingestion and query pipelines.
type Notice struct {
	Collection string
	Source     string
	Detail     string
	Err        error
}

// Subscriber exposes the receiving side of a broker.
type Subscriber[T any] interface {
	// Subscribe returns a read-only event channel that closes when the
	// context ends.
	Subscribe(context.Context) <-chan Event[T]
}

// Publisher exposes the sending side of a broker.
type Publisher[T any] interface {
	// Publish delivers the event to all current subscribers.
	Publish(EventType, T)
}
