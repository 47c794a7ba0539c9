package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// StreamName is the JetStream stream retaining the submission subjects until
// every bound consumer has acknowledged them. A publish is only confirmed
// once the stream has stored the event, and a consumer restart resumes from
// its last acknowledged position.
const StreamName = "PLAY_SUBMISSIONS"

// maxPendingAcks bounds how far a consumer may run ahead of its acks before
// the server stops delivering.
const maxPendingAcks = 4096

// EnsureStream creates the submission stream when this is the first process
// to come up against the server.
func EnsureStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", StreamName, err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"play.submissions.>"},
		Retention: nats.InterestPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", StreamName, err)
	}

	return nil
}

// Publisher emits submission events onto the durable message channel.
type Publisher interface {
	PublishSubmitted(ctx context.Context, event SubmittedEvent) error
	PublishSolved(ctx context.Context, event SolvedEvent) error
}

// NATSPublisher publishes JSON payloads onto the stream and waits for the
// server's storage acknowledgement.
type NATSPublisher struct {
	js     nats.JetStreamContext
	logger zerolog.Logger
}

// NewNATSPublisher builds the production publisher.
func NewNATSPublisher(js nats.JetStreamContext, logger zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{
		js:     js,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

// PublishSubmitted emits a submitted event.
func (p *NATSPublisher) PublishSubmitted(ctx context.Context, event SubmittedEvent) error {
	return p.publish(ctx, SubjectSubmitted, event)
}

// PublishSolved emits a solved event.
func (p *NATSPublisher) PublishSolved(ctx context.Context, event SolvedEvent) error {
	return p.publish(ctx, SubjectSolved, event)
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event for %s: %w", subject, err)
	}

	if _, err := p.js.Publish(subject, payload, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	return nil
}

// Stream hands out raw payload channels for a subject. Abstracted so the
// ingest worker can be driven by plain channels in tests.
type Stream interface {
	Subscribe(subject string) (<-chan []byte, func(), error)
}

// NATSStream adapts a JetStream context to the Stream interface.
type NATSStream struct {
	js nats.JetStreamContext
}

// NewNATSStream builds the production stream.
func NewNATSStream(js nats.JetStreamContext) *NATSStream {
	return &NATSStream{js: js}
}

// Subscribe binds a durable consumer for subject and bridges it to a payload
// channel. A message is acknowledged only after the consumer has taken it,
// so anything still in flight when the process dies is redelivered.
func (s *NATSStream) Subscribe(subject string) (<-chan []byte, func(), error) {
	out := make(chan []byte, maxPendingAcks)
	done := make(chan struct{})

	_, err := s.js.Subscribe(subject, func(msg *nats.Msg) {
		select {
		case out <- msg.Data:
			_ = msg.Ack()
		case <-done:
			// Left unacknowledged; the server redelivers after the ack wait.
		}
	},
		nats.Durable(durableName(subject)),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.DeliverAll(),
		nats.MaxAckPending(maxPendingAcks),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	// Unsubscribing would delete the durable consumer, so cancel only stops
	// the local bridge; the subscription ends with the connection.
	cancel := func() {
		close(done)
	}

	return out, cancel, nil
}

// durableName derives the consumer name from the subject; durable names must
// not contain dots.
func durableName(subject string) string {
	return strings.ReplaceAll(subject, ".", "-")
}
