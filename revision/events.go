/*
events.go - Post-commit event publishing

PURPOSE:
  Downstream listeners (notification senders, dashboards) learn about
  committed transitions through fire-and-forget events. Publishing happens
  after the state transition commits and can never fail it: the service
  logs publish errors at warn and moves on.

PUBLISHERS:
  LogPublisher:     Writes events to the structured log (default)
  NATSPublisher:    Publishes JSON to revisions.<type> subjects
  CapturePublisher: Collects events in memory for tests

SEE ALSO:
  - service.go: publish() swallows errors per the fire-and-forget contract
*/
package revision

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// =============================================================================
// EVENTS
// =============================================================================

type EventType string

const (
	EventDraftCreated     EventType = "draft_created"
	EventSubmitted        EventType = "submitted"
	EventStepApproved     EventType = "step_approved"
	EventApproved         EventType = "approved"
	EventRejected         EventType = "rejected"
	EventChangesRequested EventType = "changes_requested"
	EventApprovalSkipped  EventType = "approval_skipped"
	EventSent             EventType = "sent"
	EventConfirmed        EventType = "confirmed"
	EventDiscarded        EventType = "discarded"
	EventApprovalReminder EventType = "approval_reminder"
)

type Event struct {
	Type        EventType   `json:"type"`
	OrderNumber OrderNumber `json:"order_number"`
	RevisionID  RevisionID  `json:"revision_id"`
	Version     string      `json:"version"`
	Status      Status      `json:"status"`
	Actor       UserID      `json:"actor"`
	At          time.Time   `json:"at"`
	Notes       string      `json:"notes,omitempty"`
}

// Publisher delivers events to downstream listeners. Best effort: errors
// are reported to the caller, which logs and swallows them.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// =============================================================================
// LOG PUBLISHER - Default sink
// =============================================================================

type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.log.Info().
		Str("event", string(ev.Type)).
		Str("order", string(ev.OrderNumber)).
		Str("revision", string(ev.RevisionID)).
		Str("version", ev.Version).
		Str("status", string(ev.Status)).
		Str("actor", string(ev.Actor)).
		Msg("revision event")
	return nil
}

// =============================================================================
// NATS PUBLISHER - JSON events on revisions.<type>
// =============================================================================

type NATSPublisher struct {
	conn          *nats.Conn
	subjectPrefix string
}

// NewNATSPublisher publishes to "<prefix>.<event type>" subjects, e.g.
// "revisions.submitted".
func NewNATSPublisher(conn *nats.Conn, subjectPrefix string) *NATSPublisher {
	if subjectPrefix == "" {
		subjectPrefix = "revisions"
	}
	return &NATSPublisher{conn: conn, subjectPrefix: subjectPrefix}
}

func (p *NATSPublisher) Publish(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, ev.Type)
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// =============================================================================
// CAPTURE PUBLISHER - Test double
// =============================================================================

type CapturePublisher struct {
	mu     sync.Mutex
	events []Event

	// FailWith, when set, is returned from every Publish call. Lets tests
	// prove that publish failures never fail a transition.
	FailWith error
}

func (p *CapturePublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.FailWith
}

func (p *CapturePublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

func (p *CapturePublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
