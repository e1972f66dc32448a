/*
scheduler.go - Approval reminder scheduler

PURPOSE:
  Periodically checks for revisions that have been sitting in
  pending_approval longer than a configured age and publishes reminder
  events for the approver whose level is current.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Never transitions state: approvals have no timeout, the engine holds
    the revision at the current level until a person acts
  - Publishes approval_reminder events through the same publisher the
    engine uses; notification plumbing decides what to do with them
  - Remembers when each revision was last reminded so a slow approver gets
    one nudge per MaxPendingAge window, not one per tick

CONFIGURATION:
  - CheckInterval:  How often to check (default: 15 minutes)
  - MaxPendingAge:  How long a revision may wait before a reminder
                    (default: 24 hours)
  - Enabled:        Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewReminderScheduler(store, publisher, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - revision/events.go: Event types and publishers
  - revision/service.go: The transitions this scheduler never performs
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/revision-engine/revision"
	"github.com/warp/revision-engine/store/sqlite"
)

// ReminderScheduler nudges approvers about stale pending revisions.
type ReminderScheduler struct {
	Store         *sqlite.Store
	Publisher     revision.Publisher
	CheckInterval time.Duration
	MaxPendingAge time.Duration
	Enabled       bool

	log      zerolog.Logger
	ticker   *time.Ticker
	stop     chan bool
	wg       sync.WaitGroup
	mu       sync.Mutex
	reminded map[revision.RevisionID]time.Time
}

// NewReminderScheduler creates a new scheduler.
func NewReminderScheduler(store *sqlite.Store, pub revision.Publisher, log zerolog.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		Store:         store,
		Publisher:     pub,
		CheckInterval: 15 * time.Minute,
		MaxPendingAge: 24 * time.Hour,
		Enabled:       true,
		log:           log,
		stop:          make(chan bool),
		reminded:      make(map[revision.RevisionID]time.Time),
	}
}

// Start begins the scheduler.
func (rs *ReminderScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.log.Info().Msg("reminder scheduler disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	rs.log.Info().
		Dur("check_interval", rs.CheckInterval).
		Dur("max_pending_age", rs.MaxPendingAge).
		Msg("reminder scheduler started")
}

// Stop stops the scheduler.
func (rs *ReminderScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.log.Info().Msg("reminder scheduler stopped")
	}
}

func (rs *ReminderScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndNotify()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndNotify()
		case <-rs.stop:
			return
		}
	}
}

func (rs *ReminderScheduler) checkAndNotify() {
	ctx := context.Background()
	now := time.Now().UTC()

	all, err := rs.Store.ListOrders(ctx)
	if err != nil {
		rs.log.Error().Err(err).Msg("reminder sweep: listing orders failed")
		return
	}

	remindedCount := 0

	for _, o := range all {
		draft, err := rs.Store.GetDraft(ctx, o.Number)
		if err != nil {
			rs.log.Error().Err(err).Str("order", string(o.Number)).
				Msg("reminder sweep: loading draft failed")
			continue
		}
		if draft == nil || draft.Status != revision.StatusPendingApproval {
			continue
		}

		submittedAt := draft.SubmittedAt()
		if submittedAt == nil || now.Sub(*submittedAt) < rs.MaxPendingAge {
			continue
		}
		if last, ok := rs.reminded[draft.ID]; ok && now.Sub(last) < rs.MaxPendingAge {
			continue
		}

		if rs.notify(ctx, draft, now) {
			rs.reminded[draft.ID] = now
			remindedCount++
		}
	}

	if remindedCount > 0 {
		rs.log.Info().Int("reminders", remindedCount).Msg("reminder sweep completed")
	}
}

// notify publishes one reminder naming the approver whose level is current.
func (rs *ReminderScheduler) notify(ctx context.Context, draft *revision.Revision, now time.Time) bool {
	if rs.Publisher == nil {
		return false
	}

	var approver revision.UserID
	if draft.Chain != nil {
		if step := draft.Chain.CurrentStep(); step != nil {
			approver = step.Approver.ID
		}
	}

	ev := revision.Event{
		Type:        revision.EventApprovalReminder,
		OrderNumber: draft.OrderNumber,
		RevisionID:  draft.ID,
		Version:     draft.Version.String(),
		Status:      draft.Status,
		Actor:       approver,
		At:          now,
		Notes:       "awaiting approval since " + draft.SubmittedAt().Format(time.RFC3339),
	}
	if err := rs.Publisher.Publish(ctx, ev); err != nil {
		rs.log.Warn().Err(err).Str("order", string(draft.OrderNumber)).
			Msg("reminder publish failed")
		return false
	}
	return true
}

// RunNow triggers an immediate check (for testing/admin).
func (rs *ReminderScheduler) RunNow() {
	rs.checkAndNotify()
}
