/*
scheduler_test.go - Tests for the approval reminder scheduler

The scheduler only ever publishes events. It must nudge the current
approver once per pending-age window and never move a revision.
*/
package api

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/revision-engine/orders"
	"github.com/warp/revision-engine/revision"
	"github.com/warp/revision-engine/store/sqlite"
)

// stagePendingOrder seeds a confirmed order and drives a draft with one
// critical change through a service whose clock starts at start. With
// submit set, the draft ends up pending at chain level 1.
func stagePendingOrder(t *testing.T, store *sqlite.Store, number revision.OrderNumber, start time.Time, submit bool) {
	t.Helper()
	ctx := context.Background()

	morgan := revision.User{ID: "u-morgan", Name: "Morgan Blake", Role: revision.RoleProcurement}
	maxAmount := decimal.NewFromInt(500)
	cfg := revision.WorkflowConfig{
		Name: "purchase-standard",
		Approvers: []revision.Approver{
			{ID: "u-dana", Name: "Dana Kim", Role: revision.RoleManager, Level: 1},
			{ID: "u-sam", Name: "Sam Ortiz", Role: revision.RoleDirector, Level: 2},
		},
		Policy: revision.DeltaPolicy{MaxAmount: &maxAmount},
	}
	svc := revision.NewService(store, cfg,
		revision.WithClock(revision.NewStepClock(start, time.Minute)),
		revision.WithIDGenerator(revision.NewSequenceIDs(string(number))))

	order := orders.Order{
		Number: number, Kind: orders.KindPurchase,
		Counterparty: "Acme Industrial Supply", Currency: "USD",
		CreatedBy: morgan.ID, CreatedAt: start,
	}
	lines := []revision.LineItem{
		{LineNumber: 1, Description: "Steel mounting brackets", Quantity: dec(100), UnitPrice: dec(32)},
	}
	initial, err := orders.NewInitialRevision(order, lines, morgan,
		revision.NewStepClock(start, time.Minute), revision.NewSequenceIDs(string(number)+"-seed"))
	if err != nil {
		t.Fatalf("Failed to build initial revision: %v", err)
	}
	if err := store.SaveOrder(ctx, order); err != nil {
		t.Fatalf("Failed to save order: %v", err)
	}
	if err := store.SaveRevision(ctx, initial); err != nil {
		t.Fatalf("Failed to save initial revision: %v", err)
	}

	if _, err := svc.CreateDraft(ctx, number, morgan); err != nil {
		t.Fatalf("Failed to create draft: %v", err)
	}
	if _, err := svc.RecordChange(ctx, number, morgan, revision.ChangeInput{
		Field: revision.FieldQuantity, LineNumber: 1, NewValue: "120",
	}); err != nil {
		t.Fatalf("Failed to record change: %v", err)
	}
	if submit {
		if _, err := svc.SubmitForApproval(ctx, number, morgan, "volume bump"); err != nil {
			t.Fatalf("Failed to submit: %v", err)
		}
	}
}

func TestReminderScheduler_RemindsStalePending(t *testing.T) {
	// GIVEN: A revision pending approval for two days
	// WHEN: The sweep runs with a one-day pending age
	// THEN: One reminder names the current approver and nothing transitions

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	stagePendingOrder(t, store, "PO-2025-001", time.Now().UTC().Add(-48*time.Hour), true)

	pub := &revision.CapturePublisher{}
	rs := NewReminderScheduler(store, pub, zerolog.Nop())
	rs.MaxPendingAge = 24 * time.Hour

	rs.RunNow()

	events := pub.Events()
	if len(events) != 1 {
		t.Fatalf("Expected 1 reminder, got %d", len(events))
	}
	ev := events[0]
	if ev.Type != revision.EventApprovalReminder {
		t.Errorf("Expected approval_reminder, got %s", ev.Type)
	}
	if ev.OrderNumber != "PO-2025-001" {
		t.Errorf("Expected order PO-2025-001, got %s", ev.OrderNumber)
	}
	if ev.Actor != "u-dana" {
		t.Errorf("Expected the level 1 approver to be nudged, got %s", ev.Actor)
	}
	if !strings.HasPrefix(ev.Notes, "awaiting approval since") {
		t.Errorf("Unexpected reminder notes: %q", ev.Notes)
	}

	// A second sweep inside the same window stays quiet.
	rs.RunNow()
	if got := len(pub.Events()); got != 1 {
		t.Errorf("Expected the reminder to be deduplicated, got %d events", got)
	}

	// The sweep never moves the revision.
	draft, err := store.GetDraft(context.Background(), "PO-2025-001")
	if err != nil {
		t.Fatalf("Failed to load draft: %v", err)
	}
	if draft.Status != revision.StatusPendingApproval {
		t.Errorf("Expected the draft still pending, got %s", draft.Status)
	}
	if draft.Chain.CurrentLevel != 1 {
		t.Errorf("Expected the chain untouched at level 1, got %d", draft.Chain.CurrentLevel)
	}
}

func TestReminderScheduler_SkipsFreshAndUnsubmitted(t *testing.T) {
	// GIVEN: One unsubmitted draft and one recently submitted revision
	// WHEN: The sweep runs
	// THEN: Neither gets a reminder

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	stagePendingOrder(t, store, "PO-A", time.Now().UTC().Add(-72*time.Hour), false)
	stagePendingOrder(t, store, "PO-B", time.Now().UTC().Add(-time.Hour), true)

	pub := &revision.CapturePublisher{}
	rs := NewReminderScheduler(store, pub, zerolog.Nop())
	rs.MaxPendingAge = 24 * time.Hour

	rs.RunNow()

	if got := len(pub.Events()); got != 0 {
		t.Errorf("Expected no reminders, got %d", got)
	}
}

func TestReminderScheduler_DisabledStaysIdle(t *testing.T) {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	pub := &revision.CapturePublisher{}
	rs := NewReminderScheduler(store, pub, zerolog.Nop())
	rs.Enabled = false

	rs.Start()
	if rs.ticker != nil {
		t.Error("A disabled scheduler must not start its ticker")
	}
	rs.Stop()

	if got := len(pub.Events()); got != 0 {
		t.Errorf("Expected no events from a disabled scheduler, got %d", got)
	}
}
