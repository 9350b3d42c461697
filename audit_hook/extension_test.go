package audithook

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/tally/types"
)

type captureRecorder struct {
	events []*AuditEvent
	err    error
}

func (r *captureRecorder) Record(_ context.Context, evt *AuditEvent) error {
	r.events = append(r.events, evt)
	return r.err
}

func TestRecordsDepositEvent(t *testing.T) {
	rec := &captureRecorder{}
	e := New(rec)

	if err := e.OnDeposit(context.Background(), 7, types.Units(300), types.Units(450)); err != nil {
		t.Fatalf("OnDeposit failed: %v", err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(rec.events))
	}
	evt := rec.events[0]
	if evt.ID.IsNil() {
		t.Error("event id not assigned")
	}
	if evt.Action != ActionEscrowDeposited {
		t.Errorf("action = %q, want %q", evt.Action, ActionEscrowDeposited)
	}
	if evt.Resource != ResourceSubscriber || evt.ResourceID != "7" {
		t.Errorf("resource = %q/%q", evt.Resource, evt.ResourceID)
	}
	if evt.Metadata["amount"] != types.Units(300).Format() {
		t.Errorf("amount metadata = %v", evt.Metadata["amount"])
	}
}

func TestSettlementPassOutcome(t *testing.T) {
	rec := &captureRecorder{}
	e := New(rec)

	if err := e.OnSettlementPass(context.Background(), 1, 3, 0, 0); err != nil {
		t.Fatalf("OnSettlementPass failed: %v", err)
	}
	if err := e.OnSettlementPass(context.Background(), 1, 2, 1, 0); err != nil {
		t.Fatalf("OnSettlementPass failed: %v", err)
	}

	if got := rec.events[0].Outcome; got != OutcomeSuccess {
		t.Errorf("clean pass outcome = %q, want success", got)
	}
	if got := rec.events[1].Outcome; got != OutcomePartial {
		t.Errorf("pausing pass outcome = %q, want partial", got)
	}
}

func TestDisabledActionsSkipped(t *testing.T) {
	rec := &captureRecorder{}
	e := New(rec, WithDisabledActions(ActionChargeSettled))

	if err := e.OnChargeSettled(context.Background(), 1, 2, types.Units(100)); err != nil {
		t.Fatalf("OnChargeSettled failed: %v", err)
	}
	if err := e.OnLinkPaused(context.Background(), 1, 2); err != nil {
		t.Fatalf("OnLinkPaused failed: %v", err)
	}

	if len(rec.events) != 1 || rec.events[0].Action != ActionLinkPaused {
		t.Errorf("events = %+v, want only link.paused", rec.events)
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	rec := &captureRecorder{err: errors.New("sink down")}
	e := New(rec)

	if err := e.OnLinkResumed(context.Background(), 1, 2); err != nil {
		t.Errorf("recorder failure leaked: %v", err)
	}
}
