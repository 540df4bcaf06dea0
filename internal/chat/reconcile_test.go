package chat

import (
	"testing"

	"github.com/brimoraa/plpchat/internal/models"
)

func TestReconcileReplacesPending(t *testing.T) {
	seq := []models.Message{
		{ID: "m0", Chat: "c1", Content: "earlier"},
		{TempID: "t1", Chat: "c1", Content: "hello"},
	}
	confirmed := models.Message{ID: "m1", TempID: "t1", Chat: "c1", Content: "hello"}

	got, outcome := Reconcile(seq, confirmed)
	if outcome != OutcomeReplaced {
		t.Fatalf("expected replaced, got %s", outcome)
	}
	if len(got) != 2 || got[1].ID != "m1" || got[1].IsPending() {
		t.Fatalf("unexpected sequence %+v", got)
	}
	if seq[1].ID != "" {
		t.Fatalf("input sequence was mutated")
	}

	again, outcome := Reconcile(got, confirmed)
	if outcome != OutcomeDuplicate {
		t.Fatalf("expected duplicate on replay, got %s", outcome)
	}
	if len(again) != 2 {
		t.Fatalf("replay changed the sequence: %+v", again)
	}
}

func TestReconcileAppendsUnseen(t *testing.T) {
	seq := []models.Message{{ID: "m0", Chat: "c1"}}

	got, outcome := Reconcile(seq, models.Message{ID: "m1", Chat: "c1", Content: "from peer"})
	if outcome != OutcomeAppended || len(got) != 2 || got[1].ID != "m1" {
		t.Fatalf("unexpected result %s %+v", outcome, got)
	}

	// Correlation id with no matching pending entry falls through to append.
	got, outcome = Reconcile(got, models.Message{ID: "m2", TempID: "other-tab", Chat: "c1"})
	if outcome != OutcomeAppended || len(got) != 3 {
		t.Fatalf("unexpected result %s %+v", outcome, got)
	}
}

func TestReconcileIgnoresMessageWithoutServerID(t *testing.T) {
	seq := []models.Message{{ID: "m0", Chat: "c1"}}
	got, outcome := Reconcile(seq, models.Message{TempID: "t9", Chat: "c1"})
	if outcome != OutcomeIgnored || len(got) != 1 {
		t.Fatalf("unexpected result %s %+v", outcome, got)
	}
}

func TestReconcileDoesNotReplaceConfirmedEntry(t *testing.T) {
	seq := []models.Message{{ID: "m1", TempID: "t1", Chat: "c1"}}
	got, outcome := Reconcile(seq, models.Message{ID: "m2", TempID: "t1", Chat: "c1"})
	if outcome != OutcomeAppended || len(got) != 2 {
		t.Fatalf("unexpected result %s %+v", outcome, got)
	}
}

func TestReconcileBroadcastBeforeAcknowledgement(t *testing.T) {
	seq := []models.Message{
		{ID: "m0", Chat: "c1", Content: "earlier"},
		{TempID: "t1", Chat: "c1", Content: "hello"},
	}

	seq, outcome := Reconcile(seq, models.Message{ID: "m1", Chat: "c1", Content: "hello"})
	if outcome != OutcomeAppended || len(seq) != 3 {
		t.Fatalf("unexpected result %s %+v", outcome, seq)
	}

	seq, outcome = Reconcile(seq, models.Message{ID: "m1", TempID: "t1", Chat: "c1", Content: "hello"})
	if outcome != OutcomeReplaced {
		t.Fatalf("expected replaced, got %s", outcome)
	}
	if len(seq) != 2 || seq[0].ID != "m0" || seq[1].ID != "m1" {
		t.Fatalf("expected the pending entry to be dropped, got %+v", seq)
	}
	for _, m := range seq {
		if m.IsPending() {
			t.Fatalf("pending entry left behind: %+v", seq)
		}
	}
}
