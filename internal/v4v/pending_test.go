package v4v_test

import (
	"testing"

	v4v "go.v4v.dev/v4v/internal/v4v"
)

func TestPendingSetQueueUpgrade(t *testing.T) {
	p := v4v.NewPendingSet()
	p.Queue(3, 10)
	p.Queue(3, 5) // should not downgrade
	p.Queue(3, 20)
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", p.Len())
	}
	satisfied := p.FindSatisfied(20)
	if len(satisfied) != 1 || satisfied[0].Len != 20 {
		t.Fatalf("FindSatisfied(20) = %+v, want one entry of len 20", satisfied)
	}
	if p.Len() != 0 {
		t.Fatalf("Len() after satisfy = %d, want 0", p.Len())
	}
}

func TestPendingSetCancelIdempotent(t *testing.T) {
	p := v4v.NewPendingSet()
	p.Queue(4, 8)
	p.Cancel(4)
	p.Cancel(4) // idempotent, must not panic
	if p.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", p.Len())
	}
}

func TestPendingSetFindSatisfiedPartial(t *testing.T) {
	p := v4v.NewPendingSet()
	p.Queue(1, 100)
	p.Queue(2, 10)
	satisfied := p.FindSatisfied(50)
	if len(satisfied) != 1 || satisfied[0].Source != 2 {
		t.Fatalf("FindSatisfied(50) = %+v, want only source 2", satisfied)
	}
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (source 1 still pending)", p.Len())
	}
}
