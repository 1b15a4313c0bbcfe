package v4v_test

import (
	"testing"

	"go.v4v.dev/v4v/internal/v4v"
)

func TestFillRingDataFlags(t *testing.T) {
	hub, arena, _ := newTestHub(2, 3)
	id := v4v.RingID{Addr: v4v.Address{Domain: 2, Port: 100}, Partner: v4v.DomainAny}
	registerRing(t, hub, arena, id, 128)

	dst := v4v.Address{Domain: 2, Port: 100}
	queries := []v4v.RingDataQuery{
		{Dst: dst, Source: 3, Requested: 16},
		{Dst: v4v.Address{Domain: 2, Port: 999}, Source: 3, Requested: 16},
	}
	results := hub.FillRingData(2, queries)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	got := results[0]
	if !got.Exists || !got.Sufficient || got.Pending || !got.Empty {
		t.Errorf("query against fresh ring = %+v, want Exists+Sufficient+Empty, !Pending", got)
	}

	if results[1].Exists {
		t.Errorf("query against unknown ring = %+v, want !Exists", results[1])
	}
}

func TestFillRingDataQueuesPendingWhenInsufficient(t *testing.T) {
	hub, arena, _ := newTestHub(2, 3)
	id := v4v.RingID{Addr: v4v.Address{Domain: 2, Port: 100}, Partner: v4v.DomainAny}
	registerRing(t, hub, arena, id, 128)

	dst := v4v.Address{Domain: 2, Port: 100}
	queries := []v4v.RingDataQuery{{Dst: dst, Source: 3, Requested: 1 << 20}}
	results := hub.FillRingData(2, queries)
	if !results[0].Exists || results[0].Sufficient || !results[0].Pending {
		t.Fatalf("oversized query = %+v, want Exists+Pending, !Sufficient", results[0])
	}

	snaps, err := hub.Snapshot(2)
	if err != nil || len(snaps) != 1 || snaps[0].Pending != 1 {
		t.Fatalf("Snapshot after FillRingData queued pending: %+v err=%v", snaps, err)
	}

	// A second, satisfiable query for the same source cancels the pending
	// entry rather than leaving a stale one behind.
	results = hub.FillRingData(2, []v4v.RingDataQuery{{Dst: dst, Source: 3, Requested: 16}})
	if !results[0].Sufficient || results[0].Pending {
		t.Fatalf("follow-up small query = %+v, want Sufficient, !Pending", results[0])
	}
	snaps, err = hub.Snapshot(2)
	if err != nil || snaps[0].Pending != 0 {
		t.Fatalf("Snapshot after cancel: %+v err=%v", snaps, err)
	}
}
