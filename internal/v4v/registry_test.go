package v4v_test

import (
	"errors"
	"testing"

	"go.v4v.dev/v4v/internal/v4v"
)

func TestRegisterDuplicateIdentityRejected(t *testing.T) {
	hub, arena, _ := newTestHub(7)
	id := v4v.RingID{Addr: v4v.Address{Domain: 7, Port: 50}, Partner: v4v.DomainAny}
	registerRing(t, hub, arena, id, 256)

	pfns, err := v4v.PrepareRingPages(arena, id, 256)
	if err != nil {
		t.Fatalf("PrepareRingPages: %v", err)
	}
	if _, err := hub.RegisterRing(7, pfns); !errors.Is(err, v4v.ErrAlreadyExists) {
		t.Fatalf("second RegisterRing: err = %v, want ErrAlreadyExists", err)
	}
}

func TestRegisterUnregisterRepeatedlyLeavesBucketEmpty(t *testing.T) {
	hub, arena, _ := newTestHub(8)
	id := v4v.RingID{Addr: v4v.Address{Domain: 8, Port: 9}, Partner: v4v.DomainAny}

	for i := 0; i < 5; i++ {
		registerRing(t, hub, arena, id, 256)
		if err := hub.UnregisterRing(8, id); err != nil {
			t.Fatalf("iteration %d: UnregisterRing: %v", i, err)
		}
	}

	snaps, err := hub.Snapshot(8)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snaps) != 0 {
		t.Fatalf("Snapshot after repeated register/unregister = %+v, want empty", snaps)
	}
}

func TestUnregisterUnknownRingNotFound(t *testing.T) {
	hub, _, _ := newTestHub(9)
	id := v4v.RingID{Addr: v4v.Address{Domain: 9, Port: 1}, Partner: v4v.DomainAny}
	if err := hub.UnregisterRing(9, id); !errors.Is(err, v4v.ErrNotFound) {
		t.Fatalf("UnregisterRing unknown: err = %v, want ErrNotFound", err)
	}
}
