package v4v_test

import (
	"errors"
	"testing"

	"go.v4v.dev/v4v/internal/v4v"
)

func TestInitDomainTwiceRejected(t *testing.T) {
	hub, _, dt := newTestHub()
	dt.MarkPresent(5)
	if _, err := hub.InitDomain(5); err != nil {
		t.Fatalf("InitDomain: %v", err)
	}
	if _, err := hub.InitDomain(5); !errors.Is(err, v4v.ErrAlreadyExists) {
		t.Fatalf("second InitDomain: err = %v, want ErrAlreadyExists", err)
	}
}

func TestDestroyDomainRequiresDying(t *testing.T) {
	hub, _, dt := newTestHub(6)
	_ = dt
	if err := hub.DestroyDomain(6); err == nil {
		t.Fatalf("DestroyDomain on live domain: want error, got nil")
	}
}

func TestDestroyDomainUnknown(t *testing.T) {
	hub, _, dt := newTestHub()
	dt.MarkPresent(11)
	dt.MarkDying(11)
	if err := hub.DestroyDomain(11); !errors.Is(err, v4v.ErrNotFound) {
		t.Fatalf("DestroyDomain unknown: err = %v, want ErrNotFound", err)
	}
}

func TestDestroyDomainReleasesRingsAndClearsDomainState(t *testing.T) {
	hub, arena, dt := newTestHub(12, 13)
	id := v4v.RingID{Addr: v4v.Address{Domain: 12, Port: 7}, Partner: v4v.DomainAny}
	registerRing(t, hub, arena, id, 256)

	dt.MarkDying(12)
	if err := hub.DestroyDomain(12); err != nil {
		t.Fatalf("DestroyDomain: %v", err)
	}

	if _, err := hub.Info(12); !errors.Is(err, v4v.ErrNoDevice) {
		t.Fatalf("Info after destroy: err = %v, want ErrNoDevice", err)
	}
}

func TestHubInfoReportsMagics(t *testing.T) {
	hub, _, _ := newTestHub(20)
	info, err := hub.Info(20)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.RingMagic != v4v.RingMagic {
		t.Errorf("RingMagic = %#x, want %#x", info.RingMagic, v4v.RingMagic)
	}
	if info.DataMagic != v4v.DataMagic {
		t.Errorf("DataMagic = %#x, want %#x", info.DataMagic, v4v.DataMagic)
	}
}

func TestInfoUnknownDomainNoDevice(t *testing.T) {
	hub, _, _ := newTestHub()
	if _, err := hub.Info(99); !errors.Is(err, v4v.ErrNoDevice) {
		t.Fatalf("Info unknown domain: err = %v, want ErrNoDevice", err)
	}
}
