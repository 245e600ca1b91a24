package common

import (
	"errors"
	"testing"
)

func TestCheckQuotaRequestLimit(t *testing.T) {
	q := Quota{MaxRequestsPerEpoch: 10}
	prev := QuotaNow{EpochID: 1}

	next, err := CheckQuota(q, 1, prev, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.ReqCount != 10 {
		t.Fatalf("unexpected request count: %d", next.ReqCount)
	}

	denied, err := CheckQuota(q, 1, next, 1, 0)
	if !errors.Is(err, ErrQuotaRequestsExceeded) {
		t.Fatalf("expected ErrQuotaRequestsExceeded, got %v", err)
	}
	if denied != next {
		t.Fatalf("expected counters to remain unchanged on denial")
	}

	rollover, err := CheckQuota(q, 2, next, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error after epoch rollover: %v", err)
	}
	if rollover.EpochID != 2 || rollover.ReqCount != 1 {
		t.Fatalf("unexpected state after rollover: %+v", rollover)
	}
}

func TestCheckQuotaVolume(t *testing.T) {
	q := Quota{MaxVolumePerEpoch: 1000}
	prev := QuotaNow{EpochID: 5}

	next, err := CheckQuota(q, 5, prev, 0, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.VolumeUsed != 1000 {
		t.Fatalf("unexpected volume used: %d", next.VolumeUsed)
	}

	denied, err := CheckQuota(q, 5, next, 0, 1)
	if !errors.Is(err, ErrQuotaVolumeExceeded) {
		t.Fatalf("expected ErrQuotaVolumeExceeded, got %v", err)
	}
	if denied != next {
		t.Fatalf("expected counters to remain unchanged on denial")
	}

	rollover, err := CheckQuota(q, 6, next, 0, 500)
	if err != nil {
		t.Fatalf("unexpected error after epoch rollover: %v", err)
	}
	if rollover.VolumeUsed != 500 {
		t.Fatalf("unexpected volume used after rollover: %d", rollover.VolumeUsed)
	}
}

func TestQuotaEpochAt(t *testing.T) {
	q := Quota{EpochSeconds: 3600}
	if q.EpochAt(7_199) != 1 || q.EpochAt(7_200) != 2 {
		t.Fatalf("unexpected epoch boundaries")
	}
	if (Quota{}).EpochAt(120) != 2 {
		t.Fatalf("default epoch should be one minute")
	}
}

func TestPauseSet(t *testing.T) {
	set := NewPauseSet("launchpad")
	if !errors.Is(Guard(set, "launchpad"), ErrModulePaused) {
		t.Fatalf("expected paused module to be guarded")
	}
	set.Resume("launchpad")
	if err := Guard(set, "launchpad"); err != nil {
		t.Fatalf("expected resumed module to pass: %v", err)
	}
	set.Pause("launchpad")
	set.Pause("custody")
	if got := set.Paused(); len(got) != 2 || got[0] != "custody" {
		t.Fatalf("unexpected paused list %v", got)
	}
}
