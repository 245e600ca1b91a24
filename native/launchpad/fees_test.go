package launchpad

import (
	"errors"
	"testing"
)

func TestNewFeeScheduleBounds(t *testing.T) {
	var dest [20]byte
	if _, err := NewFeeSchedule(1, 0, dest); !errors.Is(err, ErrConfigurationInvalid) {
		t.Fatalf("expected zero denominator to fail, got %v", err)
	}
	if _, err := NewFeeSchedule(51, 100, dest); !errors.Is(err, ErrConfigurationInvalid) {
		t.Fatalf("expected fee above half to fail, got %v", err)
	}
	if _, err := NewFeeSchedule(50, 100, dest); err != nil {
		t.Fatalf("expected 50%% fee to be accepted: %v", err)
	}
	if _, err := NewFeeSchedule(1, 3, dest); err != nil {
		t.Fatalf("expected 1/3 fee to be accepted: %v", err)
	}
}

func TestFeeScheduleApply(t *testing.T) {
	fee := FeeSchedule{Numerator: 0, Denominator: 1}
	got, err := fee.Apply(FromInteger(1_000))
	if err != nil || !got.IsZero() {
		t.Fatalf("expected zero fee fast path, got %s err %v", got, err)
	}

	fee = FeeSchedule{Numerator: 3, Denominator: 1_000}
	got, err = fee.Apply(FromInteger(1_234))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.String() != "3.702000000" {
		t.Fatalf("unexpected fee %s", got)
	}
}
