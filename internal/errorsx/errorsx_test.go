package errorsx

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonInference)
	if Reason(err) != ReasonInference {
		t.Fatalf("expected reason %s, got %s", ReasonInference, Reason(err))
	}
	if !HasReason(err, ReasonInference) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonRetrieval)
	second := Wrap(fmt.Errorf("turn: %w", first), ReasonInference)
	if Reason(second) != ReasonRetrieval {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestWrapKeepsErrorsIs(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := Wrap(fmt.Errorf("ctx: %w", sentinel), ReasonStepBudget)
	if !errors.Is(err, sentinel) {
		t.Fatal("wrapped error should still match its sentinel")
	}
	if Wrap(nil, ReasonConfig) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	if Reason(errors.New("plain")) != ReasonUnknown {
		t.Fatal("plain errors have no reason")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
