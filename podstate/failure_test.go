package podstate

import "testing"

func TestFailureWindowMarkAndClear(t *testing.T) {
	var f FailureWindow
	if got := f.Mark(5); got != 1 {
		t.Fatalf("expected population 1 after one mark, got %d", got)
	}
	if !f.Failed(5) {
		t.Fatal("expected iteration 5's slot to record a failure")
	}
	if f.Failed(6) {
		t.Fatal("expected iteration 6's slot to be clear")
	}
	if got := f.Clear(5); got != 0 {
		t.Fatalf("expected population 0 after clear, got %d", got)
	}
}

func TestFailureWindowSlidesModulo(t *testing.T) {
	var f FailureWindow
	f.Mark(3)
	// iteration 67 lands on the same slot as iteration 3
	if !f.Failed(67) {
		t.Fatal("expected slot 3 to alias iteration 67")
	}
	f.Clear(67)
	if f.Failed(3) {
		t.Fatal("expected clearing the aliased iteration to clear slot 3")
	}
}

func TestFailureWindowFullAfterConsecutiveFailures(t *testing.T) {
	var f FailureWindow
	for i := uint64(0); i < failureWindowSize; i++ {
		if f.Full() {
			t.Fatalf("window reported full after only %d marks", i)
		}
		f.Mark(i)
	}
	if !f.Full() {
		t.Fatal("expected window full after 64 consecutive failures")
	}
	f.Clear(0)
	if f.Full() {
		t.Fatal("expected one successful read to take the window below full")
	}
}
