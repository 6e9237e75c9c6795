package util_test

import (
	"fmt"
	"testing"

	"github.com/openloop/podcore/util"
)

func ExampleSetBit_msb() {
	out := util.SetBit(0, 7, true)
	fmt.Printf("%08b\n", out)
	// Output: 10000000
}

func ExampleSetBit_lsb() {
	out := util.SetBit(255, 0, false)
	fmt.Printf("%08b\n", out)
	// Output: 11111110
}

func TestGetBit(t *testing.T) {
	var w uint64 = 1 << 63
	if !util.GetBit(w, 63) {
		t.Error("expected bit 63 to read high")
	}
	if util.GetBit(w, 0) {
		t.Error("expected bit 0 to read low")
	}
}

func TestSetBitRoundTrip(t *testing.T) {
	var w uint64
	for _, idx := range []uint{0, 1, 31, 63} {
		w = util.SetBit(w, idx, true)
		if !util.GetBit(w, idx) {
			t.Errorf("expected bit %d high after set", idx)
		}
		w = util.SetBit(w, idx, false)
		if util.GetBit(w, idx) {
			t.Errorf("expected bit %d low after clear", idx)
		}
	}
}

func TestClampHigh(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = 20.
	)
	clamped := util.Clamp(input, low, high)
	if clamped == input {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampLow(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = -1.
	)
	clamped := util.Clamp(input, low, high)
	if clamped == input {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestLimiterCheck(t *testing.T) {
	l := util.Limiter{Min: -1, Max: 1}
	if !l.Check(0) {
		t.Error("expected in-range value to pass")
	}
	if l.Check(-2) {
		t.Error("expected value below Min to fail")
	}
	if l.Check(2) {
		t.Error("expected value above Max to fail")
	}
}
