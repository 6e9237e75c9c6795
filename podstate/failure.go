package podstate

import (
	"math/bits"
	"sync"

	"github.com/openloop/podcore/util"
)

// failureWindowSize is the width of the sliding IMU-failure bitmap,
// keyed by iteration mod 64.
const failureWindowSize = 64

// FailureWindow is a 64-iteration sliding bitmap of sensor read failures.
// A set bit at position (iteration mod 64) means that iteration's read
// failed; reads are cleared on success.  It is safe for concurrent use.
type FailureWindow struct {
	mu   sync.Mutex
	bits uint64
}

// Mark sets the failure bit for iteration and returns the new population
// count.
func (f *FailureWindow) Mark(iteration uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bits = util.SetBit(f.bits, uint(iteration%failureWindowSize), true)
	return bits.OnesCount64(f.bits)
}

// Clear clears the failure bit for iteration and returns the new
// population count.
func (f *FailureWindow) Clear(iteration uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bits = util.SetBit(f.bits, uint(iteration%failureWindowSize), false)
	return bits.OnesCount64(f.bits)
}

// Failed reports whether iteration's slot currently records a failure.
func (f *FailureWindow) Failed(iteration uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return util.GetBit(f.bits, uint(iteration%failureWindowSize))
}

// PopCount returns the number of failures currently within the window.
func (f *FailureWindow) PopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return bits.OnesCount64(f.bits)
}

// Full reports whether every slot in the window represents a failure,
// i.e. 64 consecutive failed reads.
func (f *FailureWindow) Full() bool {
	return f.PopCount() >= failureWindowSize
}
