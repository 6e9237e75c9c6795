// Package safety implements the mode-independent invariant checks that
// run every iteration before the mode-specific check.
// Each check is a pure function over podstate.PodState
// and the configured thresholds; none of them mutate Mode themselves.
// fsm.Machine.Step calls them in order and performs the transition.
package safety

import (
	"fmt"

	"github.com/openloop/podcore/config"
	"github.com/openloop/podcore/podstate"
	"github.com/openloop/podcore/util"
)

// HeightCheck fails if any skate height reading is at or below zero.
func HeightCheck(st *podstate.PodState) (ok bool, reason string) {
	fl, fr, rl, rr := st.Skates.Heights()
	if fl <= 0 || fr <= 0 || rl <= 0 || rr <= 0 {
		return false, "a skate height sensor is returning <= 0"
	}
	return true, ""
}

// ThermocoupleCheck fails if any skate regulator thermocouple reads
// below cfg.MinRegulatorThermocoupleTemp.
func ThermocoupleCheck(st *podstate.PodState, cfg config.Config) (ok bool, reason string) {
	for i, t := range st.Skates.Thermocouples() {
		if t < cfg.MinRegulatorThermocoupleTemp {
			return false, fmt.Sprintf("thermocouple %d for skates is too low", i)
		}
	}
	return true, ""
}

// LateralCheck fails if any of the four lateral-displacement sensors
// lies outside [cfg.LateralMin, cfg.LateralMax]. The bit mask of which
// sensors tripped (front-left=0x1, front-right=0x2, rear-left=0x4,
// rear-right=0x8) is returned for logging.
func LateralCheck(st *podstate.PodState, cfg config.Config) (ok bool, reason string, errMask int) {
	limiter := util.Limiter{Min: cfg.LateralMin, Max: cfg.LateralMax}
	d := st.Lateral.Displacements()
	mask := 0
	for i, v := range d {
		if !limiter.Check(v) {
			mask |= 1 << uint(i)
		}
	}
	if mask != 0 {
		return false, "lateral sensor(s) out of bounds", mask
	}
	return true, "", 0
}

// ReverseMotionCheck fails if the pod is rolling backward faster than
// cfg.VErrX.
func ReverseMotionCheck(st *podstate.PodState, cfg config.Config) (ok bool, reason string) {
	_, velocityX, _ := st.Kinematics.Get()
	if velocityX < -cfg.VErrX {
		return false, "pod rolling backward"
	}
	return true, ""
}

// PodIsStopped reports whether the pod's speed is at or below
// cfg.StoppedVelocity in either direction.
func PodIsStopped(st *podstate.PodState, cfg config.Config) bool {
	_, velocityX, _ := st.Kinematics.Get()
	if velocityX < 0 {
		velocityX = -velocityX
	}
	return velocityX <= cfg.StoppedVelocity
}
