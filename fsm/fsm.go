// Package fsm drives podstate.PodState's Mode through the seven-state
// transition graph (Boot, Ready, Pushing, Coasting, Braking, Emergency,
// Shutdown). Machine wraps the decision logic behind one method, Step,
// that turns the crank once per control-loop iteration.
package fsm

import (
	"github.com/openloop/podcore/config"
	"github.com/openloop/podcore/logsink"
	"github.com/openloop/podcore/podstate"
	"github.com/openloop/podcore/safety"
)

// Machine runs one classify phase per Step call: the general checks
// (height, thermocouple, lateral, reverse-motion) followed by the
// current mode's specific check. It holds no mode state of its own
// (that lives in the podstate.PodState passed to Step), only the
// configuration and logger needed to decide and record transitions.
type Machine struct {
	Config config.Config
	Log    *logsink.Logger
}

// New returns a Machine configured with cfg, logging transitions to log.
func New(cfg config.Config, log *logsink.Logger) *Machine {
	return &Machine{Config: cfg, Log: log}
}

// Step runs one classify phase against st and returns the mode st is in
// when it returns. Once st is in Shutdown, Step is a no-op: Shutdown is
// the unique sink of the transition graph and the general checks are not
// evaluated once it is reached.
func (m *Machine) Step(st *podstate.PodState) podstate.Mode {
	if st.Mode() == podstate.Shutdown {
		return podstate.Shutdown
	}

	m.generalChecks(st)

	switch st.Mode() {
	case podstate.Boot:
		m.bootCheck(st)
	case podstate.Ready:
		m.readyCheck(st)
	case podstate.Pushing:
		m.pushingCheck(st)
	case podstate.Coasting:
		m.coastingCheck(st)
	case podstate.Braking:
		m.brakingCheck(st)
	case podstate.Emergency:
		m.emergencyCheck(st)
	case podstate.Shutdown:
		// set by another goroutine since the check above; nothing more to do
	default:
		m.Log.Panic("fsm", "pod mode is not one of the seven defined states")
	}
	return st.Mode()
}

// transition moves st to mode with reason, logging exactly once per
// actual mode change (re-entering the same mode is a silent no-op, per
// podstate.PodState.SetMode's changed flag).
func (m *Machine) transition(st *podstate.PodState, mode podstate.Mode, reason string) {
	if st.SetMode(mode, reason) {
		m.Log.Infof("mode -> %s: %s", mode, reason)
	}
}

// generalChecks runs the four mode-independent invariant checks in the
// fixed order height, thermocouple, lateral, reverse-motion. Each can
// independently push the pod into Emergency; later checks still run even
// after an earlier one has already transitioned. Only the check that
// changes the mode logs a transition, and the recorded reason is that of
// the last check that tripped.
func (m *Machine) generalChecks(st *podstate.PodState) {
	if ok, reason := safety.HeightCheck(st); !ok {
		m.transition(st, podstate.Emergency, reason)
	}
	if ok, reason := safety.ThermocoupleCheck(st, m.Config); !ok {
		m.transition(st, podstate.Emergency, reason)
	}
	if ok, reason, mask := safety.LateralCheck(st, m.Config); !ok {
		m.Log.Errorf("lateral check failed, sensor mask %#02x", mask)
		m.transition(st, podstate.Emergency, reason)
	}
	if ok, reason := safety.ReverseMotionCheck(st, m.Config); !ok {
		m.transition(st, podstate.Emergency, reason)
	}
}

// bootCheck: Boot -> Ready once the operator's ready flag is set. No
// other mode examines the flag.
func (m *Machine) bootCheck(st *podstate.PodState) {
	if st.Ready() {
		m.transition(st, podstate.Ready, "pod's ready bit has been set")
	}
}

// readyCheck: Ready -> Pushing once forward acceleration exceeds the
// configured threshold.
func (m *Machine) readyCheck(st *podstate.PodState) {
	_, _, accelX := st.Kinematics.Get()
	if accelX > m.Config.PushingMinAccel {
		m.transition(st, podstate.Pushing, "pod is accelerating forward")
	}
}

// pushingCheck: the distance and velocity limits take priority over the
// Coasting handoff; the first matching clause wins.
func (m *Machine) pushingCheck(st *podstate.PodState) {
	positionX, velocityX, accelX := st.Kinematics.Get()
	switch {
	case positionX > m.Config.MaximumSafeDistanceBeforeBraking:
		m.transition(st, podstate.Emergency, "pod position is beyond the maximum safe distance before braking")
	case velocityX > m.Config.MaximumSafeForwardVelocity:
		m.transition(st, podstate.Emergency, "pod is going too fast")
	case accelX <= m.Config.CoastingMinAccelTrigger:
		m.transition(st, podstate.Coasting, "pod acceleration has dropped to the coasting trigger")
	}
}

// coastingCheck: the same distance/velocity envelope applies, then the
// standard braking-range handoff to Braking.
func (m *Machine) coastingCheck(st *podstate.PodState) {
	positionX, velocityX, _ := st.Kinematics.Get()
	switch {
	case positionX > m.Config.MaximumSafeDistanceBeforeBraking || velocityX > m.Config.MaximumSafeForwardVelocity:
		m.transition(st, podstate.Emergency, "pod has traveled or is moving beyond the safe envelope")
	case positionX > m.Config.StandardDistanceBeforeBraking:
		m.transition(st, podstate.Braking, "pod has entered the standard braking range of travel")
	}
}

// brakingCheck: once deceleration is within the acceptable upper bound,
// a stopped pod shuts down; otherwise the under-deceleration branch
// compares current acceleration against the negative of current
// velocity rather than a fixed deceleration floor.
func (m *Machine) brakingCheck(st *podstate.PodState) {
	_, velocityX, accelX := st.Kinematics.Get()
	if accelX < m.Config.PrimaryBrakingAccelXMax {
		m.transition(st, podstate.Emergency, "pod deceleration is too high")
		return
	}
	if accelX > m.Config.PrimaryBrakingAccelXMin {
		if safety.PodIsStopped(st, m.Config) {
			m.transition(st, podstate.Shutdown, "pod has stopped")
			return
		}
		if accelX > -velocityX {
			m.transition(st, podstate.Emergency, "pod deceleration is too low")
		}
	}
}

// emergencyCheck: Emergency -> Shutdown only once the pod has stopped
// and both brake subsystems report fully engaged.
func (m *Machine) emergencyCheck(st *podstate.PodState) {
	if safety.PodIsStopped(st, m.Config) &&
		st.Brakes.PrimaryEngaged(m.Config.BrakeEngagedThreshold) &&
		st.Brakes.EmergencyEngaged(m.Config.BrakeEngagedThreshold) {
		m.transition(st, podstate.Shutdown, "pod has been determined to be in a safe state")
	}
}
