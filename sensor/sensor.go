// Package sensor defines the narrow read contracts the control loop uses
// to pull fresh samples into podstate.PodState each iteration, one
// reader per subsystem. Deterministic fakes for tests and offline
// operation live in sensor/fake.
package sensor

import "github.com/openloop/podcore/podstate"

// IMUReader updates the kinematics fields of st. A non-nil error marks
// one failure in the IMU failure window; it does not itself trip
// Emergency; the window decides that when it fills.
type IMUReader interface {
	ReadIMU(st *podstate.PodState) error
}

// SkateReader updates the skate height and thermocouple fields of st.
// Any failure here is a sensor hard failure and trips Emergency directly.
type SkateReader interface {
	ReadSkate(st *podstate.PodState) error
}

// LateralReader updates the lateral-displacement fields of st. Any
// failure here is a sensor hard failure and trips Emergency directly.
type LateralReader interface {
	ReadLateral(st *podstate.PodState) error
}

// BrakingReader updates the brake pressure/engagement fields of st.
type BrakingReader interface {
	ReadBraking(st *podstate.PodState) error
}

// IMUReaderFunc adapts a function to an IMUReader.
type IMUReaderFunc func(st *podstate.PodState) error

// ReadIMU implements IMUReader.
func (f IMUReaderFunc) ReadIMU(st *podstate.PodState) error { return f(st) }

// SkateReaderFunc adapts a function to a SkateReader.
type SkateReaderFunc func(st *podstate.PodState) error

// ReadSkate implements SkateReader.
func (f SkateReaderFunc) ReadSkate(st *podstate.PodState) error { return f(st) }

// LateralReaderFunc adapts a function to a LateralReader.
type LateralReaderFunc func(st *podstate.PodState) error

// ReadLateral implements LateralReader.
func (f LateralReaderFunc) ReadLateral(st *podstate.PodState) error { return f(st) }

// BrakingReaderFunc adapts a function to a BrakingReader.
type BrakingReaderFunc func(st *podstate.PodState) error

// ReadBraking implements BrakingReader.
func (f BrakingReaderFunc) ReadBraking(st *podstate.PodState) error { return f(st) }
