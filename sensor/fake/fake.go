// Package fake provides deterministic, in-memory sensor.* implementations
// for tests and for podctl's skate, lateral and braking readers, which
// have no hardware driver.
package fake

import (
	"errors"
	"sync"

	"github.com/openloop/podcore/podstate"
)

// ErrForced is returned by a fake reader that has been told to fail.
var ErrForced = errors.New("fake: forced read failure")

// IMU is a fake IMUReader whose kinematics sample and failure behavior
// can be set from a test.
type IMU struct {
	mu                           sync.Mutex
	PositionX, VelocityX, AccelX float64
	Fail                         bool
}

// ReadIMU implements sensor.IMUReader.
func (f *IMU) ReadIMU(st *podstate.PodState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail {
		return ErrForced
	}
	st.Kinematics.Set(f.PositionX, f.VelocityX, f.AccelX)
	return nil
}

// Set updates the sample this fake will report.
func (f *IMU) Set(positionX, velocityX, accelX float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PositionX, f.VelocityX, f.AccelX = positionX, velocityX, accelX
}

// SetFail toggles whether the next reads fail.
func (f *IMU) SetFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fail = v
}

// Skate is a fake SkateReader.
type Skate struct {
	mu                                             sync.Mutex
	FrontLeftZ, FrontRightZ, RearLeftZ, RearRightZ float64
	Thermocouples                                  []float64
	Fail                                           bool
}

// NewSkate returns a Skate fake with all-safe defaults: positive
// heights and warm thermocouples.
func NewSkate(nThermocouples int) *Skate {
	t := make([]float64, nThermocouples)
	for i := range t {
		t[i] = 20.0
	}
	return &Skate{FrontLeftZ: 1, FrontRightZ: 1, RearLeftZ: 1, RearRightZ: 1, Thermocouples: t}
}

// ReadSkate implements sensor.SkateReader.
func (f *Skate) ReadSkate(st *podstate.PodState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail {
		return ErrForced
	}
	st.Skates.Set(f.FrontLeftZ, f.FrontRightZ, f.RearLeftZ, f.RearRightZ, f.Thermocouples)
	return nil
}

// SetHeights updates the reported skate heights.
func (f *Skate) SetHeights(fl, fr, rl, rr float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FrontLeftZ, f.FrontRightZ, f.RearLeftZ, f.RearRightZ = fl, fr, rl, rr
}

// SetThermocouple sets thermocouple i's reading.
func (f *Skate) SetThermocouple(i int, v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Thermocouples[i] = v
}

// SetFail toggles whether the next reads fail.
func (f *Skate) SetFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fail = v
}

// Lateral is a fake LateralReader.
type Lateral struct {
	mu                                         sync.Mutex
	FrontLeft, FrontRight, RearLeft, RearRight float64
	Fail                                       bool
}

// ReadLateral implements sensor.LateralReader.
func (f *Lateral) ReadLateral(st *podstate.PodState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail {
		return ErrForced
	}
	st.Lateral.Set(f.FrontLeft, f.FrontRight, f.RearLeft, f.RearRight)
	return nil
}

// Set updates the reported lateral displacements.
func (f *Lateral) Set(fl, fr, rl, rr float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FrontLeft, f.FrontRight, f.RearLeft, f.RearRight = fl, fr, rl, rr
}

// SetFail toggles whether the next reads fail.
func (f *Lateral) SetFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fail = v
}

// Braking is a fake BrakingReader.
type Braking struct {
	mu             sync.Mutex
	WheelPressure  []float64
	EBrakePressure []float64
	Fail           bool
}

// NewBraking returns a Braking fake reporting nWheel/nEBrake channels
// fully engaged (pressure 1.0).
func NewBraking(nWheel, nEBrake int) *Braking {
	w := make([]float64, nWheel)
	e := make([]float64, nEBrake)
	for i := range w {
		w[i] = 1.0
	}
	for i := range e {
		e[i] = 1.0
	}
	return &Braking{WheelPressure: w, EBrakePressure: e}
}

// ReadBraking implements sensor.BrakingReader.
func (f *Braking) ReadBraking(st *podstate.PodState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail {
		return ErrForced
	}
	st.Brakes.Set(f.WheelPressure, f.EBrakePressure)
	return nil
}

// SetWheelPressure sets wheel-brake channel i's reading.
func (f *Braking) SetWheelPressure(i int, v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WheelPressure[i] = v
}

// SetEBrakePressure sets e-brake channel i's reading.
func (f *Braking) SetEBrakePressure(i int, v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.EBrakePressure[i] = v
}
