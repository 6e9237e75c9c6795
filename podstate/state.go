// Package podstate holds the pod's shared kinematic, sensor, and actuator
// record. It is produced once at boot and mutated by the control thread;
// the handful of fields peer threads may touch (the ready flag, the
// override mask, the actuator shadows) use their own locks or atomics so
// that no ambient global mutable state is needed (see fsm.Machine for the
// transition logic that drives Mode, and actuate.Drive for how the
// shadows get written).
package podstate

import (
	"sync"
	"sync/atomic"
)

// Kinematics holds the forward-axis position, velocity and acceleration.
// Only the control thread writes it (during the sense phase); the lock
// exists so a read during classify can never observe a torn write from a
// concurrently-running sensor adapter goroutine.
type Kinematics struct {
	mu                           sync.RWMutex
	positionX, velocityX, accelX float64
}

// Set records a fresh kinematics sample.
func (k *Kinematics) Set(positionX, velocityX, accelX float64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.positionX, k.velocityX, k.accelX = positionX, velocityX, accelX
}

// Get returns the most recently recorded sample.
func (k *Kinematics) Get() (positionX, velocityX, accelX float64) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.positionX, k.velocityX, k.accelX
}

// SkateState holds the four skate height sensors and the regulator
// thermocouple array.
type SkateState struct {
	mu                                             sync.RWMutex
	frontLeftZ, frontRightZ, rearLeftZ, rearRightZ float64
	thermocouples                                  []float64
}

// Set records a fresh skate-subsystem sample. thermocouples is copied.
func (s *SkateState) Set(frontLeftZ, frontRightZ, rearLeftZ, rearRightZ float64, thermocouples []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frontLeftZ, s.frontRightZ, s.rearLeftZ, s.rearRightZ = frontLeftZ, frontRightZ, rearLeftZ, rearRightZ
	s.thermocouples = append(s.thermocouples[:0:0], thermocouples...)
}

// Heights returns the four skate height readings.
func (s *SkateState) Heights() (frontLeftZ, frontRightZ, rearLeftZ, rearRightZ float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frontLeftZ, s.frontRightZ, s.rearLeftZ, s.rearRightZ
}

// Thermocouples returns a copy of the regulator thermocouple readings.
func (s *SkateState) Thermocouples() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]float64(nil), s.thermocouples...)
}

// LateralState holds the four lateral-displacement sensors.
type LateralState struct {
	mu                                         sync.RWMutex
	frontLeft, frontRight, rearLeft, rearRight float64
}

// Set records a fresh lateral-displacement sample.
func (l *LateralState) Set(frontLeft, frontRight, rearLeft, rearRight float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frontLeft, l.frontRight, l.rearLeft, l.rearRight = frontLeft, frontRight, rearLeft, rearRight
}

// Displacements returns the four lateral-displacement readings, indexed
// front-left, front-right, rear-left, rear-right.
func (l *LateralState) Displacements() [4]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return [4]float64{l.frontLeft, l.frontRight, l.rearLeft, l.rearRight}
}

// BrakeState holds per-channel brake pressure/engagement telemetry for
// both the primary wheel brakes and the emergency clamp brakes.
type BrakeState struct {
	mu             sync.RWMutex
	wheelPressure  []float64
	ebrakePressure []float64
}

// Set records fresh brake telemetry. Both slices are copied.
func (b *BrakeState) Set(wheelPressure, ebrakePressure []float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wheelPressure = append(b.wheelPressure[:0:0], wheelPressure...)
	b.ebrakePressure = append(b.ebrakePressure[:0:0], ebrakePressure...)
}

// PrimaryEngaged reports whether every wheel-brake channel reads at or
// above threshold, i.e. primaryBrakesEngaged().
func (b *BrakeState) PrimaryEngaged(threshold float64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.wheelPressure) == 0 {
		return false
	}
	for _, p := range b.wheelPressure {
		if p < threshold {
			return false
		}
	}
	return true
}

// EmergencyEngaged reports whether every e-brake channel reads at or
// above threshold, i.e. emergencyBrakesEngaged().
func (b *BrakeState) EmergencyEngaged(threshold float64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.ebrakePressure) == 0 {
		return false
	}
	for _, p := range b.ebrakePressure {
		if p < threshold {
			return false
		}
	}
	return true
}

// ActuatorShadow holds the last-commanded value for every solenoid, so
// the projector can skip no-op writes and the override gate can tell
// whether a write would actually change anything.
type ActuatorShadow struct {
	mu          sync.Mutex
	skates      []bool
	wheelBrakes []bool
	ebrakes     []bool
}

// NewActuatorShadow allocates shadow arrays of the given widths. Skates
// and e-brakes default to their fail-safe boot state (skates retracted,
// e-brakes engaged); wheel brakes default to engaged.
func NewActuatorShadow(nSkate, nWheel, nEBrake int) *ActuatorShadow {
	a := &ActuatorShadow{
		skates:      make([]bool, nSkate),
		wheelBrakes: make([]bool, nWheel),
		ebrakes:     make([]bool, nEBrake),
	}
	for i := range a.wheelBrakes {
		a.wheelBrakes[i] = true
	}
	for i := range a.ebrakes {
		a.ebrakes[i] = true // spring-engaged by default
	}
	return a
}

// Skate returns the shadow value of skate channel i.
func (a *ActuatorShadow) Skate(i int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.skates[i]
}

// SetSkate records a new shadow value for skate channel i.
func (a *ActuatorShadow) SetSkate(i int, v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skates[i] = v
}

// WheelBrake returns the shadow value of wheel-brake channel i.
func (a *ActuatorShadow) WheelBrake(i int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.wheelBrakes[i]
}

// SetWheelBrake records a new shadow value for wheel-brake channel i.
func (a *ActuatorShadow) SetWheelBrake(i int, v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.wheelBrakes[i] = v
}

// EBrake returns the shadow value of e-brake channel i.
func (a *ActuatorShadow) EBrake(i int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ebrakes[i]
}

// SetEBrake records a new shadow value for e-brake channel i.
func (a *ActuatorShadow) SetEBrake(i int, v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ebrakes[i] = v
}

// NSkate, NWheel and NEBrake report the widths of the shadow arrays.
func (a *ActuatorShadow) NSkate() int  { return len(a.skates) }
func (a *ActuatorShadow) NWheel() int  { return len(a.wheelBrakes) }
func (a *ActuatorShadow) NEBrake() int { return len(a.ebrakes) }

// OverrideMask records, per actuator channel, whether the command
// channel has claimed manual control. The mode machine must not
// overwrite an overridden channel unless it asserts override-authority.
type OverrideMask struct {
	mu          sync.RWMutex
	skates      []bool
	wheelBrakes []bool
	ebrakes     []bool
}

// NewOverrideMask allocates an override mask of the given widths, with
// every channel starting under mode-machine control.
func NewOverrideMask(nSkate, nWheel, nEBrake int) *OverrideMask {
	return &OverrideMask{
		skates:      make([]bool, nSkate),
		wheelBrakes: make([]bool, nWheel),
		ebrakes:     make([]bool, nEBrake),
	}
}

// SkateOverridden reports whether skate channel i is under manual control.
func (o *OverrideMask) SkateOverridden(i int) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.skates[i]
}

// SetSkateOverride sets or clears manual control of skate channel i.
func (o *OverrideMask) SetSkateOverride(i int, v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skates[i] = v
}

// WheelBrakeOverridden reports whether wheel-brake channel i is under
// manual control.
func (o *OverrideMask) WheelBrakeOverridden(i int) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.wheelBrakes[i]
}

// SetWheelBrakeOverride sets or clears manual control of wheel-brake
// channel i.
func (o *OverrideMask) SetWheelBrakeOverride(i int, v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.wheelBrakes[i] = v
}

// EBrakeOverridden reports whether e-brake channel i is under manual
// control.
func (o *OverrideMask) EBrakeOverridden(i int) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.ebrakes[i]
}

// SetEBrakeOverride sets or clears manual control of e-brake channel i.
func (o *OverrideMask) SetEBrakeOverride(i int, v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ebrakes[i] = v
}

// PinMap holds the GPIO identifier for every solenoid, by subsystem and
// channel index.
type PinMap struct {
	SkatePins      []int
	WheelBrakePins []int
	EBrakePins     []int
}

// PodState is the single process-wide record of pod sensor, kinematic,
// mode and actuator data. Create one with New.
type PodState struct {
	Kinematics Kinematics
	Skates     SkateState
	Lateral    LateralState
	Brakes     BrakeState

	IMUFailures FailureWindow

	Shadow   *ActuatorShadow
	Override *OverrideMask
	Pins     PinMap

	mode      int32 // atomic Mode
	ready     int32 // atomic bool
	iteration uint64

	reasonMu sync.Mutex
	reason   string
}

// New creates a PodState in Boot mode with actuator arrays sized for
// nSkate, nWheel and nEBrake solenoids, wired to pins.
func New(nSkate, nWheel, nEBrake int, pins PinMap) *PodState {
	return &PodState{
		Shadow:   NewActuatorShadow(nSkate, nWheel, nEBrake),
		Override: NewOverrideMask(nSkate, nWheel, nEBrake),
		Pins:     pins,
		mode:     int32(Boot),
	}
}

// Mode returns the current operating mode.
func (p *PodState) Mode() Mode {
	return Mode(atomic.LoadInt32(&p.mode))
}

// SetMode is the single choke point through which the mode changes. It
// records reason for later retrieval (LastReason) and reports whether
// this call actually changed the mode, so re-entering Emergency (or any
// mode) is observably a no-op.
func (p *PodState) SetMode(m Mode, reason string) (changed bool) {
	old := Mode(atomic.SwapInt32(&p.mode, int32(m)))
	p.reasonMu.Lock()
	p.reason = reason
	p.reasonMu.Unlock()
	return old != m
}

// LastReason returns the reason string recorded by the most recent
// SetMode call.
func (p *PodState) LastReason() string {
	p.reasonMu.Lock()
	defer p.reasonMu.Unlock()
	return p.reason
}

// Ready reports the operator-set ready flag. Only the Boot check
// examines it.
func (p *PodState) Ready() bool {
	return atomic.LoadInt32(&p.ready) != 0
}

// SetReady sets the ready flag. It is exogenous: only the command
// collaborator calls this.
func (p *PodState) SetReady(v bool) {
	var i int32
	if v {
		i = 1
	}
	atomic.StoreInt32(&p.ready, i)
}

// Iteration returns the current control-loop iteration counter.
func (p *PodState) Iteration() uint64 {
	return atomic.LoadUint64(&p.iteration)
}

// AdvanceIteration increments and returns the new iteration counter.
func (p *PodState) AdvanceIteration() uint64 {
	return atomic.AddUint64(&p.iteration, 1)
}
