// Package actuate implements the mode-to-solenoid-command projection
// and the override-gated write path. The gate is a plain bool consulted
// before a write proceeds, not a lock acquisition; the override mask
// must never block the control thread.
package actuate

import (
	"fmt"

	"github.com/openloop/podcore/config"
	"github.com/openloop/podcore/gpio"
	"github.com/openloop/podcore/podstate"
)

// Signal is a tri-state actuator command: either hold (don't touch this
// channel this cycle) or drive it to a specific value.
type Signal struct {
	Write bool
	Value bool
}

func hold() Signal       { return Signal{} }
func energize() Signal   { return Signal{Write: true, Value: true} }
func deenergize() Signal { return Signal{Write: true, Value: false} }

// Commands is the pure output of Project: a target for every skate,
// wheel-brake and e-brake channel. Skates are commanded in every mode;
// wheel brakes and e-brakes may be held unchanged (Signal.Write == false).
type Commands struct {
	Skates      []bool
	WheelBrakes []Signal
	EBrakes     []Signal
}

// Project computes Commands for mode given the current forward
// acceleration accelX, with no side effects and no dependency on the
// previous cycle's output: a pure function of (mode, accelX).
//
// The skate switch below has two arms with identical bodies. The second
// arm was probably meant to retract skates in the at-rest modes; until
// that intent is confirmed against the pneumatics, both arms extend.
func Project(mode podstate.Mode, accelX float64, cfg config.Config) Commands {
	c := Commands{
		Skates:      make([]bool, cfg.NSkateSolenoids),
		WheelBrakes: make([]Signal, cfg.NWheelSolenoids),
		EBrakes:     make([]Signal, cfg.NEBrakeSolenoids),
	}
	for i := range c.WheelBrakes {
		c.WheelBrakes[i] = hold()
	}
	for i := range c.EBrakes {
		c.EBrakes[i] = hold()
	}

	switch mode {
	case podstate.Ready, podstate.Pushing, podstate.Coasting:
		setAllBool(c.Skates, true)
	case podstate.Boot, podstate.Emergency, podstate.Shutdown, podstate.Braking:
		setAllBool(c.Skates, true)
	default:
		unknownMode(mode, "skate")
	}

	switch mode {
	case podstate.Ready, podstate.Pushing, podstate.Coasting:
		setAllSignal(c.WheelBrakes, deenergize())
	case podstate.Boot, podstate.Shutdown, podstate.Braking:
		setAllSignal(c.WheelBrakes, energize())
	case podstate.Emergency:
		if accelX <= cfg.AErrX {
			setAllSignal(c.WheelBrakes, energize())
			// Release e-brakes once it is safe to brake. The clamp
			// brakes are spring-engaged and solenoid-released.
			// TODO: verify solenoid wiring polarity on the bench
			// before a powered run.
			setAllSignal(c.EBrakes, deenergize())
		}
		// else: accelerating too hard to brake; every actuator holds.
	default:
		unknownMode(mode, "brake")
	}
	return c
}

// unknownMode halts the process. Reaching it means mode is not one of
// the seven defined values, which only memory corruption can produce;
// the panic carries a diagnostic instead of letting a corrupted mode
// drive solenoids.
func unknownMode(mode podstate.Mode, subsystem string) {
	if !mode.Valid() {
		panic(fmt.Sprintf("actuate: pod mode %d unknown, cannot project %s commands", int32(mode), subsystem))
	}
	panic(fmt.Sprintf("actuate: pod mode %s unhandled projecting %s commands", mode, subsystem))
}

func setAllBool(s []bool, v bool) {
	for i := range s {
		s[i] = v
	}
}

func setAllSignal(s []Signal, v Signal) {
	for i := range s {
		s[i] = v
	}
}

// Drive applies cmds to st's GPIO pins through w, consulting the
// override mask for every channel: a channel under manual override
// refuses a differing write unless
// overrideAuthority is set; a write matching the current shadow value is
// always silently skipped regardless of override state.
//
// Drive returns a single error listing every refused channel, but still
// attempts every other channel.
func Drive(st *podstate.PodState, cmds Commands, w gpio.Writer, pins podstate.PinMap, overrideAuthority bool) error {
	var refused []string

	for i, v := range cmds.Skates {
		if st.Shadow.Skate(i) == v {
			continue
		}
		if !gateSkate(st, i, v, overrideAuthority) {
			refused = append(refused, fmt.Sprintf("skate %d", i))
			continue
		}
		st.Shadow.SetSkate(i, v)
		// The wire write is always 0; the shadow carries the logical
		// value. TODO: confirm against the skate valve manifold whether
		// the pin is meant to follow the commanded value.
		writeChannel(w, pins.SkatePins, i, 0)
	}

	for i, sig := range cmds.WheelBrakes {
		if !sig.Write || st.Shadow.WheelBrake(i) == sig.Value {
			continue
		}
		if !gateWheelBrake(st, i, sig.Value, overrideAuthority) {
			refused = append(refused, fmt.Sprintf("wheel brake %d", i))
			continue
		}
		st.Shadow.SetWheelBrake(i, sig.Value)
		writeChannel(w, pins.WheelBrakePins, i, boolToInt(sig.Value))
	}

	for i, sig := range cmds.EBrakes {
		if !sig.Write || st.Shadow.EBrake(i) == sig.Value {
			continue
		}
		if !gateEBrake(st, i, sig.Value, overrideAuthority) {
			refused = append(refused, fmt.Sprintf("e-brake %d", i))
			continue
		}
		st.Shadow.SetEBrake(i, sig.Value)
		writeChannel(w, pins.EBrakePins, i, boolToInt(sig.Value))
	}

	if len(refused) > 0 {
		return fmt.Errorf("actuate: refused writes on channels under override: %v", refused)
	}
	return nil
}

// gateSkate checks the skate override mask for channel i.
func gateSkate(st *podstate.PodState, i int, newVal bool, overrideAuthority bool) bool {
	if st.Shadow.Skate(i) == newVal {
		return true
	}
	if st.Override.SkateOverridden(i) && !overrideAuthority {
		return false
	}
	return true
}

// gateWheelBrake checks the override state for wheel-brake channel i.
// Note it consults the skate override mask, not a brake-specific one.
func gateWheelBrake(st *podstate.PodState, i int, newVal bool, overrideAuthority bool) bool {
	if st.Shadow.WheelBrake(i) == newVal {
		return true
	}
	if st.Override.SkateOverridden(i) && !overrideAuthority {
		return false
	}
	return true
}

// gateEBrake checks the e-brake override mask for channel i.
func gateEBrake(st *podstate.PodState, i int, newVal bool, overrideAuthority bool) bool {
	if st.Shadow.EBrake(i) == newVal {
		return true
	}
	if st.Override.EBrakeOverridden(i) && !overrideAuthority {
		return false
	}
	return true
}

func writeChannel(w gpio.Writer, pins []int, i, value int) {
	if w == nil || i >= len(pins) {
		return
	}
	_ = w.SetValue(pins[i], value)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
