package actuate

import (
	"testing"

	"github.com/openloop/podcore/config"
	"github.com/openloop/podcore/gpio"
	"github.com/openloop/podcore/podstate"
)

func newFixture(cfg config.Config) (*podstate.PodState, *gpio.Fake) {
	pins := podstate.PinMap{
		SkatePins:      cfg.SkatePins,
		WheelBrakePins: cfg.WheelBrakePins,
		EBrakePins:     cfg.EBrakePins,
	}
	st := podstate.New(cfg.NSkateSolenoids, cfg.NWheelSolenoids, cfg.NEBrakeSolenoids, pins)
	return st, gpio.NewFake()
}

func TestProjectReadyReleasesWheelBrakesAndExtendsSkates(t *testing.T) {
	cfg := config.Default()
	cmds := Project(podstate.Ready, 0, cfg)
	for i, v := range cmds.Skates {
		if !v {
			t.Fatalf("skate %d expected extended in Ready", i)
		}
	}
	for i, sig := range cmds.WheelBrakes {
		if !sig.Write || sig.Value {
			t.Fatalf("wheel brake %d expected released in Ready, got %+v", i, sig)
		}
	}
	for i, sig := range cmds.EBrakes {
		if sig.Write {
			t.Fatalf("e-brake %d expected held in Ready, got %+v", i, sig)
		}
	}
}

func TestProjectBrakingEngagesWheelBrakes(t *testing.T) {
	cfg := config.Default()
	cmds := Project(podstate.Braking, 0, cfg)
	for i, sig := range cmds.WheelBrakes {
		if !sig.Write || !sig.Value {
			t.Fatalf("wheel brake %d expected engaged in Braking, got %+v", i, sig)
		}
	}
}

func TestProjectEmergencyHoldsWhenStillAccelerating(t *testing.T) {
	cfg := config.Default()
	cmds := Project(podstate.Emergency, cfg.AErrX+1, cfg)
	for i, sig := range cmds.WheelBrakes {
		if sig.Write {
			t.Fatalf("wheel brake %d expected held while accelerating past AErrX, got %+v", i, sig)
		}
	}
	for i, sig := range cmds.EBrakes {
		if sig.Write {
			t.Fatalf("e-brake %d expected held while accelerating past AErrX, got %+v", i, sig)
		}
	}
}

func TestProjectEmergencyReleasesEBrakesWhenSafe(t *testing.T) {
	cfg := config.Default()
	cmds := Project(podstate.Emergency, cfg.AErrX-1, cfg)
	for i, sig := range cmds.EBrakes {
		if !sig.Write || sig.Value {
			t.Fatalf("e-brake %d expected released once safe to brake, got %+v", i, sig)
		}
	}
	for i, sig := range cmds.WheelBrakes {
		if !sig.Write || !sig.Value {
			t.Fatalf("wheel brake %d expected engaged once safe to brake, got %+v", i, sig)
		}
	}
}

func TestDriveSkatesAlwaysWriteGpioZero(t *testing.T) {
	cfg := config.Default()
	st, w := newFixture(cfg)
	cmds := Project(podstate.Ready, 0, cfg)
	if err := Drive(st, cmds, w, st.Pins, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, pin := range cfg.SkatePins {
		if got := w.Value(pin); got != 0 {
			t.Fatalf("pin %d: expected hardware write value 0 regardless of commanded state, got %d", pin, got)
		}
	}
	if !st.Shadow.Skate(0) {
		t.Fatal("expected logical shadow to still record the commanded (extended) state")
	}
}

func TestDriveRefusesOverriddenChannelWithoutAuthority(t *testing.T) {
	cfg := config.Default()
	st, w := newFixture(cfg)
	st.Override.SetSkateOverride(0, true)
	cmds := Project(podstate.Ready, 0, cfg) // commands skate 0 extended; shadow defaults to retracted
	err := Drive(st, cmds, w, st.Pins, false)
	if err == nil {
		t.Fatal("expected a refusal error for the overridden channel")
	}
	if st.Shadow.Skate(0) {
		t.Fatal("shadow must not change for a refused write")
	}
}

func TestDriveAllowsOverriddenChannelWithAuthority(t *testing.T) {
	cfg := config.Default()
	st, w := newFixture(cfg)
	st.Override.SetSkateOverride(0, true)
	cmds := Project(podstate.Ready, 0, cfg)
	if err := Drive(st, cmds, w, st.Pins, true); err != nil {
		t.Fatalf("unexpected error with override authority: %v", err)
	}
	if !st.Shadow.Skate(0) {
		t.Fatal("expected shadow to update when override-authority is asserted")
	}
}

func TestDriveSkipsNoOpWriteEvenWhenOverridden(t *testing.T) {
	cfg := config.Default()
	st, w := newFixture(cfg)
	st.Shadow.SetSkate(0, true) // already matches Ready's target
	// Skate 0's override flag also gates wheel brake 0; make that
	// channel a no-op too so only skipped writes meet the override.
	st.Shadow.SetWheelBrake(0, false)
	st.Override.SetSkateOverride(0, true)
	cmds := Project(podstate.Ready, 0, cfg)
	if err := Drive(st, cmds, w, st.Pins, false); err != nil {
		t.Fatalf("expected no-op write to be silently skipped, got %v", err)
	}
}

func TestProjectUnknownModeHalts(t *testing.T) {
	cfg := config.Default()
	defer func() {
		if recover() == nil {
			t.Fatal("expected Project to panic on a mode outside the seven defined values")
		}
	}()
	Project(podstate.Mode(99), 0, cfg)
}

func TestProjectAndDriveAreIdempotent(t *testing.T) {
	cfg := config.Default()
	st, w := newFixture(cfg)
	cmds := Project(podstate.Braking, 0, cfg)
	if err := Drive(st, cmds, w, st.Pins, false); err != nil {
		t.Fatalf("first drive: %v", err)
	}
	snapshot := make(map[int]int)
	for _, pin := range append(append([]int{}, cfg.WheelBrakePins...), cfg.SkatePins...) {
		snapshot[pin] = w.Value(pin)
	}
	again := Project(podstate.Braking, 0, cfg)
	if err := Drive(st, again, w, st.Pins, false); err != nil {
		t.Fatalf("second drive: %v", err)
	}
	for pin, v := range snapshot {
		if got := w.Value(pin); got != v {
			t.Fatalf("pin %d changed between identical drives: %d -> %d", pin, v, got)
		}
	}
	for i := range cmds.WheelBrakes {
		if !st.Shadow.WheelBrake(i) {
			t.Fatalf("wheel brake %d shadow changed between identical drives", i)
		}
	}
}

func TestWheelBrakeGateChecksSkateOverrideList(t *testing.T) {
	// The wheel-brake gate consults the skate override mask, not a
	// wheel-brake-specific one.
	cfg := config.Default()
	st, w := newFixture(cfg)
	st.Override.SetSkateOverride(0, true)
	st.Override.SetWheelBrakeOverride(0, false)
	cmds := Project(podstate.Ready, 0, cfg) // releases wheel brake 0, changing it from its engaged default
	err := Drive(st, cmds, w, st.Pins, false)
	if err == nil {
		t.Fatal("expected wheel brake 0 to be refused because skate 0's override flag gates it")
	}
	if !st.Shadow.WheelBrake(0) {
		t.Fatal("wheel brake 0's shadow must not change for a refused write")
	}
}
