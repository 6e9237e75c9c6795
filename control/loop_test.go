package control

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/openloop/podcore/config"
	"github.com/openloop/podcore/gpio"
	"github.com/openloop/podcore/logsink"
	"github.com/openloop/podcore/podstate"
	"github.com/openloop/podcore/sensor/fake"
)

func newLoopFixture(cfg config.Config) (*Loop, *fake.IMU, *fake.Skate, *fake.Lateral, *fake.Braking) {
	pins := podstate.PinMap{SkatePins: cfg.SkatePins, WheelBrakePins: cfg.WheelBrakePins, EBrakePins: cfg.EBrakePins}
	st := podstate.New(cfg.NSkateSolenoids, cfg.NWheelSolenoids, cfg.NEBrakeSolenoids, pins)
	imuR := &fake.IMU{}
	skateR := fake.NewSkate(4)
	lateralR := &fake.Lateral{}
	brakingR := fake.NewBraking(cfg.NWheelSolenoids, cfg.NEBrakeSolenoids)
	log := logsink.New(io.Discard, nil)
	l := New(st, cfg, log, imuR, skateR, lateralR, brakingR, gpio.NewFake())
	return l, imuR, skateR, lateralR, brakingR
}

func TestLoopAdvancesBootToReady(t *testing.T) {
	cfg := config.Default()
	l, _, _, _, _ := newLoopFixture(cfg)
	l.State.SetReady(true)
	if mode := l.step(); mode != podstate.Ready {
		t.Fatalf("expected Ready after one step with ready bit set, got %s", mode)
	}
}

func TestLoopIMUFailureWindowTripsEmergency(t *testing.T) {
	cfg := config.Default()
	l, imuR, _, _, _ := newLoopFixture(cfg)
	l.State.SetMode(podstate.Ready, "test setup")
	// Keep the pod moving so Emergency cannot hand off to Shutdown.
	l.State.Kinematics.Set(0, 10, 0)
	imuR.SetFail(true)
	var mode podstate.Mode
	for i := 0; i < imuFailureLimit; i++ {
		mode = l.step()
	}
	if mode != podstate.Emergency {
		t.Fatalf("expected Emergency after a full window of IMU failures, got %s", mode)
	}
}

func TestLoopSkateReadFailureTripsEmergencyImmediately(t *testing.T) {
	cfg := config.Default()
	l, imuR, skateR, _, _ := newLoopFixture(cfg)
	l.State.SetMode(podstate.Ready, "test setup")
	// Keep the pod moving so Emergency cannot hand off to Shutdown.
	imuR.Set(0, 10, 0)
	skateR.SetFail(true)
	if mode := l.step(); mode != podstate.Emergency {
		t.Fatalf("expected immediate Emergency on skate read failure, got %s", mode)
	}
}

func TestLoopRunStopsAtShutdown(t *testing.T) {
	cfg := config.Default()
	l, _, _, _, brakingR := newLoopFixture(cfg)
	l.State.SetMode(podstate.Braking, "test setup")
	for i := range brakingR.WheelPressure {
		brakingR.SetWheelPressure(i, 1.0)
	}
	for i := range brakingR.EBrakePressure {
		brakingR.SetEBrakePressure(i, 1.0)
	}
	l.State.Kinematics.Set(100, 0, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if mode := l.Run(ctx); mode != podstate.Shutdown {
		t.Fatalf("expected loop to converge on Shutdown, got %s", mode)
	}
}
