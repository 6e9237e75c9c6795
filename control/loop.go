// Package control runs the sense -> classify -> actuate -> report cycle
// that drives the pod from Boot to Shutdown: read every sensor, run the
// mode machine, project and drive the actuators, then emit a heartbeat
// on a one-second tick.
package control

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/time/rate"

	"github.com/openloop/podcore/actuate"
	"github.com/openloop/podcore/config"
	"github.com/openloop/podcore/fsm"
	"github.com/openloop/podcore/gpio"
	"github.com/openloop/podcore/logsink"
	"github.com/openloop/podcore/podstate"
	"github.com/openloop/podcore/sensor"
)

// imuFailureLimit is the population count of the 64-slot sliding window
// at which a run of IMU read failures trips Emergency on its own,
// independent of any single bad sample.
const imuFailureLimit = 64

// Loop owns every collaborator the control thread needs: the shared
// state, the sensor adapters, the mode machine, the actuator GPIO
// writer, and a logger. Construct with New and run with Run.
type Loop struct {
	State  *podstate.PodState
	Config config.Config
	Log    *logsink.Logger

	IMU     sensor.IMUReader
	Skate   sensor.SkateReader
	Lateral sensor.LateralReader
	Braking sensor.BrakingReader

	Machine *fsm.Machine
	GPIO    gpio.Writer

	heartbeat    *rate.Limiter
	lastTickIter uint64
}

// New returns a Loop wired to run against st.
func New(st *podstate.PodState, cfg config.Config, log *logsink.Logger, imuR sensor.IMUReader, skateR sensor.SkateReader, lateralR sensor.LateralReader, brakingR sensor.BrakingReader, w gpio.Writer) *Loop {
	return &Loop{
		State:     st,
		Config:    cfg,
		Log:       log,
		IMU:       imuR,
		Skate:     skateR,
		Lateral:   lateralR,
		Braking:   brakingR,
		Machine:   fsm.New(cfg, log),
		GPIO:      w,
		heartbeat: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Run executes iterations until st reaches Shutdown or ctx
// is canceled, whichever comes first. It returns the mode the pod ended
// in: Shutdown on a normal run, or whatever mode was current when ctx
// was canceled.
func (l *Loop) Run(ctx context.Context) podstate.Mode {
	for {
		select {
		case <-ctx.Done():
			return l.State.Mode()
		default:
		}

		mode := l.step()
		if mode == podstate.Shutdown {
			return podstate.Shutdown
		}

		// The loop has no fixed period; yield so the command and
		// logging goroutines are never starved.
		runtime.Gosched()
	}
}

// step runs exactly one sense -> classify -> actuate -> report cycle and
// returns the resulting mode.
func (l *Loop) step() podstate.Mode {
	iteration := l.State.AdvanceIteration()

	l.sense(iteration)
	mode := l.Machine.Step(l.State)
	l.actuate(mode)
	l.report(iteration, mode)

	return mode
}

func (l *Loop) sense(iteration uint64) {
	if l.IMU != nil {
		if err := l.IMU.ReadIMU(l.State); err != nil {
			count := l.State.IMUFailures.Mark(iteration)
			if count >= imuFailureLimit {
				if l.State.SetMode(podstate.Emergency, "IMU read failed") {
					l.Log.Warnf("mode -> Emergency: %s", l.State.LastReason())
				}
			}
		} else {
			l.State.IMUFailures.Clear(iteration)
		}
	}

	if l.Skate != nil {
		if err := l.Skate.ReadSkate(l.State); err != nil {
			if l.State.SetMode(podstate.Emergency, "skate read failed") {
				l.Log.Warnf("mode -> Emergency: %s", l.State.LastReason())
			}
		}
	}

	if l.Lateral != nil {
		if err := l.Lateral.ReadLateral(l.State); err != nil {
			if l.State.SetMode(podstate.Emergency, "lateral read failed") {
				l.Log.Warnf("mode -> Emergency: %s", l.State.LastReason())
			}
		}
	}

	if l.Braking != nil {
		if err := l.Braking.ReadBraking(l.State); err != nil {
			l.Log.Warnf("braking telemetry read failed: %v", err)
		}
	}
}

func (l *Loop) actuate(mode podstate.Mode) {
	_, _, accelX := l.State.Kinematics.Get()
	if mode == podstate.Emergency && accelX > l.Config.AErrX {
		l.Log.Errorf("in Emergency but pod is still accelerating forward (%.2f m/s^2); brakes cannot assert", accelX)
	}
	cmds := actuate.Project(mode, accelX, l.Config)
	if err := actuate.Drive(l.State, cmds, l.GPIO, l.State.Pins, false); err != nil {
		l.Log.Warnf("actuator drive refused one or more channels: %v", err)
	}
}

func (l *Loop) report(iteration uint64, mode podstate.Mode) {
	if !l.heartbeat.Allow() {
		return
	}
	if mode == podstate.Boot {
		l.Log.Info("pod state is Boot, waiting for operator...")
	}
	l.Log.Infof("core executing at %d iter/sec, mode %s", iteration-l.lastTickIter, mode)
	l.lastTickIter = iteration
}
