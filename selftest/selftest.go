// Package selftest implements the self-test pass the `-t` CLI flag runs
// before exiting, before any signal handler is registered or hardware is
// touched. It exercises the safety checks and actuator projector against
// synthetic states rather than real sensors, to catch a misconfigured
// threshold file before the pod is ever put on ready.
package selftest

import (
	"fmt"

	"github.com/openloop/podcore/actuate"
	"github.com/openloop/podcore/config"
	"github.com/openloop/podcore/podstate"
	"github.com/openloop/podcore/safety"
)

// Run exercises every mode-independent check and every mode's actuator
// projection against a synthetic, nominal PodState. It returns the first
// failure encountered, wrapped with the check's name.
func Run(cfg config.Config) error {
	st := podstate.New(cfg.NSkateSolenoids, cfg.NWheelSolenoids, cfg.NEBrakeSolenoids, podstate.PinMap{
		SkatePins:      cfg.SkatePins,
		WheelBrakePins: cfg.WheelBrakePins,
		EBrakePins:     cfg.EBrakePins,
	})
	st.Skates.Set(1, 1, 1, 1, thermocouples(cfg))
	st.Lateral.Set(0, 0, 0, 0)
	st.Kinematics.Set(0, 0, 0)

	if ok, reason := safety.HeightCheck(st); !ok {
		return fmt.Errorf("selftest: HeightCheck failed against nominal state: %s", reason)
	}
	if ok, reason := safety.ThermocoupleCheck(st, cfg); !ok {
		return fmt.Errorf("selftest: ThermocoupleCheck failed against nominal state: %s", reason)
	}
	if ok, reason, _ := safety.LateralCheck(st, cfg); !ok {
		return fmt.Errorf("selftest: LateralCheck failed against nominal state: %s", reason)
	}
	if ok, reason := safety.ReverseMotionCheck(st, cfg); !ok {
		return fmt.Errorf("selftest: ReverseMotionCheck failed against nominal state: %s", reason)
	}
	if !safety.PodIsStopped(st, cfg) {
		return fmt.Errorf("selftest: PodIsStopped disagreed with a zero-velocity sample")
	}

	for _, mode := range allModes {
		cmds := actuate.Project(mode, 0, cfg)
		if len(cmds.Skates) != cfg.NSkateSolenoids {
			return fmt.Errorf("selftest: Project(%s) returned %d skate commands, want %d", mode, len(cmds.Skates), cfg.NSkateSolenoids)
		}
		if len(cmds.WheelBrakes) != cfg.NWheelSolenoids {
			return fmt.Errorf("selftest: Project(%s) returned %d wheel-brake commands, want %d", mode, len(cmds.WheelBrakes), cfg.NWheelSolenoids)
		}
		if len(cmds.EBrakes) != cfg.NEBrakeSolenoids {
			return fmt.Errorf("selftest: Project(%s) returned %d e-brake commands, want %d", mode, len(cmds.EBrakes), cfg.NEBrakeSolenoids)
		}
	}
	return nil
}

var allModes = []podstate.Mode{
	podstate.Boot, podstate.Ready, podstate.Pushing, podstate.Coasting,
	podstate.Braking, podstate.Emergency, podstate.Shutdown,
}

func thermocouples(cfg config.Config) []float64 {
	t := make([]float64, 4)
	for i := range t {
		t[i] = cfg.MinRegulatorThermocoupleTemp + 10
	}
	return t
}
