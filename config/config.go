// Package config loads the safety-envelope thresholds and solenoid pin
// map that parameterize the mode machine and actuator projector.
//
// A struct default is loaded first via koanf's structs.Provider, then a
// YAML file on disk is merged over it if present. Missing config files
// are not an error; the pod runs on its built-in defaults.
package config

import (
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
)

// Config holds every tunable consumed by the mode machine and actuator
// projector.
type Config struct {
	// PushingMinAccel is the acceleration, m/s^2, above which Ready
	// transitions to Pushing.
	PushingMinAccel float64 `koanf:"pushing_min_accel" yaml:"pushing_min_accel"`

	// CoastingMinAccelTrigger is the acceleration at or below which
	// Pushing transitions to Coasting.
	CoastingMinAccelTrigger float64 `koanf:"coasting_min_accel_trigger" yaml:"coasting_min_accel_trigger"`

	// MaximumSafeForwardVelocity is the velocity, m/s, above which
	// Pushing/Coasting transition to Emergency ("too fast").
	MaximumSafeForwardVelocity float64 `koanf:"maximum_safe_forward_velocity" yaml:"maximum_safe_forward_velocity"`

	// MaximumSafeDistanceBeforeBraking is the position, m, beyond which
	// Pushing/Coasting transition to Emergency ("too far").
	MaximumSafeDistanceBeforeBraking float64 `koanf:"maximum_safe_distance_before_braking" yaml:"maximum_safe_distance_before_braking"`

	// StandardDistanceBeforeBraking is the position, m, beyond which
	// Coasting transitions to Braking.
	StandardDistanceBeforeBraking float64 `koanf:"standard_distance_before_braking" yaml:"standard_distance_before_braking"`

	// PrimaryBrakingAccelXMax is the lower (most negative) bound on
	// acceleration while Braking; exceeding it (more negative) trips
	// Emergency ("deceleration too high").
	PrimaryBrakingAccelXMax float64 `koanf:"primary_braking_accel_x_max" yaml:"primary_braking_accel_x_max"`

	// PrimaryBrakingAccelXMin is the upper bound on acceleration while
	// Braking, used together with the under-deceleration check.
	PrimaryBrakingAccelXMin float64 `koanf:"primary_braking_accel_x_min" yaml:"primary_braking_accel_x_min"`

	// VErrX is the reverse-motion threshold, m/s: velocity_x < -VErrX
	// trips Emergency in every non-Shutdown mode.
	VErrX float64 `koanf:"v_err_x" yaml:"v_err_x"`

	// AErrX gates whether brakes can be commanded while in Emergency:
	// accel_x > AErrX means the pod is still accelerating forward and
	// brakes cannot yet safely assert.
	AErrX float64 `koanf:"a_err_x" yaml:"a_err_x"`

	// MinRegulatorThermocoupleTemp is the lowest acceptable skate
	// regulator thermocouple reading.
	MinRegulatorThermocoupleTemp float64 `koanf:"min_regulator_thermocouple_temp" yaml:"min_regulator_thermocouple_temp"`

	// LateralMin and LateralMax bound every lateral-displacement sensor.
	LateralMin float64 `koanf:"lateral_min" yaml:"lateral_min"`
	LateralMax float64 `koanf:"lateral_max" yaml:"lateral_max"`

	// BrakeEngagedThreshold is the pressure reading at/above which a
	// brake channel is considered engaged.
	BrakeEngagedThreshold float64 `koanf:"brake_engaged_threshold" yaml:"brake_engaged_threshold"`

	// StoppedVelocity is the |velocity_x| at/below which the pod is
	// considered stopped (podIsStopped()).
	StoppedVelocity float64 `koanf:"stopped_velocity" yaml:"stopped_velocity"`

	// NWheelSolenoids, NEBrakeSolenoids and NSkateSolenoids size the
	// actuator arrays.
	NWheelSolenoids  int `koanf:"n_wheel_solenoids" yaml:"n_wheel_solenoids"`
	NEBrakeSolenoids int `koanf:"n_ebrake_solenoids" yaml:"n_ebrake_solenoids"`
	NSkateSolenoids  int `koanf:"n_skate_solenoids" yaml:"n_skate_solenoids"`

	// WheelBrakePins, EBrakePins and SkatePins map solenoid channel
	// index to GPIO identifier.
	WheelBrakePins []int `koanf:"wheel_brake_pins" yaml:"wheel_brake_pins"`
	EBrakePins     []int `koanf:"ebrake_pins" yaml:"ebrake_pins"`
	SkatePins      []int `koanf:"skate_pins" yaml:"skate_pins"`

	// IMUBaud is the serial baud rate used to open the IMU device named
	// by the -i flag.
	IMUBaud int `koanf:"imu_baud" yaml:"imu_baud"`

	// CommandAddr is the listen address for the command/telemetry HTTP
	// facade (cmdserver).
	CommandAddr string `koanf:"command_addr" yaml:"command_addr"`

	// LogSinkAddr, if non-empty, is a TCP address the logging
	// collaborator additionally forwards every line to.
	LogSinkAddr string `koanf:"log_sink_addr" yaml:"log_sink_addr"`
}

// Default returns the compiled-in configuration. These are placeholder
// track parameters, overridable via file; retune them per deployment.
func Default() Config {
	return Config{
		PushingMinAccel:                  1.0,
		CoastingMinAccelTrigger:          0.0,
		MaximumSafeForwardVelocity:       25.0,
		MaximumSafeDistanceBeforeBraking: 125.0,
		StandardDistanceBeforeBraking:    75.0,
		PrimaryBrakingAccelXMax:          -10.0,
		PrimaryBrakingAccelXMin:          -0.5,
		VErrX:                            0.5,
		AErrX:                            0.2,
		MinRegulatorThermocoupleTemp:     -20.0,
		LateralMin:                       -0.05,
		LateralMax:                       0.05,
		BrakeEngagedThreshold:            0.9,
		StoppedVelocity:                  0.05,
		NWheelSolenoids:                  4,
		NEBrakeSolenoids:                 2,
		NSkateSolenoids:                  4,
		WheelBrakePins:                   []int{60, 61, 62, 63},
		EBrakePins:                       []int{64, 65},
		SkatePins:                        []int{66, 67, 68, 69},
		IMUBaud:                          115200,
		CommandAddr:                      ":8080",
		LogSinkAddr:                      "",
	}
}

// Load returns Default(), overridden by path if it exists. A missing
// file is not an error.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	def := Default()
	if err := k.Load(structs.Provider(def, "koanf"), nil); err != nil {
		return def, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !strings.Contains(err.Error(), "no such file") {
				return def, err
			}
		}
	}
	var out Config
	if err := k.Unmarshal("", &out); err != nil {
		return def, err
	}
	return out, nil
}
