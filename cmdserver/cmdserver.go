// Package cmdserver implements the command/telemetry HTTP facade the
// operator drives the pod through: setting the ready flag, reading
// telemetry, and issuing override-authority actuator commands.
package cmdserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/openloop/podcore/actuate"
	"github.com/openloop/podcore/config"
	"github.com/openloop/podcore/gpio"
	"github.com/openloop/podcore/logsink"
	"github.com/openloop/podcore/podstate"
)

// Server is the command/telemetry facade. Create one with New and mount
// its Router in an http.Server.
type Server struct {
	State  *podstate.PodState
	Config config.Config
	GPIO   gpio.Writer
	Log    *logsink.Logger
}

// New returns a Server wired to st.
func New(st *podstate.PodState, cfg config.Config, w gpio.Writer, log *logsink.Logger) *Server {
	return &Server{State: st, Config: cfg, GPIO: w, Log: log}
}

// Router builds the chi.Router exposing this Server's routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Get("/telemetry", s.handleTelemetry)
	r.Get("/mode", s.handleMode)
	r.Post("/ready", s.handleSetReady)
	r.Post("/override/{subsystem}/{channel}", s.handleSetOverride)
	r.Post("/command/{subsystem}/{channel}", s.handleCommand)
	return r
}

type telemetryPayload struct {
	Mode        string     `json:"mode"`
	Iteration   uint64     `json:"iteration"`
	PositionX   float64    `json:"position_x"`
	VelocityX   float64    `json:"velocity_x"`
	AccelX      float64    `json:"accel_x"`
	Lateral     [4]float64 `json:"lateral"`
	IMUFailures int        `json:"imu_failure_count"`
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	px, vx, ax := s.State.Kinematics.Get()
	p := telemetryPayload{
		Mode:        s.State.Mode().String(),
		Iteration:   s.State.Iteration(),
		PositionX:   px,
		VelocityX:   vx,
		AccelX:      ax,
		Lateral:     s.State.Lateral.Displacements(),
		IMUFailures: s.State.IMUFailures.PopCount(),
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"mode":   s.State.Mode().String(),
		"reason": s.State.LastReason(),
	})
}

type boolPayload struct {
	Value bool `json:"value"`
}

func (s *Server) handleSetReady(w http.ResponseWriter, r *http.Request) {
	var b boolPayload
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.State.SetReady(b.Value)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	subsystem := chi.URLParam(r, "subsystem")
	ch, ok := parseChannel(w, r)
	if !ok {
		return
	}
	var b boolPayload
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	switch subsystem {
	case "skates":
		if !checkChannel(w, ch, s.Config.NSkateSolenoids) {
			return
		}
		s.State.Override.SetSkateOverride(ch, b.Value)
	case "wheel-brakes":
		if !checkChannel(w, ch, s.Config.NWheelSolenoids) {
			return
		}
		s.State.Override.SetWheelBrakeOverride(ch, b.Value)
	case "ebrakes":
		if !checkChannel(w, ch, s.Config.NEBrakeSolenoids) {
			return
		}
		s.State.Override.SetEBrakeOverride(ch, b.Value)
	default:
		http.Error(w, "unknown subsystem", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleCommand issues a direct actuator write with override-authority
// set.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	subsystem := chi.URLParam(r, "subsystem")
	ch, ok := parseChannel(w, r)
	if !ok {
		return
	}
	var b boolPayload
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var cmds actuate.Commands
	switch subsystem {
	case "skates":
		if !checkChannel(w, ch, s.Config.NSkateSolenoids) {
			return
		}
		cmds.Skates = make([]bool, s.Config.NSkateSolenoids)
		copy(cmds.Skates, shadowSkates(s.State))
		cmds.Skates[ch] = b.Value
	case "wheel-brakes":
		if !checkChannel(w, ch, s.Config.NWheelSolenoids) {
			return
		}
		cmds.WheelBrakes = make([]actuate.Signal, s.Config.NWheelSolenoids)
		cmds.WheelBrakes[ch] = actuate.Signal{Write: true, Value: b.Value}
	case "ebrakes":
		if !checkChannel(w, ch, s.Config.NEBrakeSolenoids) {
			return
		}
		cmds.EBrakes = make([]actuate.Signal, s.Config.NEBrakeSolenoids)
		cmds.EBrakes[ch] = actuate.Signal{Write: true, Value: b.Value}
	default:
		http.Error(w, "unknown subsystem", http.StatusNotFound)
		return
	}

	if err := actuate.Drive(s.State, cmds, s.GPIO, s.State.Pins, true); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func shadowSkates(st *podstate.PodState) []bool {
	out := make([]bool, st.Shadow.NSkate())
	for i := range out {
		out[i] = st.Shadow.Skate(i)
	}
	return out
}

func parseChannel(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "channel"))
	if err != nil || n < 0 {
		http.Error(w, "channel must be a non-negative integer", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func checkChannel(w http.ResponseWriter, ch, width int) bool {
	if ch >= width {
		http.Error(w, "channel out of range", http.StatusNotFound)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
