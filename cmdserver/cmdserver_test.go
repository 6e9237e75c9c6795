package cmdserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openloop/podcore/config"
	"github.com/openloop/podcore/gpio"
	"github.com/openloop/podcore/logsink"
	"github.com/openloop/podcore/podstate"
)

func newTestServer() (*Server, *httptest.Server) {
	cfg := config.Default()
	pins := podstate.PinMap{SkatePins: cfg.SkatePins, WheelBrakePins: cfg.WheelBrakePins, EBrakePins: cfg.EBrakePins}
	st := podstate.New(cfg.NSkateSolenoids, cfg.NWheelSolenoids, cfg.NEBrakeSolenoids, pins)
	s := New(st, cfg, gpio.NewFake(), logsink.New(io.Discard, nil))
	return s, httptest.NewServer(s.Router())
}

func TestHandleSetReady(t *testing.T) {
	s, ts := newTestServer()
	defer ts.Close()

	body, _ := json.Marshal(boolPayload{Value: true})
	resp, err := http.Post(ts.URL+"/ready", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !s.State.Ready() {
		t.Fatal("expected ready flag to be set")
	}
}

func TestHandleTelemetry(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/telemetry")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var p telemetryPayload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Mode != "Boot" {
		t.Fatalf("expected Boot mode in fresh telemetry, got %q", p.Mode)
	}
}

func TestHandleCommandWithOverrideAuthority(t *testing.T) {
	s, ts := newTestServer()
	defer ts.Close()
	s.State.Override.SetWheelBrakeOverride(0, true)

	body, _ := json.Marshal(boolPayload{Value: true})
	resp, err := http.Post(ts.URL+"/command/wheel-brakes/0", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected override-authority command to succeed, got %d", resp.StatusCode)
	}
	if !s.State.Shadow.WheelBrake(0) {
		t.Fatal("expected wheel brake 0 shadow to be set")
	}
}

func TestHandleSetOverrideUnknownSubsystem(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	body, _ := json.Marshal(boolPayload{Value: true})
	resp, err := http.Post(ts.URL+"/override/bogus/0", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown subsystem, got %d", resp.StatusCode)
	}
}
