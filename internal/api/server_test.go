package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pascal-fb-martin/housedcc/internal/capture"
	"github.com/pascal-fb-martin/housedcc/internal/depot"
	"github.com/pascal-fb-martin/housedcc/internal/fleet"
	"github.com/pascal-fb-martin/housedcc/internal/infrastructure/config"
	"github.com/pascal-fb-martin/housedcc/internal/infrastructure/logging"
	"github.com/pascal-fb-martin/housedcc/internal/pidcc"
)

// newTestServer builds a server around a dry-run link (no GPIO pins,
// no worker) and returns it with an httptest frontend.
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")

	link := pidcc.New(pidcc.DefaultConfig())
	recorder := capture.New(32)
	link.SetRecorder(recorder)

	ctx, cancel := context.WithCancel(context.Background())
	if err := link.Start(ctx); err != nil {
		cancel()
		t.Fatalf("link.Start() error = %v", err)
	}
	t.Cleanup(func() {
		link.Close()
		cancel()
	})

	registry := fleet.New(link)

	server, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:       config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Logger:   logger,
		Registry: registry,
		Link:     link,
		Recorder: recorder,
		Depot:    depot.New(filepath.Join(t.TempDir(), "fleet.json")),
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ts := httptest.NewServer(server.buildRouter())
	t.Cleanup(ts.Close)

	return server, ts
}

// post sends a JSON body and returns the response.
func post(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()

	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeStatus(t *testing.T, resp *http.Response) fleet.Status {
	t.Helper()

	var status fleet.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return status
}

// seedFleet declares a model and a vehicle through the HTTP surface.
func seedFleet(t *testing.T, ts *httptest.Server) {
	t.Helper()

	resp := post(t, ts, "/api/v1/fleet/models", map[string]any{
		"name": "e8",
		"kind": "engine",
		"functions": []map[string]any{
			{"name": "FL", "index": 13},
			{"name": "horn", "index": 2},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("declare model status = %d, want 200", resp.StatusCode)
	}

	resp = post(t, ts, "/api/v1/fleet/vehicles", map[string]any{
		"id": "up844", "model": "e8", "address": 44,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add vehicle status = %d, want 200", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)

	resp := get(t, ts, "/api/v1/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d, want 200", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("version = %v, want test", body["version"])
	}
	if body["link"] == nil {
		t.Error("expected link stats in health response")
	}
}

func TestMoveVehicle(t *testing.T) {
	_, ts := newTestServer(t)
	seedFleet(t, ts)

	resp := post(t, ts, "/api/v1/fleet/move", map[string]any{"id": "up844", "speed": -20})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("move status = %d, want 200", resp.StatusCode)
	}

	status := decodeStatus(t, resp)
	if len(status.Vehicles) != 1 {
		t.Fatalf("len(Vehicles) = %d, want 1", len(status.Vehicles))
	}
	if status.Vehicles[0].Speed != -20 {
		t.Errorf("speed = %d, want -20", status.Vehicles[0].Speed)
	}
}

func TestMoveNumericID(t *testing.T) {
	_, ts := newTestServer(t)

	// All-digits id bypasses the registry and addresses the decoder
	// directly; a dry-run link builds the line without transmitting.
	resp := post(t, ts, "/api/v1/fleet/move", map[string]any{"id": "103", "speed": 14})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("move status = %d, want 200", resp.StatusCode)
	}
}

func TestMoveUnknownVehicle(t *testing.T) {
	_, ts := newTestServer(t)

	resp := post(t, ts, "/api/v1/fleet/move", map[string]any{"id": "ghost", "speed": 5})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("move status = %d, want 404", resp.StatusCode)
	}
}

func TestMoveInvalidBody(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/fleet/move", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("move status = %d, want 400", resp.StatusCode)
	}
}

func TestStopAll(t *testing.T) {
	_, ts := newTestServer(t)
	seedFleet(t, ts)

	post(t, ts, "/api/v1/fleet/move", map[string]any{"id": "up844", "speed": 12})

	// Missing id stops the whole fleet.
	resp := post(t, ts, "/api/v1/fleet/stop", map[string]any{"emergency": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d, want 200", resp.StatusCode)
	}

	status := decodeStatus(t, resp)
	if status.Vehicles[0].Speed != 0 {
		t.Errorf("speed after stop all = %d, want 0", status.Vehicles[0].Speed)
	}
}

func TestFunctionByName(t *testing.T) {
	_, ts := newTestServer(t)
	seedFleet(t, ts)

	resp := post(t, ts, "/api/v1/fleet/function", map[string]any{
		"id": "up844", "device": "horn", "active": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("function status = %d, want 200", resp.StatusCode)
	}

	status := decodeStatus(t, resp)
	var horn bool
	for _, device := range status.Vehicles[0].Devices {
		if device.Name == "horn" {
			horn = device.Active
		}
	}
	if !horn {
		t.Error("expected horn active in status")
	}
}

func TestFunctionUnknownDevice(t *testing.T) {
	_, ts := newTestServer(t)
	seedFleet(t, ts)

	resp := post(t, ts, "/api/v1/fleet/function", map[string]any{
		"id": "up844", "device": "plow", "active": true,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("function status = %d, want 400", resp.StatusCode)
	}
}

func TestFunctionNumericIDRawInstruction(t *testing.T) {
	_, ts := newTestServer(t)

	resp := post(t, ts, "/api/v1/fleet/function", map[string]any{
		"id": "44", "instruction": 0x90,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("function status = %d, want 200", resp.StatusCode)
	}

	resp = post(t, ts, "/api/v1/fleet/function", map[string]any{
		"id": "44", "instruction": 300,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("function status = %d, want 400 for oversized instruction", resp.StatusCode)
	}
}

func TestAccessory(t *testing.T) {
	_, ts := newTestServer(t)

	resp := post(t, ts, "/api/v1/fleet/accessory", map[string]any{
		"address": 1, "device": 3, "active": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accessory status = %d, want 200", resp.StatusCode)
	}

	resp = post(t, ts, "/api/v1/fleet/accessory", map[string]any{
		"address": 512, "device": 0, "active": true,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("accessory status = %d, want 400 for address 512", resp.StatusCode)
	}
}

func TestStatusNotModified(t *testing.T) {
	_, ts := newTestServer(t)
	seedFleet(t, ts)

	resp := get(t, ts, "/api/v1/fleet/status")
	status := decodeStatus(t, resp)

	resp = get(t, ts, "/api/v1/fleet/status?known="+uitoa(status.Revision))
	if resp.StatusCode != http.StatusNotModified {
		t.Errorf("status = %d, want 304 for current revision", resp.StatusCode)
	}

	post(t, ts, "/api/v1/fleet/move", map[string]any{"id": "up844", "speed": 3})

	resp = get(t, ts, "/api/v1/fleet/status?known="+uitoa(status.Revision))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 after revision change", resp.StatusCode)
	}
}

func TestStatusBadKnown(t *testing.T) {
	_, ts := newTestServer(t)

	resp := get(t, ts, "/api/v1/fleet/status?known=soon")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for non-numeric known", resp.StatusCode)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	_, ts := newTestServer(t)
	seedFleet(t, ts)

	resp := get(t, ts, "/api/v1/fleet/config")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get config status = %d, want 200", resp.StatusCode)
	}
	var snapshot fleet.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snapshot.Models) != 1 || len(snapshot.Vehicles) != 1 {
		t.Fatalf("snapshot = %d models %d vehicles, want 1 and 1", len(snapshot.Models), len(snapshot.Vehicles))
	}

	resp = post(t, ts, "/api/v1/fleet/config", snapshot)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set config status = %d, want 200", resp.StatusCode)
	}

	status := decodeStatus(t, resp)
	if len(status.Vehicles) != 1 || status.Vehicles[0].ID != "up844" {
		t.Errorf("restored vehicles = %+v, want up844", status.Vehicles)
	}
}

func TestDelete(t *testing.T) {
	_, ts := newTestServer(t)
	seedFleet(t, ts)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/fleet/up844", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", resp.StatusCode)
	}

	status := decodeStatus(t, resp)
	if len(status.Vehicles) != 0 {
		t.Errorf("len(Vehicles) = %d after delete, want 0", len(status.Vehicles))
	}

	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/fleet/ghost", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("delete status = %d, want 404 for unknown id", resp.StatusCode)
	}
}

func TestConsistLifecycle(t *testing.T) {
	_, ts := newTestServer(t)
	seedFleet(t, ts)

	resp := post(t, ts, "/api/v1/fleet/consists", map[string]any{"id": "train", "address": 100})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("declare consist status = %d, want 200", resp.StatusCode)
	}

	resp = post(t, ts, "/api/v1/fleet/consists/assign", map[string]any{
		"consist": "train", "vehicle": "up844", "mode": "f",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assign status = %d, want 200", resp.StatusCode)
	}

	status := decodeStatus(t, resp)
	if len(status.Consists) != 1 || len(status.Consists[0].Members) != 1 {
		t.Fatalf("consists = %+v, want train with one member", status.Consists)
	}

	resp = post(t, ts, "/api/v1/fleet/consists/assign", map[string]any{
		"consist": "train", "vehicle": "up844", "mode": "x",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("assign status = %d, want 400 for bad mode", resp.StatusCode)
	}

	resp = post(t, ts, "/api/v1/fleet/consists/remove", map[string]any{"vehicle": "up844"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remove status = %d, want 200", resp.StatusCode)
	}

	status = decodeStatus(t, resp)
	if len(status.Consists[0].Members) != 0 {
		t.Errorf("members = %v after remove, want none", status.Consists[0].Members)
	}
}

func TestGpioInvalidPins(t *testing.T) {
	_, ts := newTestServer(t)

	resp := post(t, ts, "/api/v1/gpio", map[string]any{"pin_a": 17, "pin_b": 17})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("gpio status = %d, want 400 for identical pins", resp.StatusCode)
	}
}

func TestCaptureAfterCommand(t *testing.T) {
	_, ts := newTestServer(t)

	post(t, ts, "/api/v1/fleet/move", map[string]any{"id": "103", "speed": 14})

	resp := get(t, ts, "/api/v1/capture")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("capture status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Events []capture.Event `json:"events"`
		Count  int             `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode capture: %v", err)
	}

	var found bool
	for _, ev := range body.Events {
		if ev.Category == capture.CategoryBuilt && ev.Text == "send 103 120" {
			found = true
		}
	}
	if !found {
		t.Errorf("capture events = %+v, want built entry for send 103 120", body.Events)
	}
}

func TestStatusWithUnassignedFunction(t *testing.T) {
	_, ts := newTestServer(t)

	resp := post(t, ts, "/api/v1/fleet/models", map[string]any{
		"name": "heavy",
		"kind": "engine",
		"functions": []map[string]any{
			{"name": "light", "index": 13},
			{"name": "spare", "index": 0},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("declare model status = %d, want 200", resp.StatusCode)
	}
	resp = post(t, ts, "/api/v1/fleet/vehicles", map[string]any{
		"id": "bigboy", "model": "heavy", "address": 40,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add vehicle status = %d, want 200", resp.StatusCode)
	}

	// The unassigned slot cannot be driven and never shows as a device.
	resp = post(t, ts, "/api/v1/fleet/function", map[string]any{
		"id": "bigboy", "device": "spare", "active": true,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("function on unassigned slot status = %d, want 400", resp.StatusCode)
	}

	resp = get(t, ts, "/api/v1/fleet/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	status := decodeStatus(t, resp)
	if len(status.Vehicles) != 1 {
		t.Fatalf("vehicles = %d, want 1", len(status.Vehicles))
	}
	for _, d := range status.Vehicles[0].Devices {
		if d.Name == "spare" {
			t.Errorf("devices list the unassigned slot: %+v", status.Vehicles[0].Devices)
		}
	}
}

func TestWebSocketStatusStream(t *testing.T) {
	server, ts := newTestServer(t)
	seedFleet(t, ts)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	server.hub = NewHub(server.wsCfg, server.logger)
	go server.hub.Run(ctx)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	// The server sends the current fleet status right after the upgrade.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read status event: %v", err)
	}
	if msg.Type != WSTypeEvent || msg.EventType != channelFleetStatus {
		t.Errorf("message = %s/%s, want %s/%s", msg.Type, msg.EventType, WSTypeEvent, channelFleetStatus)
	}
}

func TestNewMissingDeps(t *testing.T) {
	_, err := New(Deps{})
	if err == nil {
		t.Error("New() with empty deps expected error")
	}
}

func uitoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}
