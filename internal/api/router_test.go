package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"swarm-sim/internal/sim"
)

// mockEngine implements EngineInterface for router tests without the
// full tick loop.
type mockEngine struct {
	spawned     []sim.Variant
	killedQueen uint64
	recalcs     int
}

func (m *mockEngine) GetState() sim.WorldState {
	return sim.WorldState{
		Parasites: []sim.ParasiteView{{ID: 1, Variant: "basic", State: "patrolling", Fidelity: "full"}},
		Territories: []sim.Territory{
			{ID: 1, Radius: 30, Status: sim.StatusQueenOwned, QueenID: 5},
		},
		Queens:    []sim.QueenView{{ID: 5, Controlled: 1, Active: true}},
		TickCount: 10,
	}
}

func (m *mockEngine) Stats() sim.StatsSnapshot {
	return sim.StatsSnapshot{TotalParasites: 1, Alive: 1, ByVariant: map[string]int{"basic": 1}}
}

func (m *mockEngine) SpawnParasite(variant sim.Variant, territoryID uint64) (*sim.Parasite, error) {
	m.spawned = append(m.spawned, variant)
	return sim.NewParasite(uint64(len(m.spawned)), variant, 5, sim.Vec3{}, 30)
}

func (m *mockEngine) AddQueen(territoryID uint64) (*sim.Queen, error) {
	return sim.NewQueen(5), nil
}

func (m *mockEngine) KillQueen(id uint64) bool {
	m.killedQueen = id
	return id == 5
}

func (m *mockEngine) DamageParasite(id uint64, amount int) (bool, bool) {
	return amount >= 100, id == 1
}

func (m *mockEngine) ValidateConsistency() sim.ConsistencyReport {
	return sim.ConsistencyReport{}
}

func (m *mockEngine) Recalculate() { m.recalcs++ }

func (m *mockEngine) GetEventLogStats() map[string]interface{} {
	return map[string]interface{}{"total": uint64(3)}
}

func testServer(t *testing.T) (*httptest.Server, *mockEngine) {
	t.Helper()
	engine := &mockEngine{}
	router := NewRouter(RouterConfig{
		Engine:         engine,
		DisableLogging: true,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1000, // High limit for tests
			Burst:             1000,
			CleanupInterval:   time.Minute,
		},
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, engine
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	return resp
}

// TestGetState verifies the state endpoint returns the world snapshot.
func TestGetStateEndpoint(t *testing.T) {
	ts, _ := testServer(t)

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var state sim.WorldState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(state.Parasites) != 1 || state.TickCount != 10 {
		t.Errorf("Unexpected state: %+v", state)
	}
}

// TestSpawnEndpoint verifies spawn requests reach the engine with the
// parsed variant.
func TestSpawnEndpoint(t *testing.T) {
	ts, engine := testServer(t)

	resp := postJSON(t, ts.URL+"/api/parasite/spawn", map[string]interface{}{
		"variant":     "tactical",
		"territoryId": 1,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if len(engine.spawned) != 1 || engine.spawned[0] != sim.VariantTactical {
		t.Errorf("Expected one tactical spawn, got %v", engine.spawned)
	}
}

// TestSpawnEndpointBadVariant verifies unknown variants are rejected.
func TestSpawnEndpointBadVariant(t *testing.T) {
	ts, engine := testServer(t)

	resp := postJSON(t, ts.URL+"/api/parasite/spawn", map[string]interface{}{
		"variant": "super",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
	if len(engine.spawned) != 0 {
		t.Error("Engine must not see rejected requests")
	}
}

// TestBatchSpawnCap verifies the batch endpoint caps the count.
func TestBatchSpawnCap(t *testing.T) {
	ts, engine := testServer(t)

	resp := postJSON(t, ts.URL+"/api/parasite/batch", map[string]interface{}{
		"variant":     "basic",
		"territoryId": 1,
		"count":       10000,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if len(engine.spawned) != 200 {
		t.Errorf("Expected capped batch of 200, got %d", len(engine.spawned))
	}
}

// TestQueenKillEndpoint verifies the kill route and the not-found path.
func TestQueenKillEndpoint(t *testing.T) {
	ts, engine := testServer(t)

	resp := postJSON(t, ts.URL+"/api/queen/kill", map[string]interface{}{"queenId": 5})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if engine.killedQueen != 5 {
		t.Errorf("Expected kill for queen 5, got %d", engine.killedQueen)
	}

	resp = postJSON(t, ts.URL+"/api/queen/kill", map[string]interface{}{"queenId": 9})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown queen, got %d", resp.StatusCode)
	}
}

// TestReconcileEndpoint verifies the manual reconcile trigger.
func TestReconcileEndpoint(t *testing.T) {
	ts, engine := testServer(t)

	resp := postJSON(t, ts.URL+"/api/control/reconcile", map[string]interface{}{})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if engine.recalcs != 1 {
		t.Errorf("Expected one recalculation, got %d", engine.recalcs)
	}
}

// TestConsistencyEndpoint verifies the read-only validation route.
func TestConsistencyEndpoint(t *testing.T) {
	ts, _ := testServer(t)

	resp, err := http.Get(ts.URL + "/api/control/consistency")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if body["clean"] != true {
		t.Errorf("Expected clean report, got %v", body)
	}
}

// TestRateLimiting verifies the IP limiter rejects a burst beyond its
// budget.
func TestRateLimiting(t *testing.T) {
	engine := &mockEngine{}
	router := NewRouter(RouterConfig{
		Engine:         engine,
		DisableLogging: true,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             2,
			CleanupInterval:   time.Minute,
		},
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	rejected := 0
	for i := 0; i < 5; i++ {
		resp, err := http.Get(ts.URL + "/api/stats")
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			rejected++
		}
	}
	if rejected == 0 {
		t.Error("Expected some requests to be rate limited")
	}
}
