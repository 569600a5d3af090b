package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"swarm-sim/internal/sim"
)

// Handler methods for routerHandlers.
// These are used by both the standalone router (for testing) and the
// full Server.

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.GetState())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Stats())
}

func (h *routerHandlers) handleGetTerritories(w http.ResponseWriter, r *http.Request) {
	state := h.engine.GetState()
	writeJSON(w, map[string]interface{}{
		"territories": state.Territories,
		"queens":      state.Queens,
	})
}

func parseVariant(s string) (sim.Variant, error) {
	switch s {
	case "", "basic":
		return sim.VariantBasic, nil
	case "tactical":
		return sim.VariantTactical, nil
	default:
		return 0, fmt.Errorf("unknown variant %q", s)
	}
}

func (h *routerHandlers) handleSpawn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Variant     string `json:"variant"`
		TerritoryID uint64 `json:"territoryId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	variant, err := parseVariant(req.Variant)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.engine.SpawnParasite(variant, req.TerritoryID)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, p)
}

func (h *routerHandlers) handleBatchSpawn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Variant     string `json:"variant"`
		TerritoryID uint64 `json:"territoryId"`
		Count       int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	variant, err := parseVariant(req.Variant)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Count <= 0 {
		req.Count = 10
	}
	if req.Count > 200 {
		req.Count = 200 // cap
	}

	count := 0
	for i := 0; i < req.Count; i++ {
		if _, err := h.engine.SpawnParasite(variant, req.TerritoryID); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		count++
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"count":   count,
	})
}

func (h *routerHandlers) handleDamage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParasiteID uint64 `json:"parasiteId"`
		Amount     int    `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		writeError(w, "Amount must be positive", http.StatusBadRequest)
		return
	}

	destroyed, ok := h.engine.DamageParasite(req.ParasiteID, req.Amount)
	if !ok {
		writeError(w, "Parasite not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{
		"success":   true,
		"destroyed": destroyed,
	})
}

func (h *routerHandlers) handleQueenAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TerritoryID uint64 `json:"territoryId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	q, err := h.engine.AddQueen(req.TerritoryID)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, q)
}

func (h *routerHandlers) handleQueenKill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QueenID uint64 `json:"queenId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if !h.engine.KillQueen(req.QueenID) {
		writeError(w, "Queen not found or already dead", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleGetConsistency(w http.ResponseWriter, r *http.Request) {
	report := h.engine.ValidateConsistency()
	writeJSON(w, map[string]interface{}{
		"clean":             report.Clean(),
		"orphaned":          report.Orphaned,
		"wronglyControlled": report.WronglyControlled,
		"duplicates":        report.Duplicates,
	})
}

func (h *routerHandlers) handleReconcile(w http.ResponseWriter, r *http.Request) {
	log.Println("🔄 Control reconciliation requested via API")

	// Validate first so the corrections the rebuild applies get counted.
	report := h.engine.ValidateConsistency()
	RecordReconcileCorrections("orphaned", len(report.Orphaned))
	RecordReconcileCorrections("wrongly_controlled", len(report.WronglyControlled))
	RecordReconcileCorrections("duplicate", len(report.Duplicates))

	h.engine.Recalculate()
	writeJSON(w, map[string]interface{}{
		"success":    true,
		"corrected":  !report.Clean(),
		"orphaned":   len(report.Orphaned),
		"wrong":      len(report.WronglyControlled),
		"duplicates": len(report.Duplicates),
	})
}

func (h *routerHandlers) handleEventStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.GetEventLogStats())
}

func (h *routerHandlers) handleFrame(w http.ResponseWriter, r *http.Request) {
	state := h.engine.GetState()
	w.Header().Set("Content-Type", "image/png")
	start := time.Now()
	if err := h.renderer.RenderPNG(state, w); err != nil {
		log.Printf("⚠️ Frame render failed: %v", err)
		return
	}
	RecordRender(time.Since(start))
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
