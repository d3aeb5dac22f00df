// Package api serves the simulation over HTTP.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (controller plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mlucero/segsim/internal/agents"
	"github.com/mlucero/segsim/internal/engine"
	"github.com/mlucero/segsim/internal/persistence"
)

// Server exposes the ledger to controllers and dashboards.
type Server struct {
	Ledger   *engine.Ledger
	Eng      *engine.Engine
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	// A controller should post at most once per quarter; anything chattier
	// is a bug or abuse.
	allocLimiter := NewRateLimiter(60, time.Hour)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/regions", s.handleRegions)
	mux.HandleFunc("/api/v1/region/", s.handleRegionDetail)
	mux.HandleFunc("/api/v1/households", s.handleHouseholds)
	mux.HandleFunc("/api/v1/observation", s.handleObservation)
	mux.HandleFunc("/api/v1/reports", s.handleReports)

	mux.HandleFunc("/api/v1/allocation", s.adminOnly(RateLimitMiddleware(allocLimiter, s.handleAllocation)))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed dashboard origins. Set
// CORS_ORIGINS to a comma-separated list; localhost dev servers are always
// allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through for endpoints that support both.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "control endpoints disabled (no SEGSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	l := s.Ledger
	population := 0
	units := 0
	for _, reg := range l.Regions {
		population += len(reg.Households)
		units += len(reg.Units)
	}

	writeJSON(w, map[string]any{
		"run_id":            l.RunID,
		"step":              l.Steps,
		"sim_time":          engine.SimTime(l.Steps, l.QuarterLength),
		"quarter":           l.Quarter(),
		"max_quarters":      l.MaxQuarters,
		"done":              l.Done(),
		"speed":             s.Eng.Speed,
		"running":           s.Eng.Running,
		"population":        population,
		"units":             units,
		"cash_balance":      l.CashBalance,
		"fines_collected":   l.FinesCollected,
		"incentives_paid":   l.IncentivesPaid,
		"political_capital": l.PoliticalCapital,
	})
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	type regionSummary struct {
		ID             uint64  `json:"id"`
		Name           string  `json:"name"`
		Households     int     `json:"households"`
		Units          int     `json:"units"`
		ComplianceRate float64 `json:"compliance_rate"`
		EduIntensity   float64 `json:"edu_intensity"`
		EnfIntensity   float64 `json:"enf_intensity"`
		Incentive      float64 `json:"incentive"`
		CashOnHand     float64 `json:"cash_on_hand"`
	}

	var result []regionSummary
	for _, reg := range s.Ledger.Regions {
		result = append(result, regionSummary{
			ID:             reg.ID,
			Name:           reg.Name,
			Households:     len(reg.Households),
			Units:          len(reg.Units),
			ComplianceRate: reg.ComplianceRate(),
			EduIntensity:   reg.EducationIntensity(),
			EnfIntensity:   reg.EnforcementIntensity(),
			Incentive:      reg.IncentiveValue(),
			CashOnHand:     reg.CashOnHand,
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleRegionDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 {
		http.Error(w, "missing region id", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		http.Error(w, "invalid region id", http.StatusBadRequest)
		return
	}

	for _, reg := range s.Ledger.Regions {
		if reg.ID != id {
			continue
		}

		byIncome := map[string]int{"low": 0, "mid": 0, "high": 0}
		violators := 0
		for _, h := range reg.Households {
			switch h.Income {
			case agents.IncomeLow:
				byIncome["low"]++
			case agents.IncomeMid:
				byIncome["mid"]++
			default:
				byIncome["high"]++
			}
			if !h.Compliant {
				violators++
			}
		}

		writeJSON(w, map[string]any{
			"id":                 reg.ID,
			"name":               reg.Name,
			"center":             reg.Center,
			"households":         len(reg.Households),
			"households_by_tier": byIncome,
			"violators":          violators,
			"units":              len(reg.Units),
			"compliance_rate":    reg.ComplianceRate(),
			"edu_fund":           reg.EduFund,
			"enf_fund":           reg.EnfFund,
			"inc_fund":           reg.IncFund,
			"edu_intensity":      reg.EducationIntensity(),
			"enf_intensity":      reg.EnforcementIntensity(),
			"incentive":          reg.IncentiveValue(),
			"cash_on_hand":       reg.CashOnHand,
			"quarter_fines":      reg.QuarterFines,
			"quarter_incentives": reg.QuarterIncentives,
		})
		return
	}
	http.Error(w, "region not found", http.StatusNotFound)
}

func (s *Server) handleHouseholds(w http.ResponseWriter, r *http.Request) {
	var regionFilter uint64
	if q := r.URL.Query().Get("region"); q != "" {
		v, err := strconv.ParseUint(q, 10, 64)
		if err != nil {
			http.Error(w, "invalid region filter", http.StatusBadRequest)
			return
		}
		regionFilter = v
	}

	type householdSummary struct {
		ID         agents.HouseholdID `json:"id"`
		RegionID   uint64             `json:"region_id"`
		X          int                `json:"x"`
		Y          int                `json:"y"`
		Attitude   float64            `json:"attitude"`
		SocialNorm float64            `json:"social_norm"`
		Utility    float64            `json:"utility"`
		Compliant  bool               `json:"compliant"`
	}

	var result []householdSummary
	for _, reg := range s.Ledger.Regions {
		if regionFilter != 0 && reg.ID != regionFilter {
			continue
		}
		for _, h := range reg.Households {
			result = append(result, householdSummary{
				ID:         h.ID,
				RegionID:   h.RegionID,
				X:          h.Position.X,
				Y:          h.Position.Y,
				Attitude:   h.Attitude,
				SocialNorm: h.SocialNorm,
				Utility:    h.Utility,
				Compliant:  h.Compliant,
			})
		}
	}
	writeJSON(w, result)
}

func (s *Server) handleObservation(w http.ResponseWriter, r *http.Request) {
	obs := s.Ledger.Observe()
	writeJSON(w, map[string]any{
		"observation": obs,
		"state":       s.Ledger.GetState(),
	})
}

// handleReports serves the run's quarter history. When a database is wired
// the stored history is authoritative, so a resumed run sees the quarters
// closed before the restart; without one, in-memory reports are served.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	reports := s.Ledger.Reports
	if s.DB != nil {
		stored, err := s.DB.ReportsForRun(s.Ledger.RunID.String())
		if err != nil {
			slog.Error("report history load failed", "error", err)
		} else if len(stored) > 0 {
			reports = stored
		}
	}

	if q := r.URL.Query().Get("quarter"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			http.Error(w, "invalid quarter", http.StatusBadRequest)
			return
		}
		var filtered []engine.QuarterReport
		for _, rep := range reports {
			if rep.Quarter == n {
				filtered = append(filtered, rep)
			}
		}
		reports = filtered
	}

	if reports == nil {
		reports = []engine.QuarterReport{}
	}
	writeJSON(w, reports)
}

// handleAllocation stages a fund split for the next quarter boundary. The
// body carries either district share triples or a flat weight vector in
// district order.
func (s *Server) handleAllocation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, s.Ledger.LastAllocation)
		return
	}

	var req struct {
		Shares  []engine.RegionShare `json:"shares"`
		Weights []float64            `json:"weights"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	alloc := engine.Allocation{Shares: req.Shares}
	if len(req.Shares) == 0 && len(req.Weights) > 0 {
		if len(req.Weights)%3 != 0 {
			http.Error(w, "weights length must be a multiple of 3", http.StatusBadRequest)
			return
		}
		for i := 0; i+2 < len(req.Weights); i += 3 {
			alloc.Shares = append(alloc.Shares, engine.RegionShare{
				Edu: req.Weights[i],
				Enf: req.Weights[i+1],
				Inc: req.Weights[i+2],
			})
		}
	}

	if err := s.Ledger.SubmitAllocation(alloc); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	slog.Info("allocation staged", "total_weight", alloc.Total(), "from", r.RemoteAddr)
	writeJSON(w, map[string]any{"staged": true, "effective_quarter": s.Ledger.Quarter() + 1})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.Speed = req.Speed
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}
