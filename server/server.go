// Package server exposes the calculation engine over a JSON HTTP API: the
// formula test endpoint, calculation CRUD, the function catalogue, chart
// data, and a websocket feed that pushes recomputed series after data
// imports.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/zestra/zdmt/calc"
	"github.com/zestra/zdmt/charts"
	"github.com/zestra/zdmt/eval"
	"github.com/zestra/zdmt/formula"
	"github.com/zestra/zdmt/functions"
	"github.com/zestra/zdmt/registry"
	"github.com/zestra/zdmt/series"
	"github.com/zestra/zdmt/store"
)

type Server struct {
	engine    *calc.Engine
	store     store.Store
	registry  registry.Registry
	hub       *Hub
	listLimit int
}

func New(engine *calc.Engine, st store.Store, reg registry.Registry, listLimit int) *Server {
	if listLimit <= 0 {
		listLimit = 100
	}
	return &Server{
		engine:    engine,
		store:     st,
		registry:  reg,
		hub:       NewHub(),
		listLimit: listLimit,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/formula/test", s.handleTestFormula)
	mux.HandleFunc("GET /api/functions", s.handleFunctions)
	mux.HandleFunc("GET /api/calculations", s.handleListCalculations)
	mux.HandleFunc("POST /api/calculations", s.handleCreateCalculation)
	mux.HandleFunc("DELETE /api/calculations/{slug}", s.handleDeleteCalculation)
	mux.HandleFunc("GET /api/chart/{slug}", s.handleChart)
	mux.HandleFunc("POST /api/indicators/{slug}/points", s.handleImportPoints)
	mux.HandleFunc("GET /ws/series/{slug}", s.handleSeriesWS)
	return mux
}

// ListenAndServe runs the API on addr until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("api: listening on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

// writeError surfaces the error text verbatim; the admin UI shows it as-is.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// resultPayload is the wire shape for an evaluated formula.
type resultPayload struct {
	Kind   string        `json:"kind"`
	Series series.Series `json:"series,omitempty"`
	Value  *float64      `json:"value,omitempty"`
}

func toPayload(v eval.Value) resultPayload {
	switch t := v.(type) {
	case eval.SeriesValue:
		return resultPayload{Kind: "series", Series: t.Series}
	case eval.ScalarValue:
		return resultPayload{Kind: "value", Value: t.Scalar}
	default:
		return resultPayload{}
	}
}

func (s *Server) handleTestFormula(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Formula    string   `json:"formula"`
		Indicators []string `json:"indicators"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	for _, declared := range req.Indicators {
		if _, err := s.store.FindIndicatorBySlug(formula.ToSlug(declared)); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
	}

	v, err := s.engine.TestFormula(req.Formula)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(v))
}

func (s *Server) handleFunctions(w http.ResponseWriter, r *http.Request) {
	grouped := map[string][]functions.Spec{}
	for _, spec := range functions.Catalogue() {
		grouped[spec.Category] = append(grouped[spec.Category], spec)
	}
	writeJSON(w, http.StatusOK, grouped)
}

type calculationPayload struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Slug       string   `json:"slug"`
	Formula    string   `json:"formula"`
	Indicators []string `json:"indicators"`
	OutputType string   `json:"output_type"`
	CreatedAt  string   `json:"created_at"`
}

func toCalculationPayload(c registry.Calculation) calculationPayload {
	return calculationPayload{
		ID:         c.ID,
		Name:       c.Name,
		Slug:       c.Slug,
		Formula:    c.Formula,
		Indicators: c.Indicators,
		OutputType: c.OutputType.String(),
		CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleListCalculations(w http.ResponseWriter, r *http.Request) {
	calcs, err := s.registry.List(s.listLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]calculationPayload, 0, len(calcs))
	for _, c := range calcs {
		out = append(out, toCalculationPayload(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCalculation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string   `json:"name"`
		Formula    string   `json:"formula"`
		Indicators []string `json:"indicators"`
		OutputType string   `json:"output_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ot, err := registry.ParseOutputType(req.OutputType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	c, err := s.engine.CreateCalculation(req.Name, req.Formula, req.Indicators, ot)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCalculationPayload(*c))
}

func (s *Server) handleDeleteCalculation(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteCalculation(r.PathValue("slug")); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	rangeName := r.URL.Query().Get("range")
	// Explicit from/to bounds win over a named range.
	if from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to"); from != "" || to != "" {
		rangeName = from + ":" + to
	}

	full, err := s.engine.EvaluateSlug(slug)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	visible, err := charts.Filter(full, rangeName, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Slug   string        `json:"slug"`
		Range  string        `json:"range"`
		Points series.Series `json:"points"`
		Stats  charts.Stats  `json:"stats"`
	}{
		Slug:   slug,
		Range:  rangeName,
		Points: visible,
		Stats:  charts.Compute(visible),
	})
}

func (s *Server) handleImportPoints(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	ind, err := s.store.FindIndicatorBySlug(slug)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var pts series.Series
	if err := json.NewDecoder(r.Body).Decode(&pts); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.UpsertPoints(ind.ID, series.New(pts...)); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.notify(slug)
	w.WriteHeader(http.StatusNoContent)
}

// notify pushes the recomputed series for the updated slug and for the
// companion indicators of calculations that reference it directly. Deeper
// chains recompute on the next chart request.
func (s *Server) notify(slug string) {
	slugs := []string{slug}
	if deps, err := s.registry.ListReferencing(slug); err == nil {
		for _, c := range deps {
			if c.OutputType == registry.OutputIndicator {
				slugs = append(slugs, c.Slug)
			}
		}
	}

	for _, sl := range slugs {
		if s.hub.Subscribers(sl) == 0 {
			continue
		}
		out, err := s.engine.EvaluateSlug(sl)
		if err != nil {
			log.Printf("ws: recompute %s: %v", sl, err)
			continue
		}
		payload, err := json.Marshal(struct {
			Slug   string        `json:"slug"`
			Points series.Series `json:"points"`
		}{Slug: sl, Points: out})
		if err != nil {
			continue
		}
		s.hub.Broadcast(sl, payload)
	}
}

func (s *Server) handleSeriesWS(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if _, err := s.store.FindIndicatorBySlug(slug); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err := s.hub.Subscribe(w, r, slug); err != nil {
		log.Printf("ws: subscribe %s: %v", slug, err)
	}
}
