// Package web serves inference results over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ritzau/crystal-bonds/pkg/analysis"
	"github.com/ritzau/crystal-bonds/pkg/bondgraph"
	"github.com/ritzau/crystal-bonds/pkg/logging"
	"github.com/ritzau/crystal-bonds/pkg/pubsub"
	"github.com/ritzau/crystal-bonds/pkg/rules"
	"github.com/ritzau/crystal-bonds/pkg/sanity"
)

// CrystalView is the /api/crystal payload.
type CrystalView struct {
	Name     string          `json:"name"`
	Periodic bool            `json:"periodic"`
	Atoms    []analysis.Atom `json:"atoms"`
}

// BondsView is the /api/bonds payload.
type BondsView struct {
	Crystal   string           `json:"crystal"`
	Method    string           `json:"method"`
	Bonds     []bondgraph.Bond `json:"bonds"`
	Fragments [][]int          `json:"fragments"`
	Rings     [][]int          `json:"rings"`
}

// SanityView is the /api/sanity payload.
type SanityView struct {
	Crystal    string             `json:"crystal"`
	Sane       bool               `json:"sane"`
	Violations []sanity.Violation `json:"violations"`
}

// ShellsView is the /api/atoms/{index}/shells payload.
type ShellsView struct {
	Atom   int     `json:"atom"`
	Shells [][]int `json:"shells"`
}

type errorView struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	runner    *analysis.Runner
	publisher *pubsub.SSEPublisher
}

// NewServer creates a server over runner and registers itself as the
// runner's publisher.
func NewServer(runner *analysis.Runner) *Server {
	ssePublisher := pubsub.NewSSEPublisher()
	// Only the current state is replayed to new subscribers
	ssePublisher.ConfigureTopic(pubsub.TopicRunStatus, pubsub.TopicConfig{BufferSize: 10})
	ssePublisher.ConfigureTopic(pubsub.TopicBondGraph, pubsub.TopicConfig{BufferSize: 5})

	s := &Server{
		router:    mux.NewRouter(),
		runner:    runner,
		publisher: ssePublisher,
	}
	runner.SetPublisher(s)
	s.setupRoutes()
	return s
}

// Handler returns the routed handler, including middleware.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Publish implements analysis.Publisher.
func (s *Server) Publish(res *analysis.Result) {
	s.publishStatus("ready", fmt.Sprintf("%d bonds in %s", len(res.Bonds), res.Crystal), res.Trigger, res.ID)
	err := s.publisher.Publish(pubsub.TopicBondGraph, res.Method, pubsub.BondGraphSummary{
		RunID:     res.ID,
		Crystal:   res.Crystal,
		Method:    res.Method,
		Atoms:     len(res.Atoms),
		Bonds:     len(res.Bonds),
		Fragments: len(res.Fragments),
		Sane:      res.Sane,
	})
	if err != nil {
		logging.Warn("failed to publish bond graph", "error", err)
	}
}

func (s *Server) publishStatus(state, message, trigger, runID string) {
	err := s.publisher.Publish(pubsub.TopicRunStatus, state, pubsub.RunStatus{
		State:   state,
		Message: message,
		Trigger: trigger,
		RunID:   runID,
	})
	if err != nil {
		logging.Warn("failed to publish run status", "error", err)
	}
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	s.router.HandleFunc("/api/result", s.handleResult).Methods("GET")
	s.router.HandleFunc("/api/crystal", s.handleCrystal).Methods("GET")
	s.router.HandleFunc("/api/bonds", s.handleBonds).Methods("GET")
	s.router.HandleFunc("/api/sanity", s.handleSanity).Methods("GET")
	s.router.HandleFunc("/api/atoms/{index:[0-9]+}/shells", s.handleShells).Methods("GET")
	s.router.HandleFunc("/api/rules", s.handleRules).Methods("GET")
	s.router.HandleFunc("/api/rules", s.handleAddRule).Methods("POST")
	s.router.HandleFunc("/api/infer", s.handleInfer).Methods("POST")

	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, status, errorView{Error: err.Error(), RequestID: logging.GetRequestID(r.Context())})
}

// last returns the latest result, answering 503 when there is none yet.
func (s *Server) last(w http.ResponseWriter, r *http.Request) (*analysis.Result, bool) {
	res := s.runner.Last()
	if res == nil {
		writeError(w, r, http.StatusServiceUnavailable, errors.New("no analysis result yet"))
		return nil, false
	}
	return res, true
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if res, ok := s.last(w, r); ok {
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleCrystal(w http.ResponseWriter, r *http.Request) {
	if res, ok := s.last(w, r); ok {
		writeJSON(w, http.StatusOK, CrystalView{Name: res.Crystal, Periodic: res.Periodic, Atoms: res.Atoms})
	}
}

func (s *Server) handleBonds(w http.ResponseWriter, r *http.Request) {
	if res, ok := s.last(w, r); ok {
		writeJSON(w, http.StatusOK, BondsView{
			Crystal:   res.Crystal,
			Method:    res.Method,
			Bonds:     res.Bonds,
			Fragments: res.Fragments,
			Rings:     res.Rings,
		})
	}
}

func (s *Server) handleSanity(w http.ResponseWriter, r *http.Request) {
	if res, ok := s.last(w, r); ok {
		writeJSON(w, http.StatusOK, SanityView{Crystal: res.Crystal, Sane: res.Sane, Violations: res.Violations})
	}
}

// handleShells answers with the atoms around one atom grouped by bond-path
// distance, up to ?hops= (default 2).
func (s *Server) handleShells(w http.ResponseWriter, r *http.Request) {
	index, _ := strconv.Atoi(mux.Vars(r)["index"])
	hops := 2
	if q := r.URL.Query().Get("hops"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid hops %q", q))
			return
		}
		hops = n
	}

	shells, err := s.runner.Shells(index, hops)
	switch {
	case errors.Is(err, analysis.ErrNoCrystal):
		writeError(w, r, http.StatusServiceUnavailable, err)
	case errors.Is(err, bondgraph.ErrAtomRange):
		writeError(w, r, http.StatusNotFound, err)
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, ShellsView{Atom: index, Shells: shells})
	}
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	rs := s.runner.Rules().Current()
	if rs == nil {
		rs = rules.RuleSet{}
	}
	writeJSON(w, http.StatusOK, rs)
}

// handleAddRule appends (default) or prepends one rule to the active set.
func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var in rules.Rule
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("decoding rule: %w", err))
		return
	}
	rule, err := rules.New(in.SpeciesI, in.SpeciesJ, in.MinDist, in.MaxDist)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err)
		return
	}

	switch pos := r.URL.Query().Get("position"); pos {
	case "", "append":
		s.runner.Rules().Append(rule)
	case "prepend":
		s.runner.Rules().Prepend(rule)
	default:
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("unknown position %q", pos))
		return
	}
	logging.InfoContext(r.Context(), "rule added", "rule", rule.String())
	writeJSON(w, http.StatusCreated, s.runner.Rules().Current())
}

func (s *Server) handleInfer(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Query().Get("method")
	s.publishStatus("running", "inferring bonds", analysis.TriggerAPI, "")

	res, err := s.runner.Run(r.Context(), analysis.RunOptions{
		Method:  method,
		Trigger: analysis.TriggerAPI,
		Reason:  "requested over HTTP",
	})
	if err != nil {
		s.publishStatus("error", err.Error(), analysis.TriggerAPI, "")
		status := http.StatusInternalServerError
		if errors.Is(err, analysis.ErrUnknownMethod) {
			status = http.StatusBadRequest
		}
		writeError(w, r, status, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if topic != pubsub.TopicRunStatus && topic != pubsub.TopicBondGraph {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("unknown topic %q", topic))
		return
	}

	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Initial comment establishes the connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flush(w)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.DebugContext(r.Context(), "subscriber went away", "topic", topic, "error", err)
				return
			}
			flush(w)
		}
	}
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Start serves on port until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = s.publisher.Close()
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down web server")
	// Close subscriptions first so that streaming handlers return.
	_ = s.publisher.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
