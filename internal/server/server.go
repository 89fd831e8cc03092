// Package server exposes bit-flip hill climbing over HTTP and JSON-RPC 2.0.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/copyleftdev/bitclimb/internal/config"
	apperrors "github.com/copyleftdev/bitclimb/internal/errors"
	"github.com/copyleftdev/bitclimb/internal/logging"
	"github.com/copyleftdev/bitclimb/internal/metrics"
	"github.com/copyleftdev/bitclimb/internal/optimization"
	"github.com/copyleftdev/bitclimb/internal/optimization/batch"
	"github.com/copyleftdev/bitclimb/internal/optimization/hillclimb"
	"github.com/copyleftdev/bitclimb/internal/optimization/space"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Job statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// OptimizationState represents the state of an optimization job.
// Fields are guarded by Server.optimizationsMu.
type OptimizationState struct {
	ID          string
	Status      string
	StartTime   time.Time
	EndTime     *time.Time
	Progress    float64
	LastUpdated time.Time

	Space  space.SolutionSpace
	Goal   optimization.Goal
	Rounds int
	Runs   int
	Seed   int64

	BestSolution *optimization.Solution
	Result       *optimization.OptimizationResult
	Summary      *batch.Summary
	Err          string

	// Optimizer is set for single-run jobs only; batches have no single
	// current solution.
	Optimizer  optimization.Optimizer
	CancelFunc context.CancelFunc
}

func (st *OptimizationState) terminal() bool {
	switch st.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Server implements the HTTP and JSON-RPC server for the optimization service.
// It manages optimization jobs and provides endpoints to start, monitor, and cancel them.
type Server struct {
	cfg      *config.Config
	logger   Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
	limiter  *rate.Limiter

	// Optimization state management
	optimizations   map[string]*OptimizationState
	optimizationsMu sync.RWMutex // Protects the optimizations map
	jobs            sync.WaitGroup
}

// NewServer creates a new server instance with the given config and logger.
// m may be nil.
func NewServer(cfg *config.Config, logger Logger, m *metrics.Metrics) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		metrics:       m,
		validate:      newValidator(),
		limiter:       rate.NewLimiter(rate.Limit(cfg.Optimization.StartRate), cfg.Optimization.StartBurst),
		optimizations: make(map[string]*OptimizationState),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
		r.Post("/space", s.handleSpace)
		r.Post("/encode", s.handleEncode)
		r.Post("/decode", s.handleDecode)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

func badRequest(err error, msg string) error {
	return apperrors.Wrap(err, msg).WithStatus(http.StatusBadRequest).WithComponent("server")
}

func (s *Server) check(req interface{}) error {
	if err := s.validate.Struct(req); err != nil {
		return badRequest(err, "invalid request")
	}
	return nil
}

// startOptimization validates req and launches the job in a goroutine.
func (s *Server) startOptimization(req OptimizeRequest) (map[string]interface{}, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	sp, err := req.Build(s.cfg)
	if err != nil {
		return nil, err
	}

	rounds := s.cfg.Optimization.DefaultRounds
	if req.Rounds != nil {
		rounds = *req.Rounds
	}
	if rounds > s.cfg.Optimization.MaxRounds {
		return nil, apperrors.Errorf("rounds must be at most %d, got %d", s.cfg.Optimization.MaxRounds, rounds).
			WithStatus(http.StatusBadRequest)
	}
	runs := req.Runs
	if runs == 0 {
		runs = 1
	}
	if runs > s.cfg.Optimization.MaxRuns {
		return nil, apperrors.Errorf("runs must be at most %d, got %d", s.cfg.Optimization.MaxRuns, runs).
			WithStatus(http.StatusBadRequest)
	}
	goal, _ := optimization.ParseGoal(req.Goal)

	if !s.limiter.Allow() {
		s.metrics.ObserveThrottled()
		return nil, apperrors.New("too many optimization requests").WithStatus(http.StatusTooManyRequests)
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	state := &OptimizationState{
		ID:          id,
		Status:      StatusPending,
		StartTime:   now,
		LastUpdated: now,
		Space:       sp,
		Goal:        goal,
		Rounds:      rounds,
		Runs:        runs,
		Seed:        seed,
		CancelFunc:  cancel,
	}

	if runs == 1 {
		climber, err := hillclimb.NewClimber(hillclimb.Config{
			Space:      sp,
			Rounds:     rounds,
			Goal:       goal,
			RandomSeed: seed,
			Logger:     s.zapLogger(id),
		})
		if err != nil {
			cancel()
			return nil, err
		}
		state.Optimizer = climber
	}

	s.optimizationsMu.Lock()
	s.optimizations[id] = state
	s.optimizationsMu.Unlock()

	s.logger.Info("Optimization started", map[string]interface{}{
		"optimization_id": id,
		"space":           sp.String(),
		"rounds":          rounds,
		"runs":            runs,
		"goal":            goal.String(),
		"seed":            seed,
	})

	s.jobs.Add(1)
	go s.runOptimization(ctx, state)

	return map[string]interface{}{
		"optimization_id": id,
		"status":          StatusPending,
	}, nil
}

func (s *Server) zapLogger(id string) *zap.Logger {
	return logging.NewZapLogger(s.logger.WithFields(map[string]interface{}{
		"component":       "hillclimb",
		"optimization_id": id,
	}))
}

// runOptimization executes the job and records its outcome.
func (s *Server) runOptimization(ctx context.Context, state *OptimizationState) {
	defer s.jobs.Done()
	defer state.CancelFunc()

	s.optimizationsMu.Lock()
	if state.Status == StatusPending {
		state.Status = StatusRunning
		state.LastUpdated = time.Now()
	}
	s.optimizationsMu.Unlock()

	done := s.metrics.JobStarted()
	defer done()

	var (
		result *optimization.OptimizationResult
		report *batch.Report
		err    error
	)
	if state.Optimizer != nil {
		result, err = state.Optimizer.Optimize(ctx)
	} else {
		report, err = batch.Execute(ctx, batch.Config{
			Space:   state.Space,
			Rounds:  state.Rounds,
			Runs:    state.Runs,
			Workers: s.cfg.Optimization.WorkerCount,
			Seed:    state.Seed,
			Goal:    state.Goal,
			Logger:  s.zapLogger(state.ID),
			OnRunDone: func(n, total int) {
				s.optimizationsMu.Lock()
				state.Progress = float64(n) / float64(total)
				state.LastUpdated = time.Now()
				s.optimizationsMu.Unlock()
			},
		})
	}

	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	now := time.Now()
	state.LastUpdated = now
	if state.EndTime == nil {
		state.EndTime = &now
	}

	switch {
	case state.Status == StatusCancelled || ctx.Err() != nil:
		state.Status = StatusCancelled
		s.metrics.ObserveSearch(nil, metrics.OutcomeCancelled)
	case err != nil:
		s.logger.Error("Optimization failed", map[string]interface{}{
			"optimization_id": state.ID,
			"error":           err.Error(),
		})
		state.Status = StatusFailed
		state.Err = err.Error()
		s.metrics.ObserveSearch(nil, metrics.OutcomeFailed)
	default:
		state.Status = StatusCompleted
		state.Progress = 1
		if result != nil {
			state.Result = result
			state.BestSolution = result.BestSolution
			s.metrics.ObserveSearch(result, metrics.OutcomeCompleted)
		}
		if report != nil {
			state.Summary = &report.Summary
			state.BestSolution = report.Summary.Best
			for _, run := range report.Runs {
				s.metrics.ObserveSearch(run.Result, metrics.OutcomeCompleted)
			}
		}
		s.logger.Info("Optimization completed", map[string]interface{}{
			"optimization_id": state.ID,
			"value":           state.BestSolution.Value,
			"bits":            state.Space.Format(space.Index(state.BestSolution.Bits)),
		})
	}
}

// HistoryEntry is one accepted move of a single-run job.
type HistoryEntry struct {
	Round int `json:"round"`
	Step  int `json:"step"`
	SolutionInfo
}

// SummaryInfo is the wire form of a batch summary.
type SummaryInfo struct {
	Runs             int           `json:"runs"`
	Best             *SolutionInfo `json:"best"`
	Worst            *SolutionInfo `json:"worst"`
	MeanValue        float64       `json:"mean_value"`
	StdDevValue      float64       `json:"std_dev_value"`
	MeanX            float64       `json:"mean_x"`
	DistinctOptima   int           `json:"distinct_optima"`
	TotalMoves       int           `json:"total_moves"`
	TotalEvaluations int           `json:"total_evaluations"`
}

// StatusResponse describes a job.
type StatusResponse struct {
	OptimizationID string         `json:"optimization_id"`
	Status         string         `json:"status"`
	Progress       float64        `json:"progress"`
	StartTime      string         `json:"start_time"`
	LastUpdate     string         `json:"last_update"`
	EndTime        string         `json:"end_time,omitempty"`
	Space          SpaceInfo      `json:"space"`
	Goal           string         `json:"goal"`
	Rounds         int            `json:"rounds"`
	Runs           int            `json:"runs"`
	Seed           int64          `json:"seed"`
	Error          string         `json:"error,omitempty"`
	BestSolution   *SolutionInfo  `json:"best_solution,omitempty"`
	CurrentBest    *SolutionInfo  `json:"current_best,omitempty"`
	Moves          int            `json:"moves,omitempty"`
	Evaluations    int            `json:"evaluations,omitempty"`
	History        []HistoryEntry `json:"history,omitempty"`
	Trace          [][]float32    `json:"trace,omitempty"`
	Summary        *SummaryInfo   `json:"summary,omitempty"`
}

func errNotFound(id string) error {
	return apperrors.Errorf("optimization %s not found", id).WithStatus(http.StatusNotFound)
}

// optimizationStatus returns the current status and results of a job.
func (s *Server) optimizationStatus(id string) (*StatusResponse, error) {
	s.optimizationsMu.RLock()
	defer s.optimizationsMu.RUnlock()

	state, exists := s.optimizations[id]
	if !exists {
		return nil, errNotFound(id)
	}

	sp := state.Space
	resp := &StatusResponse{
		OptimizationID: state.ID,
		Status:         state.Status,
		Progress:       state.Progress,
		StartTime:      state.StartTime.Format(time.RFC3339),
		LastUpdate:     state.LastUpdated.Format(time.RFC3339),
		Space:          spaceInfo(sp),
		Goal:           state.Goal.String(),
		Rounds:         state.Rounds,
		Runs:           state.Runs,
		Seed:           state.Seed,
		Error:          state.Err,
		BestSolution:   solutionInfo(sp, state.BestSolution),
	}
	if state.EndTime != nil {
		resp.EndTime = state.EndTime.Format(time.RFC3339)
	}

	if state.Optimizer != nil {
		resp.CurrentBest = solutionInfo(sp, state.Optimizer.GetBestSolution())
		for _, eval := range state.Optimizer.GetHistory() {
			resp.History = append(resp.History, HistoryEntry{
				Round:        eval.Round,
				Step:         eval.Step,
				SolutionInfo: *solutionInfo(sp, eval.Solution),
			})
		}
	}
	if r := state.Result; r != nil {
		resp.Moves = r.Moves
		resp.Evaluations = r.Evaluations
		resp.Trace = r.Trace
	}
	if sum := state.Summary; sum != nil {
		resp.Moves = sum.TotalMoves
		resp.Evaluations = sum.TotalEvaluations
		resp.Summary = &SummaryInfo{
			Runs:             sum.Runs,
			Best:             solutionInfo(sp, sum.Best),
			Worst:            solutionInfo(sp, sum.Worst),
			MeanValue:        sum.MeanValue,
			StdDevValue:      sum.StdDevValue,
			MeanX:            sum.MeanX,
			DistinctOptima:   sum.DistinctOptima,
			TotalMoves:       sum.TotalMoves,
			TotalEvaluations: sum.TotalEvaluations,
		}
	}

	return resp, nil
}

// cancelOptimization cancels a running job.
func (s *Server) cancelOptimization(id string) error {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	state, exists := s.optimizations[id]
	if !exists {
		return errNotFound(id)
	}

	if state.terminal() {
		return apperrors.Errorf("cannot cancel optimization with status: %s", state.Status).
			WithStatus(http.StatusConflict)
	}

	if state.Optimizer != nil {
		state.Optimizer.Stop()
	}
	state.CancelFunc()

	state.Status = StatusCancelled
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	s.logger.Info("Optimization cancelled", map[string]interface{}{
		"optimization_id": id,
	})

	return nil
}

// Close cancels running jobs and waits for them to finish.
func (s *Server) Close() error {
	s.optimizationsMu.Lock()
	for _, opt := range s.optimizations {
		if opt.CancelFunc != nil {
			opt.CancelFunc()
		}
	}
	s.optimizationsMu.Unlock()

	s.jobs.Wait()
	return nil
}

func (s *Server) describeSpace(req SpaceRequest) (*SpaceInfo, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	sp, err := req.Build(s.cfg)
	if err != nil {
		return nil, err
	}
	info := spaceInfo(sp)
	return &info, nil
}

// EncodeResponse answers /api/v1/encode.
type EncodeResponse struct {
	X       float32 `json:"x"`
	Index   uint32  `json:"index"`
	Binary  string  `json:"binary"`
	Decoded float64 `json:"decoded"`
}

// DecodeResponse answers /api/v1/decode.
type DecodeResponse struct {
	Binary string  `json:"binary"`
	Index  uint32  `json:"index"`
	X      float64 `json:"x"`
}

func (s *Server) encode(req EncodeRequest) (*EncodeResponse, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	sp, err := req.Build(s.cfg)
	if err != nil {
		return nil, err
	}
	i := sp.Encode(*req.X)
	return &EncodeResponse{
		X:       *req.X,
		Index:   uint32(i),
		Binary:  sp.Format(i),
		Decoded: sp.Precision().Round(sp.Decode(i)),
	}, nil
}

func (s *Server) decode(req DecodeRequest) (*DecodeResponse, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	sp, err := req.Build(s.cfg)
	if err != nil {
		return nil, err
	}
	i, err := space.ParseBinary(req.Binary)
	if err != nil {
		return nil, err
	}
	if !sp.Contains(i) {
		return nil, optimization.NewErrorf(optimization.KindInvalidBinary,
			"binary %s is outside the space %s", req.Binary, sp).
			WithComponent("server").WithOperation("decode")
	}
	return &DecodeResponse{
		Binary: sp.Format(i),
		Index:  uint32(i),
		X:      sp.Precision().Round(sp.Decode(i)),
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperrors.StatusCode(err), map[string]interface{}{
		"error": err.Error(),
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(err, fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// handleOptimize handles POST /api/v1/optimize
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.startOptimization(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

// handleStatus handles GET /api/v1/status/{id}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result, err := s.optimizationStatus(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCancel handles DELETE /api/v1/optimization/{id}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.cancelOptimization(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "cancellation requested",
	})
}

func (s *Server) handleSpace(w http.ResponseWriter, r *http.Request) {
	var req SpaceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	info, err := s.describeSpace(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	var req EncodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.encode(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	var req DecodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.decode(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
