package main

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/mathcheck/internal/config"
	"github.com/sells-group/mathcheck/internal/errs"
	"github.com/sells-group/mathcheck/internal/model"
	"github.com/sells-group/mathcheck/internal/pipeline"
)

type server struct {
	pipeline  *pipeline.Pipeline
	maxUpload int64
}

// newRouter builds the HTTP surface over the pipeline.
func newRouter(p *pipeline.Pipeline, cfg config.ServerConfig) http.Handler {
	s := &server{pipeline: p, maxUpload: cfg.MaxUploadBytes}
	if s.maxUpload <= 0 {
		s.maxUpload = 10 << 20
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/equations", s.handleIngest)
		r.Get("/equations/{id}", s.handleGetEquation)
		r.Post("/equations/{id}/correct", s.handleCorrect)
		r.Post("/equations/{id}/solutions", s.handleSolve)
		r.Get("/solutions/{id}", s.handleGetSolution)
		r.Post("/corrections", s.handleRecordCorrection)
	})

	return r
}

type equationResponse struct {
	EquationID   string    `json:"equation_id"`
	Formula      string    `json:"formula"`
	Rendered     string    `json:"rendered"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

func (s *server) equationResponse(r *http.Request, eq *model.Equation) equationResponse {
	status, err := s.pipeline.Status(r.Context(), eq)
	if err != nil {
		// The record itself resolved; report it with a best-effort status.
		zap.L().Warn("status lookup failed", zap.String("equation_id", eq.ID), zap.Error(err))
		status = eq.Status(false)
	}
	return equationResponse{
		EquationID:   eq.ID,
		Formula:      eq.Formula,
		Rendered:     eq.Rendered,
		Status:       string(status),
		CreatedAt:    eq.CreatedAt,
		LastModified: eq.LastModified,
	}
}

type solutionResponse struct {
	SolutionID  string    `json:"solution_id"`
	EquationID  string    `json:"equation_id"`
	Solution    string    `json:"solution"`
	IsCorrect   bool      `json:"is_correct"`
	Explanation string    `json:"explanation"`
	Steps       []string  `json:"steps"`
	CreatedAt   time.Time `json:"created_at"`
}

func toSolutionResponse(sol *model.Solution) solutionResponse {
	resp := solutionResponse{
		SolutionID: sol.ID,
		EquationID: sol.EquationID,
		Solution:   sol.Solution,
		CreatedAt:  sol.CreatedAt,
	}
	if sol.Verdict != nil {
		resp.IsCorrect = sol.Verdict.IsCorrect
		resp.Explanation = sol.Verdict.Explanation
		resp.Steps = sol.Verdict.Steps
	}
	return resp
}

// handleIngest accepts the image either as a multipart "image" part or as the
// raw request body.
func (s *server) handleIngest(w http.ResponseWriter, r *http.Request) {
	image, err := s.readImage(r)
	if err != nil {
		writeError(w, err)
		return
	}

	eq, err := s.pipeline.Ingest(r.Context(), image)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.equationResponse(r, eq))
}

func (s *server) readImage(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, s.maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		if err := r.ParseMultipartForm(s.maxUpload); err != nil {
			return nil, errs.NewValidation("image", "malformed multipart body")
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, errs.NewValidation("image", "multipart part \"image\" is required")
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, errs.NewValidation("image", "unreadable multipart part")
		}
		return data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errs.NewValidation("image", "payload exceeds upload limit or is unreadable")
	}
	return data, nil
}

func (s *server) handleGetEquation(w http.ResponseWriter, r *http.Request) {
	eq, err := s.pipeline.Equation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.equationResponse(r, eq))
}

func (s *server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CorrectedFormula string `json:"corrected_formula"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.NewValidation("body", "invalid JSON"))
		return
	}

	eq, err := s.pipeline.Correct(r.Context(), chi.URLParam(r, "id"), req.CorrectedFormula)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.equationResponse(r, eq))
}

func (s *server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Solution string `json:"solution"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.NewValidation("body", "invalid JSON"))
		return
	}

	sol, err := s.pipeline.Solve(r.Context(), chi.URLParam(r, "id"), req.Solution)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSolutionResponse(sol))
}

func (s *server) handleGetSolution(w http.ResponseWriter, r *http.Request) {
	sol, err := s.pipeline.Solution(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSolutionResponse(sol))
}

func (s *server) handleRecordCorrection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EquationID       string `json:"equation_id"`
		OriginalFormula  string `json:"original_formula"`
		CorrectedFormula string `json:"corrected_formula"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.NewValidation("body", "invalid JSON"))
		return
	}

	if err := s.pipeline.RecordCorrection(r.Context(), req.EquationID, req.OriginalFormula, req.CorrectedFormula); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the error taxonomy onto HTTP statuses. Validation and
// not-found errors carry their specific message; anything else is a
// server-side failure reported generically.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errs.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errs.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal storage failure, please try again",
		})
	}
}
