package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/ats-optimizer/internal/db"
	"github.com/jonathan/ats-optimizer/internal/pipeline"
)

// RunRequest is the request body for /run and /run/stream. It mirrors the
// CLI arguments: a job source (URL, file path, or raw posting text) and the
// path to the LaTeX resume.
type RunRequest struct {
	JobSource string `json:"job_source"`
	Resume    string `json:"resume"`
}

// RunResponse is the response for /run.
type RunResponse struct {
	Status string `json:"status"`
}

// RunSummary is one entry in the /runs listing.
type RunSummary struct {
	RunID      string   `json:"run_id"`
	Company    string   `json:"company"`
	RoleTitle  string   `json:"role_title"`
	MatchScore *float64 `json:"match_score,omitempty"`
	Status     string   `json:"status"`
	CreatedAt  string   `json:"created_at"`
}

func (s *Server) validateRunRequest(w http.ResponseWriter, r *http.Request) (*RunRequest, bool) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	if req.JobSource == "" {
		s.errorResponse(w, http.StatusBadRequest, "job_source is required")
		return nil, false
	}
	if req.Resume == "" {
		s.errorResponse(w, http.StatusBadRequest, "resume is required")
		return nil, false
	}
	return &req, true
}

// handleRun starts an optimization run in the background. The run appears
// in /runs once the pipeline has parsed the posting and created its record.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req, ok := s.validateRunRequest(w, r)
	if !ok {
		return
	}

	s.log.Info("starting background run", zap.String("resume", req.Resume))

	go func() {
		ctx := context.Background()
		if _, err := s.run(ctx, req.JobSource, req.Resume, nil); err != nil {
			s.log.Error("background run failed", zap.Error(err))
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, RunResponse{Status: "started"})
}

// handleRunStream runs the pipeline synchronously, streaming progress as
// Server-Sent Events and finishing with a complete event.
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.validateRunRequest(w, r)
	if !ok {
		return
	}

	stream, err := newEventStream(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := s.run(r.Context(), req.JobSource, req.Resume, func(event pipeline.ProgressEvent) {
		if werr := stream.send("step", event); werr != nil {
			s.log.Warn("failed to write progress event", zap.Error(werr))
		}
	})
	if err != nil {
		s.log.Error("streaming run failed", zap.Error(err))
		stream.fail(err.Error())
		return
	}

	runID := ""
	if result.RunID != uuid.Nil {
		runID = result.RunID.String()
	}
	stream.complete(runID, db.StatusCompleted)
}

// handleListRuns returns recent runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}

	runs, err := s.db.ListRuns(r.Context(), 50)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, RunSummary{
			RunID:      run.ID.String(),
			Company:    run.Company,
			RoleTitle:  run.RoleTitle,
			MatchScore: run.MatchScore,
			Status:     run.Status,
			CreatedAt:  run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	s.jsonResponse(w, http.StatusOK, summaries)
}

// handleGetRun returns the status of a single run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runIDFromPath(w, r)
	if !ok {
		return
	}

	run, err := s.db.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, "Run not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, run)
}

// handleRunAnalysis returns the stored analysis result for a run.
func (s *Server) handleRunAnalysis(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runIDFromPath(w, r)
	if !ok {
		return
	}

	content, err := s.db.GetArtifact(r.Context(), runID, db.StepAnalysisResult)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if content == nil {
		s.errorResponse(w, http.StatusNotFound, "Analysis not found for run")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		s.log.Warn("failed to write analysis response", zap.Error(err))
	}
}

// handleRunResumeTex serves the optimized resume as a file download.
func (s *Server) handleRunResumeTex(w http.ResponseWriter, r *http.Request) {
	s.serveTextArtifact(w, r, db.StepResumeTex, "application/x-tex", "optimized_resume.tex")
}

// handleRunCoverLetter serves the generated cover letter.
func (s *Server) handleRunCoverLetter(w http.ResponseWriter, r *http.Request) {
	s.serveTextArtifact(w, r, db.StepCoverLetter, "text/plain; charset=utf-8", "cover_letter.txt")
}

func (s *Server) serveTextArtifact(w http.ResponseWriter, r *http.Request, step, contentType, filename string) {
	runID, ok := s.runIDFromPath(w, r)
	if !ok {
		return
	}

	text, err := s.db.GetTextArtifact(r.Context(), runID, step)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if text == "" {
		s.errorResponse(w, http.StatusNotFound, "Artifact not found for run")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		s.log.Warn("failed to write artifact response", zap.Error(err))
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// runIDFromPath parses the {id} path value, handling the missing-DB and
// bad-UUID cases.
func (s *Server) runIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if !s.requireDB(w) {
		return uuid.Nil, false
	}

	idStr := r.PathValue("id")
	runID, err := uuid.Parse(idStr)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run ID format")
		return uuid.Nil, false
	}
	return runID, true
}

func (s *Server) requireDB(w http.ResponseWriter) bool {
	if s.db == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Run history requires a database; set DATABASE_URL")
		return false
	}
	return true
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("failed to encode response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
