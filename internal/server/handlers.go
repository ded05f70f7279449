package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/yubal/internal/models"
	"github.com/desertthunder/yubal/internal/shared"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type createJobRequest struct {
	URL         string `json:"url"`
	AudioFormat string `json:"audio_format,omitempty"`
	MaxItems    int    `json:"max_items,omitempty"`
}

type jobListResponse struct {
	Jobs []models.Job      `json:"jobs"`
	Logs []models.LogEntry `json:"logs"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "timestamp": time.Now().Format(time.RFC3339)})
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, fmt.Errorf("%w: invalid request body: %v", shared.ErrInvalidInput, err))
		return
	}

	job, err := s.jobs.Create(req.URL, models.JobOptions{AudioFormat: req.AudioFormat, MaxItems: req.MaxItems})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": job.ID, "message": "Job created"})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, logs := s.jobs.List()
	s.respondJSON(w, http.StatusOK, jobListResponse{Jobs: jobs, Logs: logs})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, job)
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.Cancel(chi.URLParam(r, "id")); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Job cancelled"})
}

func (s *Server) clearJobs(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]int{"cleared": s.jobs.ClearFinished()})
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.Delete(chi.URLParam(r, "id")); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) jobCover(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	if job.AlbumInfo == nil || job.AlbumInfo.ThumbnailURL == "" || s.covers == nil {
		s.respondJSON(w, http.StatusNotFound, errorResponse{Error: "no cover for job"})
		return
	}

	data, err := s.covers.Get(r.Context(), job.AlbumInfo.ThumbnailURL)
	if err != nil {
		s.logger.Warn("cover fetch failed", "job", job.ID, "err", err)
		s.respondJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrJobConflict), errors.Is(err, shared.ErrQueueFull):
		return http.StatusConflict
	case errors.Is(err, shared.ErrInvalidURL), errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.respondJSON(w, code, errorResponse{Error: err.Error()})
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode json", "err", err)
	}
}
