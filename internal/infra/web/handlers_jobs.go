package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
	"wildfire-dashboard/internal/infra/logging"
	"wildfire-dashboard/internal/usecase"

	"github.com/go-chi/chi/v5"
)

// jobRequest decodes the kind-specific parameters of a start request. An
// optional session_id query parameter lets a client subscribe before
// starting.
func jobRequest(kind model.JobKind, r *http.Request) (model.JobRequest, error) {
	req := model.JobRequest{Kind: kind, SessionID: r.URL.Query().Get("session_id")}
	var params any
	switch kind {
	case model.JobDownload:
		req.Download = &model.DownloadParams{}
		params = req.Download
	case model.JobConvert:
		req.Convert = &model.ConvertParams{}
		params = req.Convert
	case model.JobRepartition:
		req.Repartition = &model.RepartitionParams{}
		params = req.Repartition
	case model.JobAnalyze:
		req.Analyze = &model.AnalyzeFilters{}
		params = req.Analyze
	case model.JobForecast:
		req.Forecast = &model.ForecastParams{}
		params = req.Forecast
	}
	if params != nil {
		if err := decodeBody(r, params); err != nil {
			return req, err
		}
	}
	return req, nil
}

func (s *Server) startJob(w http.ResponseWriter, r *http.Request, kind model.JobKind) {
	req, err := jobRequest(kind, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.jobs.Start(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "session_id": id})
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	s.startJob(w, r, model.ParseJobKind(chi.URLParam(r, "id")))
}

func (s *Server) handleStartAnalyze(w http.ResponseWriter, r *http.Request) {
	s.startJob(w, r, model.JobAnalyze)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.jobs.Cancel(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "cancellation requested"})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.cancel(w, r, chi.URLParam(r, "id"))
}

func (s *Server) handleStopAnalyze(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.cancel(w, r, body.SessionID)
}

type statusResponse struct {
	SessionID string    `json:"session_id"`
	Progress  int       `json:"progress"`
	Phase     string    `json:"phase"`
	Message   string    `json:"message,omitempty"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	p, err := s.jobs.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		SessionID: p.SessionID,
		Progress:  p.Value,
		Phase:     p.Phase,
		Message:   p.Message,
		Status:    string(p.Status),
		UpdatedAt: p.UpdatedAt,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.jobs.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": runs})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.jobs.Result(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": res.SessionID,
		"kind":       res.Kind,
		"data":       res.Data,
		"stats":      res.Stats,
	})
}

// handleProgress streams progress as server-sent events until the session
// ends or the client goes away.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, errors.New("streaming unsupported"))
		return
	}
	id := chi.URLParam(r, "id")
	ctx := logging.WithSessID(r.Context(), id)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err := s.stream.Subscribe(ctx, id, func(ev usecase.StreamEvent) error {
		b, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, domain.ErrInvalidArgument) {
		logging.With(ctx, s.log).Debug().Err(err).Msg("progress stream ended with error")
	}
}
