package web

import (
	"net/http"

	"wildfire-dashboard/internal/config"
	"wildfire-dashboard/internal/infra/api"
	"wildfire-dashboard/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server exposes the dashboard API.
type Server struct {
	jobs    usecase.JobUseCase
	stream  usecase.ProgressStreamer
	dataset usecase.DatasetUseCase
	predict usecase.PredictUseCase
	cfg     config.HTTPConfig
	log     *zerolog.Logger
}

func NewServer(
	jobs usecase.JobUseCase,
	stream usecase.ProgressStreamer,
	dataset usecase.DatasetUseCase,
	predict usecase.PredictUseCase,
	cfg config.HTTPConfig,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		jobs:    jobs,
		stream:  stream,
		dataset: dataset,
		predict: predict,
		cfg:     cfg,
		log:     logger,
	}
}

// Routes builds the router. Progress streams sit outside the request timeout.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(api.TraceID(), api.RequestLog(s.log), api.Recover(s.log), api.CORS(s.cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/progress/{id}", s.handleProgress)

	r.Group(func(r chi.Router) {
		r.Use(api.Timeout(s.cfg.RequestTimeout))

		r.Get("/api/countries", s.handleCountries)
		r.Get("/api/data", s.handleData)
		r.Post("/api/detail", s.handleDetail)
		r.Get("/api/check_data", s.handleCheckData)
		r.Get("/api/data_setup", s.handleGetDataSetup)
		r.Post("/api/set_data_setup", s.handleSetDataSetup)

		r.Get("/api/jobs", s.handleHistory)
		// on POST the segment names the job kind
		r.Post("/api/jobs/{id}", s.handleStartJob)
		r.Get("/api/jobs/{id}", s.handleJobStatus)
		r.Post("/api/jobs/{id}/cancel", s.handleCancel)
		r.Post("/api/analyze", s.handleStartAnalyze)
		r.Post("/api/analyze/stop", s.handleStopAnalyze)
		r.Get("/api/results/{id}", s.handleResult)
		r.Get("/api/analysis_results/{id}", s.handleResult)

		r.Post("/api/predict", s.handlePredict)
	})
	return r
}
