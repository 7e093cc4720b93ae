package web

import (
	"net/http"

	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/usecase"
)

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	year := r.URL.Query().Get("year")
	if year == "" {
		s.writeError(w, r, domain.ErrInvalidArgument)
		return
	}
	countries, err := s.dataset.Countries(r.Context(), year)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "countries": countries})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := s.dataset.Data(r.Context(), q.Get("year"), q.Get("country"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	var q usecase.DetailQuery
	if err := decodeBody(r, &q); err != nil {
		s.writeError(w, r, err)
		return
	}
	rows, err := s.dataset.Detail(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleCheckData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dataset.CheckData(r.Context()))
}

func (s *Server) handleGetDataSetup(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"data_setup": s.dataset.DataSetup()})
}

func (s *Server) handleSetDataSetup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DataSetup *bool `json:"data_setup"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.DataSetup == nil {
		s.writeError(w, r, domain.ErrInvalidArgument)
		return
	}
	s.dataset.SetDataSetup(*body.DataSetup)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data_setup": *body.DataSetup})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req usecase.PredictRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.predict.Predict(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
