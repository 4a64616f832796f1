package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"retail-insight/internal/application/dataset"
	appdiag "retail-insight/internal/application/diagnosis"
	"retail-insight/internal/domain/diagnosis"
)

type datasetLoadRequest struct {
	Records    []dataset.Record   `json:"records,omitempty"`
	From       string             `json:"from,omitempty"`
	To         string             `json:"to,omitempty"`
	Exclusions dataset.Exclusions `json:"exclusions,omitempty"`
}

func (s *Server) handleDatasetLoad(w http.ResponseWriter, r *http.Request) {
	var body datasetLoadRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}

	input := dataset.LoadInput{
		Records:    body.Records,
		Exclusions: body.Exclusions,
	}
	if body.From != "" {
		t, err := time.Parse("2006-01-02", body.From)
		if err != nil {
			writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid from date")
			return
		}
		input.From = t
	}
	if body.To != "" {
		t, err := time.Parse("2006-01-02", body.To)
		if err != nil {
			writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid to date")
			return
		}
		input.To = t
	}

	res, err := s.loadUC.Execute(r.Context(), input)
	if err != nil {
		var schemaErr *dataset.SchemaError
		if errors.As(err, &schemaErr) {
			writeError(w, http.StatusBadRequest, errCodeSchema, schemaErr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, errCodeInternal, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"session_id":  res.SessionID,
		"fingerprint": res.Fingerprint,
		"line_count":  res.LineCount,
		"order_count": res.OrderCount,
		"from":        res.From.Format("2006-01-02"),
		"to":          res.To.Format("2006-01-02"),
	})
}

func (s *Server) handleDatasetPeriods(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "session_id is required")
		return
	}

	g := diagnosis.Granularity(r.URL.Query().Get("granularity"))
	if g == "" {
		g = diagnosis.GranularityDay
	}
	if g != diagnosis.GranularityDay && g != diagnosis.GranularityWeek {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "granularity must be day or week")
		return
	}

	sess, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, errCodeNotFound, err.Error())
		return
	}

	periods := appdiag.ResolvePeriods(sess.Orders, g)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"periods": periods,
	})
}
