package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	appdiag "retail-insight/internal/application/diagnosis"
	"retail-insight/internal/application/reports"
)

type diagnoseRequest struct {
	SessionID string             `json:"session_id"`
	Analyzers []appdiag.Analyzer `json:"analyzers,omitempty"`
	Params    appdiag.RunParams  `json:"params"`
}

func (s *Server) parseDiagnoseRequest(w http.ResponseWriter, r *http.Request) (appdiag.RunInput, bool) {
	var body diagnoseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return appdiag.RunInput{}, false
	}
	if body.SessionID == "" {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "session_id is required")
		return appdiag.RunInput{}, false
	}

	params := body.Params
	// 請求未帶的閾值補上系統預設
	if params.SalesDecline.TopK == 0 {
		params.SalesDecline.TopK = s.cfg.Diagnose.TopK
	}
	if params.SalesDecline.CriticalRevenueLoss == 0 {
		params.SalesDecline.CriticalRevenueLoss = s.cfg.Diagnose.CriticalRevenueLoss
	}
	if params.Threshold.NegativeMarginCriticalLoss == 0 {
		params.Threshold.NegativeMarginCriticalLoss = s.cfg.Diagnose.NegativeMarginCriticalLoss
	}
	if params.Threshold.DeliveryFeeThreshold == 0 {
		params.Threshold.DeliveryFeeThreshold = s.cfg.Diagnose.DeliveryFeeThreshold
	}
	if params.Threshold.TrafficShareMin == 0 {
		params.Threshold.TrafficShareMin = s.cfg.Diagnose.TrafficShareMin
	}
	if params.Threshold.TrafficShareMax == 0 {
		params.Threshold.TrafficShareMax = s.cfg.Diagnose.TrafficShareMax
	}
	if params.Fluctuation.ThresholdPct == 0 {
		params.Fluctuation.ThresholdPct = s.cfg.Diagnose.FluctuationThresholdPct
	}

	return appdiag.RunInput{
		SessionID: body.SessionID,
		Analyzers: body.Analyzers,
		Params:    params,
	}, true
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	input, ok := s.parseDiagnoseRequest(w, r)
	if !ok {
		return
	}

	out, err := s.runUC.Execute(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	if s.alerts != nil && !out.Cached {
		go func(out appdiag.RunOutput) {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := s.alerts.NotifyCritical(ctx, out); err != nil {
				log.Printf("[Alert] notify failed: %v", err)
			}
		}(out)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  out,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	input, ok := s.parseDiagnoseRequest(w, r)
	if !ok {
		return
	}

	out, err := s.runUC.Execute(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	csvBody, err := reports.ExportCSV(out)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errCodeInternal, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="diagnosis.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(csvBody))
}
