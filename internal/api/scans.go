package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

const maxScanTargets = 500

type startScanRequest struct {
	MunicipalityCode string `json:"municipality_code"`
	MaxCompanies     *int   `json:"max_companies"`
	Sequential       bool   `json:"sequential"`
}

type scanStatusResponse struct {
	Status      scanner.SessionStatus `json:"status"`
	Progress    int                   `json:"progress"`
	Message     string                `json:"message"`
	ResultCount int                   `json:"result_count"`
}

type resultView struct {
	ID string `json:"id"`
	scanner.AnalyzedTarget
}

type scanResultsResponse struct {
	Status  scanner.SessionStatus `json:"status"`
	Results []resultView          `json:"results"`
}

func (s *Server) listMunicipalities(w http.ResponseWriter, _ *http.Request) {
	if s.catalog == nil {
		writeJSON(w, http.StatusOK, []scanner.Municipality{})
		return
	}
	writeJSON(w, http.StatusOK, s.catalog.Municipalities())
}

func (s *Server) startScan(w http.ResponseWriter, r *http.Request) {
	var req startScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	query, err := s.toQuery(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	scanID, err := s.enqueueScan(r.Context(), query)
	if err != nil {
		s.logger.Error("start scan failed", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, scanner.ErrQueueClosed) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, "could not start scan")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"scan_id": scanID})
}

func (s *Server) toQuery(req startScanRequest) (scanner.Query, error) {
	maxTargets := s.cfg.Scan.MaxTargets
	if req.MaxCompanies != nil {
		maxTargets = *req.MaxCompanies
	}
	if maxTargets <= 0 || maxTargets > maxScanTargets {
		return scanner.Query{}, fmt.Errorf("max_companies must be between 1 and %d", maxScanTargets)
	}
	code := strings.TrimSpace(req.MunicipalityCode)
	for _, c := range code {
		if c < '0' || c > '9' {
			return scanner.Query{}, errors.New("municipality_code must be numeric")
		}
	}
	return scanner.Query{
		MunicipalityCode: code,
		IndustryCode:     s.cfg.Registry.IndustryCode,
		MaxTargets:       maxTargets,
		Sequential:       req.Sequential,
	}, nil
}

func (s *Server) enqueueScan(ctx context.Context, query scanner.Query) (string, error) {
	scanID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate scan id: %w", err)
	}
	now := s.clock.Now()
	session := scanner.Session{
		ID:        scanID,
		Status:    scanner.SessionPending,
		Message:   "Starting scan...",
		Query:     query,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, s.enqueueT)
	defer cancel()
	req := scanner.ScanRequest{SessionID: scanID, Query: query, Submitted: now}
	if err := s.queue.Enqueue(queueCtx, req); err != nil {
		finishErr := s.store.FinishSession(context.WithoutCancel(ctx), scanID, scanner.SessionError,
			"Error: scan queue unavailable", nil)
		return "", errors.Join(fmt.Errorf("enqueue scan: %w", err), finishErr)
	}
	s.logger.Info("scan queued",
		zap.String("scan_id", scanID),
		zap.String("municipality_code", query.MunicipalityCode),
		zap.Int("max_companies", query.MaxTargets),
	)
	return scanID, nil
}

func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (scanner.Session, bool) {
	scanID := chi.URLParam(r, "scan_id")
	session, err := s.store.GetSession(r.Context(), scanID)
	if errors.Is(err, scanner.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "Scan not found")
		return scanner.Session{}, false
	}
	if err != nil {
		s.logger.Error("load session failed", zap.String("scan_id", scanID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load scan")
		return scanner.Session{}, false
	}
	return session, true
}

func (s *Server) getScanStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, scanStatusResponse{
		Status:      session.Status,
		Progress:    session.Progress,
		Message:     session.Message,
		ResultCount: len(session.Results),
	})
}

func (s *Server) getScanResults(w http.ResponseWriter, r *http.Request) {
	session, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	views := make([]resultView, 0, len(session.Results))
	for _, res := range session.Results {
		views = append(views, resultView{ID: res.OrgNumber, AnalyzedTarget: res})
	}
	writeJSON(w, http.StatusOK, scanResultsResponse{Status: session.Status, Results: views})
}
