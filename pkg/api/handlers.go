package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethpandaops/runcenter/pkg/api/storage"
	"github.com/ethpandaops/runcenter/pkg/api/store"
	"github.com/go-chi/chi/v5"
)

const (
	msgRunNotFound    = "Run not found"
	msgReportNotFound = "Report not found"
	msgInvalidDate    = "Invalid date format, use YYYY-MM-DD"
)

// envelope wraps every JSON response.
type envelope struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// runResponse is the wire form of a run.
type runResponse struct {
	RunID      string     `json:"run_id"`
	DT         string     `json:"dt"`
	Status     string     `json:"status"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Message    *string    `json:"message"`
}

type runListResponse struct {
	Items    []runResponse `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

type healthResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// writeData writes a success envelope.
func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: data})
}

// writeError writes a failure envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{OK: false, Message: message})
}

func toRunResponse(run *store.Run) runResponse {
	return runResponse{
		RunID:      run.RunID,
		DT:         run.DT,
		Status:     run.Status,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Message:    run.Message,
	}
}

// handleHealth reports the service name, version and current time.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeData(w, healthResponse{
		Service: ServiceName,
		Version: s.cfg.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListRuns returns one page of runs.
func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := s.parsePagination(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())

		return
	}

	runs, total, err := s.store.ListRuns(r.Context(), page, pageSize)
	if err != nil {
		s.log.WithError(err).Error("Failed to list runs")
		writeError(w, http.StatusInternalServerError, "Failed to list runs")

		return
	}

	items := make([]runResponse, 0, len(runs))
	for i := range runs {
		items = append(items, toRunResponse(&runs[i]))
	}

	writeData(w, runListResponse{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// handleGetRun returns a single run by run_id.
func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "run_id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgRunNotFound)

			return
		}

		s.log.WithError(err).Error("Failed to get run")
		writeError(w, http.StatusInternalServerError, "Failed to get run")

		return
	}

	writeData(w, toRunResponse(run))
}

// handleDownloadReport streams the daily report for ?dt= as an attachment,
// or redirects to a presigned URL when those are enabled.
func (s *server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	dt := r.URL.Query().Get("dt")
	if err := storage.ValidateDT(dt); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidDate)

		return
	}

	body, obj, err := s.reports.OpenDailyReport(r.Context(), dt)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgReportNotFound)

			return
		}

		s.log.WithError(err).WithField("dt", dt).Error("Failed to open report")
		writeError(w, http.StatusInternalServerError, "Failed to open report")

		return
	}
	defer func() { _ = body.Close() }()

	filename := storage.DailyReportFilename(dt)

	if s.presigner != nil {
		url, err := s.presigner.GeneratePresignedURL(r.Context(), obj.Key, filename)
		if err == nil {
			http.Redirect(w, r, url, http.StatusFound)

			return
		}

		s.log.WithError(err).WithField("dt", dt).
			Warn("Failed to presign report, streaming instead")
	}

	w.Header().Set("Content-Type", storage.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	if rs, ok := body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, filename, obj.ModifiedAt, rs)

		return
	}

	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}

	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		s.log.WithError(err).WithField("dt", dt).Warn("Report stream interrupted")
	}
}

type reportResponse struct {
	DT         string    `json:"dt"`
	Key        string    `json:"key"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

type reportListResponse struct {
	Items    []reportResponse `json:"items"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// handleListReports returns one page of indexed daily reports.
func (s *server) handleListReports(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := s.parsePagination(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())

		return
	}

	reports, total, err := s.indexStore.ListReports(r.Context(), page, pageSize)
	if err != nil {
		s.log.WithError(err).Error("Failed to list reports")
		writeError(w, http.StatusInternalServerError, "Failed to list reports")

		return
	}

	items := make([]reportResponse, 0, len(reports))
	for _, rep := range reports {
		items = append(items, reportResponse{
			DT:         rep.DT,
			Key:        rep.Key,
			Size:       rep.Size,
			ModifiedAt: rep.ModifiedAt,
		})
	}

	writeData(w, reportListResponse{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// parsePagination reads ?page and ?page_size, applying defaults when absent.
func (s *server) parsePagination(r *http.Request) (int, int, error) {
	page := 1
	pageSize := s.cfg.Pagination.DefaultPageSize

	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return 0, 0, fmt.Errorf("page must be an integer >= 1")
		}

		page = v
	}

	if raw := q.Get("page_size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > s.cfg.Pagination.MaxPageSize {
			return 0, 0, fmt.Errorf(
				"page_size must be an integer between 1 and %d",
				s.cfg.Pagination.MaxPageSize,
			)
		}

		pageSize = v
	}

	return page, pageSize, nil
}
