package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"daycare-backend-go/internal/report"
	"daycare-backend-go/internal/services"
)

type MarkAttendanceRequest struct {
	ChildID int64  `json:"childId"`
	Date    string `json:"date"`
	Present bool   `json:"present"`
}

func (s *Server) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req MarkAttendanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	row, err := services.MarkAttendance(r.Context(), s.Store, req.ChildID, req.Date, req.Present)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.Metrics.AttendanceMarked.Inc()
	WriteJSON(w, http.StatusOK, services.AttendanceStatus{ChildID: row.ChildID, Date: row.Date, Present: row.Present, Marked: true})
}

func (s *Server) AttendanceStatus(w http.ResponseWriter, r *http.Request) {
	childID, err := strconv.ParseInt(r.URL.Query().Get("childId"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid child id")
		return
	}
	status, err := services.GetAttendanceStatus(r.Context(), s.Store, childID, r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

func (s *Server) DedupAttendance(w http.ResponseWriter, r *http.Request) {
	removed, err := services.DedupAttendance(r.Context(), s.Store)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	slog.Info("attendance dedup", "by", CurrentSession(r).Username, "removed", removed)
	WriteJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

// AttendanceReport answers with JSON, or with a file when format is given.
func (s *Server) AttendanceReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	childIDs, ok := queryIDs(r, "childId")
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid child id")
		return
	}
	var format report.Format
	if raw := query.Get("format"); raw != "" {
		parsed, err := report.ParseFormat(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid format")
			return
		}
		format = parsed
	}
	result, err := services.BuildAttendanceReport(r.Context(), s.Store, services.AttendanceQuery{
		From:     query.Get("from"),
		To:       query.Get("to"),
		ChildIDs: childIDs,
	}, s.today())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if format == "" {
		WriteJSON(w, http.StatusOK, result)
		return
	}
	if len(result.Rows) == 0 {
		WriteError(w, http.StatusNotFound, noRecordsMessage)
		return
	}
	filename := "reporte_asistencias_" + compactDate(result.From) + "_" + compactDate(result.To) + "." + format.Extension()
	s.sendReport(w, r, result.Records(), services.AttendanceReportColumns, format, result.Title(), filename)
}

func (s *Server) AttendanceCalendar(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	childID, err := strconv.ParseInt(query.Get("childId"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid child id")
		return
	}
	now := s.Now()
	year := parseInt(query.Get("year"), now.Year())
	month := parseInt(query.Get("month"), int(now.Month()))
	days, err := services.AttendanceCalendar(r.Context(), s.Store, childID, year, time.Month(month))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"year": year, "month": month, "days": days})
}

func compactDate(iso string) string {
	return strings.ReplaceAll(iso, "-", "")
}
