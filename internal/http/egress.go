package httpapi

import (
	"log/slog"
	"net/http"

	"daycare-backend-go/internal/report"
	"daycare-backend-go/internal/services"
)

type EgressResponse struct {
	Items []services.EgressView `json:"items"`
}

func (s *Server) DepartChild(w http.ResponseWriter, r *http.Request) {
	var req services.DepartureInput
	if !decodeJSON(w, r, &req) {
		return
	}
	record, err := services.DepartChild(r.Context(), s.Store, s.Config.MediaStoragePath, req, s.today())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.Metrics.Egress.Inc()
	slog.Info("child departed", "by", CurrentSession(r).Username, "childId", req.ChildID, "egressId", record.ID)
	WriteJSON(w, http.StatusCreated, record)
}

// ListEgress answers with JSON, or with a file when format is given. Repeated
// name parameters restrict the result to those children.
func (s *Server) ListEgress(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var format report.Format
	if raw := query.Get("format"); raw != "" {
		parsed, err := report.ParseFormat(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid format")
			return
		}
		format = parsed
	}
	q := services.EgressQuery{From: query.Get("from"), To: query.Get("to"), Names: query["name"]}
	items, err := services.ListEgress(r.Context(), s.Store, q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if format == "" {
		WriteJSON(w, http.StatusOK, EgressResponse{Items: items})
		return
	}
	if len(items) == 0 {
		WriteError(w, http.StatusNotFound, noRecordsMessage)
		return
	}
	fromDate, _ := services.ParseDate(q.From)
	toDate, _ := services.ParseDate(q.To)
	from, to := fromDate.Format(services.DateLayout), toDate.Format(services.DateLayout)
	filename := "reporte_egresos_" + compactDate(from) + "_" + compactDate(to) + "." + format.Extension()
	s.sendReport(w, r, services.EgressRecords(items), services.EgressReportColumns, format, services.EgressTitle(from, to), filename)
}
