package httpapi

import (
	"errors"
	"net/http"
	"os"

	"daycare-backend-go/internal/report"
	"daycare-backend-go/internal/services"
)

type ChildrenResponse struct {
	Items []services.ChildView `json:"items"`
}

func (s *Server) ListChildren(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := services.ChildFilter{
		Name:       query.Get("name"),
		NationalID: query.Get("nationalId"),
		Group:      query.Get("group"),
		Program:    query.Get("program"),
	}
	items, err := services.ListChildren(r.Context(), s.Store, filter, s.today())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ChildrenResponse{Items: items})
}

func (s *Server) CreateChild(w http.ResponseWriter, r *http.Request) {
	var req services.ChildInput
	if !decodeJSON(w, r, &req) {
		return
	}
	child, err := services.CreateChild(r.Context(), s.Store, req, s.today())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.Metrics.ChildrenEnrolled.Inc()
	WriteJSON(w, http.StatusCreated, child)
}

func (s *Server) UpdateChild(w http.ResponseWriter, r *http.Request) {
	childID, ok := pathID(r, "childId")
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid child id")
		return
	}
	var req services.ChildInput
	if !decodeJSON(w, r, &req) {
		return
	}
	child, err := services.UpdateChild(r.Context(), s.Store, childID, req, s.today())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, child)
}

func (s *Server) ChildDetail(w http.ResponseWriter, r *http.Request) {
	childID, ok := pathID(r, "childId")
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid child id")
		return
	}
	detail, err := services.GetChildDetail(r.Context(), s.Store, childID, s.today())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, detail)
}

// ChildrenReport builds the custom roster export.
func (s *Server) ChildrenReport(w http.ResponseWriter, r *http.Request) {
	var req services.ChildReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	format, err := report.ParseFormat(req.Format)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid format")
		return
	}
	rows, err := services.BuildChildReport(r.Context(), s.Store, req, s.today())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if len(rows) == 0 {
		WriteError(w, http.StatusNotFound, noRecordsMessage)
		return
	}
	s.sendReport(w, r, rows, req.Columns, format, "Reporte de Niños", report.Filename("Reporte_Ninos", format, s.Now()))
}

func (s *Server) sendReport(w http.ResponseWriter, r *http.Request, rows [][]any, columns []string, format report.Format, title, filename string) {
	data, err := report.Generate(rows, columns, format, title)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.Metrics.ReportsGenerated.WithLabelValues(string(format)).Inc()
	writeFile(w, filename, format, data)
}

func (s *Server) UploadChildPhoto(w http.ResponseWriter, r *http.Request) {
	childID, ok := pathID(r, "childId")
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid child id")
		return
	}
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		WriteError(w, http.StatusBadRequest, "Empty file")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Empty file")
		return
	}
	defer file.Close()
	key, err := services.SaveChildPhoto(r.Context(), s.Store, s.Config.MediaStoragePath, childID, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"photo": key})
}

func (s *Server) ChildPhoto(w http.ResponseWriter, r *http.Request) {
	childID, ok := pathID(r, "childId")
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid child id")
		return
	}
	path, err := services.ChildPhotoPath(r.Context(), s.Store, s.Config.MediaStoragePath, childID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		WriteError(w, http.StatusNotFound, "Photo not found")
		return
	}
	http.ServeFile(w, r, path)
}
