package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"daycare-backend-go/internal/db"
	"daycare-backend-go/internal/report"
	"daycare-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

type ErrorResponse struct {
	Message    string               `json:"message"`
	Violations []services.Violation `json:"violations,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

// writeServiceError maps domain and storage errors to a response. Storage and
// unexpected errors are logged and reported generically.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Violations: verr.Violations})
		return
	}
	var serr services.ServiceError
	if errors.As(err, &serr) {
		WriteError(w, serr.Status, serr.Message)
		return
	}
	var rerr *report.Error
	if errors.As(err, &rerr) {
		slog.Error("report generation failed", "path", r.URL.Path, "err", err)
		WriteError(w, http.StatusInternalServerError, "Report could not be generated")
		return
	}
	var stErr *db.StorageError
	if errors.As(err, &stErr) {
		slog.Error("storage error", "path", r.URL.Path, "op", stErr.Op, "err", stErr.Message)
		WriteError(w, http.StatusInternalServerError, "Storage error")
		return
	}
	slog.Error("request failed", "path", r.URL.Path, "err", err)
	WriteError(w, http.StatusInternalServerError, "Internal server error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return false
	}
	return true
}

func writeFile(w http.ResponseWriter, filename string, format report.Format, data []byte) {
	w.Header().Set("Content-Type", report.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func pathID(r *http.Request, name string) (int64, bool) {
	value, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || value < 1 {
		return 0, false
	}
	return value, true
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// queryIDs reads repeated or comma separated integer parameters.
func queryIDs(r *http.Request, name string) ([]int64, bool) {
	ids := []int64{}
	for _, raw := range queryList(r, name) {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false
		}
		ids = append(ids, value)
	}
	return ids, true
}

func queryList(r *http.Request, name string) []string {
	out := []string{}
	for _, raw := range r.URL.Query()[name] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

const noRecordsMessage = "No records match the selected filters"
