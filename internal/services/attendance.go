package services

import (
	"context"
	"math"
	"strings"
	"time"

	"daycare-backend-go/internal/db"
	"daycare-backend-go/internal/models"
)

const (
	StatusPresent  = "present"
	StatusAbsent   = "absent"
	StatusUnmarked = "unmarked"
)

var attendanceFilterColumns = map[string]bool{
	"a.date":     true,
	"a.child_id": true,
}

func parseDateField(field, raw string) (string, error) {
	parsed, err := ParseDate(raw)
	if err != nil {
		return "", &ValidationError{Violations: []Violation{{Field: field, Message: "Fecha inválida"}}}
	}
	return parsed.Format(DateLayout), nil
}

// MarkAttendance records presence for a child on a date. Marking the same
// pair again overwrites the flag; the (child_id, date) index keeps one row.
func MarkAttendance(ctx context.Context, store *db.Store, childID int64, rawDate string, present bool) (models.Attendance, error) {
	day, err := parseDateField("date", rawDate)
	if err != nil {
		return models.Attendance{}, err
	}
	if _, err := getChildRow(ctx, store, childID); err != nil {
		return models.Attendance{}, err
	}
	var row models.Attendance
	err = store.WithTx(ctx, func(tx *db.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO attendance (child_id, date, present) VALUES (?, ?, ?)
ON CONFLICT (child_id, date) DO UPDATE SET present = excluded.present`, childID, day, present); err != nil {
			return err
		}
		return tx.Get(ctx, &row, `SELECT id, child_id, date, present FROM attendance WHERE child_id = ? AND date = ?`, childID, day)
	})
	return row, err
}

type AttendanceStatus struct {
	ChildID int64  `json:"childId"`
	Date    string `json:"date"`
	Present bool   `json:"present"`
	Marked  bool   `json:"marked"`
}

// GetAttendanceStatus reports the stored mark. Unmarked days read as present,
// which is what the entry form preselects.
func GetAttendanceStatus(ctx context.Context, q db.Querier, childID int64, rawDate string) (AttendanceStatus, error) {
	day, err := parseDateField("date", rawDate)
	if err != nil {
		return AttendanceStatus{}, err
	}
	status := AttendanceStatus{ChildID: childID, Date: day, Present: true}
	rows := []bool{}
	if err := q.Select(ctx, &rows, `SELECT present FROM attendance WHERE child_id = ? AND date = ? ORDER BY id LIMIT 1`, childID, day); err != nil {
		return AttendanceStatus{}, err
	}
	if len(rows) > 0 {
		status.Present = rows[0]
		status.Marked = true
	}
	return status, nil
}

// DedupAttendance collapses duplicate (child_id, date) rows, keeping the
// lowest id of each group. It returns the number of rows removed.
func DedupAttendance(ctx context.Context, store *db.Store) (int64, error) {
	res, err := store.Exec(ctx, `
DELETE FROM attendance
WHERE id NOT IN (
  SELECT MIN(id) FROM attendance GROUP BY child_id, date
)`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type AttendanceQuery struct {
	From     string
	To       string
	ChildIDs []int64
}

type AttendanceReportRow struct {
	ChildID int64  `db:"child_id" json:"childId"`
	Name    string `db:"full_name" json:"name"`
	Group   string `db:"group_name" json:"group"`
	Date    string `db:"date" json:"date"`
	Present bool   `db:"present" json:"present"`
}

type AttendanceSummary struct {
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	PresentPct float64 `json:"presentPct"`
	AbsentPct  float64 `json:"absentPct"`
}

type AttendanceReport struct {
	From    string                `json:"from"`
	To      string                `json:"to"`
	Rows    []AttendanceReportRow `json:"rows"`
	Summary AttendanceSummary     `json:"summary"`
}

var AttendanceReportColumns = []string{"Nombre", "Grupo", "Fecha", "Estado"}

// Records renders the rows for the report generator.
func (r AttendanceReport) Records() [][]any {
	out := make([][]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		state := "Ausente"
		if row.Present {
			state = "Presente"
		}
		out = append(out, []any{row.Name, row.Group, FormatDisplayDate(row.Date), state})
	}
	return out
}

func (r AttendanceReport) Title() string {
	return "Reporte de Asistencias " + FormatDisplayDate(r.From) + " - " + FormatDisplayDate(r.To)
}

func validateRange(rawFrom, rawTo string) (string, string, error) {
	verr := &ValidationError{}
	from, errFrom := ParseDate(rawFrom)
	if errFrom != nil {
		verr.add("from", "Fecha inicio inválida")
	}
	to, errTo := ParseDate(rawTo)
	if errTo != nil {
		verr.add("to", "Fecha fin inválida")
	}
	if errFrom == nil && errTo == nil && from.After(to) {
		verr.add("from", "La fecha de inicio debe ser anterior a la fecha fin")
	}
	if err := verr.orNil(); err != nil {
		return "", "", err
	}
	return from.Format(DateLayout), to.Format(DateLayout), nil
}

// BuildAttendanceReport lists the marks inside [From, To], newest first, and
// aggregates presence counts.
func BuildAttendanceReport(ctx context.Context, q db.Querier, query AttendanceQuery, today time.Time) (AttendanceReport, error) {
	from, to, err := validateRange(query.From, query.To)
	if err != nil {
		return AttendanceReport{}, err
	}
	preds := db.Between("a.date", from, to)
	if len(query.ChildIDs) > 0 {
		ids := make([]interface{}, 0, len(query.ChildIDs))
		for _, id := range query.ChildIDs {
			ids = append(ids, id)
		}
		preds = append(preds, db.In("a.child_id", ids...))
	}
	where, args, err := db.BuildWhere(attendanceFilterColumns, preds)
	if err != nil {
		return AttendanceReport{}, err
	}
	type reportRow struct {
		AttendanceReportRow
		Birthdate string `db:"birthdate"`
	}
	rows := []reportRow{}
	if err := q.Select(ctx, &rows, `
SELECT a.child_id, c.full_name, c.group_name, c.birthdate, a.date, a.present
FROM attendance a
JOIN children c ON c.id = a.child_id
`+where+`
ORDER BY a.date DESC, c.full_name`, args...); err != nil {
		return AttendanceReport{}, err
	}
	report := AttendanceReport{From: from, To: to, Rows: make([]AttendanceReportRow, 0, len(rows))}
	for _, row := range rows {
		item := row.AttendanceReportRow
		if born, err := ParseDate(row.Birthdate); err == nil {
			_, item.Group = ClassifyAge(born, today)
		}
		report.Rows = append(report.Rows, item)
	}
	report.Summary = summarize(report.Rows)
	return report, nil
}

func summarize(rows []AttendanceReportRow) AttendanceSummary {
	summary := AttendanceSummary{Total: len(rows)}
	for _, row := range rows {
		if row.Present {
			summary.Present++
		}
	}
	summary.Absent = summary.Total - summary.Present
	if summary.Total > 0 {
		summary.PresentPct = roundOne(float64(summary.Present) / float64(summary.Total) * 100)
		summary.AbsentPct = roundOne(float64(summary.Absent) / float64(summary.Total) * 100)
	}
	return summary
}

func roundOne(value float64) float64 {
	return math.Round(value*10) / 10
}

type CalendarDay struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

// AttendanceCalendar returns one entry per day of the month for a child.
func AttendanceCalendar(ctx context.Context, q db.Querier, childID int64, year int, month time.Month) ([]CalendarDay, error) {
	if month < time.January || month > time.December || year < 1 {
		return nil, ErrBadRequest("Invalid month")
	}
	if _, err := getChildRow(ctx, q, childID); err != nil {
		return nil, err
	}
	days := MonthDays(year, month)
	first := days[0].Format(DateLayout)
	last := days[len(days)-1].Format(DateLayout)
	marks := []models.Attendance{}
	if err := q.Select(ctx, &marks, `
SELECT id, child_id, date, present FROM attendance
WHERE child_id = ? AND date >= ? AND date <= ?
ORDER BY id`, childID, first, last); err != nil {
		return nil, err
	}
	byDate := map[string]bool{}
	for _, mark := range marks {
		key := strings.TrimSpace(mark.Date)
		if _, seen := byDate[key]; !seen {
			byDate[key] = mark.Present
		}
	}
	out := make([]CalendarDay, 0, len(days))
	for _, day := range days {
		key := day.Format(DateLayout)
		status := StatusUnmarked
		if present, ok := byDate[key]; ok {
			status = StatusAbsent
			if present {
				status = StatusPresent
			}
		}
		out = append(out, CalendarDay{Date: key, Status: status})
	}
	return out, nil
}
