package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"daycare-backend-go/internal/db"
	"daycare-backend-go/internal/models"
)

var egressFilterColumns = map[string]bool{
	"departure_date": true,
	"full_name":      true,
}

type EgressView struct {
	ID            int64   `json:"id"`
	ChildID       *int64  `json:"childId,omitempty"`
	FullName      string  `json:"fullName"`
	NationalID    string  `json:"nationalId"`
	Age           int     `json:"age"`
	Group         string  `json:"group"`
	DepartureDate string  `json:"departureDate"`
	Notes         *string `json:"notes,omitempty"`
	Program       string  `json:"program"`
}

func viewEgress(e models.EgressRecord) EgressView {
	return EgressView{
		ID:            e.ID,
		ChildID:       e.ChildID,
		FullName:      e.FullName,
		NationalID:    e.NationalID,
		Age:           e.Age,
		Group:         e.GroupName,
		DepartureDate: e.DepartureDate,
		Notes:         e.Notes,
		Program:       e.Program,
	}
}

type DepartureInput struct {
	ChildID int64   `json:"childId"`
	Date    string  `json:"date"`
	Notes   *string `json:"notes"`
}

// DepartChild moves a child to the egress log: the snapshot insert and the
// roster delete commit together or not at all. The child's photo file is
// removed once the move has committed.
func DepartChild(ctx context.Context, store *db.Store, mediaPath string, in DepartureInput, today time.Time) (EgressView, error) {
	day, err := parseDateField("date", in.Date)
	if err != nil {
		return EgressView{}, err
	}
	notes := trimOptional(in.Notes)
	var (
		record models.EgressRecord
		photo  *string
	)
	err = store.WithTx(ctx, func(tx *db.Tx) error {
		child, err := getChildRow(ctx, tx, in.ChildID)
		if err != nil {
			return err
		}
		photo = child.Photo
		age, group := child.Age, child.GroupName
		if born, err := ParseDate(child.Birthdate); err == nil {
			age, group = ClassifyAge(born, today)
		}
		childID := child.ID
		record = models.EgressRecord{
			ChildID:       &childID,
			FullName:      child.FullName,
			NationalID:    child.NationalID,
			Age:           age,
			GroupName:     group,
			DepartureDate: day,
			Notes:         notes,
			Program:       child.Program,
		}
		if err := tx.Get(ctx, &record.ID, `
INSERT INTO egress (child_id, full_name, national_id, age, group_name, departure_date, notes, program)
VALUES (?,?,?,?,?,?,?,?)
RETURNING id`,
			record.ChildID, record.FullName, record.NationalID, record.Age, record.GroupName,
			record.DepartureDate, record.Notes, record.Program); err != nil {
			return err
		}
		res, err := tx.Exec(ctx, `DELETE FROM children WHERE id = ?`, child.ID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n != 1 {
			return errors.New("egress: child row was not removed")
		}
		return nil
	})
	if err != nil {
		return EgressView{}, err
	}
	if photo != nil && *photo != "" {
		if err := RemoveChildPhoto(mediaPath, *photo); err != nil {
			slog.Warn("child photo not removed after departure", "egressId", record.ID, "photo", *photo, "err", err)
		}
	}
	return viewEgress(record), nil
}

type EgressQuery struct {
	From  string
	To    string
	Names []string
}

var EgressReportColumns = []string{"Nombre", "Cédula", "Edad", "Grupo", "Fecha", "Notas", "Programa"}

// ListEgress returns departures inside [From, To], newest first. Names, when
// given, restrict the result to those exact child names.
func ListEgress(ctx context.Context, q db.Querier, query EgressQuery) ([]EgressView, error) {
	from, to, err := validateRange(query.From, query.To)
	if err != nil {
		return nil, err
	}
	preds := db.Between("departure_date", from, to)
	names := make([]interface{}, 0, len(query.Names))
	for _, name := range query.Names {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		preds = append(preds, db.In("full_name", names...))
	}
	where, args, err := db.BuildWhere(egressFilterColumns, preds)
	if err != nil {
		return nil, err
	}
	rows := []models.EgressRecord{}
	if err := q.Select(ctx, &rows, `
SELECT id, child_id, full_name, national_id, age, group_name, departure_date, notes, program
FROM egress
`+where+`
ORDER BY departure_date DESC, id DESC`, args...); err != nil {
		return nil, err
	}
	items := make([]EgressView, 0, len(rows))
	for _, row := range rows {
		items = append(items, viewEgress(row))
	}
	return items, nil
}

func EgressRecords(items []EgressView) [][]any {
	out := make([][]any, 0, len(items))
	for _, item := range items {
		out = append(out, []any{
			item.FullName, item.NationalID, item.Age, item.Group,
			FormatDisplayDate(item.DepartureDate), derefString(item.Notes), item.Program,
		})
	}
	return out
}

func EgressTitle(from, to string) string {
	return "Reporte de Egresos " + FormatDisplayDate(from) + " - " + FormatDisplayDate(to)
}
