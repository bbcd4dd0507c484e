package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"daycare-backend-go/internal/db"
	"daycare-backend-go/internal/models"
)

const childColumns = `id, full_name, national_id, guardian1_name, guardian1_phone, guardian2_name, guardian2_phone,
       email, allergies, age, birthdate, address, group_name, program, photo`

var childFilterColumns = map[string]bool{
	"full_name":   true,
	"national_id": true,
	"program":     true,
	"allergies":   true,
	"id":          true,
}

// FilterAll is the "no restriction" value for group and program selectors.
const FilterAll = "all"

type ChildView struct {
	ID             int64   `json:"id"`
	FullName       string  `json:"fullName"`
	NationalID     string  `json:"nationalId"`
	Guardian1Name  string  `json:"guardian1Name"`
	Guardian1Phone string  `json:"guardian1Phone"`
	Guardian2Name  *string `json:"guardian2Name,omitempty"`
	Guardian2Phone *string `json:"guardian2Phone,omitempty"`
	Email          *string `json:"email,omitempty"`
	Allergies      *string `json:"allergies,omitempty"`
	Age            int     `json:"age"`
	Birthdate      string  `json:"birthdate"`
	Address        *string `json:"address,omitempty"`
	Group          string  `json:"group"`
	Program        string  `json:"program"`
	HasPhoto       bool    `json:"hasPhoto"`
}

// viewChild recomputes age and group from the birthdate. The stored columns
// are a snapshot and may be stale.
func viewChild(c models.Child, today time.Time) ChildView {
	age, group := c.Age, c.GroupName
	if born, err := ParseDate(c.Birthdate); err == nil {
		age, group = ClassifyAge(born, today)
	}
	return ChildView{
		ID:             c.ID,
		FullName:       c.FullName,
		NationalID:     c.NationalID,
		Guardian1Name:  c.Guardian1Name,
		Guardian1Phone: c.Guardian1Phone,
		Guardian2Name:  c.Guardian2Name,
		Guardian2Phone: c.Guardian2Phone,
		Email:          c.Email,
		Allergies:      c.Allergies,
		Age:            age,
		Birthdate:      c.Birthdate,
		Address:        c.Address,
		Group:          group,
		Program:        c.Program,
		HasPhoto:       c.Photo != nil && *c.Photo != "",
	}
}

type ChildFilter struct {
	Name       string
	NationalID string
	Group      string
	Program    string
}

func (f ChildFilter) predicates() []db.Predicate {
	preds := []db.Predicate{}
	if name := strings.TrimSpace(f.Name); name != "" {
		preds = append(preds, db.Contains("full_name", name))
	}
	if nid := strings.TrimSpace(f.NationalID); nid != "" {
		preds = append(preds, db.Contains("national_id", nid))
	}
	if isSelected(f.Program) {
		preds = append(preds, db.Eq("program", f.Program))
	}
	return preds
}

func isSelected(value string) bool {
	value = strings.TrimSpace(value)
	return value != "" && !strings.EqualFold(value, FilterAll)
}

func ListChildren(ctx context.Context, q db.Querier, filter ChildFilter, today time.Time) ([]ChildView, error) {
	rows, err := selectChildren(ctx, q, filter.predicates())
	if err != nil {
		return nil, err
	}
	items := make([]ChildView, 0, len(rows))
	for _, row := range rows {
		view := viewChild(row, today)
		if isSelected(filter.Group) && view.Group != filter.Group {
			continue
		}
		items = append(items, view)
	}
	sortChildren(items)
	return items, nil
}

func selectChildren(ctx context.Context, q db.Querier, preds []db.Predicate) ([]models.Child, error) {
	where, args, err := db.BuildWhere(childFilterColumns, preds)
	if err != nil {
		return nil, err
	}
	rows := []models.Child{}
	err = q.Select(ctx, &rows, `SELECT `+childColumns+` FROM children `+where+` ORDER BY full_name`, args...)
	return rows, err
}

// sortChildren orders by group bracket (youngest first, "Sin grupo" last)
// then by name.
func sortChildren(items []ChildView) {
	rank := map[string]int{}
	for i, label := range Groups() {
		rank[label] = i
	}
	groupRank := func(label string) int {
		if r, ok := rank[label]; ok {
			return r
		}
		return len(rank)
	}
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := groupRank(items[i].Group), groupRank(items[j].Group)
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(items[i].FullName) < strings.ToLower(items[j].FullName)
	})
}

func GetChild(ctx context.Context, q db.Querier, childID int64, today time.Time) (ChildView, error) {
	row, err := getChildRow(ctx, q, childID)
	if err != nil {
		return ChildView{}, err
	}
	return viewChild(row, today), nil
}

func getChildRow(ctx context.Context, q db.Querier, childID int64) (models.Child, error) {
	var row models.Child
	err := q.Get(ctx, &row, `SELECT `+childColumns+` FROM children WHERE id = ?`, childID)
	if db.IsNotFound(err) {
		return models.Child{}, ErrNotFound("Child not found")
	}
	return row, err
}

// CreateChild validates the form and enrolls the child. A national ID already
// on the roster yields ErrDuplicateNationalID.
func CreateChild(ctx context.Context, store *db.Store, in ChildInput, today time.Time) (ChildView, error) {
	in.normalize()
	if err := ValidateChild(in, today); err != nil {
		return ChildView{}, err
	}
	born, _ := ParseDate(in.Birthdate)
	age, group := ClassifyAge(born, today)
	var id int64
	err := store.WithTx(ctx, func(tx *db.Tx) error {
		return tx.Get(ctx, &id, `
INSERT INTO children (
  full_name, national_id, guardian1_name, guardian1_phone, guardian2_name, guardian2_phone,
  email, allergies, age, birthdate, address, group_name, program
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
RETURNING id`,
			in.FullName, in.NationalID, in.Guardian1Name, in.Guardian1Phone, in.Guardian2Name, in.Guardian2Phone,
			in.Email, in.Allergies, age, in.Birthdate, in.Address, group, in.Program)
	})
	if db.IsUniqueViolation(err) {
		return ChildView{}, ErrDuplicateNationalID
	}
	if err != nil {
		return ChildView{}, err
	}
	return GetChild(ctx, store, id, today)
}

func UpdateChild(ctx context.Context, store *db.Store, childID int64, in ChildInput, today time.Time) (ChildView, error) {
	in.normalize()
	if err := ValidateChild(in, today); err != nil {
		return ChildView{}, err
	}
	if _, err := getChildRow(ctx, store, childID); err != nil {
		return ChildView{}, err
	}
	born, _ := ParseDate(in.Birthdate)
	age, group := ClassifyAge(born, today)
	_, err := store.Exec(ctx, `
UPDATE children
SET full_name = ?, national_id = ?, guardian1_name = ?, guardian1_phone = ?, guardian2_name = ?,
    guardian2_phone = ?, email = ?, allergies = ?, age = ?, birthdate = ?, address = ?,
    group_name = ?, program = ?
WHERE id = ?`,
		in.FullName, in.NationalID, in.Guardian1Name, in.Guardian1Phone, in.Guardian2Name,
		in.Guardian2Phone, in.Email, in.Allergies, age, in.Birthdate, in.Address,
		group, in.Program, childID)
	if db.IsUniqueViolation(err) {
		return ChildView{}, ErrDuplicateNationalID
	}
	if err != nil {
		return ChildView{}, err
	}
	return GetChild(ctx, store, childID, today)
}

type AttendanceEntry struct {
	Date    string `db:"date" json:"date"`
	Present bool   `db:"present" json:"present"`
}

type ChildDetail struct {
	Child      ChildView         `json:"child"`
	Attendance []AttendanceEntry `json:"attendance"`
}

const detailAttendanceLimit = 30

// GetChildDetail returns the child plus the most recent attendance marks,
// newest first.
func GetChildDetail(ctx context.Context, q db.Querier, childID int64, today time.Time) (ChildDetail, error) {
	child, err := GetChild(ctx, q, childID, today)
	if err != nil {
		return ChildDetail{}, err
	}
	entries := []AttendanceEntry{}
	if err := q.Select(ctx, &entries, `
SELECT date, present FROM attendance
WHERE child_id = ?
ORDER BY date DESC, id DESC
LIMIT ?`, childID, detailAttendanceLimit); err != nil {
		return ChildDetail{}, err
	}
	return ChildDetail{Child: child, Attendance: entries}, nil
}

// Column labels accepted by the custom children report.
const (
	ColumnName       = "Nombre"
	ColumnNationalID = "Cédula"
	ColumnAge        = "Edad"
	ColumnGroup      = "Grupo"
	ColumnProgram    = "Programa"
	ColumnAllergies  = "Alergias"
	ColumnAddress    = "Domicilio"
	ColumnBirthdate  = "Fecha Nacimiento"
)

var ChildReportColumns = []string{
	ColumnName, ColumnNationalID, ColumnAge, ColumnGroup,
	ColumnProgram, ColumnAllergies, ColumnAddress, ColumnBirthdate,
}

const (
	AllergiesAll     = "all"
	AllergiesWith    = "with"
	AllergiesWithout = "without"

	maxReportAge = 13
)

type ChildReportRequest struct {
	MinAge    *int     `json:"minAge"`
	MaxAge    *int     `json:"maxAge"`
	Group     string   `json:"group"`
	Program   string   `json:"program"`
	Allergies string   `json:"allergies"`
	Columns   []string `json:"columns"`
	Format    string   `json:"format"`
}

func (r ChildReportRequest) validate() (int, int, error) {
	verr := &ValidationError{}
	minAge, maxAge := 0, maxReportAge
	if r.MinAge != nil {
		minAge = *r.MinAge
	}
	if r.MaxAge != nil {
		maxAge = *r.MaxAge
	}
	if minAge < 0 || maxAge > maxReportAge || minAge > maxAge {
		verr.add("age", "Rango de edad inválido")
	}
	if len(r.Columns) == 0 {
		verr.add("columns", "Seleccione al menos una columna")
	}
	seen := map[string]bool{}
	for _, col := range r.Columns {
		if !isReportColumn(col) {
			verr.add("columns", "Columna desconocida: "+col)
		} else if seen[col] {
			verr.add("columns", "Columna repetida: "+col)
		}
		seen[col] = true
	}
	switch strings.TrimSpace(r.Allergies) {
	case "", AllergiesAll, AllergiesWith, AllergiesWithout:
	default:
		verr.add("allergies", "Filtro de alergias inválido")
	}
	return minAge, maxAge, verr.orNil()
}

func isReportColumn(label string) bool {
	for _, col := range ChildReportColumns {
		if col == label {
			return true
		}
	}
	return false
}

// BuildChildReport applies the ad-hoc report filters and projects the chosen
// columns in the requested order.
func BuildChildReport(ctx context.Context, q db.Querier, req ChildReportRequest, today time.Time) ([][]any, error) {
	minAge, maxAge, err := req.validate()
	if err != nil {
		return nil, err
	}
	preds := []db.Predicate{}
	if isSelected(req.Program) {
		preds = append(preds, db.Eq("program", req.Program))
	}
	switch strings.TrimSpace(req.Allergies) {
	case AllergiesWith:
		preds = append(preds, db.Predicate{Column: "allergies", Op: db.OpNotEmpty})
	case AllergiesWithout:
		preds = append(preds, db.Predicate{Column: "allergies", Op: db.OpEmpty})
	}
	rows, err := selectChildren(ctx, q, preds)
	if err != nil {
		return nil, err
	}
	views := make([]ChildView, 0, len(rows))
	for _, row := range rows {
		view := viewChild(row, today)
		if view.Age < minAge || view.Age > maxAge {
			continue
		}
		if isSelected(req.Group) && view.Group != req.Group {
			continue
		}
		views = append(views, view)
	}
	sortChildren(views)
	out := make([][]any, 0, len(views))
	for _, view := range views {
		record := make([]any, 0, len(req.Columns))
		for _, col := range req.Columns {
			record = append(record, childCell(view, col))
		}
		out = append(out, record)
	}
	return out, nil
}

func childCell(c ChildView, column string) any {
	switch column {
	case ColumnName:
		return c.FullName
	case ColumnNationalID:
		return c.NationalID
	case ColumnAge:
		return c.Age
	case ColumnGroup:
		return c.Group
	case ColumnProgram:
		return c.Program
	case ColumnAllergies:
		if c.Allergies == nil || strings.TrimSpace(*c.Allergies) == "" {
			return "Ninguna"
		}
		return *c.Allergies
	case ColumnAddress:
		if c.Address == nil || strings.TrimSpace(*c.Address) == "" {
			return "No especificado"
		}
		return *c.Address
	case ColumnBirthdate:
		return FormatDisplayDate(c.Birthdate)
	}
	return ""
}
