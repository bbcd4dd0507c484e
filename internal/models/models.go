package models

const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

var Roles = []string{RoleAdmin, RoleEditor, RoleViewer}

const (
	ProgramIMAS    = "IMAS"
	ProgramPANI    = "PANI"
	ProgramPrivate = "Privado"
)

var Programs = []string{ProgramIMAS, ProgramPANI, ProgramPrivate}

const NoGroup = "Sin grupo"

type Child struct {
	ID             int64   `db:"id"`
	FullName       string  `db:"full_name"`
	NationalID     string  `db:"national_id"`
	Guardian1Name  string  `db:"guardian1_name"`
	Guardian1Phone string  `db:"guardian1_phone"`
	Guardian2Name  *string `db:"guardian2_name"`
	Guardian2Phone *string `db:"guardian2_phone"`
	Email          *string `db:"email"`
	Allergies      *string `db:"allergies"`
	Age            int     `db:"age"`
	Birthdate      string  `db:"birthdate"`
	Address        *string `db:"address"`
	GroupName      string  `db:"group_name"`
	Program        string  `db:"program"`
	Photo          *string `db:"photo"`
}

type EgressRecord struct {
	ID            int64   `db:"id"`
	ChildID       *int64  `db:"child_id"`
	FullName      string  `db:"full_name"`
	NationalID    string  `db:"national_id"`
	Age           int     `db:"age"`
	GroupName     string  `db:"group_name"`
	DepartureDate string  `db:"departure_date"`
	Notes         *string `db:"notes"`
	Program       string  `db:"program"`
}

type Attendance struct {
	ID      int64  `db:"id"`
	ChildID int64  `db:"child_id"`
	Date    string `db:"date"`
	Present bool   `db:"present"`
}

type User struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	Role         string `db:"role"`
	TokenVersion int64  `db:"token_version"`
	Protected    bool   `db:"protected"`
}
