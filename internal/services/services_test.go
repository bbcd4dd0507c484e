package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"daycare-backend-go/internal/db"
	"daycare-backend-go/internal/models"
	"daycare-backend-go/internal/session"
	"daycare-backend-go/internal/testutil"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type StoreSuite struct {
	suite.Suite
	ctx    context.Context
	store  *db.Store
	tokens TokenService
	today  time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = testutil.OpenStore(s.T())
	s.tokens = TokenService{Secret: []byte("test-secret"), Issuer: "guarderia", Revoked: NewRevocationList()}
	s.today = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) enroll(name, nationalID, birthdate, program string) ChildView {
	in := validChildInput()
	in.FullName = name
	in.NationalID = nationalID
	in.Birthdate = birthdate
	in.Program = program
	child, err := CreateChild(s.ctx, s.store, in, s.today)
	s.Require().NoError(err)
	return child
}

func (s *StoreSuite) count(table string) int {
	var n int
	s.Require().NoError(s.store.Get(s.ctx, &n, `SELECT COUNT(*) FROM `+table))
	return n
}

func (s *StoreSuite) TestCreateChildDerivesGroup() {
	child := s.enroll("Ana Mora", "123456789", "2021-04-10", models.ProgramPANI)
	s.Equal(3, child.Age)
	s.Equal("Pollitos", child.Group)

	var stored models.Child
	s.Require().NoError(s.store.Get(s.ctx, &stored, `SELECT `+childColumns+` FROM children WHERE id = ?`, child.ID))
	s.Equal("Pollitos", stored.GroupName)
	s.Equal(3, stored.Age)
}

func (s *StoreSuite) TestCreateChildRejectsInvalidWithoutWriting() {
	in := validChildInput()
	in.NationalID = "1234"
	in.Guardian1Phone = "12"
	_, err := CreateChild(s.ctx, s.store, in, s.today)
	var verr *ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Len(verr.Violations, 2)
	s.Zero(s.count("children"))
}

func (s *StoreSuite) TestDuplicateNationalID() {
	s.enroll("Ana Mora", "123456789", "2021-04-10", models.ProgramPANI)
	in := validChildInput()
	in.FullName = "Otra"
	_, err := CreateChild(s.ctx, s.store, in, s.today)
	s.Require().ErrorIs(err, ErrDuplicateNationalID)
	s.Equal(1, s.count("children"))
}

func (s *StoreSuite) TestUpdateChildRefreshesSnapshot() {
	child := s.enroll("Ana Mora", "123456789", "2021-04-10", models.ProgramPANI)
	in := validChildInput()
	in.FullName = "Ana María Mora"
	in.Birthdate = "2016-01-01"
	address := "San José"
	in.Address = &address

	updated, err := UpdateChild(s.ctx, s.store, child.ID, in, s.today)
	s.Require().NoError(err)
	s.Equal("Ana María Mora", updated.FullName)
	s.Equal("Leones", updated.Group)
	s.Equal("San José", *updated.Address)

	_, err = UpdateChild(s.ctx, s.store, 999, in, s.today)
	var serr ServiceError
	s.Require().ErrorAs(err, &serr)
	s.Equal(404, serr.Status)
}

func (s *StoreSuite) TestListChildrenFilters() {
	s.enroll("Ana Mora", "111111111", "2021-04-10", models.ProgramPANI)
	s.enroll("Bruno Solís", "222222222", "2016-02-01", models.ProgramIMAS)
	s.enroll("Carla Ruiz", "333333333", "2023-01-01", models.ProgramPANI)

	all, err := ListChildren(s.ctx, s.store, ChildFilter{Group: FilterAll, Program: FilterAll}, s.today)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("Carla Ruiz", all[0].FullName, "youngest group first")
	s.Equal("Bruno Solís", all[2].FullName)

	byName, err := ListChildren(s.ctx, s.store, ChildFilter{Name: "MORA"}, s.today)
	s.Require().NoError(err)
	s.Require().Len(byName, 1)
	s.Equal("111111111", byName[0].NationalID)

	byID, err := ListChildren(s.ctx, s.store, ChildFilter{NationalID: "2222"}, s.today)
	s.Require().NoError(err)
	s.Len(byID, 1)

	pani, err := ListChildren(s.ctx, s.store, ChildFilter{Program: models.ProgramPANI}, s.today)
	s.Require().NoError(err)
	s.Len(pani, 2)

	leones, err := ListChildren(s.ctx, s.store, ChildFilter{Group: "Leones"}, s.today)
	s.Require().NoError(err)
	s.Require().Len(leones, 1)
	s.Equal("Bruno Solís", leones[0].FullName)

	none, err := ListChildren(s.ctx, s.store, ChildFilter{Name: "%"}, s.today)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *StoreSuite) TestChildReportProjectsColumns() {
	allergies := "Maní"
	in := validChildInput()
	in.Allergies = &allergies
	_, err := CreateChild(s.ctx, s.store, in, s.today)
	s.Require().NoError(err)
	s.enroll("Bruno Solís", "222222222", "2016-02-01", models.ProgramIMAS)

	rows, err := BuildChildReport(s.ctx, s.store, ChildReportRequest{
		Columns:   []string{ColumnAllergies, ColumnName, ColumnAddress, ColumnBirthdate},
		Allergies: AllergiesWithout,
	}, s.today)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal([]any{"Ninguna", "Bruno Solís", "No especificado", "01/02/2016"}, rows[0])

	minAge, maxAge := 0, 5
	rows, err = BuildChildReport(s.ctx, s.store, ChildReportRequest{
		MinAge:  &minAge,
		MaxAge:  &maxAge,
		Columns: []string{ColumnName, ColumnAge, ColumnAllergies},
	}, s.today)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal([]any{"Ana Mora", 3, "Maní"}, rows[0])

	_, err = BuildChildReport(s.ctx, s.store, ChildReportRequest{Columns: []string{"Password"}}, s.today)
	s.True(IsValidationError(err))

	_, err = BuildChildReport(s.ctx, s.store, ChildReportRequest{}, s.today)
	s.True(IsValidationError(err))
}

func (s *StoreSuite) TestAttendanceUpsertKeepsOneRow() {
	child := s.enroll("Ana Mora", "123456789", "2021-04-10", models.ProgramPANI)

	first, err := MarkAttendance(s.ctx, s.store, child.ID, "2024-06-10", true)
	s.Require().NoError(err)
	second, err := MarkAttendance(s.ctx, s.store, child.ID, "2024-06-10", false)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.False(second.Present)
	s.Equal(1, s.count("attendance"))

	status, err := GetAttendanceStatus(s.ctx, s.store, child.ID, "2024-06-10")
	s.Require().NoError(err)
	s.True(status.Marked)
	s.False(status.Present)

	unmarked, err := GetAttendanceStatus(s.ctx, s.store, child.ID, "2024-06-11")
	s.Require().NoError(err)
	s.False(unmarked.Marked)
	s.True(unmarked.Present)

	_, err = MarkAttendance(s.ctx, s.store, child.ID, "10/06/2024", true)
	s.True(IsValidationError(err))
	_, err = MarkAttendance(s.ctx, s.store, 999, "2024-06-10", true)
	s.Error(err)
}

func (s *StoreSuite) TestDedupKeepsLowestID() {
	child := s.enroll("Ana Mora", "123456789", "2021-04-10", models.ProgramPANI)
	_, err := s.store.Exec(s.ctx, `DROP INDEX uq_attendance_child_date`)
	s.Require().NoError(err)
	_, err = s.store.Exec(s.ctx, `INSERT INTO attendance (id, child_id, date, present) VALUES (5, ?, '2024-06-10', 1), (9, ?, '2024-06-10', 0), (12, ?, '2024-06-11', 1)`,
		child.ID, child.ID, child.ID)
	s.Require().NoError(err)

	removed, err := DedupAttendance(s.ctx, s.store)
	s.Require().NoError(err)
	s.Equal(int64(1), removed)

	rows := []models.Attendance{}
	s.Require().NoError(s.store.Select(s.ctx, &rows, `SELECT id, child_id, date, present FROM attendance ORDER BY id`))
	s.Require().Len(rows, 2)
	s.Equal(int64(5), rows[0].ID)
	s.True(rows[0].Present)
	s.Equal(int64(12), rows[1].ID)
}

func (s *StoreSuite) TestAttendanceReport() {
	ana := s.enroll("Ana Mora", "111111111", "2021-04-10", models.ProgramPANI)
	bruno := s.enroll("Bruno Solís", "222222222", "2016-02-01", models.ProgramIMAS)
	for _, mark := range []struct {
		id      int64
		day     string
		present bool
	}{
		{ana.ID, "2024-06-03", true},
		{ana.ID, "2024-06-04", false},
		{bruno.ID, "2024-06-03", true},
		{bruno.ID, "2024-07-01", true},
	} {
		_, err := MarkAttendance(s.ctx, s.store, mark.id, mark.day, mark.present)
		s.Require().NoError(err)
	}

	report, err := BuildAttendanceReport(s.ctx, s.store, AttendanceQuery{From: "2024-06-01", To: "2024-06-30"}, s.today)
	s.Require().NoError(err)
	s.Equal(AttendanceSummary{Total: 3, Present: 2, Absent: 1, PresentPct: 66.7, AbsentPct: 33.3}, report.Summary)
	s.Equal("2024-06-04", report.Rows[0].Date)

	records := report.Records()
	s.Equal([]any{"Ana Mora", "Pollitos", "04/06/2024", "Ausente"}, records[0])
	s.Equal("Reporte de Asistencias 01/06/2024 - 30/06/2024", report.Title())

	only, err := BuildAttendanceReport(s.ctx, s.store, AttendanceQuery{From: "2024-06-01", To: "2024-07-31", ChildIDs: []int64{bruno.ID}}, s.today)
	s.Require().NoError(err)
	s.Equal(2, only.Summary.Total)
	s.Equal(100.0, only.Summary.PresentPct)

	_, err = BuildAttendanceReport(s.ctx, s.store, AttendanceQuery{From: "2024-06-30", To: "2024-06-01"}, s.today)
	s.True(IsValidationError(err))

	empty, err := BuildAttendanceReport(s.ctx, s.store, AttendanceQuery{From: "2023-01-01", To: "2023-01-31"}, s.today)
	s.Require().NoError(err)
	s.Zero(empty.Summary.Total)
	s.Zero(empty.Summary.PresentPct)
}

func (s *StoreSuite) TestAttendanceCalendar() {
	child := s.enroll("Ana Mora", "123456789", "2021-04-10", models.ProgramPANI)
	_, err := MarkAttendance(s.ctx, s.store, child.ID, "2024-02-01", true)
	s.Require().NoError(err)
	_, err = MarkAttendance(s.ctx, s.store, child.ID, "2024-02-29", false)
	s.Require().NoError(err)

	days, err := AttendanceCalendar(s.ctx, s.store, child.ID, 2024, time.February)
	s.Require().NoError(err)
	s.Require().Len(days, 29)
	s.Equal(CalendarDay{Date: "2024-02-01", Status: StatusPresent}, days[0])
	s.Equal(StatusUnmarked, days[1].Status)
	s.Equal(StatusAbsent, days[28].Status)

	_, err = AttendanceCalendar(s.ctx, s.store, child.ID, 2024, 13)
	s.Error(err)
}

func (s *StoreSuite) TestChildDetailLimitsAttendance() {
	child := s.enroll("Ana Mora", "123456789", "2021-04-10", models.ProgramPANI)
	start := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 35; i++ {
		_, err := MarkAttendance(s.ctx, s.store, child.ID, start.AddDate(0, 0, i).Format(DateLayout), i%2 == 0)
		s.Require().NoError(err)
	}
	detail, err := GetChildDetail(s.ctx, s.store, child.ID, s.today)
	s.Require().NoError(err)
	s.Equal("Ana Mora", detail.Child.FullName)
	s.Require().Len(detail.Attendance, 30)
	s.Equal(start.AddDate(0, 0, 34).Format(DateLayout), detail.Attendance[0].Date)
	s.Equal(start.AddDate(0, 0, 5).Format(DateLayout), detail.Attendance[29].Date)
}

func (s *StoreSuite) TestDepartChildMovesRow() {
	child := s.enroll("Ana Mora", "123456789", "2021-04-10", models.ProgramPANI)
	s.enroll("Bruno Solís", "222222222", "2016-02-01", models.ProgramIMAS)
	_, err := MarkAttendance(s.ctx, s.store, child.ID, "2024-06-10", true)
	s.Require().NoError(err)
	notes := "  Traslado  "

	record, err := DepartChild(s.ctx, s.store, s.T().TempDir(), DepartureInput{ChildID: child.ID, Date: "2024-06-14", Notes: &notes}, s.today)
	s.Require().NoError(err)
	s.Equal(1, s.count("children"))
	s.Equal(1, s.count("egress"))
	s.Equal(1, s.count("attendance"), "attendance history kept after departure")
	s.Equal(child.FullName, record.FullName)
	s.Equal(child.NationalID, record.NationalID)
	s.Equal(child.Group, record.Group)
	s.Equal(child.Program, record.Program)
	s.Equal("Traslado", *record.Notes)

	_, err = DepartChild(s.ctx, s.store, s.T().TempDir(), DepartureInput{ChildID: child.ID, Date: "2024-06-14"}, s.today)
	var serr ServiceError
	s.Require().ErrorAs(err, &serr)
	s.Equal(404, serr.Status)
	s.Equal(1, s.count("egress"))
}

func (s *StoreSuite) TestDepartChildRollsBackWhenInsertFails() {
	child := s.enroll("Ana Mora", "123456789", "2021-04-10", models.ProgramPANI)
	_, err := s.store.Exec(s.ctx, `DROP TABLE egress`)
	s.Require().NoError(err)

	_, err = DepartChild(s.ctx, s.store, s.T().TempDir(), DepartureInput{ChildID: child.ID, Date: "2024-06-14"}, s.today)
	var serr *db.StorageError
	s.Require().ErrorAs(err, &serr)
	s.Equal(1, s.count("children"))
}

func (s *StoreSuite) TestDepartChildLogsUnremovedPhoto() {
	child := s.enroll("Ana Mora", "123456789", "2021-04-10", models.ProgramPANI)
	base := s.T().TempDir()
	// a non-empty directory under the photo key cannot be removed
	s.Require().NoError(os.MkdirAll(filepath.Join(base, BucketChildren, "stuck.png", "keep"), 0o755))
	_, err := s.store.Exec(s.ctx, `UPDATE children SET photo = ? WHERE id = ?`, "stuck.png", child.ID)
	s.Require().NoError(err)

	var logs bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	defer slog.SetDefault(previous)

	_, err = DepartChild(s.ctx, s.store, base, DepartureInput{ChildID: child.ID, Date: "2024-06-14"}, s.today)
	s.Require().NoError(err)
	s.Zero(s.count("children"))
	s.Contains(logs.String(), "child photo not removed after departure")
	s.Contains(logs.String(), "photo=stuck.png")
}

func (s *StoreSuite) TestListEgress() {
	for i, name := range []string{"Ana Mora", "Bruno Solís", "Carla Ruiz"} {
		child := s.enroll(name, strings.Repeat(string(rune('1'+i)), 9), "2020-01-01", models.ProgramPrivate)
		day := time.Date(2024, time.May, 10+i, 0, 0, 0, 0, time.UTC).Format(DateLayout)
		_, err := DepartChild(s.ctx, s.store, s.T().TempDir(), DepartureInput{ChildID: child.ID, Date: day}, s.today)
		s.Require().NoError(err)
	}

	items, err := ListEgress(s.ctx, s.store, EgressQuery{From: "2024-05-01", To: "2024-05-31"})
	s.Require().NoError(err)
	s.Require().Len(items, 3)
	s.Equal("Carla Ruiz", items[0].FullName)

	items, err = ListEgress(s.ctx, s.store, EgressQuery{From: "2024-05-11", To: "2024-05-31", Names: []string{"Ana Mora", "Carla Ruiz"}})
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal("Carla Ruiz", items[0].FullName)

	records := EgressRecords(items)
	s.Equal([]any{"Carla Ruiz", "333333333", 4, "Ovejitas", "12/05/2024", "", models.ProgramPrivate}, records[0])

	_, err = ListEgress(s.ctx, s.store, EgressQuery{From: "2024-06-01", To: "2024-05-01"})
	s.True(IsValidationError(err))
}

func (s *StoreSuite) TestDuplicateUsernameLeavesTableUnchanged() {
	_, err := CreateUser(s.ctx, s.store, s.tokens, "maria", "secret1", models.RoleEditor)
	s.Require().NoError(err)
	before := s.count("users")

	_, err = CreateUser(s.ctx, s.store, s.tokens, "maria", "other", models.RoleViewer)
	s.Require().ErrorIs(err, ErrDuplicateUsername)
	s.Equal(before, s.count("users"))

	_, err = CreateUser(s.ctx, s.store, s.tokens, "pedro", "x", "root")
	s.Error(err)
}

func (s *StoreSuite) TestBootstrapAdmin() {
	created, err := EnsureBootstrapAdmin(s.ctx, s.store, s.tokens, "admin", "admin123")
	s.Require().NoError(err)
	s.True(created)
	created, err = EnsureBootstrapAdmin(s.ctx, s.store, s.tokens, "admin", "admin123")
	s.Require().NoError(err)
	s.False(created)
	s.Equal(1, s.count("users"))

	id, err := Authenticate(s.ctx, s.store, s.tokens, "admin", "admin123")
	s.Require().NoError(err)
	s.Equal(models.RoleAdmin, id.Role)

	_, err = UpdateUserRole(s.ctx, s.store, id.UserID, models.RoleViewer)
	s.Require().Error(err)

	other, err := CreateUser(s.ctx, s.store, s.tokens, "second", "pw", models.RoleAdmin)
	s.Require().NoError(err)
	actor := session.Anonymous().Authenticate(session.Identity{UserID: other.ID, Username: other.Username, Role: other.Role})
	err = DeleteUser(s.ctx, s.store, s.tokens, actor, id.UserID, "pw")
	var serr ServiceError
	s.Require().ErrorAs(err, &serr)
	s.Equal(403, serr.Status)
	s.Equal(2, s.count("users"))
}

func (s *StoreSuite) TestBootstrapProtectionSurvivesRename() {
	_, err := EnsureBootstrapAdmin(s.ctx, s.store, s.tokens, "admin", "admin123")
	s.Require().NoError(err)
	created, err := EnsureBootstrapAdmin(s.ctx, s.store, s.tokens, "root", "root123")
	s.Require().NoError(err)
	s.True(created)

	root, err := Authenticate(s.ctx, s.store, s.tokens, "root", "root123")
	s.Require().NoError(err)
	first, err := Authenticate(s.ctx, s.store, s.tokens, "admin", "admin123")
	s.Require().NoError(err)

	actor := session.Anonymous().Authenticate(root)
	err = DeleteUser(s.ctx, s.store, s.tokens, actor, first.UserID, "root123")
	var serr ServiceError
	s.Require().ErrorAs(err, &serr)
	s.Equal(403, serr.Status)
	_, err = UpdateUserRole(s.ctx, s.store, first.UserID, models.RoleViewer)
	s.Require().ErrorAs(err, &serr)
	s.Equal(403, serr.Status)

	users, err := ListUsers(s.ctx, s.store)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	for _, u := range users {
		s.True(u.Protected, u.Username)
	}
}

func (s *StoreSuite) TestResolveSessionFollowsAccount() {
	user, err := CreateUser(s.ctx, s.store, s.tokens, "maria", "secret", models.RoleEditor)
	s.Require().NoError(err)
	issue := func() string {
		id, err := Authenticate(s.ctx, s.store, s.tokens, "maria", "secret")
		s.Require().NoError(err)
		sess, err := session.Anonymous().Authenticate(id).Navigate(session.PageAttendance)
		s.Require().NoError(err)
		token, err := s.tokens.CreateSessionToken(sess)
		s.Require().NoError(err)
		return token
	}

	token := issue()
	resolved, _, err := s.tokens.ResolveSession(s.ctx, s.store, token)
	s.Require().NoError(err)
	s.Equal(models.RoleEditor, resolved.Role)
	s.Equal(session.PageAttendance, resolved.Page)

	_, err = UpdateUserRole(s.ctx, s.store, user.ID, models.RoleViewer)
	s.Require().NoError(err)
	resolved, _, err = s.tokens.ResolveSession(s.ctx, s.store, token)
	s.Require().NoError(err)
	s.Equal(models.RoleViewer, resolved.Role, "stored role wins over the token claim")

	s.Require().NoError(EndSessions(s.ctx, s.store, user.ID))
	_, _, err = s.tokens.ResolveSession(s.ctx, s.store, token)
	s.True(IsInvalidToken(err))

	token = issue()
	s.Require().NoError(ChangePassword(s.ctx, s.store, s.tokens, user.ID, "secret", "fresh"))
	_, _, err = s.tokens.ResolveSession(s.ctx, s.store, token)
	s.True(IsInvalidToken(err))

	id, err := Authenticate(s.ctx, s.store, s.tokens, "maria", "fresh")
	s.Require().NoError(err)
	token, err = s.tokens.CreateSessionToken(session.Anonymous().Authenticate(id))
	s.Require().NoError(err)
	_, err = s.store.Exec(s.ctx, `DELETE FROM users WHERE id = ?`, user.ID)
	s.Require().NoError(err)
	_, _, err = s.tokens.ResolveSession(s.ctx, s.store, token)
	s.True(IsInvalidToken(err))
}

func (s *StoreSuite) TestDeleteUserRequiresOwnPassword() {
	_, err := EnsureBootstrapAdmin(s.ctx, s.store, s.tokens, "admin", "admin123")
	s.Require().NoError(err)
	adminID, err := Authenticate(s.ctx, s.store, s.tokens, "admin", "admin123")
	s.Require().NoError(err)
	actor := session.Anonymous().Authenticate(adminID)
	target, err := CreateUser(s.ctx, s.store, s.tokens, "temp", "pw", models.RoleViewer)
	s.Require().NoError(err)

	err = DeleteUser(s.ctx, s.store, s.tokens, actor, target.ID, "wrong")
	s.Require().ErrorIs(err, ErrInvalidCredentials)
	s.Equal(2, s.count("users"))

	err = DeleteUser(s.ctx, s.store, s.tokens, actor, adminID.UserID, "admin123")
	s.Error(err)

	s.Require().NoError(DeleteUser(s.ctx, s.store, s.tokens, actor, target.ID, "admin123"))
	s.Equal(1, s.count("users"))
}

func (s *StoreSuite) TestUpdateRoleAndChangePassword() {
	user, err := CreateUser(s.ctx, s.store, s.tokens, "maria", "old", models.RoleViewer)
	s.Require().NoError(err)

	updated, err := UpdateUserRole(s.ctx, s.store, user.ID, models.RoleEditor)
	s.Require().NoError(err)
	s.Equal(models.RoleEditor, updated.Role)

	s.Require().ErrorIs(ChangePassword(s.ctx, s.store, s.tokens, user.ID, "bad", "new"), ErrInvalidCredentials)
	s.Require().NoError(ChangePassword(s.ctx, s.store, s.tokens, user.ID, "old", "new"))
	_, err = Authenticate(s.ctx, s.store, s.tokens, "maria", "new")
	s.NoError(err)
}

func (s *StoreSuite) TestAuthenticateIsGeneric() {
	_, err := CreateUser(s.ctx, s.store, s.tokens, "maria", "secret", models.RoleEditor)
	s.Require().NoError(err)

	_, errUnknown := Authenticate(s.ctx, s.store, s.tokens, "nobody", "secret")
	_, errWrong := Authenticate(s.ctx, s.store, s.tokens, "maria", "nope")
	s.ErrorIs(errUnknown, ErrInvalidCredentials)
	s.ErrorIs(errWrong, ErrInvalidCredentials)
	s.Equal(errUnknown.Error(), errWrong.Error())

	id, err := Authenticate(s.ctx, s.store, s.tokens, " maria ", "secret")
	s.Require().NoError(err)
	s.Equal("maria", id.Username)
}

func (s *StoreSuite) TestChildPhoto() {
	child := s.enroll("Ana Mora", "123456789", "2021-04-10", models.ProgramPANI)
	base := s.T().TempDir()

	_, err := SaveChildPhoto(s.ctx, s.store, base, child.ID, "text/plain", strings.NewReader("x"))
	s.Error(err)

	key, err := SaveChildPhoto(s.ctx, s.store, base, child.ID, "image/png", strings.NewReader("png-bytes"))
	s.Require().NoError(err)
	path, err := ChildPhotoPath(s.ctx, s.store, base, child.ID)
	s.Require().NoError(err)
	s.Equal(filepath.Join(base, BucketChildren, key), path)

	second, err := SaveChildPhoto(s.ctx, s.store, base, child.ID, "image/jpeg", strings.NewReader("jpeg-bytes"))
	s.Require().NoError(err)
	_, statErr := os.Stat(filepath.Join(base, BucketChildren, key))
	s.True(os.IsNotExist(statErr), "previous photo removed")

	_, err = DepartChild(s.ctx, s.store, base, DepartureInput{ChildID: child.ID, Date: "2024-06-14"}, s.today)
	s.Require().NoError(err)
	_, statErr = os.Stat(filepath.Join(base, BucketChildren, second))
	s.True(os.IsNotExist(statErr), "photo removed on departure")
}

func (s *StoreSuite) TestCaptureSystemCountsRows() {
	s.enroll("Ana Mora", "123456789", "2021-04-10", models.ProgramPANI)
	sample, err := CaptureSystem(s.ctx, s.store, s.T().TempDir(), "")
	s.Require().NoError(err)
	s.Equal(int64(1), sample.TableRows["children"])
	s.Equal("sqlite", sample.DatabaseDialect)
}

func TestVerifyPasswordFormats(t *testing.T) {
	tokens := TokenService{}
	argon, err := tokens.HashPassword("secret")
	if err != nil {
		t.Fatal(err)
	}
	bc, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256([]byte("secret"))
	legacy := hex.EncodeToString(sum[:])

	for name, hash := range map[string]string{"argon2id": argon, "bcrypt": string(bc), "sha256": legacy} {
		if !tokens.VerifyPassword("secret", hash) {
			t.Errorf("%s: expected match", name)
		}
		if tokens.VerifyPassword("other", hash) {
			t.Errorf("%s: unexpected match", name)
		}
	}
	if tokens.VerifyPassword("secret", "") {
		t.Error("empty hash must not verify")
	}
}

func TestSessionTokenRoundTripAndRevoke(t *testing.T) {
	tokens := TokenService{Secret: []byte("k"), Issuer: "guarderia", Revoked: NewRevocationList()}
	s := session.Anonymous().Authenticate(session.Identity{UserID: 7, Username: "maria", Role: models.RoleEditor})
	s, err := s.Navigate(session.PageAttendance)
	if err != nil {
		t.Fatal(err)
	}

	signed, err := tokens.CreateSessionToken(s)
	if err != nil {
		t.Fatal(err)
	}
	parsed, jti, err := tokens.ParseSessionToken(signed)
	if err != nil {
		t.Fatal(err)
	}
	if parsed != s {
		t.Fatalf("got %+v, want %+v", parsed, s)
	}

	tokens.Revoke(jti)
	if _, _, err := tokens.ParseSessionToken(signed); err == nil {
		t.Fatal("revoked token accepted")
	}

	other := TokenService{Secret: []byte("other"), Issuer: "guarderia", Revoked: NewRevocationList()}
	if _, _, err := other.ParseSessionToken(signed); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
	if _, err := tokens.CreateSessionToken(session.Anonymous()); err == nil {
		t.Fatal("anonymous session must not be signed")
	}
}

func TestServiceErrorsCompare(t *testing.T) {
	err := WrapError(ErrDuplicateUsername, "create user")
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatal("wrapped sentinel not matched")
	}
}
