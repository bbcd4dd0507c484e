// Package session models the per-user interaction state: who is logged in and
// which page they are on. A Session is a value; every transition returns a new
// one and leaves the receiver untouched.
package session

import (
	"errors"

	"daycare-backend-go/internal/models"
)

type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

type Page string

const (
	PageChildren       Page = "children"
	PageAttendance     Page = "attendance"
	PageEgress         Page = "egress"
	PageEgressHistory  Page = "egress-history"
	PageAdministration Page = "administration"
	PageChildDetail    Page = "child-detail"
)

var (
	ErrNotAuthenticated = errors.New("session: not authenticated")
	ErrPageNotAllowed   = errors.New("session: page not allowed for role")
	ErrUnknownPage      = errors.New("session: unknown page")
)

type MenuItem struct {
	Page  Page   `json:"page"`
	Label string `json:"label"`
}

var menu = []MenuItem{
	{Page: PageChildren, Label: "Registro de Niños"},
	{Page: PageAttendance, Label: "Control de Asistencias"},
	{Page: PageEgress, Label: "Egreso de Niños"},
	{Page: PageEgressHistory, Label: "Historial de Egresos"},
	{Page: PageAdministration, Label: "Administración"},
}

// Identity is what a successful login proves. Version is the account's token
// version at that moment.
type Identity struct {
	UserID   int64
	Username string
	Role     string
	Version  int64
}

type Session struct {
	State    State  `json:"state"`
	UserID   int64  `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	Page     Page   `json:"page,omitempty"`
	Version  int64  `json:"-"`
}

func Anonymous() Session {
	return Session{State: StateUnauthenticated}
}

// Authenticate moves to the authenticated state on the default page.
func (s Session) Authenticate(id Identity) Session {
	return Session{
		State:    StateAuthenticated,
		UserID:   id.UserID,
		Username: id.Username,
		Role:     id.Role,
		Page:     PageChildren,
		Version:  id.Version,
	}
}

func (s Session) Logout() Session {
	return Anonymous()
}

func (s Session) Navigate(page Page) (Session, error) {
	if !s.Authenticated() {
		return s, ErrNotAuthenticated
	}
	if !knownPage(page) {
		return s, ErrUnknownPage
	}
	if !CanView(s.Role, page) {
		return s, ErrPageNotAllowed
	}
	next := s
	next.Page = page
	return next, nil
}

func (s Session) Authenticated() bool {
	return s.State == StateAuthenticated
}

func (s Session) IsAdmin() bool {
	return s.Authenticated() && s.Role == models.RoleAdmin
}

// CanWrite reports whether the session may change records. Viewers are
// read-only.
func (s Session) CanWrite() bool {
	return s.Authenticated() && (s.Role == models.RoleAdmin || s.Role == models.RoleEditor)
}

func (s Session) Menu() []MenuItem {
	if !s.Authenticated() {
		return []MenuItem{}
	}
	return MenuFor(s.Role)
}

func MenuFor(role string) []MenuItem {
	items := make([]MenuItem, 0, len(menu))
	for _, item := range menu {
		if CanView(role, item.Page) {
			items = append(items, item)
		}
	}
	return items
}

func CanView(role string, page Page) bool {
	if page == PageAdministration {
		return role == models.RoleAdmin
	}
	return role == models.RoleAdmin || role == models.RoleEditor || role == models.RoleViewer
}

func knownPage(page Page) bool {
	if page == PageChildDetail {
		return true
	}
	for _, item := range menu {
		if item.Page == page {
			return true
		}
	}
	return false
}
