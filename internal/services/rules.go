package services

import (
	"strings"
	"time"

	"daycare-backend-go/internal/models"

	"github.com/asaskevich/govalidator"
)

const (
	DateLayout        = "2006-01-02"
	DisplayDateLayout = "02/01/2006"
)

type ageBracket struct {
	Min   int
	Max   int
	Label string
}

var ageBrackets = []ageBracket{
	{Min: 0, Max: 2, Label: "Oruguitas"},
	{Min: 2, Max: 4, Label: "Pollitos"},
	{Min: 4, Max: 7, Label: "Ovejitas"},
	{Min: 7, Max: 10, Label: "Leones"},
	{Min: 10, Max: 13, Label: "Panteras"},
}

// Groups lists the bracket labels from youngest to oldest.
func Groups() []string {
	labels := make([]string, 0, len(ageBrackets))
	for _, b := range ageBrackets {
		labels = append(labels, b.Label)
	}
	return labels
}

func IsGroup(label string) bool {
	for _, b := range ageBrackets {
		if b.Label == label {
			return true
		}
	}
	return label == models.NoGroup
}

// ClassifyAge returns the completed years between birthdate and today and the
// group whose [Min, Max) bracket holds that age.
func ClassifyAge(birthdate, today time.Time) (int, string) {
	age := today.Year() - birthdate.Year()
	if today.Month() < birthdate.Month() ||
		(today.Month() == birthdate.Month() && today.Day() < birthdate.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	for _, b := range ageBrackets {
		if age >= b.Min && age < b.Max {
			return age, b.Label
		}
	}
	return age, models.NoGroup
}

// ValidateContact checks the national ID and guardian phones. phone2 is only
// checked when present. Every failure is reported.
func ValidateContact(idNumber, phone1, phone2 string) []Violation {
	violations := []Violation{}
	if len(idNumber) != 9 || !govalidator.IsNumeric(idNumber) {
		violations = append(violations, Violation{Field: "nationalId", Message: "Cédula inválida. Debe tener 9 dígitos"})
	}
	if !validPhone(phone1) {
		violations = append(violations, Violation{Field: "guardian1Phone", Message: "Teléfono 1 inválido. Mínimo 8 dígitos"})
	}
	if phone2 != "" && !validPhone(phone2) {
		violations = append(violations, Violation{Field: "guardian2Phone", Message: "Teléfono 2 inválido. Mínimo 8 dígitos"})
	}
	return violations
}

func validPhone(phone string) bool {
	return len(phone) >= 8 && govalidator.IsNumeric(phone)
}

// MonthDays returns every date of the month in order.
func MonthDays(year int, month time.Month) []time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)
	count := int(next.Sub(first).Hours() / 24)
	days := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		days = append(days, first.AddDate(0, 0, i))
	}
	return days
}

type ChildInput struct {
	FullName       string  `json:"fullName"`
	NationalID     string  `json:"nationalId"`
	Guardian1Name  string  `json:"guardian1Name"`
	Guardian1Phone string  `json:"guardian1Phone"`
	Guardian2Name  *string `json:"guardian2Name"`
	Guardian2Phone *string `json:"guardian2Phone"`
	Email          *string `json:"email"`
	Allergies      *string `json:"allergies"`
	Birthdate      string  `json:"birthdate"`
	Address        *string `json:"address"`
	Program        string  `json:"program"`
}

func (in *ChildInput) normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.NationalID = strings.TrimSpace(in.NationalID)
	in.Guardian1Name = strings.TrimSpace(in.Guardian1Name)
	in.Guardian1Phone = strings.TrimSpace(in.Guardian1Phone)
	in.Birthdate = strings.TrimSpace(in.Birthdate)
	in.Program = strings.TrimSpace(in.Program)
	in.Guardian2Name = trimOptional(in.Guardian2Name)
	in.Guardian2Phone = trimOptional(in.Guardian2Phone)
	in.Email = trimOptional(in.Email)
	in.Allergies = trimOptional(in.Allergies)
	in.Address = trimOptional(in.Address)
}

// ValidateChild checks an enrollment form and returns a *ValidationError
// listing every problem, or nil.
func ValidateChild(in ChildInput, today time.Time) error {
	in.normalize()
	verr := &ValidationError{}
	if in.FullName == "" {
		verr.add("fullName", "El nombre es obligatorio")
	}
	if in.Guardian1Name == "" {
		verr.add("guardian1Name", "El encargado 1 es obligatorio")
	}
	if in.Birthdate == "" {
		verr.add("birthdate", "La fecha de nacimiento es obligatoria")
	} else if born, err := ParseDate(in.Birthdate); err != nil {
		verr.add("birthdate", "Fecha de nacimiento inválida")
	} else if born.After(today) {
		verr.add("birthdate", "La fecha de nacimiento no puede ser futura")
	}
	if !IsProgram(in.Program) {
		verr.add("program", "Programa inválido")
	}
	if in.Email != nil && !govalidator.IsEmail(*in.Email) {
		verr.add("email", "Correo electrónico inválido")
	}
	verr.Violations = append(verr.Violations, ValidateContact(in.NationalID, in.Guardian1Phone, derefString(in.Guardian2Phone))...)
	return verr.orNil()
}

func IsProgram(program string) bool {
	for _, p := range models.Programs {
		if p == program {
			return true
		}
	}
	return false
}

func IsRole(role string) bool {
	for _, r := range models.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(raw))
}

// FormatDisplayDate renders an ISO date as dd/mm/yyyy. Unparseable input is
// returned unchanged.
func FormatDisplayDate(iso string) string {
	parsed, err := ParseDate(iso)
	if err != nil {
		return iso
	}
	return parsed.Format(DisplayDateLayout)
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
