package model

import (
	"fmt"
	"strings"
	"time"
)

// Person is the profile of a signed-in user.
type Person struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	LinkedIn      string    `json:"linkedin,omitempty"`
	Location      string    `json:"location,omitempty"`
	CurrentRole   string    `json:"current_role,omitempty"`
	PriorRole     string    `json:"prior_role,omitempty"`
	Education     string    `json:"education,omitempty"`
	InternalNotes string    `json:"internal_notes,omitempty"`
	IsAdmin       bool      `json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NormalizeEmail lower-cases and trims an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName is "first last", falling back to the email and then to a dash.
func (p Person) DisplayName() string {
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		return name
	}
	if p.Email != "" {
		return p.Email
	}
	return "—"
}

// ProfileText renders the profile as the passage embedded by the suggest
// service. Empty fields are left out.
func (p Person) ProfileText() string {
	parts := make([]string, 0, 8)
	add := func(label, value string) {
		if v := strings.TrimSpace(value); v != "" {
			parts = append(parts, fmt.Sprintf("%s: %s.", label, v))
		}
	}
	add("Name", strings.TrimSpace(p.FirstName+" "+p.LastName))
	add("Email", p.Email)
	add("Location", p.Location)
	add("Current role", p.CurrentRole)
	add("Previous role", p.PriorRole)
	add("Education", p.Education)
	add("LinkedIn", p.LinkedIn)
	add("Notes", p.InternalNotes)
	return strings.Join(parts, " ")
}
