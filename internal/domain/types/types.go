// Package types contains the read shapes returned by review sessions.
package types

import (
	"fmt"

	"github.com/okian/admit/internal/domain/model"
)

// Row is one application as shown in the review table.
type Row struct {
	Rank          int          `json:"rank"`
	ApplicationID string       `json:"application_id"`
	PersonID      string       `json:"person_id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	Location      string       `json:"location,omitempty"`
	CurrentRole   string       `json:"current_role,omitempty"`
	Status        model.Status `json:"status"`
	// Score is nil when the active criterion has not scored this person.
	Score         *float64       `json:"score"`
	ScorePercent  string         `json:"score_percent,omitempty"`
	Selected      bool           `json:"selected"`
	InternalNotes string         `json:"internal_notes,omitempty"`
	Answers       []model.Answer `json:"answers"`
}

// TabCounts is the number of applications per status tab.
type TabCounts struct {
	All       int `json:"all"`
	Applied   int `json:"applied"`
	Confirmed int `json:"confirmed"`
	Rejected  int `json:"rejected"`
}

// Add counts one application with status s.
func (c *TabCounts) Add(s model.Status) {
	c.All++
	switch s {
	case model.StatusApplied:
		c.Applied++
	case model.StatusConfirmed:
		c.Confirmed++
	case model.StatusRejected:
		c.Rejected++
	}
}

// FormatPercent renders a similarity in [0,1] as "93.4%". Nil renders empty.
func FormatPercent(score *float64) string {
	if score == nil {
		return ""
	}
	return fmt.Sprintf("%.1f%%", *score*100)
}

// NewRow builds a table row for app. score may be nil.
func NewRow(rank int, app model.Application, score *float64, selected bool) Row {
	return Row{
		Rank:          rank,
		ApplicationID: app.ID,
		PersonID:      app.PersonID,
		Name:          app.Person.DisplayName(),
		Email:         app.Person.Email,
		Location:      app.Person.Location,
		CurrentRole:   app.Person.CurrentRole,
		Status:        app.Status,
		Score:         score,
		ScorePercent:  FormatPercent(score),
		Selected:      selected,
		InternalNotes: app.InternalNotes,
		Answers:       app.Answers,
	}
}
