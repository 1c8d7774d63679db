// Package filter derives the visible, ordered application list of a review
// session from its inputs. Everything here is a pure function of its
// arguments.
package filter

import (
	"sort"
	"strings"

	"github.com/okian/admit/internal/domain/model"
	"github.com/okian/admit/internal/domain/scoring"
	"github.com/okian/admit/internal/domain/types"
)

// Input is everything the pipeline reads.
type Input struct {
	// Records are the event's applications in store order.
	Records []model.Application
	Status  model.StatusFilter
	Query   string
	// Scores holds the active criterion's scores; nil or empty keeps store order.
	Scores scoring.AppScores
}

// Apply filters by status, then by query, then sorts by score when the
// active criterion has any. The input slice is not modified.
func Apply(in Input) []model.Application {
	needle := normalize(in.Query)
	out := make([]model.Application, 0, len(in.Records))
	for _, r := range in.Records {
		if !in.Status.Keeps(r.Status) {
			continue
		}
		if !matches(r, needle) {
			continue
		}
		out = append(out, r)
	}
	if len(in.Scores) > 0 {
		SortByScore(out, in.Scores)
	}
	return out
}

// Matches reports whether r matches query. A blank query matches everything.
func Matches(r model.Application, query string) bool {
	return matches(r, normalize(query))
}

// Counts returns per-status totals of the records matching query. The status
// filter is not an input: tabs show what each status would contain.
func Counts(records []model.Application, query string) types.TabCounts {
	needle := normalize(query)
	var c types.TabCounts
	for _, r := range records {
		if matches(r, needle) {
			c.Add(r.Status)
		}
	}
	return c
}

// SortByScore stably orders records by descending score. Unscored records
// compare as 0 here and nowhere else.
func SortByScore(records []model.Application, scores scoring.AppScores) {
	sort.SliceStable(records, func(i, j int) bool {
		return scores[records[i].ID] > scores[records[j].ID]
	})
}

func normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func matches(r model.Application, needle string) bool {
	if needle == "" {
		return true
	}
	p := r.Person
	// the full name rather than DisplayName, whose placeholder is not data
	for _, field := range [...]string{
		strings.TrimSpace(p.FirstName + " " + p.LastName),
		p.Email,
		p.Location,
		p.CurrentRole,
		p.PriorRole,
		p.Education,
	} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	for _, a := range r.Answers {
		if strings.Contains(strings.ToLower(a.Text), needle) {
			return true
		}
	}
	return false
}
