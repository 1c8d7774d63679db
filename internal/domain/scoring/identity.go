package scoring

import "github.com/okian/admit/internal/domain/model"

// IdentityMap maps person id to the id of that person's application in one
// event. It is only valid for the record set it was built from.
type IdentityMap map[string]string

// NewIdentityMap indexes apps by person.
func NewIdentityMap(apps []model.Application) IdentityMap {
	m := make(IdentityMap, len(apps))
	for _, a := range apps {
		m[a.PersonID] = a.ID
	}
	return m
}

// Translate re-keys person scores by application id. People without an
// application in the event are dropped; applications whose person has no
// score get no entry.
func (m IdentityMap) Translate(scores PersonScores) AppScores {
	out := make(AppScores, len(scores))
	for personID, score := range scores {
		if appID, ok := m[personID]; ok {
			out[appID] = score
		}
	}
	return out
}
