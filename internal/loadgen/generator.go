package loadgen

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

var (
	firstNames = []string{"Ada", "Grace", "Linus", "Margaret", "Alan", "Katherine", "Dennis", "Barbara", "Ken", "Radia"}
	lastNames  = []string{"Lovelace", "Hopper", "Torvalds", "Hamilton", "Turing", "Johnson", "Ritchie", "Liskov", "Thompson", "Perlman"}
	locations  = []string{"Berlin", "Lisbon", "Nairobi", "Toronto", "Singapore", "Austin", "Warsaw", "Bogota"}
	roles      = []string{
		"Founder at a climate tech startup",
		"Staff engineer working on databases",
		"Product lead for developer tools",
		"Investor focused on seed rounds",
		"Researcher in machine learning",
		"Designer building fintech products",
		"Operator scaling a marketplace",
	}
	schools = []string{"TU Berlin", "University of Lisbon", "MIT", "ETH Zurich", "University of Nairobi", "Self-taught"}
	answers = []string{
		"I want to meet people building in the same space.",
		"Looking for co-founders and early hires.",
		"We are raising soon and want feedback from operators.",
		"Curious about the talks and happy to help organise.",
		"I run a community here and would love to connect.",
	}
)

// pick returns a random element of options using crypto/rand.
func pick(options []string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(options))))
	if err != nil {
		return options[0]
	}
	return options[n.Int64()]
}

// generateApplicants builds n applicants answering every question of the
// event. Emails are unique per run.
func generateApplicants(n int, questionIDs []string) []Applicant {
	out := make([]Applicant, n)
	for i := range out {
		first, last := pick(firstNames), pick(lastNames)
		a := Applicant{
			Email: strings.ToLower(first) + "." + uuid.NewString() + "@loadgen.example",
			Profile: Profile{
				FirstName:   first,
				LastName:    last,
				LinkedIn:    "https://www.linkedin.com/in/" + strings.ToLower(first+"-"+last),
				Location:    pick(locations),
				CurrentRole: pick(roles),
				PriorRole:   pick(roles),
				Education:   pick(schools),
			},
			Answers: make(map[string]string, len(questionIDs)),
		}
		for _, id := range questionIDs {
			a.Answers[id] = pick(answers)
		}
		out[i] = a
	}
	return out
}
