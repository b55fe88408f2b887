package teams

import (
	"fmt"
	"math/rand"
	"strings"
)

// DefaultPassword is the shared credential for generated team accounts. It
// must match what the submission sink authenticates with.
const DefaultPassword = "team_password"

// Team is one synthetic contest team plus its user account.
type Team struct {
	ID           string
	ICPCID       string
	Label        string
	TeamNum      int
	Name         string
	DisplayName  string
	Affiliation  string
	GroupID      string
	Username     string
	UserFullName string
	Password     string
	// PlatformID is the id assigned at registration. It usually equals ID.
	PlatformID string
}

var nameAdjectives = []string{
	"Quantum", "Recursive", "Parallel", "Lazy", "Greedy", "Binary",
	"Dynamic", "Atomic", "Cosmic", "Turbo", "Hidden", "Fuzzy",
	"Rusty", "Silent", "Rapid", "Golden",
}

var nameNouns = []string{
	"Turtles", "Compilers", "Heaps", "Pointers", "Lambdas", "Pandas",
	"Wizards", "Sprinters", "Octopi", "Falcons", "Giraffes", "Kernels",
	"Vikings", "Otters", "Raccoons", "Badgers",
}

var personFirst = []string{
	"Alex", "Sam", "Robin", "Jamie", "Casey", "Morgan", "Taylor",
	"Jordan", "Riley", "Quinn", "Avery", "Drew",
}

var personLast = []string{
	"Jansen", "Novak", "Silva", "Tanaka", "Kowalski", "Okafor",
	"Petrov", "Lindqvist", "Moreau", "Castillo", "Bauer", "Haddad",
}

var fallbackAffiliations = []string{
	"Delft Institute of Logic", "Aurora State University", "Hilltop College",
	"Meridian Polytechnic", "Northgate University", "Lakeview Tech",
	"Redwood Academy", "Harborview Institute", "Summit College",
	"Easton University",
}

// NewRoster generates count teams starting at startIndex, drawing names from
// rnd. Affiliations come from pool, or from a built-in fallback pool when it
// is empty.
func NewRoster(rnd *rand.Rand, count, startIndex int, pool []string, password string) []Team {
	if len(pool) == 0 {
		pool = fallbackAffiliations
	}
	if password == "" {
		password = DefaultPassword
	}
	roster := make([]Team, 0, count)
	for i := 0; i < count; i++ {
		num := startIndex + i + 1
		id := fmt.Sprintf("team%03d", num)
		name := teamName(rnd)
		roster = append(roster, Team{
			ID:           id,
			ICPCID:       id,
			Label:        id,
			TeamNum:      num,
			Name:         name,
			DisplayName:  name,
			Affiliation:  pool[rnd.Intn(len(pool))],
			GroupID:      "participants",
			Username:     id,
			UserFullName: personName(rnd),
			Password:     password,
		})
	}
	return roster
}

func teamName(rnd *rand.Rand) string {
	return nameAdjectives[rnd.Intn(len(nameAdjectives))] + " " + nameNouns[rnd.Intn(len(nameNouns))]
}

func personName(rnd *rand.Rand) string {
	return strings.Join([]string{
		personFirst[rnd.Intn(len(personFirst))],
		personLast[rnd.Intn(len(personLast))],
	}, " ")
}
