package schedule

import (
	"errors"

	"github.com/Dosada05/matchday-system/models"
)

var (
	ErrRosterTooSmall = errors.New("roster must contain at least two teams")
	ErrInvalidRounds  = errors.New("number of rounds must be positive")
)

// Pairing is one generated game before persistence: home hosts away.
type Pairing struct {
	Home models.Team
	Away models.Team
}

// Round holds the pairings of one rotation step. With an odd roster exactly
// one team sits out and is reported as Bye.
type Round struct {
	Number   int
	Pairings []Pairing
	Bye      *models.Team
}

// CycleLength returns the number of rounds in which every pair of teams
// meets exactly once: n-1 for even rosters, n for odd ones (one bye per
// round).
func CycleLength(n int) int {
	if n%2 == 0 {
		return n - 1
	}
	return n
}

// FullSeasonLength is the double cycle a normal season plays: every pair
// meets twice, venues swapped on the second meeting.
func FullSeasonLength(n int) int {
	return 2 * CycleLength(n)
}

// GenerateRounds builds a circle-method round robin: slot 0 stays fixed and
// the remaining slots rotate by one each round, so every unordered pair meets
// exactly once per cycle. Odd rosters get a phantom slot whose opponent takes
// the bye. The fixed team alternates venue round by round, and every second
// cycle reverses all venues, which keeps home/away counts within one of each
// other over a double cycle.
func GenerateRounds(teams []models.Team, rounds int) ([]Round, error) {
	if len(teams) < 2 {
		return nil, ErrRosterTooSmall
	}
	if rounds <= 0 {
		return nil, ErrInvalidRounds
	}

	working := make([]*models.Team, 0, len(teams)+1)
	for i := range teams {
		working = append(working, &teams[i])
	}
	if len(working)%2 == 1 {
		working = append(working, nil)
	}

	slotCycle := len(working) - 1
	result := make([]Round, 0, rounds)

	for round := 0; round < rounds; round++ {
		roundInCycle := round % slotCycle
		flipCycle := (round/slotCycle)%2 == 1

		r := Round{Number: round + 1}
		for i := 0; i < len(working)/2; i++ {
			left := working[i]
			right := working[len(working)-1-i]
			if left == nil {
				r.Bye = right
				continue
			}
			if right == nil {
				r.Bye = left
				continue
			}
			home, away := *left, *right
			if i == 0 && roundInCycle%2 == 1 {
				home, away = away, home
			}
			if flipCycle {
				home, away = away, home
			}
			r.Pairings = append(r.Pairings, Pairing{Home: home, Away: away})
		}
		result = append(result, r)
		rotateSlots(working)
	}

	return result, nil
}

func rotateSlots(slots []*models.Team) {
	if len(slots) <= 2 {
		return
	}
	last := slots[len(slots)-1]
	copy(slots[2:], slots[1:len(slots)-1])
	slots[1] = last
}
