// matchday-system/schedule/compact.go
package schedule

import (
	"errors"

	"github.com/Dosada05/matchday-system/models"
)

var ErrInsufficientDays = errors.New("not enough days to place every required pairing")

// DayPlan is the set of games assigned to one relative day (1..days).
type DayPlan struct {
	Day      int
	Pairings []Pairing
}

// PlanFullSeason lays out a normal season: a double cycle with one round per
// day, days 1..FullSeasonLength(n).
func PlanFullSeason(teams []models.Team) ([]DayPlan, error) {
	rounds, err := GenerateRounds(teams, FullSeasonLength(len(teams)))
	if err != nil {
		return nil, err
	}
	plans := make([]DayPlan, 0, len(rounds))
	for _, r := range rounds {
		plans = append(plans, DayPlan{Day: r.Number, Pairings: r.Pairings})
	}
	return plans, nil
}

// CompactCycle packs a single full cycle (every pair once) into the given
// number of days for a subdivision admitted after the season start.
//
// Games stream in rotation order onto the earliest day that still has quota
// room and no team conflict. The per-day quota is ceil(games/days); the last
// day is exempt from it and absorbs whatever even packing leaves over, bound
// only by the one-game-per-team-per-day invariant. A day can therefore carry
// fixtures from two adjacent rotation rounds when the quota undercuts the
// round size. Output is identical for identical roster order and day count.
func CompactCycle(teams []models.Team, days int) ([]DayPlan, error) {
	n := len(teams)
	if n < 2 {
		return nil, ErrRosterTooSmall
	}
	if days <= 0 {
		return nil, ErrInsufficientDays
	}

	games := n * (n - 1) / 2
	capacity := n / 2
	if games > days*capacity {
		return nil, ErrInsufficientDays
	}

	rounds, err := GenerateRounds(teams, CycleLength(n))
	if err != nil {
		return nil, err
	}

	quota := (games + days - 1) / days
	plans := make([]DayPlan, days)
	busy := make([]map[int]bool, days)
	for d := 0; d < days; d++ {
		plans[d] = DayPlan{Day: d + 1}
		busy[d] = make(map[int]bool)
	}

	for _, r := range rounds {
		for _, p := range r.Pairings {
			placed := false
			for d := 0; d < days; d++ {
				if d < days-1 && len(plans[d].Pairings) >= quota {
					continue
				}
				if busy[d][p.Home.ID] || busy[d][p.Away.ID] {
					continue
				}
				plans[d].Pairings = append(plans[d].Pairings, p)
				busy[d][p.Home.ID] = true
				busy[d][p.Away.ID] = true
				placed = true
				break
			}
			if !placed {
				return nil, ErrInsufficientDays
			}
		}
	}

	// Drop unused trailing days so the schedule ends with its catch-up day.
	end := len(plans)
	for end > 0 && len(plans[end-1].Pairings) == 0 {
		end--
	}
	return plans[:end], nil
}
