// matchday-system/brackets/single_elimination.go
package brackets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrNotEnoughEntries = errors.New("at least two entries are required to generate a bracket")

type BracketMatch struct {
	UID          string
	Round        int
	OrderInRound int

	Entry1ID *int
	Entry2ID *int

	SourceMatch1UID *string
	SourceMatch2UID *string

	IsPlaceholder bool

	IsBye      bool
	ByeEntryID *int
}

type node struct {
	entryID          *int
	sourceMatchUID   *string
	isByePlaceholder bool
}

type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket builds the full single elimination tree for the given
// entries. Seeding follows the order of params.Entries: the caller is
// expected to pass entries in registration order, so identical inputs
// always produce an identical bracket.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	entries := params.Entries
	n := len(entries)

	if n < 2 {
		return nil, ErrNotEnoughEntries
	}

	seeds := make([]*int, 0, n)
	for _, entry := range entries {
		id := entry.ID
		seeds = append(seeds, &id)
	}

	numRounds := int(math.Ceil(math.Log2(float64(n))))
	sizeOfFullBracket := 1 << uint(numRounds)

	allGeneratedMatches := make([]*BracketMatch, 0, sizeOfFullBracket-1)

	currentRoundNodes := make([]*node, sizeOfFullBracket)
	for i := 0; i < n; i++ {
		currentRoundNodes[i] = &node{entryID: seeds[i]}
	}
	for i := n; i < sizeOfFullBracket; i++ {
		currentRoundNodes[i] = &node{isByePlaceholder: true}
	}

	for r := 1; r <= numRounds; r++ {
		nextRoundNodes := make([]*node, 0, len(currentRoundNodes)/2)
		matchesInThisRound := 0

		for i := 0; i < len(currentRoundNodes); i += 2 {
			node1 := currentRoundNodes[i]
			node2 := currentRoundNodes[i+1]

			if node1.isByePlaceholder && node2.isByePlaceholder {
				// Оба слота пустые: победителя нет, слот остаётся пустым.
				nextRoundNodes = append(nextRoundNodes, &node{isByePlaceholder: true})
				continue
			}

			currentMatchUID := fmt.Sprintf("R%dM%d", r, matchesInThisRound+1)

			bm := &BracketMatch{
				UID:           currentMatchUID,
				Round:         r,
				OrderInRound:  matchesInThisRound + 1,
				IsPlaceholder: false,
			}

			if node1.entryID != nil {
				bm.Entry1ID = node1.entryID
			} else if node1.sourceMatchUID != nil {
				bm.SourceMatch1UID = node1.sourceMatchUID
				bm.IsPlaceholder = true
			}

			if node2.entryID != nil {
				bm.Entry2ID = node2.entryID
			} else if node2.sourceMatchUID != nil {
				bm.SourceMatch2UID = node2.sourceMatchUID
				bm.IsPlaceholder = true
			}

			if node1.entryID != nil && node2.isByePlaceholder {
				bm.IsBye = true
				bm.ByeEntryID = node1.entryID
				bm.Entry1ID = node1.entryID
				bm.Entry2ID = nil
				bm.IsPlaceholder = false
				nextRoundNodes = append(nextRoundNodes, &node{entryID: node1.entryID})

			} else if node2.entryID != nil && node1.isByePlaceholder {
				bm.IsBye = true
				bm.ByeEntryID = node2.entryID
				bm.Entry1ID = node2.entryID
				bm.Entry2ID = nil
				bm.IsPlaceholder = false
				nextRoundNodes = append(nextRoundNodes, &node{entryID: node2.entryID})

			} else if node1.entryID != nil && node2.entryID != nil {
				bm.IsPlaceholder = false
				nextRoundNodes = append(nextRoundNodes, &node{sourceMatchUID: &currentMatchUID})

			} else if node1.sourceMatchUID != nil || node2.sourceMatchUID != nil {
				nextRoundNodes = append(nextRoundNodes, &node{sourceMatchUID: &currentMatchUID})

			} else {
				return nil, fmt.Errorf("unexpected node combination for round %d, match %d: node1=%+v, node2=%+v", r, matchesInThisRound+1, node1, node2)
			}

			allGeneratedMatches = append(allGeneratedMatches, bm)
			matchesInThisRound++
		}
		currentRoundNodes = nextRoundNodes

		if len(currentRoundNodes) == 0 && r < numRounds {
			return nil, fmt.Errorf("internal error: no nodes left for round %d, but expected %d total rounds", r+1, numRounds)
		}
	}

	sort.Slice(allGeneratedMatches, func(i, j int) bool {
		if allGeneratedMatches[i].Round != allGeneratedMatches[j].Round {
			return allGeneratedMatches[i].Round < allGeneratedMatches[j].Round
		}
		return allGeneratedMatches[i].OrderInRound < allGeneratedMatches[j].OrderInRound
	})

	return allGeneratedMatches, nil
}
