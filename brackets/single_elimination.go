package brackets

import (
	"context"
	"sort"

	"github.com/bekzhan-dev/tournament-platform/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket builds a complete single-elimination skeleton for the given
// participants. Byes for non-power-of-two fields go to the lowest seed numbers
// after a stable ascending sort by seed; bye matches are emitted pre-resolved
// with the participant as winner. Rounds after the first are empty placeholders
// halving in size down to the final, with feeder links set by position.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*GeneratedBracket, error) {
	participants := params.Participants
	n := len(participants)
	if n == 0 {
		return nil, ErrNoParticipants
	}

	seeded := make([]*models.Participant, n)
	copy(seeded, participants)
	sort.SliceStable(seeded, func(i, j int) bool {
		return seeded[i].Seed < seeded[j].Seed
	})

	// A field of one is already decided: a single resolved bye and no further
	// rounds.
	if n == 1 {
		return &GeneratedBracket{Matches: []*BracketMatch{{
			UID:          knockoutUID(1, 1),
			Stage:        models.StageKnockout,
			Round:        1,
			MatchNumber:  1,
			Participant1: seeded[0],
			Winner:       seeded[0],
			IsBye:        true,
		}}}, nil
	}

	fullSize := bracketSize(n)
	byeCount := fullSize - n

	matches := make([]*BracketMatch, 0, fullSize-1)

	// Contested round-1 matches first, numbered from 1 in pairing order. The
	// participants left after bye allocation always pair off evenly.
	playing := seeded[byeCount:]
	matchNumber := 0
	for i := 0; i < len(playing); i += 2 {
		matchNumber++
		matches = append(matches, &BracketMatch{
			UID:          knockoutUID(1, matchNumber),
			Stage:        models.StageKnockout,
			Round:        1,
			MatchNumber:  matchNumber,
			Participant1: playing[i],
			Participant2: playing[i+1],
		})
	}

	// One resolved bye match per top seed, numbered after the contested block.
	for _, p := range seeded[:byeCount] {
		matchNumber++
		matches = append(matches, &BracketMatch{
			UID:          knockoutUID(1, matchNumber),
			Stage:        models.StageKnockout,
			Round:        1,
			MatchNumber:  matchNumber,
			Participant1: p,
			Winner:       p,
			IsBye:        true,
		})
	}

	matches = append(matches, placeholderRounds(2, matchNumber)...)
	linkKnockout(matches)

	return &GeneratedBracket{Matches: matches}, nil
}
