package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/bekzhan-dev/tournament-platform/models"
)

var ErrNoParticipants = errors.New("cannot generate a bracket with zero participants")

type GenerateBracketParams struct {
	Tournament   *models.Tournament
	Participants []*models.Participant

	// QualifiersPerGroup is how many entrants each group promotes into the
	// knockout stage. Zero means models.DefaultQualifiersPerGroup. Ignored by
	// the single-elimination generator.
	QualifiersPerGroup int
}

// BracketMatch is the in-memory match skeleton produced by a generator. It is
// plain data: the caller assigns database identifiers and persists it.
type BracketMatch struct {
	UID         string
	Stage       models.MatchStage
	GroupLabel  *string
	Round       int
	MatchNumber int

	Participant1 *models.Participant
	Participant2 *models.Participant

	// Winner is pre-set only for byes: the lone participant advances without
	// playing.
	Winner *models.Participant
	IsBye  bool

	// Feeder link, derived from bracket position: the winner of this match
	// occupies slot NextSlot (1 or 2) of the match identified by NextMatchUID.
	// Nil on the final and on all group-stage matches.
	NextMatchUID *string
	NextSlot     *int
}

type Group struct {
	Label        string
	Participants []*models.Participant
}

type GeneratedBracket struct {
	Matches []*BracketMatch

	// Groups is nil for single elimination.
	Groups []*Group
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) (*GeneratedBracket, error)

	GetName() string
}

// bracketSize returns the smallest power of two >= n (1 for n <= 1).
func bracketSize(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func knockoutUID(round, matchNumber int) string {
	return fmt.Sprintf("R%dM%d", round, matchNumber)
}

// placeholderRounds builds the empty rounds that follow a round holding
// prevCount matches: each round has ceil(previous/2) matches, down to the
// final. Matches carry no participants; they are structural slots.
func placeholderRounds(firstRound, prevCount int) []*BracketMatch {
	matches := make([]*BracketMatch, 0)
	for round := firstRound; prevCount > 1; round++ {
		count := (prevCount + 1) / 2
		for num := 1; num <= count; num++ {
			matches = append(matches, &BracketMatch{
				UID:         knockoutUID(round, num),
				Stage:       models.StageKnockout,
				Round:       round,
				MatchNumber: num,
			})
		}
		prevCount = count
	}
	return matches
}

// linkKnockout fills the feeder link of every non-final knockout match. The
// slice must hold a complete bracket ordered by (round, match number): the
// match at index i of round r feeds slot i%2+1 of match i/2+1 in round r+1.
func linkKnockout(matches []*BracketMatch) {
	byRound := make(map[int][]*BracketMatch)
	lastRound := 0
	for _, m := range matches {
		byRound[m.Round] = append(byRound[m.Round], m)
		if m.Round > lastRound {
			lastRound = m.Round
		}
	}
	for round := 1; round < lastRound; round++ {
		for i, m := range byRound[round] {
			uid := knockoutUID(round+1, i/2+1)
			slot := i%2 + 1
			m.NextMatchUID = &uid
			m.NextSlot = &slot
		}
	}
}
