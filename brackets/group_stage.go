package brackets

import (
	"context"
	"fmt"

	"github.com/bekzhan-dev/tournament-platform/models"
)

const maxGroups = 4

type GroupStageGenerator struct{}

func NewGroupStageGenerator() BracketGenerator {
	return &GroupStageGenerator{}
}

func (g *GroupStageGenerator) GetName() string {
	return "GroupStage"
}

// GenerateBracket splits the field into up to four groups by index modulo
// (sizes balanced within one, strength not balanced), builds a single
// round-robin per group, and sizes an empty knockout skeleton for the
// qualifiers. Qualifier identities are unknown until group play concludes, so
// every knockout slot stays empty.
func (g *GroupStageGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*GeneratedBracket, error) {
	participants := params.Participants
	n := len(participants)
	if n == 0 {
		return nil, ErrNoParticipants
	}

	qualifiers := params.QualifiersPerGroup
	if qualifiers <= 0 {
		qualifiers = models.DefaultQualifiersPerGroup
	}

	groupCount := n / 4
	if groupCount < 1 {
		groupCount = 1
	}
	if groupCount > maxGroups {
		groupCount = maxGroups
	}

	groups := make([]*Group, groupCount)
	for i := range groups {
		groups[i] = &Group{Label: string(rune('A' + i))}
	}
	for i, p := range participants {
		grp := groups[i%groupCount]
		grp.Participants = append(grp.Participants, p)
	}

	matches := make([]*BracketMatch, 0)

	// Full round-robin within each group: every unordered pair plays once.
	// Group matches are not temporally ordered, so the round is fixed at 1 and
	// the match number counts up per group.
	for _, grp := range groups {
		label := grp.Label
		matchNumber := 0
		for i := 0; i < len(grp.Participants); i++ {
			for j := i + 1; j < len(grp.Participants); j++ {
				matchNumber++
				matches = append(matches, &BracketMatch{
					UID:          fmt.Sprintf("G%sM%d", label, matchNumber),
					Stage:        models.StageGroup,
					GroupLabel:   &grp.Label,
					Round:        1,
					MatchNumber:  matchNumber,
					Participant1: grp.Participants[i],
					Participant2: grp.Participants[j],
				})
			}
		}
	}

	if total := groupCount * qualifiers; total >= 2 {
		knockout := make([]*BracketMatch, 0, total-1)
		for num := 1; num <= total/2; num++ {
			knockout = append(knockout, &BracketMatch{
				UID:         knockoutUID(1, num),
				Stage:       models.StageKnockout,
				Round:       1,
				MatchNumber: num,
			})
		}
		knockout = append(knockout, placeholderRounds(2, total/2)...)
		linkKnockout(knockout)
		matches = append(matches, knockout...)
	}

	return &GeneratedBracket{Matches: matches, Groups: groups}, nil
}
