package brackets

import (
	"context"
	"fmt"
	"testing"

	"github.com/bekzhan-dev/tournament-platform/models"
)

func generateGroups(t *testing.T, participants []*models.Participant, qualifiers int) *GeneratedBracket {
	t.Helper()
	result, err := NewGroupStageGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		Participants:       participants,
		QualifiersPerGroup: qualifiers,
	})
	if err != nil {
		t.Fatalf("GenerateBracket failed: %v", err)
	}
	return result
}

func splitStages(matches []*BracketMatch) (group, knockout []*BracketMatch) {
	for _, m := range matches {
		if m.Stage == models.StageGroup {
			group = append(group, m)
		} else {
			knockout = append(knockout, m)
		}
	}
	return group, knockout
}

func TestGroupStageEmptyField(t *testing.T) {
	_, err := NewGroupStageGenerator().GenerateBracket(context.Background(), GenerateBracketParams{})
	if err != ErrNoParticipants {
		t.Fatalf("expected ErrNoParticipants, got %v", err)
	}
}

// Six entrants stay below the two-group threshold: one group of six, a full
// round-robin of 15, and with two qualifiers the knockout is just the final.
func TestGroupStageSingleGroupOfSix(t *testing.T) {
	result := generateGroups(t, testParticipants(6), 0)

	if len(result.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(result.Groups))
	}
	if result.Groups[0].Label != "A" {
		t.Errorf("single group labelled %q, want A", result.Groups[0].Label)
	}
	if len(result.Groups[0].Participants) != 6 {
		t.Errorf("group A holds %d participants, want 6", len(result.Groups[0].Participants))
	}

	group, knockout := splitStages(result.Matches)
	if len(group) != 15 {
		t.Errorf("expected 15 round-robin matches, got %d", len(group))
	}
	if len(knockout) != 1 {
		t.Fatalf("expected the knockout to be a lone final, got %d matches", len(knockout))
	}
	if knockout[0].Round != 1 || knockout[0].MatchNumber != 1 {
		t.Errorf("final placed at round %d match %d", knockout[0].Round, knockout[0].MatchNumber)
	}
}

func TestGroupStageFourGroupsOfFour(t *testing.T) {
	result := generateGroups(t, testParticipants(16), 0)

	if len(result.Groups) != 4 {
		t.Fatalf("expected 4 groups, got %d", len(result.Groups))
	}
	for i, grp := range result.Groups {
		wantLabel := string(rune('A' + i))
		if grp.Label != wantLabel {
			t.Errorf("group %d labelled %q, want %q", i, grp.Label, wantLabel)
		}
		if len(grp.Participants) != 4 {
			t.Errorf("group %s holds %d participants, want 4", grp.Label, len(grp.Participants))
		}
	}

	group, knockout := splitStages(result.Matches)
	if len(group) != 24 {
		t.Errorf("expected 4x6=24 group matches, got %d", len(group))
	}

	// Eight qualifiers: quarter-final round of 4, then 2, then the final.
	byRound := matchesByRound(knockout)
	if len(byRound[1]) != 4 || len(byRound[2]) != 2 || len(byRound[3]) != 1 {
		t.Fatalf("knockout rounds of %d/%d/%d, want 4/2/1",
			len(byRound[1]), len(byRound[2]), len(byRound[3]))
	}
	for _, m := range knockout {
		if m.Participant1 != nil || m.Participant2 != nil || m.Winner != nil {
			t.Errorf("knockout slot %s must stay empty until group play ends", m.UID)
		}
	}
}

func TestGroupStageModuloDistribution(t *testing.T) {
	participants := testParticipants(10)
	result := generateGroups(t, participants, 0)

	// floor(10/4) = 2 groups, filled round-robin by index.
	if len(result.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(result.Groups))
	}
	for i, p := range participants {
		grp := result.Groups[i%2]
		found := false
		for _, member := range grp.Participants {
			if member == p {
				found = true
			}
		}
		if !found {
			t.Errorf("participant %d missing from group %s", p.ID, grp.Label)
		}
	}
}

func TestGroupStageSizeBalance(t *testing.T) {
	for n := 1; n <= 40; n++ {
		result := generateGroups(t, testParticipants(n), 0)

		minSize, maxSize, total := n, 0, 0
		for _, grp := range result.Groups {
			size := len(grp.Participants)
			total += size
			if size < minSize {
				minSize = size
			}
			if size > maxSize {
				maxSize = size
			}
		}
		if total != n {
			t.Errorf("n=%d: groups hold %d participants in total", n, total)
		}
		if maxSize-minSize > 1 {
			t.Errorf("n=%d: group sizes spread %d..%d", n, minSize, maxSize)
		}

		wantGroups := n / 4
		if wantGroups < 1 {
			wantGroups = 1
		}
		if wantGroups > 4 {
			wantGroups = 4
		}
		if len(result.Groups) != wantGroups {
			t.Errorf("n=%d: %d groups, want %d", n, len(result.Groups), wantGroups)
		}
	}
}

// Every unordered pair within a group must meet exactly once.
func TestGroupStageRoundRobinCompleteness(t *testing.T) {
	result := generateGroups(t, testParticipants(11), 0)
	group, _ := splitStages(result.Matches)

	pairs := make(map[string]int)
	for _, m := range group {
		a, b := m.Participant1.ID, m.Participant2.ID
		if a > b {
			a, b = b, a
		}
		pairs[fmt.Sprintf("%s:%d-%d", *m.GroupLabel, a, b)]++
	}

	expected := 0
	for _, grp := range result.Groups {
		k := len(grp.Participants)
		expected += k * (k - 1) / 2
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				a, b := grp.Participants[i].ID, grp.Participants[j].ID
				if a > b {
					a, b = b, a
				}
				key := fmt.Sprintf("%s:%d-%d", grp.Label, a, b)
				if pairs[key] != 1 {
					t.Errorf("pair %s plays %d times, want exactly once", key, pairs[key])
				}
			}
		}
	}
	if len(group) != expected {
		t.Errorf("%d group matches, want %d", len(group), expected)
	}
}

func TestGroupStageMatchNumberingPerGroup(t *testing.T) {
	result := generateGroups(t, testParticipants(16), 0)
	group, _ := splitStages(result.Matches)

	seen := make(map[string]bool)
	for _, m := range group {
		if m.Round != 1 {
			t.Errorf("group match %s in round %d, group play is round 1", m.UID, m.Round)
		}
		key := fmt.Sprintf("%s/%d/%d", *m.GroupLabel, m.Round, m.MatchNumber)
		if seen[key] {
			t.Errorf("duplicate match number within group: %s", key)
		}
		seen[key] = true
	}
}

// The knockout skeleton must scale with the qualifiers-per-group setting, not
// a built-in constant.
func TestGroupStageQualifierCount(t *testing.T) {
	cases := []struct {
		qualifiers   int
		wantPerRound []int
	}{
		{1, []int{2, 1}},       // 4 qualifiers
		{2, []int{4, 2, 1}},    // 8 qualifiers
		{3, []int{6, 3, 2, 1}}, // 12 qualifiers
		{4, []int{8, 4, 2, 1}}, // 16 qualifiers
	}

	for _, tc := range cases {
		result := generateGroups(t, testParticipants(16), tc.qualifiers)
		_, knockout := splitStages(result.Matches)
		byRound := matchesByRound(knockout)

		if len(byRound) != len(tc.wantPerRound) {
			t.Errorf("qualifiers=%d: %d knockout rounds, want %d",
				tc.qualifiers, len(byRound), len(tc.wantPerRound))
			continue
		}
		for round, want := range tc.wantPerRound {
			if got := len(byRound[round+1]); got != want {
				t.Errorf("qualifiers=%d: round %d has %d matches, want %d",
					tc.qualifiers, round+1, got, want)
			}
		}
	}
}

func TestGroupStageKnockoutFeederLinks(t *testing.T) {
	result := generateGroups(t, testParticipants(16), 0)
	_, knockout := splitStages(result.Matches)
	byRound := matchesByRound(knockout)

	for round := 1; round < len(byRound); round++ {
		for i, m := range byRound[round] {
			if m.NextMatchUID == nil || m.NextSlot == nil {
				t.Fatalf("knockout match %s missing feeder link", m.UID)
			}
			wantUID := fmt.Sprintf("R%dM%d", round+1, i/2+1)
			if *m.NextMatchUID != wantUID || *m.NextSlot != i%2+1 {
				t.Errorf("match %s feeds %s slot %d, want %s slot %d",
					m.UID, *m.NextMatchUID, *m.NextSlot, wantUID, i%2+1)
			}
		}
	}

	group, _ := splitStages(result.Matches)
	for _, m := range group {
		if m.NextMatchUID != nil {
			t.Errorf("group match %s must not carry a feeder link", m.UID)
		}
	}
}

func TestGroupStageDeterminism(t *testing.T) {
	participants := testParticipants(13)
	first := generateGroups(t, participants, 0)
	second := generateGroups(t, participants, 0)

	if len(first.Matches) != len(second.Matches) {
		t.Fatalf("match counts differ: %d vs %d", len(first.Matches), len(second.Matches))
	}
	for i := range first.Matches {
		a, b := first.Matches[i], second.Matches[i]
		if a.UID != b.UID || a.Stage != b.Stage {
			t.Fatalf("match %d differs: %s vs %s", i, a.UID, b.UID)
		}
		if (a.Participant1 == nil) != (b.Participant1 == nil) ||
			(a.Participant1 != nil && a.Participant1.ID != b.Participant1.ID) {
			t.Fatalf("match %s: participant1 differs", a.UID)
		}
	}
	for i := range first.Groups {
		if first.Groups[i].Label != second.Groups[i].Label ||
			len(first.Groups[i].Participants) != len(second.Groups[i].Participants) {
			t.Fatalf("group %d differs between runs", i)
		}
	}
}
