package brackets

import (
	"context"
	"fmt"
	"testing"

	"github.com/bekzhan-dev/tournament-platform/models"
)

func testParticipants(n int) []*models.Participant {
	participants := make([]*models.Participant, n)
	for i := range participants {
		participants[i] = &models.Participant{
			ID:   i + 1,
			Name: fmt.Sprintf("Player %d", i+1),
			Seed: i + 1,
		}
	}
	return participants
}

func generateSingle(t *testing.T, participants []*models.Participant) []*BracketMatch {
	t.Helper()
	result, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		Participants: participants,
	})
	if err != nil {
		t.Fatalf("GenerateBracket failed: %v", err)
	}
	return result.Matches
}

func matchesByRound(matches []*BracketMatch) map[int][]*BracketMatch {
	byRound := make(map[int][]*BracketMatch)
	for _, m := range matches {
		byRound[m.Round] = append(byRound[m.Round], m)
	}
	return byRound
}

func TestSingleEliminationEmptyField(t *testing.T) {
	_, err := NewSingleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{})
	if err != ErrNoParticipants {
		t.Fatalf("expected ErrNoParticipants, got %v", err)
	}
}

func TestSingleEliminationOneParticipant(t *testing.T) {
	matches := generateSingle(t, testParticipants(1))

	if len(matches) != 1 {
		t.Fatalf("expected exactly 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.Round != 1 || m.MatchNumber != 1 {
		t.Errorf("expected round 1 match 1, got round %d match %d", m.Round, m.MatchNumber)
	}
	if !m.IsBye {
		t.Error("single-participant match must be a bye")
	}
	if m.Participant1 == nil || m.Participant1.Seed != 1 {
		t.Error("participant1 must be the lone entrant")
	}
	if m.Winner != m.Participant1 {
		t.Error("bye winner must equal participant1")
	}
	if m.NextMatchUID != nil {
		t.Error("a one-participant bracket has no further rounds to feed")
	}
}

func TestSingleEliminationFiveParticipants(t *testing.T) {
	matches := generateSingle(t, testParticipants(5))

	// 3 byes + 1 contested match in round 1, then 2 and 1 placeholders.
	if len(matches) != 7 {
		t.Fatalf("expected 7 matches for a field of 5, got %d", len(matches))
	}

	byRound := matchesByRound(matches)
	if len(byRound[1]) != 4 || len(byRound[2]) != 2 || len(byRound[3]) != 1 {
		t.Fatalf("expected rounds of 4/2/1, got %d/%d/%d",
			len(byRound[1]), len(byRound[2]), len(byRound[3]))
	}

	var byeSeeds []int
	var contested []*BracketMatch
	for _, m := range byRound[1] {
		if m.IsBye {
			if m.Winner == nil || m.Winner != m.Participant1 {
				t.Errorf("bye match %s is not pre-resolved", m.UID)
			}
			byeSeeds = append(byeSeeds, m.Participant1.Seed)
		} else {
			contested = append(contested, m)
		}
	}
	if len(byeSeeds) != 3 {
		t.Fatalf("expected 3 byes, got %d", len(byeSeeds))
	}
	for _, seed := range byeSeeds {
		if seed > 3 {
			t.Errorf("bye went to seed %d, byes belong to the top 3 seeds", seed)
		}
	}
	if len(contested) != 1 {
		t.Fatalf("expected a single contested round-1 match, got %d", len(contested))
	}
	if contested[0].Participant1.Seed != 4 || contested[0].Participant2.Seed != 5 {
		t.Errorf("contested match should pair seeds 4 and 5, got %d and %d",
			contested[0].Participant1.Seed, contested[0].Participant2.Seed)
	}

	for _, m := range byRound[2] {
		if m.Participant1 != nil || m.Participant2 != nil || m.Winner != nil {
			t.Errorf("placeholder %s must carry no participants", m.UID)
		}
	}
}

func TestSingleEliminationPowerOfTwoField(t *testing.T) {
	matches := generateSingle(t, testParticipants(8))

	byRound := matchesByRound(matches)
	if len(byRound[1]) != 4 || len(byRound[2]) != 2 || len(byRound[3]) != 1 {
		t.Fatalf("expected rounds of 4/2/1, got %d/%d/%d",
			len(byRound[1]), len(byRound[2]), len(byRound[3]))
	}

	wantPairs := [][2]int{{1, 2}, {3, 4}, {5, 6}, {7, 8}}
	for i, m := range byRound[1] {
		if m.IsBye {
			t.Fatalf("no byes expected in a power-of-two field, match %s is one", m.UID)
		}
		if m.MatchNumber != i+1 {
			t.Errorf("round-1 match %d numbered %d", i, m.MatchNumber)
		}
		if m.Participant1.Seed != wantPairs[i][0] || m.Participant2.Seed != wantPairs[i][1] {
			t.Errorf("match %d pairs seeds %d and %d, want %v",
				i+1, m.Participant1.Seed, m.Participant2.Seed, wantPairs[i])
		}
	}
}

// Round-1 slots (two per match, byes included) must fill the smallest power of
// two >= N, the byes must go to the P-N lowest seeds, and the round count must
// be log2 of the bracket size.
func TestSingleEliminationBracketCompleteness(t *testing.T) {
	for n := 2; n <= 33; n++ {
		matches := generateSingle(t, testParticipants(n))
		byRound := matchesByRound(matches)

		fullSize := 1
		rounds := 0
		for fullSize < n {
			fullSize <<= 1
			rounds++
		}

		if got := len(byRound[1]) * 2; got != fullSize {
			t.Errorf("n=%d: round-1 slots = %d, want bracket size %d", n, got, fullSize)
		}
		if len(byRound) != rounds {
			t.Errorf("n=%d: got %d rounds, want %d", n, len(byRound), rounds)
		}
		if final := byRound[rounds]; len(final) != 1 {
			t.Errorf("n=%d: final round has %d matches", n, len(final))
		}

		byeCount := fullSize - n
		seen := 0
		for _, m := range byRound[1] {
			if !m.IsBye {
				continue
			}
			seen++
			if m.Participant1.Seed > byeCount {
				t.Errorf("n=%d: bye for seed %d, only the top %d seeds rest", n, m.Participant1.Seed, byeCount)
			}
		}
		if seen != byeCount {
			t.Errorf("n=%d: %d byes, want %d", n, seen, byeCount)
		}

		expected := (n - byeCount) / 2
		if contested := len(byRound[1]) - seen; contested != expected {
			t.Errorf("n=%d: %d contested round-1 matches, want %d", n, contested, expected)
		}
	}
}

func TestSingleEliminationMatchNumberingUnique(t *testing.T) {
	for _, n := range []int{2, 3, 5, 8, 13, 16, 31, 64} {
		matches := generateSingle(t, testParticipants(n))
		seen := make(map[[2]int]bool)
		for _, m := range matches {
			key := [2]int{m.Round, m.MatchNumber}
			if seen[key] {
				t.Errorf("n=%d: duplicate (round, matchNumber) = %v", n, key)
			}
			seen[key] = true
		}
	}
}

func TestSingleEliminationFeederLinks(t *testing.T) {
	for _, n := range []int{2, 5, 8, 13} {
		matches := generateSingle(t, testParticipants(n))
		byRound := matchesByRound(matches)

		lastRound := len(byRound)
		for round := 1; round <= lastRound; round++ {
			for i, m := range byRound[round] {
				if round == lastRound {
					if m.NextMatchUID != nil {
						t.Errorf("n=%d: final %s has a feeder link", n, m.UID)
					}
					continue
				}
				if m.NextMatchUID == nil || m.NextSlot == nil {
					t.Fatalf("n=%d: match %s missing feeder link", n, m.UID)
				}
				wantUID := fmt.Sprintf("R%dM%d", round+1, i/2+1)
				if *m.NextMatchUID != wantUID || *m.NextSlot != i%2+1 {
					t.Errorf("n=%d: match %s feeds %s slot %d, want %s slot %d",
						n, m.UID, *m.NextMatchUID, *m.NextSlot, wantUID, i%2+1)
				}
			}
		}
	}
}

// The generator sorts by seed itself, so a shuffled input must yield the same
// bracket, and repeated calls must be structurally identical.
func TestSingleEliminationDeterminism(t *testing.T) {
	ordered := testParticipants(11)
	shuffled := make([]*models.Participant, len(ordered))
	for i, p := range ordered {
		shuffled[(i*7)%len(ordered)] = p
	}

	first := generateSingle(t, ordered)
	second := generateSingle(t, ordered)
	third := generateSingle(t, shuffled)

	for _, other := range [][]*BracketMatch{second, third} {
		if len(other) != len(first) {
			t.Fatalf("match counts differ: %d vs %d", len(other), len(first))
		}
		for i := range first {
			a, b := first[i], other[i]
			if a.UID != b.UID || a.IsBye != b.IsBye {
				t.Fatalf("match %d differs: %s vs %s", i, a.UID, b.UID)
			}
			if (a.Participant1 == nil) != (b.Participant1 == nil) ||
				(a.Participant1 != nil && a.Participant1.Seed != b.Participant1.Seed) {
				t.Fatalf("match %s: participant1 differs", a.UID)
			}
			if (a.Participant2 == nil) != (b.Participant2 == nil) ||
				(a.Participant2 != nil && a.Participant2.Seed != b.Participant2.Seed) {
				t.Fatalf("match %s: participant2 differs", a.UID)
			}
		}
	}
}
