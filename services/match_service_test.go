package services

import (
	"context"
	"errors"
	"testing"

	"github.com/bekzhan-dev/tournament-platform/brackets"
	"github.com/bekzhan-dev/tournament-platform/models"
	"github.com/bekzhan-dev/tournament-platform/repositories"
)

// fakeMatchRepo mirrors the completion guard of the real repository: an update
// against an already completed match touches no row and reports not-found.
// readStatus lets a test serve a stale status from GetByID, as happens when a
// concurrent submission completes the match between read and update.
type fakeMatchRepo struct {
	matches    map[int]*models.Match
	readStatus map[int]models.MatchStatus
}

func (f *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	f.matches[m.ID] = m
	return nil
}

func (f *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	m, ok := f.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *m
	if status, stale := f.readStatus[id]; stale {
		copied.Status = status
	}
	return &copied, nil
}

func (f *fakeMatchRepo) ListByTournament(context.Context, int, *models.MatchStage, *int) ([]*models.Match, error) {
	return nil, nil
}

func (f *fakeMatchRepo) UpdateScoreStatusWinner(_ context.Context, _ repositories.SQLExecutor, id int, score *string, status models.MatchStatus, winnerID *int) error {
	m, ok := f.matches[id]
	if !ok || m.Status == models.MatchStatusCompleted {
		return repositories.ErrMatchNotFound
	}
	m.Score = score
	m.Status = status
	m.WinnerID = winnerID
	return nil
}

func (f *fakeMatchRepo) UpdateParticipants(_ context.Context, _ repositories.SQLExecutor, id int, p1, p2 *int) error {
	m, ok := f.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Participant1ID = p1
	m.Participant2ID = p2
	return nil
}

func (f *fakeMatchRepo) UpdateNextMatchInfo(_ context.Context, _ repositories.SQLExecutor, id int, nextMatchID, winnerToSlot *int) error {
	m, ok := f.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.NextMatchID = nextMatchID
	m.WinnerToSlot = winnerToSlot
	return nil
}

func (f *fakeMatchRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	for id, m := range f.matches {
		if m.TournamentID == tournamentID {
			delete(f.matches, id)
		}
	}
	return nil
}

func intPtr(v int) *int { return &v }

func TestSubmitResultAdvancesWinner(t *testing.T) {
	repo := &fakeMatchRepo{matches: map[int]*models.Match{
		1: {
			ID:             1,
			TournamentID:   7,
			Stage:          models.StageKnockout,
			Round:          1,
			MatchNumber:    1,
			Participant1ID: intPtr(10),
			Participant2ID: intPtr(11),
			Status:         models.MatchStatusScheduled,
			NextMatchID:    intPtr(3),
			WinnerToSlot:   intPtr(1),
		},
		3: {
			ID:           3,
			TournamentID: 7,
			Stage:        models.StageKnockout,
			Round:        2,
			MatchNumber:  1,
			Status:       models.MatchStatusScheduled,
		},
	}}
	svc := NewMatchService(newStubDB(t), repo, brackets.NewHub(testLogger()), testLogger())

	score := "2:0"
	match, err := svc.SubmitResult(context.Background(), 1, SubmitResultInput{Score: &score, WinnerID: 11})
	if err != nil {
		t.Fatalf("submit result: %v", err)
	}
	if match.Status != models.MatchStatusCompleted {
		t.Errorf("status = %s, want completed", match.Status)
	}
	if match.WinnerID == nil || *match.WinnerID != 11 {
		t.Errorf("winner = %v, want 11", match.WinnerID)
	}
	next := repo.matches[3]
	if next.Participant1ID == nil || *next.Participant1ID != 11 {
		t.Errorf("next match slot 1 = %v, want winner 11", next.Participant1ID)
	}
	if next.Participant2ID != nil {
		t.Errorf("next match slot 2 = %v, want empty", next.Participant2ID)
	}
}

func TestSubmitResultRejectsWinnerOutsideMatch(t *testing.T) {
	repo := &fakeMatchRepo{matches: map[int]*models.Match{
		1: {
			ID:             1,
			TournamentID:   7,
			Stage:          models.StageKnockout,
			Round:          1,
			MatchNumber:    1,
			Participant1ID: intPtr(10),
			Participant2ID: intPtr(11),
			Status:         models.MatchStatusScheduled,
		},
	}}
	svc := NewMatchService(newStubDB(t), repo, brackets.NewHub(testLogger()), testLogger())

	_, err := svc.SubmitResult(context.Background(), 1, SubmitResultInput{WinnerID: 99})
	if !errors.Is(err, ErrWinnerNotInMatch) {
		t.Fatalf("err = %v, want ErrWinnerNotInMatch", err)
	}
}

func TestSubmitResultLosesRaceToConcurrentCompletion(t *testing.T) {
	// The stored match is already completed, but the initial read still sees
	// it as scheduled. The guarded update must catch this and report the
	// match as already completed instead of overwriting the first result.
	repo := &fakeMatchRepo{
		matches: map[int]*models.Match{
			1: {
				ID:             1,
				TournamentID:   7,
				Stage:          models.StageKnockout,
				Round:          1,
				MatchNumber:    1,
				Participant1ID: intPtr(10),
				Participant2ID: intPtr(11),
				WinnerID:       intPtr(10),
				Status:         models.MatchStatusCompleted,
			},
		},
		readStatus: map[int]models.MatchStatus{1: models.MatchStatusScheduled},
	}
	svc := NewMatchService(newStubDB(t), repo, brackets.NewHub(testLogger()), testLogger())

	_, err := svc.SubmitResult(context.Background(), 1, SubmitResultInput{WinnerID: 11})
	if !errors.Is(err, ErrMatchAlreadyCompleted) {
		t.Fatalf("err = %v, want ErrMatchAlreadyCompleted", err)
	}
	if got := repo.matches[1].WinnerID; got == nil || *got != 10 {
		t.Errorf("stored winner = %v, want the first submission's 10", got)
	}
}
