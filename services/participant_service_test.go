package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/bekzhan-dev/tournament-platform/models"
	"github.com/bekzhan-dev/tournament-platform/repositories"
)

// A driver whose connections only know how to begin and finish no-op
// transactions. Services reach the database solely through their repositories,
// so this is all the *sql.DB they need in tests.
type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

func init() {
	sql.Register("servicestub", stubDriver{})
}

func newStubDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("servicestub", "")
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeParticipantRepo keeps participants in memory and enforces the same
// per-tournament uniqueness rules as the participants table: one entry per
// user and one entry per seed.
type fakeParticipantRepo struct {
	participants   []*models.Participant
	nextID         int
	failCreateWith error
}

func (f *fakeParticipantRepo) Create(_ context.Context, p *models.Participant) error {
	if f.failCreateWith != nil {
		return f.failCreateWith
	}
	for _, existing := range f.participants {
		if existing.TournamentID != p.TournamentID {
			continue
		}
		if p.UserID != nil && existing.UserID != nil && *existing.UserID == *p.UserID {
			return repositories.ErrParticipantConflict
		}
		if existing.Seed == p.Seed {
			return repositories.ErrParticipantSeedConflict
		}
	}
	f.nextID++
	p.ID = f.nextID
	p.CreatedAt = time.Now()
	stored := *p
	f.participants = append(f.participants, &stored)
	return nil
}

func (f *fakeParticipantRepo) GetByID(_ context.Context, id int) (*models.Participant, error) {
	for _, p := range f.participants {
		if p.ID == id {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (f *fakeParticipantRepo) FindByUserAndTournament(_ context.Context, userID, tournamentID int) (*models.Participant, error) {
	for _, p := range f.participants {
		if p.TournamentID == tournamentID && p.UserID != nil && *p.UserID == userID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeParticipantRepo) ListByTournament(_ context.Context, tournamentID int, status *models.ParticipantStatus) ([]*models.Participant, error) {
	result := make([]*models.Participant, 0)
	for _, p := range f.participants {
		if p.TournamentID != tournamentID {
			continue
		}
		if status != nil && p.Status != *status {
			continue
		}
		copied := *p
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Seed != result[j].Seed {
			return result[i].Seed < result[j].Seed
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (f *fakeParticipantRepo) UpdateStatus(_ context.Context, id int, status models.ParticipantStatus) error {
	for _, p := range f.participants {
		if p.ID == id {
			p.Status = status
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

func (f *fakeParticipantRepo) UpdateSeeds(_ context.Context, _ repositories.SQLExecutor, tournamentID int, seedsByID map[int]int) error {
	for _, p := range f.participants {
		if p.TournamentID != tournamentID {
			continue
		}
		if seed, ok := seedsByID[p.ID]; ok {
			p.Seed = seed
		}
	}
	return nil
}

func (f *fakeParticipantRepo) Delete(_ context.Context, id int) error {
	for i, p := range f.participants {
		if p.ID == id {
			f.participants = append(f.participants[:i], f.participants[i+1:]...)
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
}

func (f *fakeTournamentRepo) Create(context.Context, *models.Tournament) error { return nil }

func (f *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	t, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTournamentRepo) List(context.Context, *models.TournamentStatus, int, int) ([]*models.Tournament, error) {
	return nil, nil
}

func (f *fakeTournamentRepo) Update(context.Context, *models.Tournament) error { return nil }

func (f *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	if t, ok := f.tournaments[id]; ok {
		t.Status = status
	}
	return nil
}

func (f *fakeTournamentRepo) UpdateLogoKey(context.Context, int, *string) error { return nil }

func (f *fakeTournamentRepo) Delete(context.Context, int) error { return nil }

func (f *fakeTournamentRepo) ListDueForStatusUpdate(context.Context, time.Time) ([]*models.Tournament, error) {
	return nil, nil
}

func registrationTournament(id, maxParticipants int) *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: map[int]*models.Tournament{
		id: {
			ID:              id,
			Name:            "Open Cup",
			Format:          models.FormatSingleElimination,
			Status:          models.StatusRegistration,
			MaxParticipants: maxParticipants,
		},
	}}
}

func TestRegisterAssignsSequentialSeeds(t *testing.T) {
	repo := &fakeParticipantRepo{}
	svc := NewParticipantService(newStubDB(t), repo, registrationTournament(1, 8), nil, testLogger())

	for i, want := range []int{1, 2, 3} {
		p, err := svc.Register(context.Background(), 1, 100+i, "player")
		if err != nil {
			t.Fatalf("register %d: %v", i+1, err)
		}
		if p.Seed != want {
			t.Errorf("registration %d: seed = %d, want %d", i+1, p.Seed, want)
		}
	}
}

func TestRegisterAfterWithdrawalDoesNotReuseSeed(t *testing.T) {
	repo := &fakeParticipantRepo{}
	svc := NewParticipantService(newStubDB(t), repo, registrationTournament(1, 8), nil, testLogger())
	ctx := context.Background()

	var second *models.Participant
	for i := 0; i < 3; i++ {
		p, err := svc.Register(ctx, 1, 100+i, "player")
		if err != nil {
			t.Fatalf("register %d: %v", i+1, err)
		}
		if p.Seed == 2 {
			second = p
		}
	}

	// Withdrawing the middle entry leaves a gap at seed 2 while seed 3 stays
	// in use. The next registration must not land on a taken seed.
	if err := svc.Withdraw(ctx, second.ID, *second.UserID); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	p, err := svc.Register(ctx, 1, 200, "latecomer")
	if err != nil {
		t.Fatalf("register after withdrawal: %v", err)
	}
	if p.Seed != 4 {
		t.Errorf("seed after withdrawal = %d, want 4", p.Seed)
	}
}

func TestRegisterSeedConflictReturnsSentinel(t *testing.T) {
	repo := &fakeParticipantRepo{failCreateWith: repositories.ErrParticipantSeedConflict}
	svc := NewParticipantService(newStubDB(t), repo, registrationTournament(1, 8), nil, testLogger())

	_, err := svc.Register(context.Background(), 1, 100, "player")
	if !errors.Is(err, ErrParticipantSeedConflict) {
		t.Fatalf("err = %v, want ErrParticipantSeedConflict", err)
	}
}

func TestRegisterEnforcesCapacityAndDuplicates(t *testing.T) {
	repo := &fakeParticipantRepo{}
	svc := NewParticipantService(newStubDB(t), repo, registrationTournament(1, 2), nil, testLogger())
	ctx := context.Background()

	if _, err := svc.Register(ctx, 1, 100, "first"); err != nil {
		t.Fatalf("register first: %v", err)
	}
	if _, err := svc.Register(ctx, 1, 100, "first again"); !errors.Is(err, ErrRegistrationConflict) {
		t.Errorf("duplicate registration err = %v, want ErrRegistrationConflict", err)
	}
	if _, err := svc.Register(ctx, 1, 101, "second"); err != nil {
		t.Fatalf("register second: %v", err)
	}
	if _, err := svc.Register(ctx, 1, 102, "third"); !errors.Is(err, ErrTournamentFull) {
		t.Errorf("over-capacity registration err = %v, want ErrTournamentFull", err)
	}
}
