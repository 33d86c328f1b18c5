package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/bekzhan-dev/tournament-platform/brackets"
	"github.com/bekzhan-dev/tournament-platform/models"
	"github.com/bekzhan-dev/tournament-platform/repositories"
	"golang.org/x/sync/errgroup"
)

type BracketService interface {
	GenerateAndSaveBracket(ctx context.Context, tournament *models.Tournament) (*models.Tournament, error)
	GetFullTournamentData(ctx context.Context, tournament *models.Tournament) (*models.Tournament, error)
}

type bracketService struct {
	db              *sql.DB
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	standingRepo    repositories.GroupStandingRepository
	logger          *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.GroupStandingRepository,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		db:              db,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		standingRepo:    standingRepo,
		logger:          logger,
	}
}

// GenerateAndSaveBracket runs the generator for the tournament's format and
// persists the skeleton transactionally: pass one inserts every match (byes
// stored pre-resolved), pass two stores the feeder links and pushes bye
// winners into their next-round slots.
func (s *bracketService) GenerateAndSaveBracket(ctx context.Context, tournament *models.Tournament) (*models.Tournament, error) {
	confirmed := models.ParticipantConfirmed
	participants, err := s.participantRepo.ListByTournament(ctx, tournament.ID, &confirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed participants for tournament %d: %w", tournament.ID, err)
	}
	if len(participants) < MinParticipants {
		return nil, fmt.Errorf("%w: found %d, need at least %d", ErrNotEnoughParticipants, len(participants), MinParticipants)
	}

	var generator brackets.BracketGenerator
	switch tournament.Format {
	case models.FormatSingleElimination:
		generator = brackets.NewSingleEliminationGenerator()
	case models.FormatGroupStage:
		generator = brackets.NewGroupStageGenerator()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, tournament.Format)
	}

	generated, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		Tournament:         tournament,
		Participants:       participants,
		QualifiersPerGroup: tournament.QualifiersPerGroup,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s bracket for tournament %d: %w", generator.GetName(), tournament.ID, err)
	}

	s.logger.InfoContext(ctx, "bracket generated",
		slog.Int("tournament_id", tournament.ID),
		slog.String("generator", generator.GetName()),
		slog.Int("participants", len(participants)),
		slog.Int("matches", len(generated.Matches)))

	if err := s.saveBracket(ctx, tournament, generated); err != nil {
		return nil, err
	}

	return s.GetFullTournamentData(ctx, tournament)
}

func (s *bracketService) saveBracket(ctx context.Context, tournament *models.Tournament, generated *brackets.GeneratedBracket) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed", slog.Any("error", rbErr))
			}
		}
	}()

	// Regeneration replaces any previous bracket wholesale.
	if err = s.standingRepo.DeleteByTournament(ctx, tx, tournament.ID); err != nil {
		return fmt.Errorf("failed to clear standings for tournament %d: %w", tournament.ID, err)
	}
	if err = s.matchRepo.DeleteByTournament(ctx, tx, tournament.ID); err != nil {
		return fmt.Errorf("failed to clear matches for tournament %d: %w", tournament.ID, err)
	}

	defaultMatchTime := tournament.StartDate
	if time.Now().After(defaultMatchTime) {
		defaultMatchTime = time.Now().Add(15 * time.Minute)
	}

	// Pass 1: insert every match. Byes go in already completed with the
	// winner recorded, exactly as the generator produced them.
	dbIDByUID := make(map[string]int, len(generated.Matches))
	rowByUID := make(map[string]*models.Match, len(generated.Matches))
	for _, bm := range generated.Matches {
		row := &models.Match{
			TournamentID: tournament.ID,
			Stage:        bm.Stage,
			GroupLabel:   bm.GroupLabel,
			Round:        bm.Round,
			MatchNumber:  bm.MatchNumber,
			Status:       models.MatchStatusScheduled,
			BracketUID:   &bm.UID,
			MatchTime:    defaultMatchTime,
		}
		if bm.Participant1 != nil {
			row.Participant1ID = &bm.Participant1.ID
		}
		if bm.Participant2 != nil {
			row.Participant2ID = &bm.Participant2.ID
		}
		if bm.IsBye && bm.Winner != nil {
			row.WinnerID = &bm.Winner.ID
			row.Status = models.MatchStatusCompleted
		}
		if err = s.matchRepo.Create(ctx, tx, row); err != nil {
			return fmt.Errorf("failed to insert match %s: %w", bm.UID, err)
		}
		dbIDByUID[bm.UID] = row.ID
		rowByUID[bm.UID] = row
	}

	// Pass 2: store feeder links and advance bye winners into their slots.
	type slots struct {
		p1, p2 *int
	}
	pendingSlots := make(map[string]*slots)

	for _, bm := range generated.Matches {
		if bm.NextMatchUID == nil {
			continue
		}
		nextDBID, ok := dbIDByUID[*bm.NextMatchUID]
		if !ok {
			return fmt.Errorf("internal error: feeder target %s of %s was not inserted", *bm.NextMatchUID, bm.UID)
		}
		if err = s.matchRepo.UpdateNextMatchInfo(ctx, tx, dbIDByUID[bm.UID], &nextDBID, bm.NextSlot); err != nil {
			return fmt.Errorf("failed to link match %s: %w", bm.UID, err)
		}
		if bm.IsBye && bm.Winner != nil {
			target, ok := pendingSlots[*bm.NextMatchUID]
			if !ok {
				target = &slots{}
				pendingSlots[*bm.NextMatchUID] = target
			}
			if *bm.NextSlot == 1 {
				target.p1 = &bm.Winner.ID
			} else {
				target.p2 = &bm.Winner.ID
			}
		}
	}
	for uid, target := range pendingSlots {
		row := rowByUID[uid]
		p1, p2 := row.Participant1ID, row.Participant2ID
		if target.p1 != nil {
			p1 = target.p1
		}
		if target.p2 != nil {
			p2 = target.p2
		}
		if err = s.matchRepo.UpdateParticipants(ctx, tx, dbIDByUID[uid], p1, p2); err != nil {
			return fmt.Errorf("failed to advance bye winners into match %s: %w", uid, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bracket for tournament %d: %w", tournament.ID, err)
	}
	return nil
}

// GetFullTournamentData loads participants, matches and standings in parallel
// and attaches them to the tournament.
func (s *bracketService) GetFullTournamentData(ctx context.Context, tournament *models.Tournament) (*models.Tournament, error) {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		participants, err := s.participantRepo.ListByTournament(gCtx, tournament.ID, nil)
		if err != nil {
			return fmt.Errorf("failed to load participants: %w", err)
		}
		tournament.Participants = participantsToValues(participants)
		return nil
	})

	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, tournament.ID, nil, nil)
		if err != nil {
			return fmt.Errorf("failed to load matches: %w", err)
		}
		tournament.Matches = matchesToValues(matches)
		return nil
	})

	g.Go(func() error {
		standings, err := s.standingRepo.ListByTournament(gCtx, tournament.ID)
		if err != nil {
			return fmt.Errorf("failed to load standings: %w", err)
		}
		tournament.Standings = standingsToValues(standings)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load tournament %d data: %w", tournament.ID, err)
	}
	return tournament, nil
}
