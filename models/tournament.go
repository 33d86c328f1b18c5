package models

import "time"

// TournamentStatus mirrors the ENUM in the tournaments table.
type TournamentStatus string

const (
	StatusSoon         TournamentStatus = "soon"
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusCompleted    TournamentStatus = "completed"
	StatusCanceled     TournamentStatus = "canceled"
)

// TournamentFormat selects the bracket generator.
// FormatDoubleElimination exists in the schema but no generator dispatches on it.
type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatGroupStage        TournamentFormat = "group_stage"
	FormatDoubleElimination TournamentFormat = "double_elimination"
)

const DefaultQualifiersPerGroup = 2

type Tournament struct {
	ID                 int              `json:"id" db:"id"`
	Name               string           `json:"name" db:"name"`
	Description        *string          `json:"description,omitempty" db:"description"`
	Format             TournamentFormat `json:"format" db:"format"`
	OrganizerID        int              `json:"organizer_id" db:"organizer_id"`
	RegDate            time.Time        `json:"reg_date" db:"reg_date"`
	StartDate          time.Time        `json:"start_date" db:"start_date"`
	EndDate            time.Time        `json:"end_date" db:"end_date"`
	Status             TournamentStatus `json:"status" db:"status"`
	MaxParticipants    int              `json:"max_participants" db:"max_participants"`
	QualifiersPerGroup int              `json:"qualifiers_per_group" db:"qualifiers_per_group"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	LogoKey            *string          `json:"-" db:"logo_key"`
	LogoURL            *string          `json:"logo_url,omitempty" db:"-"`

	// Related entities, populated by services when requested.
	Organizer    *User           `json:"organizer,omitempty" db:"-"`
	Participants []Participant   `json:"participants,omitempty" db:"-"`
	Matches      []Match         `json:"matches,omitempty" db:"-"`
	Standings    []GroupStanding `json:"standings,omitempty" db:"-"`
}
