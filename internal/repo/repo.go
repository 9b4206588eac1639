package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/wb-go/wbf/dbpg"

	"festify/internal/model"
)

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrRegistrationNotFound = errors.New("registration not found")

	ErrCapacityExceeded  = errors.New("registration limit reached")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyRegistered = errors.New("already registered")
	ErrAlreadyScanned    = errors.New("already scanned")
	ErrDuplicateTicket   = errors.New("duplicate ticket id")

	ErrTeamFull           = errors.New("team is full")
	ErrNotInvited         = errors.New("not a member of this team")
	ErrAlreadyResponded   = errors.New("invitation already resolved")
	ErrTeamNotDraft       = errors.New("team is not in draft")
	ErrAlreadyInTeam      = errors.New("already in a team for this event")
	ErrPendingInvitations = errors.New("team has pending invitations")
	ErrRosterChanged      = errors.New("team roster no longer finalizable")
)

type Repository interface {
	CreateEventTx(ctx context.Context, e *model.Event, items []model.MerchandiseItem) (int64, error)
	GetEventByID(ctx context.Context, id int64) (*model.Event, error)
	GetPublishedEvents(ctx context.Context) ([]model.Event, error)
	GetMerchandise(ctx context.Context, eventID int64) ([]model.MerchandiseItem, error)
	UpdateEvent(ctx context.Context, e *model.Event) error
	CountLiveRegistrations(ctx context.Context, eventID int64) (int, error)
	CountAcceptedTeamMembers(ctx context.Context, eventID int64) (int, error)

	CreateParticipant(ctx context.Context, p *model.Participant) (int64, error)
	GetParticipantByID(ctx context.Context, id int64) (*model.Participant, error)
	GetParticipantByEmail(ctx context.Context, email string) (*model.Participant, error)

	RegisterTx(ctx context.Context, reg *model.Registration, stock []StockReservation, items []model.RegistrationItem, revenue decimal.Decimal) (int64, error)
	GetLiveRegistration(ctx context.Context, eventID, participantID int64) (*model.Registration, error)
	GetParticipantRegistrations(ctx context.Context, participantID int64) ([]model.Registration, error)

	CreateTeamTx(ctx context.Context, t *model.Team, members []model.TeamMember) (int64, error)
	GetTeamByID(ctx context.Context, id int64) (*model.Team, error)
	GetTeamsByParticipant(ctx context.Context, participantID int64) ([]model.Team, error)
	GetPendingInvitations(ctx context.Context, participantID int64) ([]model.Team, error)
	GetTeamRegistrations(ctx context.Context, teamID int64) ([]model.Registration, error)
	RespondTx(ctx context.Context, teamID, participantID int64, accept bool) error
	FinalizeTeamTx(ctx context.Context, teamID int64, regs []model.Registration) error
	LeaveTeamTx(ctx context.Context, teamID, participantID int64) error
	DisbandTeamTx(ctx context.Context, teamID int64) error

	AdmitTx(ctx context.Context, rec *model.AttendanceRecord, fee decimal.Decimal) error
	GetAttendanceRecords(ctx context.Context, eventID int64) ([]AttendanceRow, error)

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

// AttendanceRow is an attendance record joined with the participant fields
// the report and the CSV export need.
type AttendanceRow struct {
	ParticipantID   int64
	FirstName       string
	LastName        string
	Email           string
	ParticipantType string
	ContactNumber   string
	ScannedAt       time.Time
	ScannedByID     int64
	Method          string
	Notes           string
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read rollback file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}
