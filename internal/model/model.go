package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	ID                   int64           `db:"id" json:"id"`
	Name                 string          `db:"name" json:"name"`
	Description          string          `db:"description,omitempty" json:"description,omitempty"`
	EventType            string          `db:"event_type" json:"event_type"`
	OrganizerID          int64           `db:"organizer_id" json:"organizer_id"`
	Eligibility          string          `db:"eligibility" json:"eligibility"`
	RegistrationDeadline time.Time       `db:"registration_deadline" json:"registration_deadline"`
	StartTime            time.Time       `db:"start_time" json:"start_time"`
	EndTime              time.Time       `db:"end_time" json:"end_time"`
	SeatLimit            *int            `db:"seat_limit" json:"seat_limit,omitempty"`
	RegistrationFee      decimal.Decimal `db:"registration_fee" json:"registration_fee"`
	Status               string          `db:"status" json:"status"`
	IsTeamEvent          bool            `db:"is_team_event" json:"is_team_event"`
	TeamMinSize          int             `db:"team_min_size" json:"team_min_size"`
	TeamMaxSize          int             `db:"team_max_size" json:"team_max_size"`
	CustomForm           []byte          `db:"custom_form" json:"custom_form,omitempty"`
	RegistrationCount    int             `db:"registration_count" json:"registration_count"`
	AttendanceCount      int             `db:"attendance_count" json:"attendance_count"`
	TotalRevenue         decimal.Decimal `db:"total_revenue" json:"total_revenue"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// IsRunning reports whether now falls inside the event window. The ONGOING
// status exists in stored data but is never set by the service; the live
// notion is always derived from the timestamps.
func (e *Event) IsRunning(now time.Time) bool {
	return !now.Before(e.StartTime) && !now.After(e.EndTime)
}

func (e *Event) RegistrationOpen(now time.Time) bool {
	return e.Status == EventPublished && now.Before(e.RegistrationDeadline)
}

type MerchandiseItem struct {
	ID            int64           `db:"id" json:"id"`
	EventID       int64           `db:"event_id" json:"event_id"`
	ItemName      string          `db:"item_name" json:"item_name"`
	Variants      []string        `db:"variants" json:"variants,omitempty"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"`
	Price         decimal.Decimal `db:"price" json:"price"`
}

type Participant struct {
	ID              int64     `db:"id" json:"id"`
	FirstName       string    `db:"first_name" json:"first_name"`
	LastName        string    `db:"last_name" json:"last_name"`
	Email           string    `db:"email" json:"email"`
	ParticipantType string    `db:"participant_type" json:"participant_type"`
	College         string    `db:"college,omitempty" json:"college,omitempty"`
	ContactNumber   string    `db:"contact_number" json:"contact_number"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

func (p *Participant) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Eligible checks the participant against a per-event eligibility rule.
func (p *Participant) Eligible(eligibility string) bool {
	switch eligibility {
	case EligibilityInstitutional:
		return p.ParticipantType == ParticipantInstitutional
	case EligibilityExternal:
		return p.ParticipantType == ParticipantExternal
	default:
		return true
	}
}

type Registration struct {
	ID               int64           `db:"id" json:"id"`
	EventID          int64           `db:"event_id" json:"event_id"`
	ParticipantID    int64           `db:"participant_id" json:"participant_id"`
	TeamID           *int64          `db:"team_id" json:"team_id,omitempty"`
	Status           string          `db:"status" json:"status"`
	RegistrationDate time.Time       `db:"registration_date" json:"registration_date"`
	TicketID         string          `db:"ticket_id" json:"ticket_id"`
	QRPayload        string          `db:"qr_payload" json:"qr_payload"`
	PaymentStatus    string          `db:"payment_status" json:"payment_status"`
	PaymentProof     string          `db:"payment_proof,omitempty" json:"payment_proof,omitempty"`
	OrderTotal       decimal.Decimal `db:"order_total" json:"order_total"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

type RegistrationItem struct {
	ID             int64           `db:"id" json:"id"`
	RegistrationID int64           `db:"registration_id" json:"registration_id"`
	ItemName       string          `db:"item_name" json:"item_name"`
	Variant        string          `db:"variant,omitempty" json:"variant,omitempty"`
	Quantity       int             `db:"quantity" json:"quantity"`
	Price          decimal.Decimal `db:"price" json:"price"`
}

func (i RegistrationItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Team struct {
	ID         int64        `db:"id" json:"id"`
	EventID    int64        `db:"event_id" json:"event_id"`
	Name       string       `db:"name" json:"name"`
	Code       string       `db:"code" json:"code"`
	LeaderID   int64        `db:"leader_id" json:"leader_id"`
	MinMembers int          `db:"min_members" json:"min_members"`
	MaxMembers int          `db:"max_members" json:"max_members"`
	Status     string       `db:"status" json:"status"`
	Members    []TeamMember `db:"-" json:"members,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

func (t *Team) AcceptedCount() int {
	n := 0
	for _, m := range t.Members {
		if m.Status == MemberAccepted {
			n++
		}
	}
	return n
}

func (t *Team) PendingCount() int {
	n := 0
	for _, m := range t.Members {
		if m.Status == MemberPending {
			n++
		}
	}
	return n
}

func (t *Team) IsFull() bool {
	return t.AcceptedCount() >= t.MaxMembers
}

// CanFinalize requires every invitation resolved and the accepted headcount
// inside the window copied from the event at creation time.
func (t *Team) CanFinalize() bool {
	accepted := t.AcceptedCount()
	return t.PendingCount() == 0 && accepted >= t.MinMembers && accepted <= t.MaxMembers
}

func (t *Team) MemberOf(participantID int64) *TeamMember {
	for i := range t.Members {
		if t.Members[i].ParticipantID == participantID {
			return &t.Members[i]
		}
	}
	return nil
}

type TeamMember struct {
	ID            int64      `db:"id" json:"id"`
	TeamID        int64      `db:"team_id" json:"team_id"`
	ParticipantID int64      `db:"participant_id" json:"participant_id"`
	Email         string     `db:"email" json:"email"`
	Status        string     `db:"status" json:"status"`
	InvitedAt     time.Time  `db:"invited_at" json:"invited_at"`
	RespondedAt   *time.Time `db:"responded_at" json:"responded_at,omitempty"`
}

type AttendanceRecord struct {
	ID            int64     `db:"id" json:"id"`
	EventID       int64     `db:"event_id" json:"event_id"`
	ParticipantID int64     `db:"participant_id" json:"participant_id"`
	ScannedAt     time.Time `db:"scanned_at" json:"scanned_at"`
	ScannedBy     int64     `db:"scanned_by" json:"scanned_by"`
	Method        string    `db:"method" json:"method"`
	Notes         string    `db:"notes,omitempty" json:"notes,omitempty"`
}
