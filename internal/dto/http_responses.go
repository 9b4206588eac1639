package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wb-go/wbf/ginext"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	EventNotFound        = "EVENT_NOT_FOUND"
	ParticipantNotFound  = "PARTICIPANT_NOT_FOUND"
	TeamNotFound         = "TEAM_NOT_FOUND"
	RegistrationNotFound = "REGISTRATION_NOT_FOUND"

	DeadlinePassed    = "DEADLINE_PASSED"
	CapacityExceeded  = "CAPACITY_EXCEEDED"
	NotEligible       = "NOT_ELIGIBLE"
	AlreadyRegistered = "ALREADY_REGISTERED"
	InvalidSelection  = "INVALID_SELECTION"

	TeamFull            = "TEAM_FULL"
	NotInvited          = "NOT_INVITED"
	AlreadyResponded    = "ALREADY_RESPONDED"
	NotTeamLeader       = "NOT_TEAM_LEADER"
	TeamNotFinalizable  = "TEAM_NOT_FINALIZABLE"
	TeamAlreadyFinal    = "TEAM_ALREADY_FINALIZED"
	AlreadyInTeam       = "ALREADY_IN_TEAM"

	MalformedPayload    = "MALFORMED_PAYLOAD"
	EventMismatch       = "EVENT_MISMATCH"
	NotOrganizerOfEvent = "NOT_ORGANIZER_OF_EVENT"
	OutsideEventWindow  = "OUTSIDE_EVENT_WINDOW"
	AlreadyScanned      = "ALREADY_SCANNED"

	IllegalTransition = "ILLEGAL_TRANSITION"
	FormLocked        = "FORM_LOCKED"
)

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code      string `json:"code"`
	Desc      string `json:"desc"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

type CreateEventRequest struct {
	Name                 string                   `json:"name" validate:"required,max=255"`
	Description          string                   `json:"description"`
	EventType            string                   `json:"event_type" validate:"required,oneof=NORMAL MERCHANDISE"`
	Eligibility          string                   `json:"eligibility" validate:"omitempty,oneof=ALL INSTITUTIONAL_ONLY EXTERNAL_ONLY"`
	RegistrationDeadline time.Time                `json:"registration_deadline" validate:"required,future"`
	StartTime            time.Time                `json:"start_time" validate:"required"`
	EndTime              time.Time                `json:"end_time" validate:"required"`
	SeatLimit            *int                     `json:"seat_limit" validate:"omitempty,gt=0"`
	RegistrationFee      decimal.Decimal          `json:"registration_fee"`
	IsTeamEvent          bool                     `json:"is_team_event"`
	TeamMinSize          int                      `json:"team_min_size" validate:"omitempty,gte=1"`
	TeamMaxSize          int                      `json:"team_max_size" validate:"omitempty,gte=1"`
	CustomForm           []byte                   `json:"custom_form"`
	MerchandiseItems     []MerchandiseItemRequest `json:"merchandise_items" validate:"dive"`
}

type MerchandiseItemRequest struct {
	ItemName      string          `json:"item_name" validate:"required"`
	Variants      []string        `json:"variants"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
	Price         decimal.Decimal `json:"price"`
}

// UpdateEventRequest uses pointers so the handler can tell omitted fields
// from zero values when applying the edit policy.
type UpdateEventRequest struct {
	Name                 *string          `json:"name"`
	Description          *string          `json:"description"`
	Eligibility          *string          `json:"eligibility" validate:"omitempty,oneof=ALL INSTITUTIONAL_ONLY EXTERNAL_ONLY"`
	RegistrationDeadline *time.Time       `json:"registration_deadline"`
	StartTime            *time.Time       `json:"start_time"`
	EndTime              *time.Time       `json:"end_time"`
	SeatLimit            *int             `json:"seat_limit"`
	RegistrationFee      *decimal.Decimal `json:"registration_fee"`
	CustomForm           []byte           `json:"custom_form"`
	Status               *string          `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED ONGOING COMPLETED CLOSED"`
}

type EventResponse struct {
	ID                   int64           `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	EventType            string          `json:"event_type"`
	Eligibility          string          `json:"eligibility"`
	RegistrationDeadline time.Time       `json:"registration_deadline"`
	StartTime            time.Time       `json:"start_time"`
	EndTime              time.Time       `json:"end_time"`
	SeatLimit            *int            `json:"seat_limit,omitempty"`
	RegistrationFee      decimal.Decimal `json:"registration_fee"`
	Status               string          `json:"status"`
	IsTeamEvent          bool            `json:"is_team_event"`
	TeamMinSize          int             `json:"team_min_size,omitempty"`
	TeamMaxSize          int             `json:"team_max_size,omitempty"`
	RegistrationCount    int             `json:"registration_count"`
	AttendanceCount      int             `json:"attendance_count"`
	TotalRevenue         decimal.Decimal `json:"total_revenue"`
	AvailableSeats       *int            `json:"available_seats,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`

	// Populated for MERCHANDISE events only; item_index in a registration
	// request refers to a position in this slice.
	Merchandise []MerchandiseItemResponse `json:"merchandise,omitempty"`
}

type MerchandiseItemResponse struct {
	ID            int64           `json:"id"`
	ItemName      string          `json:"item_name"`
	Variants      []string        `json:"variants,omitempty"`
	StockQuantity int             `json:"stock_quantity"`
	Price         decimal.Decimal `json:"price"`
}

type CreateParticipantRequest struct {
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	ParticipantType string `json:"participant_type" validate:"required,oneof=INSTITUTIONAL EXTERNAL"`
	College         string `json:"college"`
	ContactNumber   string `json:"contact_number" validate:"required"`
}

type RegisterRequest struct {
	SelectedItems []SelectedItem    `json:"selected_items" validate:"dive"`
	CustomForm    map[string]any    `json:"custom_form_data"`
	PaymentProof  string            `json:"payment_proof"`
}

type SelectedItem struct {
	ItemIndex int `json:"item_index" validate:"gte=0"`
	Quantity  int `json:"quantity" validate:"required,gt=0"`
}

type RegistrationResponse struct {
	ID            int64           `json:"id"`
	EventID       int64           `json:"event_id"`
	ParticipantID int64           `json:"participant_id"`
	Status        string          `json:"status"`
	TicketID      string          `json:"ticket_id"`
	QRPayload     string          `json:"qr_payload"`
	PaymentStatus string          `json:"payment_status"`
	OrderTotal    decimal.Decimal `json:"order_total"`
	CreatedAt     time.Time       `json:"created_at"`
}

type CreateTeamRequest struct {
	EventID      int64    `json:"event_id" validate:"required,gt=0"`
	TeamName     string   `json:"team_name" validate:"required,max=255"`
	MemberEmails []string `json:"member_emails" validate:"required,min=1,dive,email"`
}

type RespondInvitationRequest struct {
	Action string `json:"action" validate:"required,oneof=accept decline"`
}

type TeamMemberResponse struct {
	ParticipantID int64      `json:"participant_id"`
	Email         string     `json:"email"`
	Status        string     `json:"status"`
	InvitedAt     time.Time  `json:"invited_at"`
	RespondedAt   *time.Time `json:"responded_at,omitempty"`
}

type TeamResponse struct {
	ID         int64                `json:"id"`
	EventID    int64                `json:"event_id"`
	Name       string               `json:"name"`
	Code       string               `json:"code"`
	LeaderID   int64                `json:"leader_id"`
	MinMembers int                  `json:"min_members"`
	MaxMembers int                  `json:"max_members"`
	Status     string               `json:"status"`
	Members    []TeamMemberResponse `json:"members"`
	Tickets    []TicketResponse     `json:"tickets,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

type TicketResponse struct {
	ParticipantID int64     `json:"participant_id"`
	TicketID      string    `json:"ticket_id"`
	QRPayload     string    `json:"qr_payload"`
	GeneratedAt   time.Time `json:"generated_at"`
}

type ScanRequest struct {
	QRPayload string `json:"qr_payload" validate:"required"`
}

type ManualAttendanceRequest struct {
	ParticipantID int64  `json:"participant_id" validate:"required,gt=0"`
	Notes         string `json:"notes"`
}

type ScanResponse struct {
	ParticipantID   int64     `json:"participant_id"`
	ParticipantName string    `json:"participant_name"`
	Email           string    `json:"email"`
	Method          string    `json:"method"`
	ScannedAt       time.Time `json:"scanned_at"`
}

type AttendanceRecordResponse struct {
	ParticipantID   int64     `json:"participant_id"`
	ParticipantName string    `json:"participant_name"`
	Email           string    `json:"email"`
	ParticipantType string    `json:"participant_type"`
	ScannedAt       time.Time `json:"scanned_at"`
	ScannedBy       int64     `json:"scanned_by"`
	Method          string    `json:"method"`
	Notes           string    `json:"notes,omitempty"`
}

type AttendanceReportResponse struct {
	EventName          string                     `json:"event_name"`
	TotalRegistrations int                        `json:"total_registrations"`
	TotalAttendance    int                        `json:"total_attendance"`
	AttendanceRate     string                     `json:"attendance_rate"`
	Records            []AttendanceRecordResponse `json:"records"`
}

// NotificationMessage is the fire-and-forget payload published to RabbitMQ
// after a domain transition commits.
type NotificationMessage struct {
	ID             string `json:"id"`
	RecipientEmail string `json:"recipient_email"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(400, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func ConflictResponseError(c *ginext.Context, code, desc string) {
	c.JSON(409, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func ForbiddenResponseError(c *ginext.Context, code, desc string) {
	c.JSON(403, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func NotFoundResponseError(c *ginext.Context, code, desc string) {
	c.JSON(404, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

// DuplicateScanError is a distinct outcome, not a hard failure: the payload
// was valid, the participant is simply already admitted.
func DuplicateScanError(c *ginext.Context) {
	c.JSON(409, Response{
		Status: "error",
		Error: &Error{
			Code:      AlreadyScanned,
			Desc:      "Participant already marked as attended",
			Duplicate: true,
		},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: InternalError,
		},
	})
}

func EventNotFoundError(c *ginext.Context) {
	NotFoundResponseError(c, EventNotFound, "Event not found")
}

func TeamNotFoundError(c *ginext.Context) {
	NotFoundResponseError(c, TeamNotFound, "Team not found")
}

func ParticipantNotFoundError(c *ginext.Context) {
	NotFoundResponseError(c, ParticipantNotFound, "Participant not found")
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(200, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(201, Response{
		Status: "ok",
		Data:   data,
	})
}
