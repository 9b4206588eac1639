package model

const (
	EventDraft     = "DRAFT"
	EventPublished = "PUBLISHED"
	EventOngoing   = "ONGOING"
	EventCompleted = "COMPLETED"
	EventClosed    = "CLOSED"
)

const (
	EventTypeNormal      = "NORMAL"
	EventTypeMerchandise = "MERCHANDISE"
)

const (
	EligibilityAll           = "ALL"
	EligibilityInstitutional = "INSTITUTIONAL_ONLY"
	EligibilityExternal      = "EXTERNAL_ONLY"
)

const (
	ParticipantInstitutional = "INSTITUTIONAL"
	ParticipantExternal      = "EXTERNAL"
)

const (
	RegistrationRegistered = "REGISTERED"
	RegistrationCompleted  = "COMPLETED"
	RegistrationCancelled  = "CANCELLED"
	RegistrationRejected   = "REJECTED"
)

const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
)

const (
	TeamDraft      = "DRAFT"
	TeamRegistered = "REGISTERED"
	TeamComplete   = "COMPLETE"
	TeamDisbanded  = "DISBANDED"
)

const (
	MemberPending  = "PENDING"
	MemberAccepted = "ACCEPTED"
	MemberDeclined = "DECLINED"
)

const (
	ScanMethodQR     = "QR_SCAN"
	ScanMethodManual = "MANUAL"
)

// eventTransitions is the single source of truth for event status changes.
// ONGOING appears as a source only: rows created before the status was
// retired may still carry it, but nothing transitions into it.
var eventTransitions = map[string][]string{
	EventDraft:     {EventPublished},
	EventPublished: {EventCompleted, EventClosed},
	EventOngoing:   {EventCompleted, EventClosed},
	EventCompleted: {EventClosed},
	EventClosed:    {},
}

// CanTransition reports whether an event may move from one status to another.
// Every call site goes through this gate; there are no per-route shortcuts.
func CanTransition(from, to string) bool {
	for _, allowed := range eventTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Terminal reports whether an event status permits status-only edits.
func Terminal(status string) bool {
	return status == EventCompleted || status == EventClosed
}
