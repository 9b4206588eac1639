package service

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"festify/internal/dto"
	"festify/internal/rabbit"
	"festify/internal/repo"
	"festify/internal/ticket"
)

type Service interface {
	CreateEvent(ctx *ginext.Context)
	UpdateEvent(ctx *ginext.Context)
	PublishEvent(ctx *ginext.Context)
	GetEvent(ctx *ginext.Context)
	GetAllEvents(ctx *ginext.Context)

	CreateParticipant(ctx *ginext.Context)
	GetMyRegistrations(ctx *ginext.Context)

	Register(ctx *ginext.Context)

	CreateTeam(ctx *ginext.Context)
	GetTeam(ctx *ginext.Context)
	GetMyTeams(ctx *ginext.Context)
	GetInvitations(ctx *ginext.Context)
	RespondInvitation(ctx *ginext.Context)
	FinalizeTeam(ctx *ginext.Context)
	LeaveTeam(ctx *ginext.Context)
	DisbandTeam(ctx *ginext.Context)

	ScanTicket(ctx *ginext.Context)
	ManualAttendance(ctx *ginext.Context)
	GetAttendanceReport(ctx *ginext.Context)
	ExportAttendance(ctx *ginext.Context)
}

type service struct {
	repo   repo.Repository
	log    *zerolog.Logger
	rbt    *rabbit.Client
	issuer *ticket.Issuer

	// institutionDomain is the e-mail suffix institutional participants
	// must carry, e.g. "@campus.example.edu".
	institutionDomain string
}

func NewService(repo repo.Repository, logger *zerolog.Logger, rbt *rabbit.Client, issuer *ticket.Issuer, institutionDomain string) Service {
	return &service{
		repo:              repo,
		log:               logger,
		rbt:               rbt,
		issuer:            issuer,
		institutionDomain: institutionDomain,
	}
}

// notify queues one e-mail for the consumer worker. Fire-and-forget: a
// publish failure is logged and the caller's response is unaffected.
func (s *service) notify(recipient, subject, body string) {
	msg := dto.NotificationMessage{
		ID:             uuid.NewString(),
		RecipientEmail: recipient,
		Subject:        subject,
		Body:           body,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal notification")
		return
	}
	if err := s.rbt.Publish(payload); err != nil {
		s.log.Error().Err(err).Str("recipient", recipient).Msg("failed to publish notification")
	}
}

// participantID returns the caller identity injected by the auth collaborator.
func participantID(ctx *ginext.Context) (int64, bool) {
	id := ctx.GetInt64("participant_id")
	return id, id > 0
}

// organizerID returns the organizer identity injected by the auth collaborator.
func organizerID(ctx *ginext.Context) (int64, bool) {
	id := ctx.GetInt64("organizer_id")
	return id, id > 0
}

func hasSuffixFold(s, suffix string) bool {
	return suffix != "" && strings.HasSuffix(strings.ToLower(s), strings.ToLower(suffix))
}

func unauthorized(ctx *ginext.Context, desc string) {
	ctx.JSON(401, dto.Response{
		Status: "error",
		Error: &dto.Error{
			Code: dto.FieldIncorrect,
			Desc: desc,
		},
	})
}
