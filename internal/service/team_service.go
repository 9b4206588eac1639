package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wb-go/wbf/ginext"

	"festify/internal/dto"
	"festify/internal/model"
	"festify/internal/monitoring"
	"festify/internal/repo"
	"festify/pkg/validator"
)

func teamParam(ctx *ginext.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func newTeamCode() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("team code entropy: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

func teamResponse(t *model.Team) dto.TeamResponse {
	resp := dto.TeamResponse{
		ID:         t.ID,
		EventID:    t.EventID,
		Name:       t.Name,
		Code:       t.Code,
		LeaderID:   t.LeaderID,
		MinMembers: t.MinMembers,
		MaxMembers: t.MaxMembers,
		Status:     t.Status,
		CreatedAt:  t.CreatedAt,
	}
	for _, m := range t.Members {
		resp.Members = append(resp.Members, dto.TeamMemberResponse{
			ParticipantID: m.ParticipantID,
			Email:         m.Email,
			Status:        m.Status,
			InvitedAt:     m.InvitedAt,
			RespondedAt:   m.RespondedAt,
		})
	}
	return resp
}

// CreateTeam starts the invitation protocol: the leader is pre-accepted,
// every invitee starts PENDING, and invitations go out after the team row
// is durable.
func (s *service) CreateTeam(ctx *ginext.Context) {
	pid, ok := participantID(ctx)
	if !ok {
		unauthorized(ctx, "Participant identity required")
		return
	}

	var req dto.CreateTeamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	event, err := s.repo.GetEventByID(ctx.Request.Context(), req.EventID)
	if err != nil {
		dto.EventNotFoundError(ctx)
		return
	}
	if !event.IsTeamEvent {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "This event does not support team registration")
		return
	}

	leader, err := s.repo.GetParticipantByID(ctx.Request.Context(), pid)
	if err != nil {
		dto.ParticipantNotFoundError(ctx)
		return
	}
	if !leader.Eligible(event.Eligibility) {
		dto.ForbiddenResponseError(ctx, dto.NotEligible, eligibilityMessage(event.Eligibility))
		return
	}

	totalMembers := len(req.MemberEmails) + 1
	if totalMembers < event.TeamMinSize {
		dto.BadResponseError(ctx, dto.FieldIncorrect,
			fmt.Sprintf("Team must have at least %d members (including leader)", event.TeamMinSize))
		return
	}
	if totalMembers > event.TeamMaxSize {
		dto.BadResponseError(ctx, dto.FieldIncorrect,
			fmt.Sprintf("Team cannot exceed %d members (including leader)", event.TeamMaxSize))
		return
	}

	seen := make(map[string]struct{}, len(req.MemberEmails))
	for _, email := range req.MemberEmails {
		lower := strings.ToLower(email)
		if _, dup := seen[lower]; dup {
			dto.BadResponseError(ctx, dto.FieldIncorrect, "Duplicate email addresses in invite list")
			return
		}
		seen[lower] = struct{}{}
		if lower == strings.ToLower(leader.Email) {
			dto.BadResponseError(ctx, dto.FieldIncorrect, "You cannot invite yourself to your own team")
			return
		}
	}

	now := time.Now()
	members := []model.TeamMember{{
		ParticipantID: leader.ID,
		Email:         leader.Email,
		Status:        model.MemberAccepted,
		RespondedAt:   &now,
	}}

	invitees := make([]*model.Participant, 0, len(req.MemberEmails))
	for _, email := range req.MemberEmails {
		invitee, err := s.repo.GetParticipantByEmail(ctx.Request.Context(), email)
		if err != nil {
			dto.NotFoundResponseError(ctx, dto.ParticipantNotFound,
				fmt.Sprintf("Participant with email %s not found. All members must be registered participants.", email))
			return
		}
		invitees = append(invitees, invitee)
		members = append(members, model.TeamMember{
			ParticipantID: invitee.ID,
			Email:         invitee.Email,
			Status:        model.MemberPending,
		})
	}

	code, err := newTeamCode()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to generate team code")
		dto.InternalServerError(ctx)
		return
	}

	team := &model.Team{
		EventID:    req.EventID,
		Name:       req.TeamName,
		Code:       code,
		LeaderID:   leader.ID,
		MinMembers: event.TeamMinSize,
		MaxMembers: event.TeamMaxSize,
		Status:     model.TeamDraft,
	}

	id, err := s.repo.CreateTeamTx(ctx.Request.Context(), team, members)
	if err != nil {
		if errors.Is(err, repo.ErrAlreadyInTeam) {
			monitoring.RecordTeamOperation("create", "conflict")
			dto.ConflictResponseError(ctx, dto.AlreadyInTeam, err.Error())
			return
		}
		s.log.Error().Err(err).Msg("failed to create team")
		dto.InternalServerError(ctx)
		return
	}

	team.ID = id
	team.Members = members
	team.CreatedAt = now
	monitoring.RecordTeamOperation("create", "ok")
	s.log.Info().Int64("team_id", id).Int64("event_id", req.EventID).Msg("team created")

	for _, invitee := range invitees {
		s.notify(invitee.Email,
			fmt.Sprintf("Team Invitation: %s", event.Name),
			invitationEmailBody(leader, team.Name, event.Name))
	}

	dto.SuccessCreatedResponse(ctx, teamResponse(team))
}

// RespondInvitation resolves a pending invitation; once resolved it is
// immutable.
func (s *service) RespondInvitation(ctx *ginext.Context) {
	pid, ok := participantID(ctx)
	if !ok {
		unauthorized(ctx, "Participant identity required")
		return
	}

	teamID, ok := teamParam(ctx)
	if !ok {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid team ID")
		return
	}

	var req dto.RespondInvitationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	accept := req.Action == "accept"
	if err := s.repo.RespondTx(ctx.Request.Context(), teamID, pid, accept); err != nil {
		switch {
		case errors.Is(err, repo.ErrTeamNotFound):
			dto.TeamNotFoundError(ctx)
		case errors.Is(err, repo.ErrNotInvited):
			dto.ForbiddenResponseError(ctx, dto.NotInvited, "You are not invited to this team")
		case errors.Is(err, repo.ErrAlreadyResponded):
			dto.ConflictResponseError(ctx, dto.AlreadyResponded, "You have already responded to this invitation")
		case errors.Is(err, repo.ErrTeamFull):
			monitoring.RecordTeamOperation("respond", "team_full")
			dto.ConflictResponseError(ctx, dto.TeamFull, "Team is already full")
		case errors.Is(err, repo.ErrTeamNotDraft):
			dto.ConflictResponseError(ctx, dto.TeamAlreadyFinal, "Team is no longer accepting responses")
		default:
			s.log.Error().Err(err).Msg("failed to respond to invitation")
			dto.InternalServerError(ctx)
		}
		return
	}

	monitoring.RecordTeamOperation("respond", "ok")

	team, err := s.repo.GetTeamByID(ctx.Request.Context(), teamID)
	if err != nil {
		dto.TeamNotFoundError(ctx)
		return
	}

	// Notify the leader; best-effort.
	if leader, err := s.repo.GetParticipantByID(ctx.Request.Context(), team.LeaderID); err == nil {
		if member, err := s.repo.GetParticipantByID(ctx.Request.Context(), pid); err == nil {
			action, subject := "declined", "Team Invitation Declined"
			if accept {
				action, subject = "accepted", "Team Invitation Accepted"
			}
			s.notify(leader.Email, subject, invitationRespondedBody(member, team.Name, action))
		}
	}

	dto.SuccessResponse(ctx, teamResponse(team))
}

// FinalizeTeam is the leader's commit: every accepted member is admitted in
// one batch that either fully applies or fully rolls back.
func (s *service) FinalizeTeam(ctx *ginext.Context) {
	pid, ok := participantID(ctx)
	if !ok {
		unauthorized(ctx, "Participant identity required")
		return
	}

	teamID, ok := teamParam(ctx)
	if !ok {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid team ID")
		return
	}

	team, err := s.repo.GetTeamByID(ctx.Request.Context(), teamID)
	if err != nil {
		dto.TeamNotFoundError(ctx)
		return
	}
	if team.LeaderID != pid {
		dto.ForbiddenResponseError(ctx, dto.NotTeamLeader, "Only the team leader can finalize the team")
		return
	}
	if team.Status != model.TeamDraft {
		dto.ConflictResponseError(ctx, dto.TeamAlreadyFinal, "Team has already been finalized")
		return
	}
	if !team.CanFinalize() {
		monitoring.RecordTeamOperation("finalize", "rejected")
		dto.ConflictResponseError(ctx, dto.TeamNotFinalizable,
			fmt.Sprintf("Team needs between %d and %d accepted members and no pending invitations. Currently: %d accepted, %d pending",
				team.MinMembers, team.MaxMembers, team.AcceptedCount(), team.PendingCount()))
		return
	}

	event, err := s.repo.GetEventByID(ctx.Request.Context(), team.EventID)
	if err != nil {
		dto.EventNotFoundError(ctx)
		return
	}

	paymentStatus := model.PaymentCompleted
	if event.RegistrationFee.IsPositive() {
		paymentStatus = model.PaymentPending
	}

	// Per-event capacity was enforced at create/accept time; admission here
	// only mints tickets and registrations.
	var regs []model.Registration
	for _, m := range team.Members {
		if m.Status != model.MemberAccepted {
			continue
		}
		tkt, err := s.issuer.Issue(team.EventID, m.ParticipantID, team.ID, team.Name)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to issue team ticket")
			dto.InternalServerError(ctx)
			return
		}
		tid := team.ID
		regs = append(regs, model.Registration{
			EventID:       team.EventID,
			ParticipantID: m.ParticipantID,
			TeamID:        &tid,
			TicketID:      tkt.TicketID,
			QRPayload:     tkt.QRPayload,
			PaymentStatus: paymentStatus,
			OrderTotal:    event.RegistrationFee,
		})
	}

	if err := s.repo.FinalizeTeamTx(ctx.Request.Context(), teamID, regs); err != nil {
		switch {
		case errors.Is(err, repo.ErrTeamNotDraft):
			dto.ConflictResponseError(ctx, dto.TeamAlreadyFinal, "Team has already been finalized")
		case errors.Is(err, repo.ErrPendingInvitations):
			monitoring.RecordTeamOperation("finalize", "rejected")
			dto.ConflictResponseError(ctx, dto.TeamNotFinalizable, "Team still has pending invitations")
		case errors.Is(err, repo.ErrRosterChanged):
			monitoring.RecordTeamOperation("finalize", "rejected")
			dto.ConflictResponseError(ctx, dto.TeamNotFinalizable, "Team membership changed - review the team and try again")
		case errors.Is(err, repo.ErrAlreadyRegistered):
			monitoring.RecordTeamOperation("finalize", "conflict")
			dto.ConflictResponseError(ctx, dto.AlreadyRegistered, "A team member is already registered for this event")
		default:
			s.log.Error().Err(err).Msg("failed to finalize team")
			dto.InternalServerError(ctx)
		}
		return
	}

	team.Status = model.TeamComplete
	monitoring.RecordTeamOperation("finalize", "ok")
	s.log.Info().Int64("team_id", teamID).Int("tickets", len(regs)).Msg("team finalized")

	resp := teamResponse(team)
	for _, reg := range regs {
		monitoring.RecordTicket("team")
		resp.Tickets = append(resp.Tickets, dto.TicketResponse{
			ParticipantID: reg.ParticipantID,
			TicketID:      reg.TicketID,
			QRPayload:     reg.QRPayload,
			GeneratedAt:   time.Now(),
		})
		if member := team.MemberOf(reg.ParticipantID); member != nil {
			s.notify(member.Email,
				fmt.Sprintf("Ticket for %s", event.Name),
				teamTicketEmailBody(team.Name, event.Name, reg.TicketID))
		}
	}

	dto.SuccessResponse(ctx, resp)
}

// LeaveTeam removes a non-leader member before finalization. The leader must
// disband instead.
func (s *service) LeaveTeam(ctx *ginext.Context) {
	pid, ok := participantID(ctx)
	if !ok {
		unauthorized(ctx, "Participant identity required")
		return
	}

	teamID, ok := teamParam(ctx)
	if !ok {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid team ID")
		return
	}

	team, err := s.repo.GetTeamByID(ctx.Request.Context(), teamID)
	if err != nil {
		dto.TeamNotFoundError(ctx)
		return
	}
	if team.LeaderID == pid {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Team leader cannot leave. Disband the team instead.")
		return
	}

	if err := s.repo.LeaveTeamTx(ctx.Request.Context(), teamID, pid); err != nil {
		switch {
		case errors.Is(err, repo.ErrTeamNotFound):
			dto.TeamNotFoundError(ctx)
		case errors.Is(err, repo.ErrNotInvited):
			dto.ForbiddenResponseError(ctx, dto.NotInvited, "You are not a member of this team")
		case errors.Is(err, repo.ErrTeamNotDraft):
			dto.ConflictResponseError(ctx, dto.TeamAlreadyFinal, "Cannot leave a finalized team")
		default:
			s.log.Error().Err(err).Msg("failed to leave team")
			dto.InternalServerError(ctx)
		}
		return
	}

	monitoring.RecordTeamOperation("leave", "ok")
	dto.SuccessResponse(ctx, map[string]string{"message": "You have left the team"})
}

// DisbandTeam is the leader's abandon path, terminal for the team.
func (s *service) DisbandTeam(ctx *ginext.Context) {
	pid, ok := participantID(ctx)
	if !ok {
		unauthorized(ctx, "Participant identity required")
		return
	}

	teamID, ok := teamParam(ctx)
	if !ok {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid team ID")
		return
	}

	team, err := s.repo.GetTeamByID(ctx.Request.Context(), teamID)
	if err != nil {
		dto.TeamNotFoundError(ctx)
		return
	}
	if team.LeaderID != pid {
		dto.ForbiddenResponseError(ctx, dto.NotTeamLeader, "Only the team leader can disband the team")
		return
	}

	if err := s.repo.DisbandTeamTx(ctx.Request.Context(), teamID); err != nil {
		switch {
		case errors.Is(err, repo.ErrTeamNotFound):
			dto.TeamNotFoundError(ctx)
		case errors.Is(err, repo.ErrTeamNotDraft):
			dto.ConflictResponseError(ctx, dto.TeamAlreadyFinal, "Cannot disband a finalized team")
		default:
			s.log.Error().Err(err).Msg("failed to disband team")
			dto.InternalServerError(ctx)
		}
		return
	}

	monitoring.RecordTeamOperation("disband", "ok")
	s.log.Info().Int64("team_id", teamID).Msg("team disbanded")

	for _, m := range team.Members {
		if m.ParticipantID == pid {
			continue
		}
		s.notify(m.Email, "Team Disbanded", teamDisbandedBody(team.Name))
	}

	dto.SuccessResponse(ctx, map[string]string{"message": "Team disbanded successfully"})
}

func (s *service) GetTeam(ctx *ginext.Context) {
	teamID, ok := teamParam(ctx)
	if !ok {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid team ID")
		return
	}

	team, err := s.repo.GetTeamByID(ctx.Request.Context(), teamID)
	if err != nil {
		dto.TeamNotFoundError(ctx)
		return
	}

	resp := teamResponse(team)
	if team.Status == model.TeamComplete {
		regs, err := s.repo.GetTeamRegistrations(ctx.Request.Context(), teamID)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to get team tickets")
			dto.InternalServerError(ctx)
			return
		}
		for _, reg := range regs {
			resp.Tickets = append(resp.Tickets, dto.TicketResponse{
				ParticipantID: reg.ParticipantID,
				TicketID:      reg.TicketID,
				QRPayload:     reg.QRPayload,
				GeneratedAt:   reg.CreatedAt,
			})
		}
	}

	dto.SuccessResponse(ctx, resp)
}

func (s *service) GetMyTeams(ctx *ginext.Context) {
	pid, ok := participantID(ctx)
	if !ok {
		unauthorized(ctx, "Participant identity required")
		return
	}

	teams, err := s.repo.GetTeamsByParticipant(ctx.Request.Context(), pid)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get teams")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		resp = append(resp, teamResponse(&teams[i]))
	}

	dto.SuccessResponse(ctx, resp)
}

func (s *service) GetInvitations(ctx *ginext.Context) {
	pid, ok := participantID(ctx)
	if !ok {
		unauthorized(ctx, "Participant identity required")
		return
	}

	teams, err := s.repo.GetPendingInvitations(ctx.Request.Context(), pid)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get invitations")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		resp = append(resp, teamResponse(&teams[i]))
	}

	dto.SuccessResponse(ctx, resp)
}
