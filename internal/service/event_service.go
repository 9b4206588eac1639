package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/wb-go/wbf/ginext"

	"festify/internal/dto"
	"festify/internal/model"
	"festify/internal/repo"
	"festify/pkg/validator"
)

func eventParam(ctx *ginext.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func eventResponse(e *model.Event) dto.EventResponse {
	resp := dto.EventResponse{
		ID:                   e.ID,
		Name:                 e.Name,
		Description:          e.Description,
		EventType:            e.EventType,
		Eligibility:          e.Eligibility,
		RegistrationDeadline: e.RegistrationDeadline,
		StartTime:            e.StartTime,
		EndTime:              e.EndTime,
		SeatLimit:            e.SeatLimit,
		RegistrationFee:      e.RegistrationFee,
		Status:               e.Status,
		IsTeamEvent:          e.IsTeamEvent,
		TeamMinSize:          e.TeamMinSize,
		TeamMaxSize:          e.TeamMaxSize,
		RegistrationCount:    e.RegistrationCount,
		AttendanceCount:      e.AttendanceCount,
		TotalRevenue:         e.TotalRevenue,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
	if e.SeatLimit != nil {
		available := *e.SeatLimit - e.RegistrationCount
		if available < 0 {
			available = 0
		}
		resp.AvailableSeats = &available
	}
	return resp
}

func (s *service) CreateEvent(ctx *ginext.Context) {
	orgID, ok := organizerID(ctx)
	if !ok {
		unauthorized(ctx, "Organizer identity required")
		return
	}

	var req dto.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse create event request")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		s.log.Error().Msgf("validation failed: %v", verr)
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	if !req.RegistrationDeadline.Before(req.StartTime) || !req.StartTime.Before(req.EndTime) {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Registration deadline must precede start time, and start time must precede end time")
		return
	}

	eligibility := req.Eligibility
	if eligibility == "" {
		eligibility = model.EligibilityAll
	}

	teamMin, teamMax := req.TeamMinSize, req.TeamMaxSize
	if req.IsTeamEvent {
		if teamMin == 0 {
			teamMin = 2
		}
		if teamMax == 0 {
			teamMax = 5
		}
		if teamMin > teamMax {
			dto.BadResponseError(ctx, dto.FieldIncorrect, "Minimum team size cannot exceed maximum team size")
			return
		}
	}

	if req.EventType == model.EventTypeMerchandise && len(req.MerchandiseItems) == 0 {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Merchandise events require at least one item")
		return
	}

	event := &model.Event{
		Name:                 req.Name,
		Description:          req.Description,
		EventType:            req.EventType,
		OrganizerID:          orgID,
		Eligibility:          eligibility,
		RegistrationDeadline: req.RegistrationDeadline,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		SeatLimit:            req.SeatLimit,
		RegistrationFee:      req.RegistrationFee,
		Status:               model.EventDraft,
		IsTeamEvent:          req.IsTeamEvent,
		TeamMinSize:          teamMin,
		TeamMaxSize:          teamMax,
		CustomForm:           req.CustomForm,
	}

	items := make([]model.MerchandiseItem, 0, len(req.MerchandiseItems))
	for _, item := range req.MerchandiseItems {
		items = append(items, model.MerchandiseItem{
			ItemName:      item.ItemName,
			Variants:      item.Variants,
			StockQuantity: item.StockQuantity,
			Price:         item.Price,
		})
	}

	id, err := s.repo.CreateEventTx(ctx.Request.Context(), event, items)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create event in DB")
		dto.InternalServerError(ctx)
		return
	}

	event.ID = id
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	s.log.Info().Int64("event_id", id).Msg("event created successfully")

	dto.SuccessCreatedResponse(ctx, eventResponse(event))
}

// UpdateEvent applies the field-edit policy: terminal events accept status
// changes only, and the registration form locks permanently the moment the
// first registration exists (live count, not a cached flag).
func (s *service) UpdateEvent(ctx *ginext.Context) {
	orgID, ok := organizerID(ctx)
	if !ok {
		unauthorized(ctx, "Organizer identity required")
		return
	}

	eventID, ok := eventParam(ctx)
	if !ok {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	var req dto.UpdateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		dto.EventNotFoundError(ctx)
		return
	}
	if event.OrganizerID != orgID {
		dto.ForbiddenResponseError(ctx, dto.NotOrganizerOfEvent, "Not authorized to manage this event")
		return
	}

	fieldEdit := req.Name != nil || req.Description != nil || req.Eligibility != nil ||
		req.RegistrationDeadline != nil || req.StartTime != nil || req.EndTime != nil ||
		req.SeatLimit != nil || req.RegistrationFee != nil || req.CustomForm != nil

	if model.Terminal(event.Status) && fieldEdit {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Cannot edit completed or closed events")
		return
	}

	if req.Status != nil && *req.Status != event.Status {
		if !model.CanTransition(event.Status, *req.Status) {
			dto.ConflictResponseError(ctx, dto.IllegalTransition,
				fmt.Sprintf("Cannot transition event from %s to %s", event.Status, *req.Status))
			return
		}
		event.Status = *req.Status
	}

	if req.CustomForm != nil {
		count, err := s.repo.CountLiveRegistrations(ctx.Request.Context(), eventID)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to count registrations for form lock")
			dto.InternalServerError(ctx)
			return
		}
		if count > 0 {
			dto.ConflictResponseError(ctx, dto.FormLocked, "Registration form is locked - participants have already registered for this event")
			return
		}
		event.CustomForm = req.CustomForm
	}

	if req.Name != nil {
		event.Name = *req.Name
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Eligibility != nil {
		event.Eligibility = *req.Eligibility
	}
	if req.RegistrationDeadline != nil {
		event.RegistrationDeadline = *req.RegistrationDeadline
	}
	if req.StartTime != nil {
		event.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		event.EndTime = *req.EndTime
	}
	if req.SeatLimit != nil {
		event.SeatLimit = req.SeatLimit
	}
	if req.RegistrationFee != nil {
		event.RegistrationFee = *req.RegistrationFee
	}

	if !event.RegistrationDeadline.Before(event.StartTime) || !event.StartTime.Before(event.EndTime) {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Registration deadline must precede start time, and start time must precede end time")
		return
	}

	if err := s.repo.UpdateEvent(ctx.Request.Context(), event); err != nil {
		s.log.Error().Err(err).Msg("failed to update event")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int64("event_id", eventID).Str("status", event.Status).Msg("event updated")
	dto.SuccessResponse(ctx, eventResponse(event))
}

func (s *service) PublishEvent(ctx *ginext.Context) {
	orgID, ok := organizerID(ctx)
	if !ok {
		unauthorized(ctx, "Organizer identity required")
		return
	}

	eventID, ok := eventParam(ctx)
	if !ok {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		dto.EventNotFoundError(ctx)
		return
	}
	if event.OrganizerID != orgID {
		dto.ForbiddenResponseError(ctx, dto.NotOrganizerOfEvent, "Not authorized to manage this event")
		return
	}

	if !model.CanTransition(event.Status, model.EventPublished) {
		dto.ConflictResponseError(ctx, dto.IllegalTransition,
			fmt.Sprintf("Cannot transition event from %s to %s", event.Status, model.EventPublished))
		return
	}

	event.Status = model.EventPublished
	if err := s.repo.UpdateEvent(ctx.Request.Context(), event); err != nil {
		s.log.Error().Err(err).Msg("failed to publish event")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int64("event_id", eventID).Msg("event published")
	dto.SuccessResponse(ctx, eventResponse(event))
}

func (s *service) GetEvent(ctx *ginext.Context) {
	eventID, ok := eventParam(ctx)
	if !ok {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		dto.EventNotFoundError(ctx)
		return
	}

	resp := eventResponse(event)
	if event.EventType == model.EventTypeMerchandise {
		items, err := s.repo.GetMerchandise(ctx.Request.Context(), eventID)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to load merchandise")
			dto.InternalServerError(ctx)
			return
		}
		for _, item := range items {
			resp.Merchandise = append(resp.Merchandise, dto.MerchandiseItemResponse{
				ID:            item.ID,
				ItemName:      item.ItemName,
				Variants:      item.Variants,
				StockQuantity: item.StockQuantity,
				Price:         item.Price,
			})
		}
	}

	dto.SuccessResponse(ctx, resp)
}

func (s *service) GetAllEvents(ctx *ginext.Context) {
	events, err := s.repo.GetPublishedEvents(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list events")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		resp = append(resp, eventResponse(&events[i]))
	}

	dto.SuccessResponse(ctx, resp)
}

func (s *service) CreateParticipant(ctx *ginext.Context) {
	var req dto.CreateParticipantRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	if req.ParticipantType == model.ParticipantInstitutional && !hasSuffixFold(req.Email, s.institutionDomain) {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Institutional participants must use an institution-issued email")
		return
	}
	if req.ParticipantType == model.ParticipantExternal && req.College == "" {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "External participants must provide their college")
		return
	}

	p := &model.Participant{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		ParticipantType: req.ParticipantType,
		College:         req.College,
		ContactNumber:   req.ContactNumber,
	}

	id, err := s.repo.CreateParticipant(ctx.Request.Context(), p)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create participant")
		dto.InternalServerError(ctx)
		return
	}

	p.ID = id
	dto.SuccessCreatedResponse(ctx, p)
}

func (s *service) GetMyRegistrations(ctx *ginext.Context) {
	pid, ok := participantID(ctx)
	if !ok {
		unauthorized(ctx, "Participant identity required")
		return
	}

	regs, err := s.repo.GetParticipantRegistrations(ctx.Request.Context(), pid)
	if err != nil {
		if errors.Is(err, repo.ErrParticipantNotFound) {
			dto.ParticipantNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to get registrations")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.RegistrationResponse, 0, len(regs))
	for _, r := range regs {
		resp = append(resp, dto.RegistrationResponse{
			ID:            r.ID,
			EventID:       r.EventID,
			ParticipantID: r.ParticipantID,
			Status:        r.Status,
			TicketID:      r.TicketID,
			QRPayload:     r.QRPayload,
			PaymentStatus: r.PaymentStatus,
			OrderTotal:    r.OrderTotal,
			CreatedAt:     r.CreatedAt,
		})
	}

	dto.SuccessResponse(ctx, resp)
}
