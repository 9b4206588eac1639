package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wb-go/wbf/ginext"

	"festify/internal/dto"
	"festify/internal/model"
	"festify/internal/monitoring"
	"festify/internal/repo"
	"festify/pkg/validator"
)

// Register admits one participant into one event. Preconditions run in a
// fixed order and the first failure wins; every rejection is terminal and
// surfaced verbatim to the caller.
func (s *service) Register(ctx *ginext.Context) {
	pid, ok := participantID(ctx)
	if !ok {
		unauthorized(ctx, "Participant identity required")
		return
	}

	eventID, ok := eventParam(ctx)
	if !ok {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}
	eventLabel := strconv.FormatInt(eventID, 10)

	var req dto.RegisterRequest
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

	// 1. Event open for registration.
	if !event.RegistrationOpen(time.Now()) {
		monitoring.RecordRegistration(eventLabel, "deadline_passed")
		dto.BadResponseError(ctx, dto.DeadlinePassed, "Registration deadline has passed")
		return
	}

	// 2. Eligibility.
	participant, err := s.repo.GetParticipantByID(ctx.Request.Context(), pid)
	if err != nil {
		dto.ParticipantNotFoundError(ctx)
		return
	}
	if !participant.Eligible(event.Eligibility) {
		monitoring.RecordRegistration(eventLabel, "not_eligible")
		dto.ForbiddenResponseError(ctx, dto.NotEligible, eligibilityMessage(event.Eligibility))
		return
	}

	// 3. Duplicate check (advisory; the transaction re-checks under lock).
	if _, err := s.repo.GetLiveRegistration(ctx.Request.Context(), eventID, pid); err == nil {
		monitoring.RecordRegistration(eventLabel, "already_registered")
		dto.ConflictResponseError(ctx, dto.AlreadyRegistered, "You have already registered for this event")
		return
	}

	// 4. Merchandise selection.
	var (
		stock      []repo.StockReservation
		items      []model.RegistrationItem
		orderTotal decimal.Decimal
	)
	if event.EventType == model.EventTypeMerchandise {
		if len(req.SelectedItems) == 0 {
			dto.BadResponseError(ctx, dto.InvalidSelection, "Please select at least one item to purchase")
			return
		}

		merch, err := s.repo.GetMerchandise(ctx.Request.Context(), eventID)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to load merchandise")
			dto.InternalServerError(ctx)
			return
		}

		for _, sel := range req.SelectedItems {
			if sel.ItemIndex < 0 || sel.ItemIndex >= len(merch) {
				dto.BadResponseError(ctx, dto.InvalidSelection, fmt.Sprintf("Invalid item at index %d", sel.ItemIndex))
				return
			}
			item := merch[sel.ItemIndex]
			if item.StockQuantity < sel.Quantity {
				monitoring.RecordRegistration(eventLabel, "capacity_exceeded")
				dto.ConflictResponseError(ctx, dto.CapacityExceeded,
					fmt.Sprintf("%q only has %d left in stock", item.ItemName, item.StockQuantity))
				return
			}
			stock = append(stock, repo.StockReservation{MerchandiseID: item.ID, Quantity: sel.Quantity})
			line := model.RegistrationItem{
				ItemName: item.ItemName,
				Quantity: sel.Quantity,
				Price:    item.Price,
			}
			items = append(items, line)
			orderTotal = orderTotal.Add(line.LineTotal())
		}
	} else {
		orderTotal = event.RegistrationFee
	}

	paymentStatus := model.PaymentCompleted
	if orderTotal.IsPositive() && req.PaymentProof == "" {
		paymentStatus = model.PaymentPending
	}

	tkt, err := s.issuer.Issue(eventID, pid, 0, "")
	if err != nil {
		s.log.Error().Err(err).Msg("failed to issue ticket")
		dto.InternalServerError(ctx)
		return
	}

	reg := &model.Registration{
		EventID:       eventID,
		ParticipantID: pid,
		TicketID:      tkt.TicketID,
		QRPayload:     tkt.QRPayload,
		PaymentStatus: paymentStatus,
		PaymentProof:  req.PaymentProof,
		OrderTotal:    orderTotal,
	}

	// Merchandise revenue is the sale itself; fee revenue for normal events
	// is recognized at check-in.
	revenue := decimal.Zero
	if event.EventType == model.EventTypeMerchandise {
		revenue = orderTotal
	}

	id, err := s.repo.RegisterTx(ctx.Request.Context(), reg, stock, items, revenue)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrEventNotFound):
			dto.EventNotFoundError(ctx)
		case errors.Is(err, repo.ErrAlreadyRegistered):
			monitoring.RecordRegistration(eventLabel, "already_registered")
			dto.ConflictResponseError(ctx, dto.AlreadyRegistered, "You have already registered for this event")
		case errors.Is(err, repo.ErrCapacityExceeded):
			monitoring.RecordRegistration(eventLabel, "capacity_exceeded")
			dto.ConflictResponseError(ctx, dto.CapacityExceeded, "Registration limit reached")
		case errors.Is(err, repo.ErrInsufficientStock):
			monitoring.RecordRegistration(eventLabel, "capacity_exceeded")
			dto.ConflictResponseError(ctx, dto.CapacityExceeded, "Selected item is out of stock")
		default:
			s.log.Error().Err(err).Msg("failed to register participant")
			dto.InternalServerError(ctx)
		}
		return
	}

	monitoring.RecordRegistration(eventLabel, "admitted")
	monitoring.RecordTicket("individual")
	s.log.Info().
		Int64("registration_id", id).
		Int64("event_id", eventID).
		Int64("participant_id", pid).
		Str("ticket_id", tkt.TicketID).
		Msg("registration created successfully")

	s.notify(participant.Email,
		fmt.Sprintf("Registration Confirmed: %s", event.Name),
		registrationEmailBody(participant, event, tkt.TicketID, orderTotal))

	dto.SuccessCreatedResponse(ctx, dto.RegistrationResponse{
		ID:            id,
		EventID:       eventID,
		ParticipantID: pid,
		Status:        model.RegistrationRegistered,
		TicketID:      tkt.TicketID,
		QRPayload:     tkt.QRPayload,
		PaymentStatus: paymentStatus,
		OrderTotal:    orderTotal,
		CreatedAt:     time.Now(),
	})
}

func eligibilityMessage(eligibility string) string {
	switch eligibility {
	case model.EligibilityInstitutional:
		return "This event is open to institutional participants only"
	case model.EligibilityExternal:
		return "This event is open to external participants only"
	default:
		return "Not eligible for this event"
	}
}
