package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festify/internal/dto"
	"festify/internal/model"
	"festify/internal/repo"
	"festify/internal/ticket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubRepo satisfies repo.Repository with canned fixtures; the func fields
// let a test capture transaction arguments or force a sentinel error.
type stubRepo struct {
	event       *model.Event
	participant *model.Participant
	merchandise []model.MerchandiseItem
	liveReg     *model.Registration
	team        *model.Team

	registerFn func(reg *model.Registration, stock []repo.StockReservation, items []model.RegistrationItem, revenue decimal.Decimal) (int64, error)
	admitFn    func(rec *model.AttendanceRecord, fee decimal.Decimal) error
	finalizeFn func(teamID int64, regs []model.Registration) error
}

func (s *stubRepo) CreateEventTx(_ context.Context, _ *model.Event, _ []model.MerchandiseItem) (int64, error) {
	return 1, nil
}

func (s *stubRepo) GetEventByID(_ context.Context, _ int64) (*model.Event, error) {
	if s.event == nil {
		return nil, repo.ErrEventNotFound
	}
	return s.event, nil
}

func (s *stubRepo) GetPublishedEvents(_ context.Context) ([]model.Event, error) { return nil, nil }

func (s *stubRepo) GetMerchandise(_ context.Context, _ int64) ([]model.MerchandiseItem, error) {
	return s.merchandise, nil
}

func (s *stubRepo) UpdateEvent(_ context.Context, _ *model.Event) error { return nil }

func (s *stubRepo) CountLiveRegistrations(_ context.Context, _ int64) (int, error) { return 0, nil }

func (s *stubRepo) CountAcceptedTeamMembers(_ context.Context, _ int64) (int, error) { return 0, nil }

func (s *stubRepo) CreateParticipant(_ context.Context, _ *model.Participant) (int64, error) {
	return 1, nil
}

func (s *stubRepo) GetParticipantByID(_ context.Context, _ int64) (*model.Participant, error) {
	if s.participant == nil {
		return nil, repo.ErrParticipantNotFound
	}
	return s.participant, nil
}

func (s *stubRepo) GetParticipantByEmail(_ context.Context, _ string) (*model.Participant, error) {
	if s.participant == nil {
		return nil, repo.ErrParticipantNotFound
	}
	return s.participant, nil
}

func (s *stubRepo) RegisterTx(_ context.Context, reg *model.Registration, stock []repo.StockReservation, items []model.RegistrationItem, revenue decimal.Decimal) (int64, error) {
	if s.registerFn != nil {
		return s.registerFn(reg, stock, items, revenue)
	}
	return 1, nil
}

func (s *stubRepo) GetLiveRegistration(_ context.Context, _, _ int64) (*model.Registration, error) {
	if s.liveReg == nil {
		return nil, repo.ErrRegistrationNotFound
	}
	return s.liveReg, nil
}

func (s *stubRepo) GetParticipantRegistrations(_ context.Context, _ int64) ([]model.Registration, error) {
	return nil, nil
}

func (s *stubRepo) CreateTeamTx(_ context.Context, _ *model.Team, _ []model.TeamMember) (int64, error) {
	return 1, nil
}

func (s *stubRepo) GetTeamByID(_ context.Context, _ int64) (*model.Team, error) {
	if s.team == nil {
		return nil, repo.ErrTeamNotFound
	}
	return s.team, nil
}

func (s *stubRepo) GetTeamsByParticipant(_ context.Context, _ int64) ([]model.Team, error) {
	return nil, nil
}

func (s *stubRepo) GetPendingInvitations(_ context.Context, _ int64) ([]model.Team, error) {
	return nil, nil
}

func (s *stubRepo) GetTeamRegistrations(_ context.Context, _ int64) ([]model.Registration, error) {
	return nil, nil
}

func (s *stubRepo) RespondTx(_ context.Context, _, _ int64, _ bool) error { return nil }

func (s *stubRepo) FinalizeTeamTx(_ context.Context, teamID int64, regs []model.Registration) error {
	if s.finalizeFn != nil {
		return s.finalizeFn(teamID, regs)
	}
	return nil
}

func (s *stubRepo) LeaveTeamTx(_ context.Context, _, _ int64) error { return nil }

func (s *stubRepo) DisbandTeamTx(_ context.Context, _ int64) error { return nil }

func (s *stubRepo) AdmitTx(_ context.Context, rec *model.AttendanceRecord, fee decimal.Decimal) error {
	if s.admitFn != nil {
		return s.admitFn(rec, fee)
	}
	return nil
}

func (s *stubRepo) GetAttendanceRecords(_ context.Context, _ int64) ([]repo.AttendanceRow, error) {
	return nil, nil
}

func (s *stubRepo) MigrateUp(_ string) error   { return nil }
func (s *stubRepo) MigrateDown(_ string) error { return nil }

func newTestService(r repo.Repository) *service {
	logger := zerolog.Nop()
	return &service{
		repo:              r,
		log:               &logger,
		issuer:            ticket.NewIssuer("test-secret"),
		institutionDomain: "@campus.example.edu",
	}
}

func postJSON(t *testing.T, w *httptest.ResponseRecorder, body any, eventID string) *gin.Context {
	t.Helper()
	c, _ := gin.CreateTestContext(w)
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	c.Request = httptest.NewRequest(http.MethodPost, "/", &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: eventID}}
	return c
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func openEvent() *model.Event {
	now := time.Now()
	return &model.Event{
		ID:                   1,
		Name:                 "Hack Night",
		EventType:            model.EventTypeNormal,
		OrganizerID:          9,
		Eligibility:          model.EligibilityAll,
		RegistrationDeadline: now.Add(time.Hour),
		StartTime:            now.Add(2 * time.Hour),
		EndTime:              now.Add(5 * time.Hour),
		Status:               model.EventPublished,
		RegistrationFee:      decimal.NewFromInt(100),
	}
}

func externalParticipant() *model.Participant {
	return &model.Participant{
		ID:              7,
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@elsewhere.example.com",
		ParticipantType: model.ParticipantExternal,
	}
}

func TestRegister_DeadlineCheckedFirst(t *testing.T) {
	event := openEvent()
	event.RegistrationDeadline = time.Now().Add(-time.Hour)
	event.Eligibility = model.EligibilityInstitutional

	// Ineligible participant and an existing registration; the deadline
	// rejection must still win.
	svc := newTestService(&stubRepo{
		event:       event,
		participant: externalParticipant(),
		liveReg:     &model.Registration{ID: 1},
	})

	w := httptest.NewRecorder()
	c := postJSON(t, w, map[string]any{}, "1")
	c.Set("participant_id", int64(7))

	svc.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.DeadlinePassed, resp.Error.Code)
}

func TestRegister_EligibilityBeforeDuplicate(t *testing.T) {
	event := openEvent()
	event.Eligibility = model.EligibilityInstitutional

	svc := newTestService(&stubRepo{
		event:       event,
		participant: externalParticipant(),
		liveReg:     &model.Registration{ID: 1},
	})

	w := httptest.NewRecorder()
	c := postJSON(t, w, map[string]any{}, "1")
	c.Set("participant_id", int64(7))

	svc.Register(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.NotEligible, resp.Error.Code)
}

func TestRegister_DuplicateBeforeSelection(t *testing.T) {
	event := openEvent()
	event.EventType = model.EventTypeMerchandise

	// The selection is invalid too, but the duplicate check runs first.
	svc := newTestService(&stubRepo{
		event:       event,
		participant: externalParticipant(),
		liveReg:     &model.Registration{ID: 1},
	})

	w := httptest.NewRecorder()
	c := postJSON(t, w, map[string]any{
		"selected_items": []map[string]any{{"item_index": 99, "quantity": 1}},
	}, "1")
	c.Set("participant_id", int64(7))

	svc.Register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.AlreadyRegistered, resp.Error.Code)
}

func TestRegister_InvalidSelectionIndex(t *testing.T) {
	event := openEvent()
	event.EventType = model.EventTypeMerchandise

	svc := newTestService(&stubRepo{
		event:       event,
		participant: externalParticipant(),
		merchandise: []model.MerchandiseItem{
			{ID: 11, ItemName: "Shirt", StockQuantity: 5, Price: decimal.NewFromInt(250)},
		},
	})

	w := httptest.NewRecorder()
	c := postJSON(t, w, map[string]any{
		"selected_items": []map[string]any{{"item_index": 99, "quantity": 1}},
	}, "1")
	c.Set("participant_id", int64(7))

	svc.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.InvalidSelection, resp.Error.Code)
}

func TestRegister_FeeRevenueNotRealizedAtRegistration(t *testing.T) {
	var gotRevenue decimal.Decimal
	var gotReg model.Registration
	stub := &stubRepo{
		event:       openEvent(),
		participant: externalParticipant(),
		registerFn: func(reg *model.Registration, _ []repo.StockReservation, _ []model.RegistrationItem, revenue decimal.Decimal) (int64, error) {
			gotRevenue = revenue
			gotReg = *reg
			return 0, repo.ErrCapacityExceeded
		},
	}
	svc := newTestService(stub)

	w := httptest.NewRecorder()
	c := postJSON(t, w, map[string]any{}, "1")
	c.Set("participant_id", int64(7))

	svc.Register(c)

	assert.True(t, gotRevenue.IsZero(), "fee revenue belongs to the attendance recorder")
	assert.True(t, gotReg.OrderTotal.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, model.PaymentPending, gotReg.PaymentStatus)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_MerchandiseRevenueRealizedAtPurchase(t *testing.T) {
	event := openEvent()
	event.EventType = model.EventTypeMerchandise

	var gotRevenue decimal.Decimal
	var gotStock []repo.StockReservation
	stub := &stubRepo{
		event:       event,
		participant: externalParticipant(),
		merchandise: []model.MerchandiseItem{
			{ID: 11, ItemName: "Shirt", StockQuantity: 5, Price: decimal.NewFromInt(250)},
		},
		registerFn: func(_ *model.Registration, stock []repo.StockReservation, _ []model.RegistrationItem, revenue decimal.Decimal) (int64, error) {
			gotRevenue = revenue
			gotStock = stock
			return 0, repo.ErrInsufficientStock
		},
	}
	svc := newTestService(stub)

	w := httptest.NewRecorder()
	c := postJSON(t, w, map[string]any{
		"selected_items": []map[string]any{{"item_index": 0, "quantity": 2}},
	}, "1")
	c.Set("participant_id", int64(7))

	svc.Register(c)

	assert.True(t, gotRevenue.Equal(decimal.NewFromInt(500)), "merchandise revenue is the order total")
	require.Len(t, gotStock, 1)
	assert.Equal(t, int64(11), gotStock[0].MerchandiseID)
	assert.Equal(t, 2, gotStock[0].Quantity)
}

func runningEvent() *model.Event {
	e := openEvent()
	e.StartTime = time.Now().Add(-time.Hour)
	e.EndTime = time.Now().Add(time.Hour)
	return e
}

func TestScanTicket_SecondScanIsDuplicate(t *testing.T) {
	svc := newTestService(&stubRepo{
		event:       runningEvent(),
		participant: externalParticipant(),
		admitFn: func(_ *model.AttendanceRecord, _ decimal.Decimal) error {
			return repo.ErrAlreadyScanned
		},
	})

	tkt, err := svc.issuer.Issue(1, 7, 0, "")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c := postJSON(t, w, map[string]any{"qr_payload": tkt.QRPayload}, "1")
	c.Set("organizer_id", int64(9))

	svc.ScanTicket(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.AlreadyScanned, resp.Error.Code)
	assert.True(t, resp.Error.Duplicate, "duplicate scans are flagged, not hard failures")
}

func TestScanTicket_MalformedPayload(t *testing.T) {
	svc := newTestService(&stubRepo{event: runningEvent()})

	w := httptest.NewRecorder()
	c := postJSON(t, w, map[string]any{"qr_payload": "garbage"}, "1")
	c.Set("organizer_id", int64(9))

	svc.ScanTicket(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.MalformedPayload, resp.Error.Code)
}

func TestScanTicket_EventMismatch(t *testing.T) {
	svc := newTestService(&stubRepo{event: runningEvent()})

	tkt, err := svc.issuer.Issue(2, 7, 0, "")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c := postJSON(t, w, map[string]any{"qr_payload": tkt.QRPayload}, "1")
	c.Set("organizer_id", int64(9))

	svc.ScanTicket(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.EventMismatch, resp.Error.Code)
}

func finalizableTeam() *model.Team {
	return &model.Team{
		ID:         3,
		EventID:    1,
		Name:       "Compiler Crew",
		LeaderID:   7,
		MinMembers: 2,
		MaxMembers: 4,
		Status:     model.TeamDraft,
		Members: []model.TeamMember{
			{ParticipantID: 7, Email: "lead@example.com", Status: model.MemberAccepted},
			{ParticipantID: 8, Email: "mate@example.com", Status: model.MemberAccepted},
		},
	}
}

func TestFinalizeTeam_RosterChangedUnderneath(t *testing.T) {
	// The repo re-checks the roster under the row lock; a member who left
	// after the handler's read surfaces as a finalizability conflict.
	svc := newTestService(&stubRepo{
		event: openEvent(),
		team:  finalizableTeam(),
		finalizeFn: func(_ int64, _ []model.Registration) error {
			return repo.ErrRosterChanged
		},
	})

	w := httptest.NewRecorder()
	c := postJSON(t, w, map[string]any{}, "3")
	c.Set("participant_id", int64(7))

	svc.FinalizeTeam(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.TeamNotFinalizable, resp.Error.Code)
}

func TestFinalizeTeam_PendingInvitationRace(t *testing.T) {
	svc := newTestService(&stubRepo{
		event: openEvent(),
		team:  finalizableTeam(),
		finalizeFn: func(_ int64, _ []model.Registration) error {
			return repo.ErrPendingInvitations
		},
	})

	w := httptest.NewRecorder()
	c := postJSON(t, w, map[string]any{}, "3")
	c.Set("participant_id", int64(7))

	svc.FinalizeTeam(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.TeamNotFinalizable, resp.Error.Code)
}

func TestFinalizeTeam_BatchMatchesAcceptedMembers(t *testing.T) {
	var gotRegs []model.Registration
	svc := newTestService(&stubRepo{
		event: openEvent(),
		team:  finalizableTeam(),
		finalizeFn: func(_ int64, regs []model.Registration) error {
			gotRegs = regs
			return repo.ErrTeamNotDraft // stop before notifications
		},
	})

	w := httptest.NewRecorder()
	c := postJSON(t, w, map[string]any{}, "3")
	c.Set("participant_id", int64(7))

	svc.FinalizeTeam(c)

	require.Len(t, gotRegs, 2, "one registration per accepted member")
	ids := map[int64]bool{}
	for _, reg := range gotRegs {
		ids[reg.ParticipantID] = true
		assert.NotEmpty(t, reg.TicketID)
		assert.NotEmpty(t, reg.QRPayload)
		require.NotNil(t, reg.TeamID)
		assert.Equal(t, int64(3), *reg.TeamID)
	}
	assert.True(t, ids[7] && ids[8])
}
