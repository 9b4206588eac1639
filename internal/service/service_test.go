package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festify/internal/model"
)

func TestHasSuffixFold(t *testing.T) {
	assert.True(t, hasSuffixFold("ada@Campus.Example.EDU", "@campus.example.edu"))
	assert.True(t, hasSuffixFold("ada@campus.example.edu", "@Campus.Example.edu"))
	assert.False(t, hasSuffixFold("ada@elsewhere.example.com", "@campus.example.edu"))
	assert.False(t, hasSuffixFold("ada@campus.example.edu", ""), "empty domain matches nothing")
}

func TestEligibilityMessage(t *testing.T) {
	assert.Contains(t, eligibilityMessage(model.EligibilityInstitutional), "institutional")
	assert.Contains(t, eligibilityMessage(model.EligibilityExternal), "external")
	assert.NotEmpty(t, eligibilityMessage(model.EligibilityAll))
}

func TestEventResponse_AvailableSeats(t *testing.T) {
	limit := 100
	e := &model.Event{SeatLimit: &limit, RegistrationCount: 37}

	resp := eventResponse(e)
	require.NotNil(t, resp.AvailableSeats)
	assert.Equal(t, 63, *resp.AvailableSeats)
}

func TestEventResponse_AvailableSeatsClampedAtZero(t *testing.T) {
	limit := 10
	e := &model.Event{SeatLimit: &limit, RegistrationCount: 12}

	resp := eventResponse(e)
	require.NotNil(t, resp.AvailableSeats)
	assert.Equal(t, 0, *resp.AvailableSeats)
}

func TestEventResponse_NoSeatLimit(t *testing.T) {
	resp := eventResponse(&model.Event{RegistrationCount: 5})
	assert.Nil(t, resp.AvailableSeats)
}

func TestNewTeamCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code, err := newTeamCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F'), "unexpected char %q in %s", c, code)
		}
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 90, "codes should rarely collide")
}

func TestTeamResponse(t *testing.T) {
	now := time.Now()
	responded := now.Add(-time.Minute)
	team := &model.Team{
		ID:         3,
		EventID:    42,
		Name:       "Compiler Crew",
		Code:       "A1B2C3",
		LeaderID:   7,
		MinMembers: 2,
		MaxMembers: 4,
		Status:     model.TeamDraft,
		CreatedAt:  now,
		Members: []model.TeamMember{
			{ParticipantID: 7, Email: "lead@example.com", Status: model.MemberAccepted, RespondedAt: &responded},
			{ParticipantID: 8, Email: "mate@example.com", Status: model.MemberPending},
		},
	}

	resp := teamResponse(team)
	assert.Equal(t, int64(3), resp.ID)
	assert.Equal(t, "A1B2C3", resp.Code)
	require.Len(t, resp.Members, 2)
	assert.Equal(t, model.MemberAccepted, resp.Members[0].Status)
	assert.NotNil(t, resp.Members[0].RespondedAt)
	assert.Nil(t, resp.Members[1].RespondedAt)
	assert.Empty(t, resp.Tickets)
}

func TestRegistrationEmailBody(t *testing.T) {
	p := &model.Participant{FirstName: "Ada", LastName: "Lovelace"}
	e := &model.Event{Name: "Hack Night", StartTime: time.Date(2026, 10, 1, 18, 0, 0, 0, time.UTC)}

	body := registrationEmailBody(p, e, "TKT-1-ABCDEF01", decimal.Zero)
	assert.Contains(t, body, "Ada Lovelace")
	assert.Contains(t, body, "Hack Night")
	assert.Contains(t, body, "TKT-1-ABCDEF01")
	assert.NotContains(t, body, "Amount", "free events show no amount line")

	paid := registrationEmailBody(p, e, "TKT-1-ABCDEF01", decimal.RequireFromString("250"))
	assert.Contains(t, paid, "Amount: 250.00")
}

func TestManualAttendanceBody(t *testing.T) {
	p := &model.Participant{FirstName: "Ada", LastName: "Lovelace"}

	plain := manualAttendanceBody(p, "Hack Night", "")
	assert.NotContains(t, plain, "Notes:")

	noted := manualAttendanceBody(p, "Hack Night", "forgot phone")
	assert.Contains(t, noted, "Notes: forgot phone")
}
