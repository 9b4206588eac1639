package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEventIsRunning(t *testing.T) {
	now := time.Now()
	e := Event{
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
	}

	assert.True(t, e.IsRunning(now))
	assert.True(t, e.IsRunning(e.StartTime))
	assert.True(t, e.IsRunning(e.EndTime))
	assert.False(t, e.IsRunning(e.StartTime.Add(-time.Minute)))
	assert.False(t, e.IsRunning(e.EndTime.Add(time.Minute)))
}

func TestEventRegistrationOpen(t *testing.T) {
	now := time.Now()
	e := Event{
		Status:               EventPublished,
		RegistrationDeadline: now.Add(time.Hour),
	}

	assert.True(t, e.RegistrationOpen(now))

	e.Status = EventDraft
	assert.False(t, e.RegistrationOpen(now), "draft events are not open")

	e.Status = EventPublished
	assert.False(t, e.RegistrationOpen(e.RegistrationDeadline), "deadline itself is closed")
	assert.False(t, e.RegistrationOpen(e.RegistrationDeadline.Add(time.Minute)))
}

func TestParticipantEligible(t *testing.T) {
	inst := Participant{ParticipantType: ParticipantInstitutional}
	ext := Participant{ParticipantType: ParticipantExternal}

	assert.True(t, inst.Eligible(EligibilityAll))
	assert.True(t, ext.Eligible(EligibilityAll))

	assert.True(t, inst.Eligible(EligibilityInstitutional))
	assert.False(t, ext.Eligible(EligibilityInstitutional))

	assert.False(t, inst.Eligible(EligibilityExternal))
	assert.True(t, ext.Eligible(EligibilityExternal))
}

func TestParticipantFullName(t *testing.T) {
	p := Participant{FirstName: "Ada", LastName: "Lovelace"}
	assert.Equal(t, "Ada Lovelace", p.FullName())
}

func TestRegistrationItemLineTotal(t *testing.T) {
	item := RegistrationItem{
		Quantity: 3,
		Price:    decimal.RequireFromString("149.50"),
	}
	assert.True(t, item.LineTotal().Equal(decimal.RequireFromString("448.50")))
}

func teamWith(min, max int, statuses ...string) *Team {
	t := &Team{MinMembers: min, MaxMembers: max}
	for i, s := range statuses {
		t.Members = append(t.Members, TeamMember{ParticipantID: int64(i + 1), Status: s})
	}
	return t
}

func TestTeamCounts(t *testing.T) {
	team := teamWith(2, 4, MemberAccepted, MemberAccepted, MemberPending, MemberDeclined)

	assert.Equal(t, 2, team.AcceptedCount())
	assert.Equal(t, 1, team.PendingCount())
}

func TestTeamIsFull(t *testing.T) {
	assert.False(t, teamWith(2, 3, MemberAccepted, MemberAccepted).IsFull())
	assert.True(t, teamWith(2, 3, MemberAccepted, MemberAccepted, MemberAccepted).IsFull())
}

func TestTeamCanFinalize(t *testing.T) {
	assert.True(t, teamWith(2, 4, MemberAccepted, MemberAccepted).CanFinalize())
	assert.True(t, teamWith(2, 4, MemberAccepted, MemberAccepted, MemberDeclined).CanFinalize(),
		"declined members do not block finalization")

	assert.False(t, teamWith(2, 4, MemberAccepted).CanFinalize(),
		"below minimum size")
	assert.False(t, teamWith(2, 4, MemberAccepted, MemberAccepted, MemberPending).CanFinalize(),
		"pending invitation outstanding")
	assert.False(t, teamWith(2, 2, MemberAccepted, MemberAccepted, MemberAccepted).CanFinalize(),
		"above maximum size")
}

func TestTeamMemberOf(t *testing.T) {
	team := teamWith(2, 4, MemberAccepted, MemberPending)

	m := team.MemberOf(2)
	assert.NotNil(t, m)
	assert.Equal(t, MemberPending, m.Status)

	assert.Nil(t, team.MemberOf(99))
}
