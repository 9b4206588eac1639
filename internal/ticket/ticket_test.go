package ticket

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTicketID_Format(t *testing.T) {
	id, err := NewTicketID()
	require.NoError(t, err)

	parts := strings.Split(id, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "TKT", parts[0])
	assert.NotEmpty(t, parts[1])
	assert.Len(t, parts[2], 8)
	assert.Equal(t, strings.ToUpper(parts[2]), parts[2])
}

func TestNewTicketID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id, err := NewTicketID()
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate ticket id %s", id)
		seen[id] = struct{}{}
	}
}

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer("test-secret")

	tkt, err := issuer.Issue(42, 7, 0, "")
	require.NoError(t, err)
	assert.NotEmpty(t, tkt.TicketID)
	assert.NotEmpty(t, tkt.QRPayload)

	claims, err := issuer.Parse(tkt.QRPayload)
	require.NoError(t, err)
	assert.Equal(t, tkt.TicketID, claims.TicketID)
	assert.Equal(t, int64(42), claims.EventID)
	assert.Equal(t, int64(7), claims.ParticipantID)
	assert.Zero(t, claims.TeamID)
	assert.Empty(t, claims.TeamName)
}

func TestIssueAndParse_TeamTicket(t *testing.T) {
	issuer := NewIssuer("test-secret")

	tkt, err := issuer.Issue(42, 7, 3, "Compiler Crew")
	require.NoError(t, err)

	claims, err := issuer.Parse(tkt.QRPayload)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.TeamID)
	assert.Equal(t, "Compiler Crew", claims.TeamName)
}

func TestParse_RejectsGarbage(t *testing.T) {
	issuer := NewIssuer("test-secret")

	for _, payload := range []string{"", "not-a-token", "a.b.c"} {
		_, err := issuer.Parse(payload)
		assert.ErrorIs(t, err, ErrMalformedPayload, "payload %q", payload)
	}
}

func TestParse_RejectsTamperedPayload(t *testing.T) {
	issuer := NewIssuer("test-secret")

	tkt, err := issuer.Issue(42, 7, 0, "")
	require.NoError(t, err)

	tampered := tkt.QRPayload[:len(tkt.QRPayload)-2] + "xx"
	_, err = issuer.Parse(tampered)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParse_RejectsForeignSecret(t *testing.T) {
	tkt, err := NewIssuer("secret-a").Issue(42, 7, 0, "")
	require.NoError(t, err)

	_, err = NewIssuer("secret-b").Parse(tkt.QRPayload)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}
