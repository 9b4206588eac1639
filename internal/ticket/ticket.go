// Package ticket mints admission tickets and their QR payloads. The payload
// is a signed token that an offline scanning station can parse and verify
// without calling back into the service.
package ticket

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedPayload = errors.New("malformed qr payload")
)

type Ticket struct {
	TicketID    string
	QRPayload   string
	GeneratedAt time.Time
}

// Claims is the wire contract of the QR payload. Team fields are present
// only on tickets minted through team finalization.
type Claims struct {
	TicketID      string `json:"ticket_id"`
	EventID       int64  `json:"event_id"`
	ParticipantID int64  `json:"participant_id"`
	TeamID        int64  `json:"team_id,omitempty"`
	TeamName      string `json:"team_name,omitempty"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret)}
}

// NewTicketID returns an identifier of the form TKT-<unix millis>-<8 hex>.
// The random tail makes collisions negligible; the unique index on
// registrations.ticket_id is the correctness backstop.
func NewTicketID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ticket id entropy: %w", err)
	}
	return fmt.Sprintf("TKT-%d-%s", time.Now().UnixMilli(), strings.ToUpper(hex.EncodeToString(buf))), nil
}

// Issue mints a ticket bound to one (event, participant) pair. teamID of zero
// means an individual ticket.
func (i *Issuer) Issue(eventID, participantID, teamID int64, teamName string) (Ticket, error) {
	ticketID, err := NewTicketID()
	if err != nil {
		return Ticket{}, err
	}

	now := time.Now()
	claims := Claims{
		TicketID:      ticketID,
		EventID:       eventID,
		ParticipantID: participantID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if teamID != 0 {
		claims.TeamID = teamID
		claims.TeamName = teamName
	}

	payload, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Ticket{}, fmt.Errorf("sign qr payload: %w", err)
	}

	return Ticket{
		TicketID:    ticketID,
		QRPayload:   payload,
		GeneratedAt: now,
	}, nil
}

// Parse validates the signature and returns the embedded claims. Any parse
// or signature failure is reported as a malformed payload; the caller does
// not distinguish tampering from garbage.
func (i *Issuer) Parse(payload string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(payload, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrMalformedPayload
	}
	if claims.TicketID == "" || claims.EventID == 0 || claims.ParticipantID == 0 {
		return Claims{}, ErrMalformedPayload
	}
	return claims, nil
}
