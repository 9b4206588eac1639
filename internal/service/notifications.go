package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"festify/internal/model"
)

func registrationEmailBody(p *model.Participant, e *model.Event, ticketID string, total decimal.Decimal) string {
	body := fmt.Sprintf(
		"Dear %s,\n\nYou have successfully registered for %s.\n\nEvent date: %s\nTicket ID: %s\n",
		p.FullName(), e.Name, e.StartTime.Format("2006-01-02 15:04"), ticketID,
	)
	if total.IsPositive() {
		body += fmt.Sprintf("Amount: %s\n", total.StringFixed(2))
	}
	body += "\nPresent the QR code from your registration at the event entrance.\n"
	return body
}

func invitationEmailBody(leader *model.Participant, teamName, eventName string) string {
	return fmt.Sprintf(
		"You have been invited by %s to join the team %q for %s. Please log in to accept or decline this invitation.",
		leader.FullName(), teamName, eventName,
	)
}

func invitationRespondedBody(member *model.Participant, teamName, action string) string {
	return fmt.Sprintf("%s has %s the invitation to join %q.", member.FullName(), action, teamName)
}

func teamTicketEmailBody(teamName, eventName, ticketID string) string {
	return fmt.Sprintf(
		"Your team %q registration for %s is complete. Ticket ID: %s. Please keep this for event check-in.",
		teamName, eventName, ticketID,
	)
}

func teamDisbandedBody(teamName string) string {
	return fmt.Sprintf("Team %q has been disbanded by the team leader.", teamName)
}

func manualAttendanceBody(p *model.Participant, eventName, notes string) string {
	body := fmt.Sprintf("%s was manually marked as attended at %s.", p.FullName(), eventName)
	if notes != "" {
		body += "\nNotes: " + notes
	}
	return body
}
