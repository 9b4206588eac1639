package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "Registration attempts by outcome",
		},
		[]string{"event_id", "outcome"},
	)

	ticketsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Tickets minted, individual and team",
		},
		[]string{"kind"},
	)

	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_scans_total",
			Help: "Attendance admissions by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	teamOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "team_operations_total",
			Help: "Team formation operations by outcome",
		},
		[]string{"operation", "outcome"},
	)
)

func RecordRegistration(eventID, outcome string) {
	registrationsTotal.WithLabelValues(eventID, outcome).Inc()
}

func RecordTicket(kind string) {
	ticketsIssuedTotal.WithLabelValues(kind).Inc()
}

func RecordScan(method, outcome string) {
	scansTotal.WithLabelValues(method, outcome).Inc()
}

func RecordTeamOperation(operation, outcome string) {
	teamOperationsTotal.WithLabelValues(operation, outcome).Inc()
}
