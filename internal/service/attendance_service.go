package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wb-go/wbf/ginext"

	"festify/internal/dto"
	"festify/internal/model"
	"festify/internal/monitoring"
	"festify/internal/repo"
	"festify/pkg/validator"
)

// scanContext loads the event and verifies the caller is its organizer.
func (s *service) scanContext(ctx *ginext.Context) (*model.Event, int64, bool) {
	oid, ok := organizerID(ctx)
	if !ok {
		unauthorized(ctx, "Organizer identity required")
		return nil, 0, false
	}

	eventID, ok := eventParam(ctx)
	if !ok {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return nil, 0, false
	}

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		dto.EventNotFoundError(ctx)
		return nil, 0, false
	}
	if event.OrganizerID != oid {
		dto.ForbiddenResponseError(ctx, dto.NotOrganizerOfEvent, "You are not the organizer of this event")
		return nil, 0, false
	}

	return event, oid, true
}

// ScanTicket admits a participant from a signed QR payload. A repeat scan is
// reported as a duplicate, not recorded twice.
func (s *service) ScanTicket(ctx *ginext.Context) {
	event, oid, ok := s.scanContext(ctx)
	if !ok {
		return
	}

	var req dto.ScanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	claims, err := s.issuer.Parse(req.QRPayload)
	if err != nil {
		monitoring.RecordScan("qr", "malformed")
		dto.BadResponseError(ctx, dto.MalformedPayload, "QR payload is not a valid ticket")
		return
	}
	if claims.EventID != event.ID {
		monitoring.RecordScan("qr", "mismatch")
		dto.BadResponseError(ctx, dto.EventMismatch, "Ticket belongs to a different event")
		return
	}

	if !event.IsRunning(time.Now()) {
		dto.ConflictResponseError(ctx, dto.OutsideEventWindow, "Event is not currently running")
		return
	}

	rec := &model.AttendanceRecord{
		EventID:       event.ID,
		ParticipantID: claims.ParticipantID,
		ScannedBy:     oid,
		Method:        model.ScanMethodQR,
	}

	if err := s.repo.AdmitTx(ctx.Request.Context(), rec, event.RegistrationFee); err != nil {
		switch {
		case errors.Is(err, repo.ErrAlreadyScanned):
			monitoring.RecordScan("qr", "duplicate")
			dto.DuplicateScanError(ctx)
		default:
			s.log.Error().Err(err).Msg("failed to record attendance")
			dto.InternalServerError(ctx)
		}
		return
	}

	monitoring.RecordScan("qr", "ok")
	s.log.Info().Int64("event_id", event.ID).Int64("participant_id", claims.ParticipantID).Msg("ticket scanned")

	resp := dto.ScanResponse{
		ParticipantID: claims.ParticipantID,
		Method:        model.ScanMethodQR,
		ScannedAt:     rec.ScannedAt,
	}
	if p, err := s.repo.GetParticipantByID(ctx.Request.Context(), claims.ParticipantID); err == nil {
		resp.ParticipantName = p.FullName()
		resp.Email = p.Email
	}

	dto.SuccessResponse(ctx, resp)
}

// ManualAttendance is the fallback path when a QR code cannot be scanned.
// It runs the same admission transaction, tagged MANUAL.
func (s *service) ManualAttendance(ctx *ginext.Context) {
	event, oid, ok := s.scanContext(ctx)
	if !ok {
		return
	}

	var req dto.ManualAttendanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	if !event.IsRunning(time.Now()) {
		dto.ConflictResponseError(ctx, dto.OutsideEventWindow, "Event is not currently running")
		return
	}

	participant, err := s.repo.GetParticipantByID(ctx.Request.Context(), req.ParticipantID)
	if err != nil {
		dto.ParticipantNotFoundError(ctx)
		return
	}

	rec := &model.AttendanceRecord{
		EventID:       event.ID,
		ParticipantID: participant.ID,
		ScannedBy:     oid,
		Method:        model.ScanMethodManual,
		Notes:         req.Notes,
	}

	if err := s.repo.AdmitTx(ctx.Request.Context(), rec, event.RegistrationFee); err != nil {
		switch {
		case errors.Is(err, repo.ErrAlreadyScanned):
			monitoring.RecordScan("manual", "duplicate")
			dto.DuplicateScanError(ctx)
		default:
			s.log.Error().Err(err).Msg("failed to record manual attendance")
			dto.InternalServerError(ctx)
		}
		return
	}

	monitoring.RecordScan("manual", "ok")
	s.log.Info().Int64("event_id", event.ID).Int64("participant_id", participant.ID).Msg("manual attendance recorded")

	s.notify(participant.Email,
		fmt.Sprintf("Attendance Confirmed: %s", event.Name),
		manualAttendanceBody(participant, event.Name, req.Notes))

	dto.SuccessResponse(ctx, dto.ScanResponse{
		ParticipantID:   participant.ID,
		ParticipantName: participant.FullName(),
		Email:           participant.Email,
		Method:          model.ScanMethodManual,
		ScannedAt:       rec.ScannedAt,
	})
}

func (s *service) attendanceReport(ctx *ginext.Context) (*model.Event, []repo.AttendanceRow, int, bool) {
	event, _, ok := s.scanContext(ctx)
	if !ok {
		return nil, nil, 0, false
	}

	rows, err := s.repo.GetAttendanceRecords(ctx.Request.Context(), event.ID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get attendance records")
		dto.InternalServerError(ctx)
		return nil, nil, 0, false
	}

	// Team events count accepted members of finalized teams; solo events
	// count live registrations.
	var total int
	if event.IsTeamEvent {
		total, err = s.repo.CountAcceptedTeamMembers(ctx.Request.Context(), event.ID)
	} else {
		total, err = s.repo.CountLiveRegistrations(ctx.Request.Context(), event.ID)
	}
	if err != nil {
		s.log.Error().Err(err).Msg("failed to count registrations")
		dto.InternalServerError(ctx)
		return nil, nil, 0, false
	}

	return event, rows, total, true
}

func (s *service) GetAttendanceReport(ctx *ginext.Context) {
	event, rows, total, ok := s.attendanceReport(ctx)
	if !ok {
		return
	}

	rate := "0%"
	if total > 0 {
		rate = fmt.Sprintf("%.2f%%", float64(len(rows))/float64(total)*100)
	}

	report := dto.AttendanceReportResponse{
		EventName:          event.Name,
		TotalRegistrations: total,
		TotalAttendance:    len(rows),
		AttendanceRate:     rate,
		Records:            make([]dto.AttendanceRecordResponse, 0, len(rows)),
	}
	for _, row := range rows {
		report.Records = append(report.Records, dto.AttendanceRecordResponse{
			ParticipantID:   row.ParticipantID,
			ParticipantName: strings.TrimSpace(row.FirstName + " " + row.LastName),
			Email:           row.Email,
			ParticipantType: row.ParticipantType,
			ScannedAt:       row.ScannedAt,
			ScannedBy:       row.ScannedByID,
			Method:          row.Method,
			Notes:           row.Notes,
		})
	}

	dto.SuccessResponse(ctx, report)
}

// ExportAttendance streams the attendance sheet as a CSV download.
func (s *service) ExportAttendance(ctx *ginext.Context) {
	event, rows, _, ok := s.attendanceReport(ctx)
	if !ok {
		return
	}

	filename := fmt.Sprintf("attendance_%d.csv", event.ID)
	ctx.Header("Content-Type", "text/csv")
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Status(http.StatusOK)

	w := csv.NewWriter(ctx.Writer)
	_ = w.Write([]string{"Name", "Email", "Type", "Contact Number", "Scanned At", "Scan Method", "Notes"})
	for _, row := range rows {
		_ = w.Write([]string{
			strings.TrimSpace(row.FirstName + " " + row.LastName),
			row.Email,
			row.ParticipantType,
			row.ContactNumber,
			row.ScannedAt.Format(time.RFC3339),
			row.Method,
			row.Notes,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		s.log.Error().Err(err).Msg("failed to write attendance csv")
	}
}
