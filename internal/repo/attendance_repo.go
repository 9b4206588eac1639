package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"festify/internal/model"
)

// AdmitTx records attendance exactly once per (event, participant). The
// conflict-gated insert is the idempotence point: a second scan of the same
// ticket inserts nothing and returns ErrAlreadyScanned, leaving every counter
// untouched. When a live registration exists it flips to COMPLETED and its
// revenue contribution (merchandise line total, else the event fee) is added
// to the event in the same transaction.
func (r *repository) AdmitTx(ctx context.Context, rec *model.AttendanceRecord, fee decimal.Decimal) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var recordID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO attendance_records (event_id, participant_id, scanned_at, scanned_by, method, notes)
		VALUES ($1, $2, NOW(), $3, $4, $5)
		ON CONFLICT (event_id, participant_id) DO NOTHING
		RETURNING id, scanned_at
	`, rec.EventID, rec.ParticipantID, rec.ScannedBy, rec.Method, rec.Notes).Scan(&recordID, &rec.ScannedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = tx.Rollback()
			return ErrAlreadyScanned
		}
		_ = tx.Rollback()
		return fmt.Errorf("failed to insert attendance record: %w", err)
	}

	var regID int64
	contribution := decimal.Zero
	err = tx.QueryRowContext(ctx, `
		UPDATE registrations
		SET status = $1, payment_status = $2, updated_at = NOW()
		WHERE event_id = $3 AND participant_id = $4 AND status = $5
		RETURNING id
	`, model.RegistrationCompleted, model.PaymentCompleted,
		rec.EventID, rec.ParticipantID, model.RegistrationRegistered).Scan(&regID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// No live registration (manual admit of a walk-in, or the record
		// was already COMPLETED): attendance is still counted, revenue is
		// not.
	case err != nil:
		_ = tx.Rollback()
		return fmt.Errorf("failed to complete registration: %w", err)
	default:
		var lineCount int
		var lineTotal decimal.Decimal
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*), COALESCE(SUM(price * quantity), 0)
			FROM registration_items
			WHERE registration_id = $1
		`, regID).Scan(&lineCount, &lineTotal)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to total registration items: %w", err)
		}
		if lineCount > 0 {
			// Merchandise revenue was realized at purchase; nothing to add.
			contribution = decimal.Zero
		} else {
			contribution = fee
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE events
		SET attendance_count = attendance_count + 1,
		    total_revenue = total_revenue + $1,
		    updated_at = NOW()
		WHERE id = $2
	`, contribution, rec.EventID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update event counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	rec.ID = recordID
	return nil
}

func (r *repository) GetAttendanceRecords(ctx context.Context, eventID int64) ([]AttendanceRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ar.participant_id, p.first_name, p.last_name, p.email,
		       p.participant_type, p.contact_number, ar.scanned_at,
		       ar.scanned_by, ar.method, ar.notes
		FROM attendance_records ar
		JOIN participants p ON p.id = ar.participant_id
		WHERE ar.event_id = $1
		ORDER BY ar.scanned_at ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance records: %w", err)
	}
	defer rows.Close()

	var records []AttendanceRow
	for rows.Next() {
		var rec AttendanceRow
		if err := rows.Scan(
			&rec.ParticipantID, &rec.FirstName, &rec.LastName, &rec.Email,
			&rec.ParticipantType, &rec.ContactNumber,
			&rec.ScannedAt, &rec.ScannedByID, &rec.Method, &rec.Notes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
