package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"festify/internal/model"
)

// StockReservation is one merchandise line to reserve atomically with the
// registration insert.
type StockReservation struct {
	MerchandiseID int64
	Quantity      int
}

// mapInsertError translates unique-index violations into domain errors. The
// indexes are the correctness backstop behind the explicit in-transaction
// checks.
func mapInsertError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "registrations_live_pair_idx") {
		return ErrAlreadyRegistered
	}
	if strings.Contains(msg, "registrations_ticket_id_key") {
		return ErrDuplicateTicket
	}
	return err
}

// RegisterTx admits one participant into one event as a single transaction:
// the event row lock serializes concurrent registrations for the same event,
// the guarded UPDATEs enforce seat and stock limits, and the partial unique
// index keeps the (participant, event) pair unique.
func (r *repository) RegisterTx(ctx context.Context, reg *model.Registration, stock []StockReservation, items []model.RegistrationItem, revenue decimal.Decimal) (int64, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var eventType string
	var seatLimit *int
	err = tx.QueryRowContext(ctx, `
		SELECT event_type, seat_limit
		FROM events
		WHERE id = $1
		FOR UPDATE
	`, reg.EventID).Scan(&eventType, &seatLimit)
	if err != nil {
		_ = tx.Rollback()
		return 0, ErrEventNotFound
	}

	var existing int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM registrations
		WHERE event_id = $1 AND participant_id = $2 AND status IN ($3, $4)
	`, reg.EventID, reg.ParticipantID, model.RegistrationRegistered, model.RegistrationCompleted).Scan(&existing)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to check duplicate registration: %w", err)
	}
	if existing > 0 {
		_ = tx.Rollback()
		return 0, ErrAlreadyRegistered
	}

	// Seat reservation: the WHERE clause is the capacity check, so the
	// compare and the increment are one statement.
	if eventType != model.EventTypeMerchandise && seatLimit != nil {
		res, err := tx.ExecContext(ctx, `
			UPDATE events
			SET registration_count = registration_count + 1
			WHERE id = $1 AND registration_count < seat_limit
		`, reg.EventID)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to reserve seat: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to check seat reservation: %w", err)
		}
		if affected == 0 {
			_ = tx.Rollback()
			return 0, ErrCapacityExceeded
		}
	} else {
		if _, err := tx.ExecContext(ctx, `
			UPDATE events
			SET registration_count = registration_count + 1
			WHERE id = $1
		`, reg.EventID); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to bump registration count: %w", err)
		}
	}

	// Stock reservations follow the same guarded-update pattern; the CHECK
	// constraint on stock_quantity means no sequence of these can oversell.
	for _, s := range stock {
		res, err := tx.ExecContext(ctx, `
			UPDATE event_merchandise
			SET stock_quantity = stock_quantity - $1
			WHERE id = $2 AND event_id = $3 AND stock_quantity >= $1
		`, s.Quantity, s.MerchandiseID, reg.EventID)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to reserve stock: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to check stock reservation: %w", err)
		}
		if affected == 0 {
			_ = tx.Rollback()
			return 0, ErrInsufficientStock
		}
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO registrations (
			event_id, participant_id, team_id, status, registration_date,
			ticket_id, qr_payload, payment_status, payment_proof, order_total
		)
		VALUES ($1, $2, $3, $4, NOW(), $5, $6, $7, $8, $9)
		RETURNING id
	`,
		reg.EventID, reg.ParticipantID, reg.TeamID, model.RegistrationRegistered,
		reg.TicketID, reg.QRPayload, reg.PaymentStatus, reg.PaymentProof, reg.OrderTotal,
	).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		return 0, mapInsertError(err)
	}

	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO registration_items (registration_id, item_name, variant, quantity, price)
			VALUES ($1, $2, $3, $4, $5)
		`, id, item.ItemName, item.Variant, item.Quantity, item.Price); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to insert registration item: %w", err)
		}
	}

	// Merchandise revenue is realized at purchase time. Fee revenue for
	// normal events is realized by the attendance recorder, never here.
	if revenue.IsPositive() {
		if _, err := tx.ExecContext(ctx, `
			UPDATE events
			SET total_revenue = total_revenue + $1, updated_at = NOW()
			WHERE id = $2
		`, revenue, reg.EventID); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to add revenue: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return id, nil
}

func (r *repository) GetLiveRegistration(ctx context.Context, eventID, participantID int64) (*model.Registration, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, event_id, participant_id, team_id, status, registration_date,
		       ticket_id, qr_payload, payment_status, payment_proof, order_total,
		       created_at, updated_at
		FROM registrations
		WHERE event_id = $1 AND participant_id = $2 AND status IN ($3, $4)
	`, eventID, participantID, model.RegistrationRegistered, model.RegistrationCompleted)

	var reg model.Registration
	err := row.Scan(
		&reg.ID, &reg.EventID, &reg.ParticipantID, &reg.TeamID, &reg.Status, &reg.RegistrationDate,
		&reg.TicketID, &reg.QRPayload, &reg.PaymentStatus, &reg.PaymentProof, &reg.OrderTotal,
		&reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, ErrRegistrationNotFound
	}
	return &reg, nil
}

func (r *repository) GetParticipantRegistrations(ctx context.Context, participantID int64) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, participant_id, team_id, status, registration_date,
		       ticket_id, qr_payload, payment_status, payment_proof, order_total,
		       created_at, updated_at
		FROM registrations
		WHERE participant_id = $1
		ORDER BY registration_date DESC
	`, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(
			&reg.ID, &reg.EventID, &reg.ParticipantID, &reg.TeamID, &reg.Status, &reg.RegistrationDate,
			&reg.TicketID, &reg.QRPayload, &reg.PaymentStatus, &reg.PaymentProof, &reg.OrderTotal,
			&reg.CreatedAt, &reg.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, reg)
	}

	return regs, rows.Err()
}
