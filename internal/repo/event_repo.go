package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"festify/internal/model"
)

const eventColumns = `
	id, name, description, event_type, organizer_id, eligibility,
	registration_deadline, start_time, end_time, seat_limit, registration_fee,
	status, is_team_event, team_min_size, team_max_size, custom_form,
	registration_count, attendance_count, total_revenue, created_at, updated_at
`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Name, &e.Description, &e.EventType, &e.OrganizerID, &e.Eligibility,
		&e.RegistrationDeadline, &e.StartTime, &e.EndTime, &e.SeatLimit, &e.RegistrationFee,
		&e.Status, &e.IsTeamEvent, &e.TeamMinSize, &e.TeamMaxSize, &e.CustomForm,
		&e.RegistrationCount, &e.AttendanceCount, &e.TotalRevenue, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) CreateEventTx(ctx context.Context, e *model.Event, items []model.MerchandiseItem) (int64, error) {
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

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO events (
			name, description, event_type, organizer_id, eligibility,
			registration_deadline, start_time, end_time, seat_limit,
			registration_fee, status, is_team_event, team_min_size,
			team_max_size, custom_form
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`,
		e.Name, e.Description, e.EventType, e.OrganizerID, e.Eligibility,
		e.RegistrationDeadline, e.StartTime, e.EndTime, e.SeatLimit,
		e.RegistrationFee, e.Status, e.IsTeamEvent, e.TeamMinSize,
		e.TeamMaxSize, e.CustomForm,
	).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	for _, item := range items {
		variants, err := json.Marshal(item.Variants)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to encode variants: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO event_merchandise (event_id, item_name, variants, stock_quantity, price)
			VALUES ($1, $2, $3, $4, $5)
		`, id, item.ItemName, variants, item.StockQuantity, item.Price); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to insert merchandise item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return id, nil
}

func (r *repository) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if err != nil {
		return nil, ErrEventNotFound
	}
	return e, nil
}

func (r *repository) GetPublishedEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE status = $1
		ORDER BY start_time ASC
	`, model.EventPublished)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}

	return events, rows.Err()
}

func (r *repository) GetMerchandise(ctx context.Context, eventID int64) ([]model.MerchandiseItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, item_name, variants, stock_quantity, price
		FROM event_merchandise
		WHERE event_id = $1
		ORDER BY id ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get merchandise: %w", err)
	}
	defer rows.Close()

	var items []model.MerchandiseItem
	for rows.Next() {
		var item model.MerchandiseItem
		var variants []byte
		if err := rows.Scan(&item.ID, &item.EventID, &item.ItemName, &variants, &item.StockQuantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan merchandise item: %w", err)
		}
		if len(variants) > 0 {
			if err := json.Unmarshal(variants, &item.Variants); err != nil {
				return nil, fmt.Errorf("failed to decode variants: %w", err)
			}
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *repository) UpdateEvent(ctx context.Context, e *model.Event) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE events
		SET name = $1, description = $2, eligibility = $3,
		    registration_deadline = $4, start_time = $5, end_time = $6,
		    seat_limit = $7, registration_fee = $8, custom_form = $9,
		    status = $10, updated_at = NOW()
		WHERE id = $11
	`,
		e.Name, e.Description, e.Eligibility,
		e.RegistrationDeadline, e.StartTime, e.EndTime,
		e.SeatLimit, e.RegistrationFee, e.CustomForm,
		e.Status, e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// CountLiveRegistrations counts registrations in REGISTERED or COMPLETED
// state. This is always recomputed, never read from the cached counter.
func (r *repository) CountLiveRegistrations(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM registrations
		WHERE event_id = $1 AND status IN ($2, $3)
	`, eventID, model.RegistrationRegistered, model.RegistrationCompleted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

// CountAcceptedTeamMembers sums ACCEPTED members across COMPLETE teams of the
// event, the dynamic registration count for team events.
func (r *repository) CountAcceptedTeamMembers(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM team_members tm
		JOIN teams t ON t.id = tm.team_id
		WHERE t.event_id = $1 AND t.status = $2 AND tm.status = $3
	`, eventID, model.TeamComplete, model.MemberAccepted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count team members: %w", err)
	}
	return count, nil
}
