package repo

import (
	"context"
	"fmt"
	"strings"

	"festify/internal/model"
)

func (r *repository) CreateParticipant(ctx context.Context, p *model.Participant) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO participants (first_name, last_name, email, participant_type, college, contact_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, p.FirstName, p.LastName, strings.ToLower(p.Email), p.ParticipantType, p.College, p.ContactNumber).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert participant: %w", err)
	}
	return id, nil
}

func (r *repository) GetParticipantByID(ctx context.Context, id int64) (*model.Participant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, participant_type, college, contact_number, created_at
		FROM participants
		WHERE id = $1
	`, id)

	var p model.Participant
	if err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.ParticipantType, &p.College, &p.ContactNumber, &p.CreatedAt); err != nil {
		return nil, ErrParticipantNotFound
	}
	return &p, nil
}

func (r *repository) GetParticipantByEmail(ctx context.Context, email string) (*model.Participant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, participant_type, college, contact_number, created_at
		FROM participants
		WHERE email = $1
	`, strings.ToLower(email))

	var p model.Participant
	if err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.ParticipantType, &p.College, &p.ContactNumber, &p.CreatedAt); err != nil {
		return nil, ErrParticipantNotFound
	}
	return &p, nil
}
