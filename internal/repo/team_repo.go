package repo

import (
	"context"
	"database/sql"
	"fmt"

	"festify/internal/model"
)

// activeTeamExistsTx reports whether the participant already leads or belongs
// (pending or accepted) to a non-disbanded team for the event.
func activeTeamExistsTx(ctx context.Context, tx *sql.Tx, eventID, participantID int64) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM team_members tm
			JOIN teams t ON t.id = tm.team_id
			WHERE t.event_id = $1
			  AND t.status != $2
			  AND tm.participant_id = $3
			  AND tm.status IN ($4, $5)
		)
	`, eventID, model.TeamDisbanded, participantID, model.MemberPending, model.MemberAccepted).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check team membership: %w", err)
	}
	return exists, nil
}

// acceptedMemberIDsTx reads the ACCEPTED roster inside the caller's
// transaction, after the team row lock is held.
func acceptedMemberIDsTx(ctx context.Context, tx *sql.Tx, teamID int64) (map[int64]bool, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT participant_id
		FROM team_members
		WHERE team_id = $1 AND status = $2
	`, teamID, model.MemberAccepted)
	if err != nil {
		return nil, fmt.Errorf("failed to read accepted members: %w", err)
	}
	defer rows.Close()

	accepted := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan accepted member: %w", err)
		}
		accepted[id] = true
	}
	return accepted, rows.Err()
}

// CreateTeamTx inserts the team with its member rows in one transaction. The
// at-most-one-active-team invariant is re-checked inside the transaction for
// the leader and every invitee.
func (r *repository) CreateTeamTx(ctx context.Context, t *model.Team, members []model.TeamMember) (int64, error) {
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

	for _, m := range members {
		inTeam, err := activeTeamExistsTx(ctx, tx, t.EventID, m.ParticipantID)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		if inTeam {
			_ = tx.Rollback()
			return 0, fmt.Errorf("%w: %s", ErrAlreadyInTeam, m.Email)
		}
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO teams (event_id, name, code, leader_id, min_members, max_members, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, t.EventID, t.Name, t.Code, t.LeaderID, t.MinMembers, t.MaxMembers, model.TeamDraft).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to insert team: %w", err)
	}

	for _, m := range members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO team_members (team_id, participant_id, email, status, invited_at, responded_at)
			VALUES ($1, $2, $3, $4, NOW(), $5)
		`, id, m.ParticipantID, m.Email, m.Status, m.RespondedAt); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to insert team member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return id, nil
}

func (r *repository) GetTeamByID(ctx context.Context, id int64) (*model.Team, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, event_id, name, code, leader_id, min_members, max_members, status, created_at, updated_at
		FROM teams
		WHERE id = $1
	`, id)

	var t model.Team
	err := row.Scan(&t.ID, &t.EventID, &t.Name, &t.Code, &t.LeaderID, &t.MinMembers, &t.MaxMembers, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, ErrTeamNotFound
	}

	members, err := r.getTeamMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Members = members

	return &t, nil
}

func (r *repository) getTeamMembers(ctx context.Context, teamID int64) ([]model.TeamMember, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, team_id, participant_id, email, status, invited_at, responded_at
		FROM team_members
		WHERE team_id = $1
		ORDER BY id ASC
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team members: %w", err)
	}
	defer rows.Close()

	var members []model.TeamMember
	for rows.Next() {
		var m model.TeamMember
		if err := rows.Scan(&m.ID, &m.TeamID, &m.ParticipantID, &m.Email, &m.Status, &m.InvitedAt, &m.RespondedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

func (r *repository) teamsByQuery(ctx context.Context, query string, args ...any) ([]model.Team, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get teams: %w", err)
	}
	defer rows.Close()

	var teams []model.Team
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.EventID, &t.Name, &t.Code, &t.LeaderID, &t.MinMembers, &t.MaxMembers, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range teams {
		members, err := r.getTeamMembers(ctx, teams[i].ID)
		if err != nil {
			return nil, err
		}
		teams[i].Members = members
	}

	return teams, nil
}

// GetTeamsByParticipant returns teams the participant leads plus teams they
// have accepted membership in, newest first.
func (r *repository) GetTeamsByParticipant(ctx context.Context, participantID int64) ([]model.Team, error) {
	return r.teamsByQuery(ctx, `
		SELECT DISTINCT t.id, t.event_id, t.name, t.code, t.leader_id, t.min_members, t.max_members, t.status, t.created_at, t.updated_at
		FROM teams t
		JOIN team_members tm ON tm.team_id = t.id
		WHERE t.leader_id = $1 OR (tm.participant_id = $1 AND tm.status = $2)
		ORDER BY t.created_at DESC
	`, participantID, model.MemberAccepted)
}

func (r *repository) GetPendingInvitations(ctx context.Context, participantID int64) ([]model.Team, error) {
	return r.teamsByQuery(ctx, `
		SELECT t.id, t.event_id, t.name, t.code, t.leader_id, t.min_members, t.max_members, t.status, t.created_at, t.updated_at
		FROM teams t
		JOIN team_members tm ON tm.team_id = t.id
		WHERE tm.participant_id = $1 AND tm.status = $2 AND t.status = $3
		ORDER BY t.created_at DESC
	`, participantID, model.MemberPending, model.TeamDraft)
}

func (r *repository) GetTeamRegistrations(ctx context.Context, teamID int64) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, participant_id, team_id, status, registration_date,
		       ticket_id, qr_payload, payment_status, payment_proof, order_total,
		       created_at, updated_at
		FROM registrations
		WHERE team_id = $1
		ORDER BY id ASC
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team registrations: %w", err)
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
			return nil, fmt.Errorf("failed to scan team registration: %w", err)
		}
		regs = append(regs, reg)
	}

	return regs, rows.Err()
}

// RespondTx resolves one invitation. The team row lock makes the accepted
// count stable while the slot check runs, so two simultaneous accepts cannot
// both take the last slot.
func (r *repository) RespondTx(ctx context.Context, teamID, participantID int64, accept bool) error {
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

	var teamStatus string
	var maxMembers int
	err = tx.QueryRowContext(ctx, `
		SELECT status, max_members
		FROM teams
		WHERE id = $1
		FOR UPDATE
	`, teamID).Scan(&teamStatus, &maxMembers)
	if err != nil {
		_ = tx.Rollback()
		return ErrTeamNotFound
	}
	if teamStatus != model.TeamDraft {
		_ = tx.Rollback()
		return ErrTeamNotDraft
	}

	var memberStatus string
	err = tx.QueryRowContext(ctx, `
		SELECT status
		FROM team_members
		WHERE team_id = $1 AND participant_id = $2
	`, teamID, participantID).Scan(&memberStatus)
	if err != nil {
		_ = tx.Rollback()
		return ErrNotInvited
	}
	if memberStatus != model.MemberPending {
		_ = tx.Rollback()
		return ErrAlreadyResponded
	}

	newStatus := model.MemberDeclined
	if accept {
		var accepted int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM team_members
			WHERE team_id = $1 AND status = $2
		`, teamID, model.MemberAccepted).Scan(&accepted)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to count accepted members: %w", err)
		}
		if accepted >= maxMembers {
			_ = tx.Rollback()
			return ErrTeamFull
		}
		newStatus = model.MemberAccepted
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE team_members
		SET status = $1, responded_at = NOW()
		WHERE team_id = $2 AND participant_id = $3
	`, newStatus, teamID, participantID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update member status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FinalizeTeamTx turns a DRAFT team into COMPLETE and admits every accepted
// member in the same transaction. The roster and the size bounds are re-read
// under the team row lock, so a member leaving between the caller's read and
// this commit invalidates the batch instead of being admitted from stale
// data. Any failure rolls the whole batch back: either N registrations exist
// afterwards or none do.
func (r *repository) FinalizeTeamTx(ctx context.Context, teamID int64, regs []model.Registration) error {
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

	var teamStatus string
	var minMembers, maxMembers int
	err = tx.QueryRowContext(ctx, `
		SELECT status, min_members, max_members
		FROM teams
		WHERE id = $1
		FOR UPDATE
	`, teamID).Scan(&teamStatus, &minMembers, &maxMembers)
	if err != nil {
		_ = tx.Rollback()
		return ErrTeamNotFound
	}
	if teamStatus != model.TeamDraft {
		_ = tx.Rollback()
		return ErrTeamNotDraft
	}

	var pending int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM team_members
		WHERE team_id = $1 AND status = $2
	`, teamID, model.MemberPending).Scan(&pending)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to count pending members: %w", err)
	}
	if pending > 0 {
		_ = tx.Rollback()
		return ErrPendingInvitations
	}

	accepted, err := acceptedMemberIDsTx(ctx, tx, teamID)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if len(accepted) < minMembers || len(accepted) > maxMembers {
		_ = tx.Rollback()
		return ErrRosterChanged
	}
	if len(regs) != len(accepted) {
		_ = tx.Rollback()
		return ErrRosterChanged
	}
	for i := range regs {
		if !accepted[regs[i].ParticipantID] {
			_ = tx.Rollback()
			return ErrRosterChanged
		}
	}

	for i := range regs {
		reg := &regs[i]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO registrations (
				event_id, participant_id, team_id, status, registration_date,
				ticket_id, qr_payload, payment_status, payment_proof, order_total
			)
			VALUES ($1, $2, $3, $4, NOW(), $5, $6, $7, $8, $9)
		`,
			reg.EventID, reg.ParticipantID, reg.TeamID, model.RegistrationRegistered,
			reg.TicketID, reg.QRPayload, reg.PaymentStatus, reg.PaymentProof, reg.OrderTotal,
		); err != nil {
			_ = tx.Rollback()
			return mapInsertError(err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE teams
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, model.TeamComplete, teamID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to complete team: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LeaveTeamTx removes a non-leader member before finalization.
func (r *repository) LeaveTeamTx(ctx context.Context, teamID, participantID int64) error {
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

	var teamStatus string
	err = tx.QueryRowContext(ctx, `
		SELECT status
		FROM teams
		WHERE id = $1
		FOR UPDATE
	`, teamID).Scan(&teamStatus)
	if err != nil {
		_ = tx.Rollback()
		return ErrTeamNotFound
	}
	if teamStatus != model.TeamDraft {
		_ = tx.Rollback()
		return ErrTeamNotDraft
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM team_members
		WHERE team_id = $1 AND participant_id = $2
	`, teamID, participantID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to remove member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to check member removal: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return ErrNotInvited
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DisbandTeamTx marks the team DISBANDED. Terminal; COMPLETE teams cannot be
// disbanded.
func (r *repository) DisbandTeamTx(ctx context.Context, teamID int64) error {
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

	var teamStatus string
	err = tx.QueryRowContext(ctx, `
		SELECT status
		FROM teams
		WHERE id = $1
		FOR UPDATE
	`, teamID).Scan(&teamStatus)
	if err != nil {
		_ = tx.Rollback()
		return ErrTeamNotFound
	}
	if teamStatus == model.TeamComplete {
		_ = tx.Rollback()
		return ErrTeamNotDraft
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE teams
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, model.TeamDisbanded, teamID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to disband team: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
