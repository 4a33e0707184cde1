package store

import (
	"context"
	"fmt"
)

// LeaveStatusPending is forced on every newly created leave request.
const LeaveStatusPending = "pending"

// Leave is one HR leave request. Dates travel as YYYY-MM-DD text.
type Leave struct {
	ID               int64  `json:"id"`
	UserID           string `json:"user_id"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	Type             string `json:"type"`
	Status           string `json:"status"`
	SubstituteUserID string `json:"substitute_user_id"`
}

const leaveColumns = `id, user_id, COALESCE(start_date::text, ''), COALESCE(end_date::text, ''), type, status, substitute_user_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanLeave(row scanner) (Leave, error) {
	var l Leave
	err := row.Scan(&l.ID, &l.UserID, &l.StartDate, &l.EndDate, &l.Type, &l.Status, &l.SubstituteUserID)
	return l, err
}

func (s *Store) ListLeaves(ctx context.Context) ([]Leave, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+leaveColumns+` FROM hr_leaves ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list leaves: %w", err)
	}
	defer rows.Close()

	leaves := []Leave{}
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leave: %w", err)
		}
		leaves = append(leaves, l)
	}
	return leaves, rows.Err()
}

// CreateLeave inserts a request; the status is always pending.
func (s *Store) CreateLeave(ctx context.Context, l Leave) (Leave, error) {
	created, err := scanLeave(s.pool.QueryRow(ctx, `
		INSERT INTO hr_leaves (user_id, start_date, end_date, type, status, substitute_user_id)
		VALUES ($1, NULLIF($2, '')::date, NULLIF($3, '')::date, $4, $5, $6)
		RETURNING `+leaveColumns,
		l.UserID, l.StartDate, l.EndDate, l.Type, LeaveStatusPending, l.SubstituteUserID,
	))
	if err != nil {
		return Leave{}, fmt.Errorf("create leave: %w", err)
	}
	return created, nil
}

// UpdateLeave rewrites dates, type, status and substitute. The requesting
// user is never changed.
func (s *Store) UpdateLeave(ctx context.Context, l Leave) (Leave, error) {
	updated, err := scanLeave(s.pool.QueryRow(ctx, `
		UPDATE hr_leaves SET
			start_date = NULLIF($2, '')::date,
			end_date = NULLIF($3, '')::date,
			type = $4,
			status = $5,
			substitute_user_id = $6
		WHERE id = $1
		RETURNING `+leaveColumns,
		l.ID, l.StartDate, l.EndDate, l.Type, l.Status, l.SubstituteUserID,
	))
	if err != nil {
		return Leave{}, fmt.Errorf("update leave %d: %w", l.ID, notFound(err))
	}
	return updated, nil
}

func (s *Store) DeleteLeave(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM hr_leaves WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete leave %d: %w", id, err)
	}
	if err := affected(tag.RowsAffected()); err != nil {
		return fmt.Errorf("delete leave %d: %w", id, err)
	}
	return nil
}
