package store

import (
	"context"
	"fmt"
)

type Holiday struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
}

// ListHolidays returns every public holiday, earliest first.
func (s *Store) ListHolidays(ctx context.Context) ([]Holiday, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, date::text FROM hr_holidays ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	defer rows.Close()

	holidays := []Holiday{}
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Name, &h.Date); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func (s *Store) CreateHoliday(ctx context.Context, h Holiday) (Holiday, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO hr_holidays (name, date) VALUES ($1, $2::date)
		RETURNING id, name, date::text`,
		h.Name, h.Date,
	).Scan(&h.ID, &h.Name, &h.Date)
	if err != nil {
		return Holiday{}, fmt.Errorf("create holiday: %w", err)
	}
	return h, nil
}
