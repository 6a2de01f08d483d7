package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/volunteerhub/volunteerhub/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Create(ownerID int64, title, description, location string, startAt, endAt time.Time) (*model.Event, error) {
	result, err := s.db.Exec(
		`INSERT INTO events (owner_id, title, description, location, start_at, end_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ownerID, title, description, location, startAt.UTC(), endAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	id, _ := result.LastInsertId()
	return s.GetByID(id)
}

func (s *EventStore) GetByID(id int64) (*model.Event, error) {
	var e model.Event
	err := s.db.QueryRow(
		`SELECT id, owner_id, title, description, location, start_at, end_at, status, created_at
		 FROM events WHERE id = ?`, id,
	).Scan(&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.Location, &e.StartAt, &e.EndAt, &e.Status, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

func (s *EventStore) List() ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, title, description, location, start_at, end_at, status, created_at
		 FROM events ORDER BY start_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListExpired returns open events whose end time has passed.
func (s *EventStore) ListExpired(now time.Time) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, title, description, location, start_at, end_at, status, created_at
		 FROM events WHERE status = ? AND end_at < ?`,
		model.EventStatusOpen, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list expired events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *EventStore) Update(id int64, title, description, location string, startAt, endAt time.Time) (*model.Event, error) {
	_, err := s.db.Exec(
		`UPDATE events SET title = ?, description = ?, location = ?, start_at = ?, end_at = ? WHERE id = ?`,
		title, description, location, startAt.UTC(), endAt.UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) MarkExpired(id int64) error {
	_, err := s.db.Exec(`UPDATE events SET status = ? WHERE id = ?`, model.EventStatusExpired, id)
	if err != nil {
		return fmt.Errorf("mark event expired: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.Location, &e.StartAt, &e.EndAt, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
