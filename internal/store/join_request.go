package store

import (
	"database/sql"
	"fmt"

	"github.com/volunteerhub/volunteerhub/internal/model"
)

type JoinRequestStore struct {
	db *sql.DB
}

func NewJoinRequestStore(db *sql.DB) *JoinRequestStore {
	return &JoinRequestStore{db: db}
}

// Create records a pending join request. A user can have at most one request
// per event; repeat requests return the existing row.
func (s *JoinRequestStore) Create(eventID, userID int64) (*model.JoinRequest, error) {
	result, err := s.db.Exec(
		`INSERT INTO join_requests (event_id, user_id) VALUES (?, ?)
		 ON CONFLICT(event_id, user_id) DO NOTHING`,
		eventID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("create join request: %w", err)
	}
	id, _ := result.LastInsertId()
	if id == 0 {
		return s.GetByEventAndUser(eventID, userID)
	}
	return s.GetByID(id)
}

func (s *JoinRequestStore) GetByID(id int64) (*model.JoinRequest, error) {
	row := s.db.QueryRow(
		`SELECT id, event_id, user_id, status, created_at FROM join_requests WHERE id = ?`, id,
	)
	return scanJoinRequest(row)
}

func (s *JoinRequestStore) GetByEventAndUser(eventID, userID int64) (*model.JoinRequest, error) {
	row := s.db.QueryRow(
		`SELECT id, event_id, user_id, status, created_at FROM join_requests WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	)
	return scanJoinRequest(row)
}

func (s *JoinRequestStore) UpdateStatus(id int64, status string) error {
	_, err := s.db.Exec(`UPDATE join_requests SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update join request status: %w", err)
	}
	return nil
}

// ListParticipants returns the user IDs accepted into an event.
func (s *JoinRequestStore) ListParticipants(eventID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT user_id FROM join_requests WHERE event_id = ? AND status = ?`,
		eventID, model.JoinStatusAccepted,
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan participant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanJoinRequest(row *sql.Row) (*model.JoinRequest, error) {
	var jr model.JoinRequest
	err := row.Scan(&jr.ID, &jr.EventID, &jr.UserID, &jr.Status, &jr.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get join request: %w", err)
	}
	return &jr, nil
}
