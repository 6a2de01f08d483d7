package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/volunteerhub/volunteerhub/internal/model"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Create persists a new notification for the given receiver. The receiver must
// exist; otherwise ErrUserNotFound is returned and nothing is written.
func (s *NotificationStore) Create(receiverID int64, senderID *int64, title, message, notifType string, data map[string]any) (*model.Notification, error) {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE id = ?`, receiverID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check receiver: %w", err)
	}
	if exists == 0 {
		return nil, ErrUserNotFound
	}

	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal notification data: %w", err)
	}

	var sender sql.NullInt64
	if senderID != nil {
		sender = sql.NullInt64{Int64: *senderID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO notifications (sender_id, receiver_id, title, message, type, data)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sender, receiverID, title, message, notifType, string(dataJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	id, _ := result.LastInsertId()
	return s.GetByID(id)
}

func (s *NotificationStore) GetByID(id int64) (*model.Notification, error) {
	row := s.db.QueryRow(
		`SELECT id, sender_id, receiver_id, title, message, type, data, is_read, created_at
		 FROM notifications WHERE id = ?`, id,
	)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// ListByReceiver returns a user's notifications, newest first.
func (s *NotificationStore) ListByReceiver(receiverID int64, onlyUnread bool) ([]model.Notification, error) {
	query := `SELECT id, sender_id, receiver_id, title, message, type, data, is_read, created_at
		 FROM notifications WHERE receiver_id = ?`
	if onlyUnread {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(query, receiverID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

// MarkRead sets is_read on a single notification. Marking an already-read
// notification is a no-op.
func (s *NotificationStore) MarkRead(id int64) error {
	_, err := s.db.Exec(`UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of a user as read and returns
// the affected IDs.
func (s *NotificationStore) MarkAllRead(receiverID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`UPDATE notifications SET is_read = 1
		 WHERE receiver_id = ? AND is_read = 0
		 RETURNING id`, receiverID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark all notifications read: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan notification id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *NotificationStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// UnreadCount is derived from the stored rows, never cached.
func (s *NotificationStore) UnreadCount(receiverID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE receiver_id = ? AND is_read = 0`, receiverID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*model.Notification, error) {
	var n model.Notification
	var sender sql.NullInt64
	var isReadInt int
	var dataJSON string
	err := row.Scan(&n.ID, &sender, &n.ReceiverID, &n.Title, &n.Message, &n.Type, &dataJSON, &isReadInt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	if sender.Valid {
		n.SenderID = &sender.Int64
	}
	n.IsRead = isReadInt != 0
	if err := json.Unmarshal([]byte(dataJSON), &n.Data); err != nil {
		return nil, fmt.Errorf("unmarshal notification data: %w", err)
	}
	return &n, nil
}
