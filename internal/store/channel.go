package store

import (
	"database/sql"
	"fmt"

	"github.com/volunteerhub/volunteerhub/internal/model"
)

type ChannelStore struct {
	db *sql.DB
}

func NewChannelStore(db *sql.DB) *ChannelStore {
	return &ChannelStore{db: db}
}

// Create creates a chat group with the owner as its first member.
func (s *ChannelStore) Create(name string, ownerID int64) (*model.Channel, error) {
	result, err := s.db.Exec(`INSERT INTO channels (name, owner_id) VALUES (?, ?)`, name, ownerID)
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	id, _ := result.LastInsertId()

	if err := s.AddMember(id, ownerID); err != nil {
		return nil, err
	}

	var ch model.Channel
	err = s.db.QueryRow(
		`SELECT id, name, owner_id, created_at FROM channels WHERE id = ?`, id,
	).Scan(&ch.ID, &ch.Name, &ch.OwnerID, &ch.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) GetByID(id int64) (*model.Channel, error) {
	var ch model.Channel
	err := s.db.QueryRow(
		`SELECT id, name, owner_id, created_at FROM channels WHERE id = ?`, id,
	).Scan(&ch.ID, &ch.Name, &ch.OwnerID, &ch.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) AddMember(channelID, userID int64) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO channel_members (channel_id, user_id) VALUES (?, ?)`,
		channelID, userID,
	)
	if err != nil {
		return fmt.Errorf("add channel member: %w", err)
	}
	return nil
}

func (s *ChannelStore) RemoveMember(channelID, userID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM channel_members WHERE channel_id = ? AND user_id = ?`,
		channelID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove channel member: %w", err)
	}
	return nil
}

// IsMember reports whether a user belongs to a chat group. Backs the
// chat.{groupId} subscription rule.
func (s *ChannelStore) IsMember(userID, channelID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM channel_members WHERE channel_id = ? AND user_id = ?`,
		channelID, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check channel membership: %w", err)
	}
	return count > 0, nil
}
