package repository

import (
	"context"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

type LocalMessageRepository struct {
	db *DB
}

func NewLocalMessageRepository(db *DB) LocalMessageRepository {
	return LocalMessageRepository{db}
}

// SaveMsgs upserts by id, read only ever goes from false to true
func (r LocalMessageRepository) SaveMsgs(ctx context.Context, msgs ...*domain.Message) error {
	query := `
		INSERT INTO message (id, conversation_id, sender_id, recipient_id, content, read, client_msg_id, created_at)
		VALUES (:id, :conversation_id, :sender_id, :recipient_id, :content, :read, :client_msg_id, :created_at)
		ON CONFLICT (id) DO UPDATE SET read = message.read OR excluded.read
	`
	for _, m := range msgs {
		if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
			return err
		}
	}
	return nil
}

func (r LocalMessageRepository) GetMsgs(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, recipient_id, content, read, client_msg_id, created_at
		FROM message
		WHERE conversation_id = ?
	`
	msgs := make([]*domain.Message, 0)
	if err := r.db.SelectContext(ctx, &msgs, query, conversationID); err != nil {
		return nil, err
	}
	domain.SortMessages(msgs)
	return msgs, nil
}
