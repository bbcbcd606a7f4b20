package repository

import (
	"context"
	"database/sql"
	"errors"
	"slices"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

type LocalConversationRepository struct {
	db *DB
}

func NewLocalConversationRepository(db *DB) LocalConversationRepository {
	return LocalConversationRepository{db}
}

// SaveConversations upserts, a nil last message does not overwrite a cached one
func (r LocalConversationRepository) SaveConversations(ctx context.Context, convos ...*domain.Conversation) error {
	query := `
		INSERT INTO conversation (id, participant_a_id, participant_b_id, listing_id, created_at, updated_at, last_message, unread_count)
		VALUES (:id, :participant_a_id, :participant_b_id, :listing_id, :created_at, :updated_at, :last_message, :unread_count)
		ON CONFLICT (id) DO UPDATE SET
			updated_at = excluded.updated_at,
			last_message = COALESCE(excluded.last_message, conversation.last_message),
			unread_count = excluded.unread_count
	`
	for _, convo := range convos {
		if _, err := r.db.NamedExecContext(ctx, query, convo); err != nil {
			return err
		}
	}
	return nil
}

func (r LocalConversationRepository) GetConversationByID(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `
		SELECT id, participant_a_id, participant_b_id, listing_id, created_at, updated_at, last_message, unread_count
		FROM conversation
		WHERE id = ?
	`
	var c domain.Conversation
	if err := r.db.QueryRowxContext(ctx, query, id).StructScan(&c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetConversations returns the cached conversations, most recently updated first
func (r LocalConversationRepository) GetConversations(ctx context.Context) ([]*domain.Conversation, error) {
	query := `
		SELECT id, participant_a_id, participant_b_id, listing_id, created_at, updated_at, last_message, unread_count
		FROM conversation
	`
	convos := make([]*domain.Conversation, 0)
	if err := r.db.SelectContext(ctx, &convos, query); err != nil {
		return nil, err
	}
	// DATETIME is stored as text, ordering is done on the parsed values
	slices.SortFunc(convos, func(a, b *domain.Conversation) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return convos, nil
}
