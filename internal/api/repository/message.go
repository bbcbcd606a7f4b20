package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

var _ domain.MessageRepository = (*MessageRepository)(nil)

const messageColumns = `id, conversation_id, sender_id, recipient_id, content, read, client_msg_id, created_at`

type MessageRepository struct {
	db *DB
}

func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db}
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM message 
        WHERE id = $1
        `
	return r.getOne(ctx, query, id)
}

func (r *MessageRepository) GetByClientMsgID(ctx context.Context, senderID, clientMsgID string) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM message 
        WHERE sender_id = $1 AND client_msg_id = $2
        `
	return r.getOne(ctx, query, senderID, clientMsgID)
}

func (r *MessageRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Message, error) {
	var m domain.Message
	if err := r.db.conn(ctx).QueryRowxContext(ctx, query, args...).StructScan(&m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepository) InsertMessage(ctx context.Context, m *domain.Message) error {
	query := `
		INSERT INTO message (conversation_id, sender_id, recipient_id, content, client_msg_id, created_at) 
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sender_id, client_msg_id) DO NOTHING
		RETURNING id, read
		`
	args := []any{m.ConversationID, m.SenderID, m.RecipientID, m.Content, m.ClientMsgID, m.CreatedAt}
	err := r.db.conn(ctx).QueryRowxContext(ctx, query, args...).Scan(&m.ID, &m.Read)
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return domain.ErrDuplicateMessage
		case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
			return domain.ErrDuplicateMessage
		}
		return err
	}
	return nil
}

func (r *MessageRepository) GetMessages(
	ctx context.Context,
	conversationID string,
	c *domain.Cursor,
) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM message
		WHERE conversation_id = $1
		ORDER BY created_at, id
		LIMIT $2
		`
	if c == nil {
		c = new(domain.Cursor)
	}
	args := []any{conversationID, c.Limit()}
	if c.AfterCreatedAt != nil {
		query = `
		SELECT ` + messageColumns + `
		FROM message
		WHERE conversation_id = $1 AND (created_at, id) > ($3, $4)
		ORDER BY created_at, id
		LIMIT $2
		`
		args = append(args, *c.AfterCreatedAt, c.AfterID)
	}
	msgs := make([]*domain.Message, 0)
	if err := r.db.conn(ctx).SelectContext(ctx, &msgs, query, args...); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *MessageRepository) GetUnreadCounts(ctx context.Context, usrID string) (*domain.UnreadState, error) {
	query := `
		SELECT conversation_id, COUNT(*) FILTER (WHERE NOT read) unread, MAX(created_at) newest
		FROM message
		WHERE recipient_id = $1
		GROUP BY conversation_id
		`
	rows, err := r.db.conn(ctx).QueryxContext(ctx, query, usrID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	state := domain.NewUnreadState()
	for rows.Next() {
		var convID string
		var n int
		var newest time.Time
		if err = rows.Scan(&convID, &n, &newest); err != nil {
			return nil, err
		}
		if n > 0 {
			state.Counts[convID] = n
		}
		state.Watermarks[convID] = newest
	}
	return state, rows.Err()
}

func (r *MessageRepository) MarkConversationRead(
	ctx context.Context,
	conversationID, usrID string,
) ([]*domain.Message, error) {
	query := `
		UPDATE message
		SET read = TRUE
		WHERE conversation_id = $1 AND recipient_id = $2 AND NOT read
		RETURNING ` + messageColumns
	msgs := make([]*domain.Message, 0)
	if err := r.db.conn(ctx).SelectContext(ctx, &msgs, query, conversationID, usrID); err != nil {
		return nil, err
	}
	domain.SortMessages(msgs)
	return msgs, nil
}

func (r *MessageRepository) MarkMessageRead(ctx context.Context, id, usrID string) (*domain.Message, bool, error) {
	query := `
		UPDATE message
		SET read = TRUE
		WHERE id = $1 AND recipient_id = $2 AND NOT read
		RETURNING ` + messageColumns
	m, err := r.getOne(ctx, query, id, usrID)
	if err == nil {
		return m, true, nil
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, false, err
	}
	// already read, or not addressed to usrID
	m, err = r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return m, false, nil
}
