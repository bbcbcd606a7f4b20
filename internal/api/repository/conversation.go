package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

var _ domain.ConversationRepository = (*ConversationRepository)(nil)

const conversationColumns = `c.id, c.participant_a_id, c.participant_b_id, c.listing_id, c.created_at, c.updated_at`

type ConversationRepository struct {
	db *DB
}

func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) FindConversation(
	ctx context.Context,
	a, b string,
	listingID *string,
) (*domain.Conversation, error) {
	a, b = domain.NormalizePair(a, b)
	query := `
		SELECT ` + conversationColumns + `
		FROM conversation c
		WHERE LEAST(c.participant_a_id, c.participant_b_id) = $1
		  AND GREATEST(c.participant_a_id, c.participant_b_id) = $2
		  AND COALESCE(c.listing_id, '') = COALESCE($3, '')
		`
	var c domain.Conversation
	err := r.db.conn(ctx).QueryRowxContext(ctx, query, a, b, domain.NormalizeListingID(listingID)).StructScan(&c)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepository) InsertConversation(ctx context.Context, c *domain.Conversation) error {
	c.ParticipantAID, c.ParticipantBID = domain.NormalizePair(c.ParticipantAID, c.ParticipantBID)
	c.ListingID = domain.NormalizeListingID(c.ListingID)
	// the loser of a concurrent insert gets no row back
	query := `
		INSERT INTO conversation (participant_a_id, participant_b_id, listing_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
		RETURNING id, created_at, updated_at
		`
	err := r.db.conn(ctx).
		QueryRowxContext(ctx, query, c.ParticipantAID, c.ParticipantBID, c.ListingID).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return domain.ErrDuplicateConversation
		case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
			return domain.ErrDuplicateConversation
		}
		return err
	}
	return nil
}

func (r *ConversationRepository) GetConversationByID(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversation c
		WHERE c.id = $1
		`
	var c domain.Conversation
	if err := r.db.conn(ctx).QueryRowxContext(ctx, query, id).StructScan(&c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepository) GetConversations(
	ctx context.Context,
	usrID string,
	f *domain.Filter,
) ([]*domain.Conversation, *domain.Metadata, error) {
	query := `
		SELECT COUNT(*) OVER() total, ` + conversationColumns + `,
		       lm.content last_message,
		       (SELECT COUNT(*)
		        FROM message m
		        WHERE m.conversation_id = c.id AND m.recipient_id = $1 AND NOT m.read) unread_count
		FROM conversation c
		    LEFT JOIN LATERAL (
		        SELECT content
		        FROM message
		        WHERE conversation_id = c.id
		        ORDER BY created_at DESC, id DESC
		        LIMIT 1
		        ) lm ON TRUE
		WHERE c.participant_a_id = $1 OR c.participant_b_id = $1
		ORDER BY c.updated_at DESC, c.id
		LIMIT $2
		OFFSET $3
		`
	rows, err := r.db.conn(ctx).QueryxContext(ctx, query, usrID, f.Limit(), f.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var total int
	convos := make([]*domain.Conversation, 0)
	for rows.Next() {
		var row struct {
			Total int `db:"total"`
			domain.Conversation
		}
		if err = rows.StructScan(&row); err != nil {
			return nil, nil, err
		}
		total = row.Total
		convos = append(convos, &row.Conversation)
	}
	if err = rows.Err(); err != nil {
		return nil, nil, err
	}
	metadata := domain.CalculateMetadata(total, f.PageSize, f.Page)
	return convos, &metadata, nil
}

// TouchConversation takes the row lock, so concurrent sends into one conversation are serialized for
// the rest of the surrounding transaction.
func (r *ConversationRepository) TouchConversation(ctx context.Context, id string) (time.Time, error) {
	query := `
		UPDATE conversation
		SET updated_at = GREATEST(clock_timestamp(), updated_at + INTERVAL '1 microsecond')
		WHERE id = $1
		RETURNING updated_at
		`
	var updatedAt time.Time
	if err := r.db.conn(ctx).QueryRowxContext(ctx, query, id).Scan(&updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, domain.ErrRecordNotFound
		}
		return time.Time{}, err
	}
	return updatedAt, nil
}
