package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/google/uuid"
)

var _ domain.ConversationRepository = (*ConversationRepository)(nil)

type conversation = domain.Conversation

type ConversationRepository struct {
	s *Store
}

func NewConversationRepository(s *Store) *ConversationRepository {
	return &ConversationRepository{s: s}
}

func (r *ConversationRepository) FindConversation(
	_ context.Context,
	a, b string,
	listingID *string,
) (*domain.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.data.convKeys[domain.ConversationKey(a, b, listingID)]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	c := r.s.data.convos[id]
	return &c, nil
}

func (r *ConversationRepository) InsertConversation(ctx context.Context, c *domain.Conversation) error {
	defer r.s.lock(ctx)()
	key := domain.ConversationKey(c.ParticipantAID, c.ParticipantBID, c.ListingID)
	if _, exists := r.s.data.convKeys[key]; exists {
		return domain.ErrDuplicateConversation
	}
	for _, id := range []string{c.ParticipantAID, c.ParticipantBID} {
		if _, ok := r.s.data.users[id]; !ok {
			return domain.ErrRecordNotFound
		}
	}
	c.ParticipantAID, c.ParticipantBID = domain.NormalizePair(c.ParticipantAID, c.ParticipantBID)
	c.ListingID = domain.NormalizeListingID(c.ListingID)
	c.ID = uuid.NewString()
	c.CreatedAt = r.s.now()
	c.UpdatedAt = c.CreatedAt
	r.s.data.convos[c.ID] = *c
	r.s.data.convKeys[key] = c.ID
	return nil
}

func (r *ConversationRepository) GetConversationByID(_ context.Context, id string) (*domain.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.data.convos[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &c, nil
}

func (r *ConversationRepository) GetConversations(
	_ context.Context,
	usrID string,
	f *domain.Filter,
) ([]*domain.Conversation, *domain.Metadata, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := make([]*domain.Conversation, 0)
	for _, c := range r.s.data.convos {
		if !c.HasParticipant(usrID) {
			continue
		}
		c.LastMessage = nil
		c.UnreadCount = 0
		ids := r.s.data.byConv[c.ID]
		if len(ids) > 0 {
			last := r.s.data.msgs[ids[len(ids)-1]].Content
			c.LastMessage = &last
		}
		for _, id := range ids {
			if m := r.s.data.msgs[id]; m.RecipientID == usrID && !m.Read {
				c.UnreadCount++
			}
		}
		all = append(all, &c)
	}
	slices.SortFunc(all, func(a, b *domain.Conversation) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	metadata := domain.CalculateMetadata(len(all), f.PageSize, f.Page)
	start := min(f.Offset(), len(all))
	end := min(start+f.Limit(), len(all))
	return all[start:end], &metadata, nil
}

func (r *ConversationRepository) TouchConversation(ctx context.Context, id string) (time.Time, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.data.convos[id]
	if !ok {
		return time.Time{}, domain.ErrRecordNotFound
	}
	c.UpdatedAt = r.s.now()
	r.s.data.convos[id] = c
	return c.UpdatedAt, nil
}
