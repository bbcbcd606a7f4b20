package service

import (
	"context"
	"errors"

	"github.com/M0hammadUsman/listingchat/internal/common"
	"github.com/M0hammadUsman/listingchat/internal/domain"
	"github.com/google/uuid"
)

const maxListingIDBytes = 128

var _ domain.ConversationService = (*ConversationService)(nil)

type ConversationService struct {
	convoRepo domain.ConversationRepository
	userRepo  domain.UserRepository
}

func NewConversationService(convoRepo domain.ConversationRepository, userRepo domain.UserRepository) *ConversationService {
	return &ConversationService{convoRepo: convoRepo, userRepo: userRepo}
}

// EnsureConversation returns the conversation between the caller & otherID for the listing, creating it
// when missing. created is false whenever an existing row is returned, including the case where a
// concurrent call won the insert.
func (s *ConversationService) EnsureConversation(
	ctx context.Context,
	otherID string,
	listingID *string,
) (*domain.Conversation, bool, error) {
	usr, err := common.ContextRequireUser(ctx)
	if err != nil {
		return nil, false, err
	}
	otherID, err = s.resolveTarget(ctx, usr.ID, otherID)
	if err != nil {
		return nil, false, err
	}
	listingID = domain.NormalizeListingID(listingID)
	if listingID != nil && len(*listingID) > maxListingIDBytes {
		ev := domain.NewErrValidation()
		ev.AddError("listingID", "must be a max of 128 bytes long")
		return nil, false, ev
	}
	c, err := s.convoRepo.FindConversation(ctx, usr.ID, otherID, listingID)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, false, err
	}
	c = &domain.Conversation{ParticipantAID: usr.ID, ParticipantBID: otherID, ListingID: listingID}
	err = s.convoRepo.InsertConversation(ctx, c)
	switch {
	case err == nil:
		return c, true, nil
	case errors.Is(err, domain.ErrDuplicateConversation):
		// lost the race, the winner's row is committed by now
		c, err = s.convoRepo.FindConversation(ctx, usr.ID, otherID, listingID)
		if err != nil {
			return nil, false, err
		}
		return c, false, nil
	}
	return nil, false, err
}

// resolveTarget returns the canonical id of a registered user other than selfID
func (s *ConversationService) resolveTarget(ctx context.Context, selfID, otherID string) (string, error) {
	parsed, err := uuid.Parse(otherID)
	if err != nil {
		return "", domain.ErrInvalidTarget
	}
	otherID = parsed.String()
	if otherID == selfID {
		return "", domain.ErrInvalidTarget
	}
	if _, err = s.userRepo.GetByUniqueField(ctx, "id", otherID); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return "", domain.ErrInvalidTarget
		}
		return "", err
	}
	return otherID, nil
}

func (s *ConversationService) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	usr, err := common.ContextRequireUser(ctx)
	if err != nil {
		return nil, err
	}
	return participantConversation(ctx, s.convoRepo, id, usr.ID)
}

func (s *ConversationService) GetConversations(
	ctx context.Context,
	f *domain.Filter,
) ([]*domain.Conversation, *domain.Metadata, error) {
	usr, err := common.ContextRequireUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	ev := domain.NewErrValidation()
	if domain.ValidateFilters(ev, f); ev.HasErrors() {
		return nil, nil, ev
	}
	return s.convoRepo.GetConversations(ctx, usr.ID, f)
}

// participantConversation loads a conversation usrID takes part in
func participantConversation(
	ctx context.Context,
	repo domain.ConversationRepository,
	id, usrID string,
) (*domain.Conversation, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrConversationNotFound
	}
	c, err := repo.GetConversationByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	if !c.HasParticipant(usrID) {
		return nil, domain.ErrNotParticipant
	}
	return c, nil
}
