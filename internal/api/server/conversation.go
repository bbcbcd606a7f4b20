package server

import (
	"net/http"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

func (s *Server) EnsureConversationHandler(w http.ResponseWriter, r *http.Request) {
	var input domain.ConversationEnsure
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}
	c, created, err := s.Facade.EnsureConversation(r.Context(), input.OtherID, input.ListingID)
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	if err = s.writeJSON(w, envelop{"conversation": c, "created": created}, status, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) GetConversationsHandler(w http.ResponseWriter, r *http.Request) {
	var filter domain.Filter
	v := r.URL.Query()
	ev := domain.NewErrValidation()
	filter.Page = s.readInt(v, "page", 1, ev)
	filter.PageSize = s.readInt(v, "size", 30, ev)
	if ev.HasErrors() {
		s.failedValidationResponse(w, r, ev.Errors)
		return
	}
	convos, metadata, err := s.Facade.GetConversations(r.Context(), &filter)
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	if err = s.writeJSON(w, envelop{"conversations": convos, "metadata": metadata}, http.StatusOK, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	c, err := s.Facade.GetConversation(r.Context(), r.PathValue("id"))
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	if err = s.writeJSON(w, envelop{"conversation": c}, http.StatusOK, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}
