package server

import (
	"net/http"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

func (s *Server) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	ev := domain.NewErrValidation()
	size := s.readInt(v, "size", domain.DefaultCursorSize, ev)
	cursor, err := domain.DecodeCursor(s.readString(v, "after", ""), size)
	if err != nil {
		ev.AddError("after", "must be a cursor returned by a previous page")
	}
	if ev.HasErrors() {
		s.failedValidationResponse(w, r, ev.Errors)
		return
	}
	msgs, metadata, err := s.Facade.FetchMessages(r.Context(), r.PathValue("id"), cursor)
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	if err = s.writeJSON(w, envelop{"messages": msgs, "metadata": metadata}, http.StatusOK, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var input domain.MessageSend
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}
	msg, created, err := s.Facade.SendMessage(r.Context(), r.PathValue("id"), &input)
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	if err = s.writeJSON(w, envelop{"message": msg}, status, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) MarkConversationReadHandler(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.Facade.MarkRead(r.Context(), r.PathValue("id"))
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	if err = s.writeJSON(w, envelop{"updated": msgs}, http.StatusOK, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) MarkMessageReadHandler(w http.ResponseWriter, r *http.Request) {
	msg, err := s.Facade.MarkMessageRead(r.Context(), r.PathValue("id"))
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	if err = s.writeJSON(w, envelop{"message": msg}, http.StatusOK, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) GetUnreadCountsHandler(w http.ResponseWriter, r *http.Request) {
	state, err := s.Facade.GetUnreadCounts(r.Context())
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	res := envelop{"counts": state.Counts, "total": state.Counts.Total(), "watermarks": state.Watermarks}
	if err = s.writeJSON(w, res, http.StatusOK, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}
