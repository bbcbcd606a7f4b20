package server

import (
	"net/http"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

func (s *Server) GenerateAuthTokenHandler(w http.ResponseWriter, r *http.Request) {
	var input domain.UserAuth
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}
	token, err := s.Facade.GenerateAuthToken(r.Context(), &input)
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	if err = s.writeJSON(w, envelop{"token": token}, http.StatusCreated, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) RevokeAuthTokensHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Facade.RevokeAuthTokens(r.Context()); err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	if err := s.writeJSON(w, envelop{"message": "signed out of every device"}, http.StatusOK, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}
