package server

import (
	"net/http"

	"github.com/M0hammadUsman/listingchat/internal/common"
	"github.com/M0hammadUsman/listingchat/internal/domain"
)

func (s *Server) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var userRegister domain.UserRegister
	if err := s.readJSON(w, r, &userRegister); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}
	usr, err := s.Facade.RegisterUser(r.Context(), &userRegister)
	if err != nil {
		s.domainErrorResponse(w, r, err)
		return
	}
	if err = s.writeJSON(w, envelop{"user": usr}, http.StatusCreated, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	u := common.ContextGetUser(r.Context())
	if err := s.writeJSON(w, envelop{"user": u}, http.StatusOK, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}
