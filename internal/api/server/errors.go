package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/M0hammadUsman/listingchat/internal/domain"
)

func (s *Server) logError(r *http.Request, err error) {
	slog.Error(err.Error(), "method", r.Method, "uri", r.URL.RequestURI())
}

func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, status int, code string, message any) {
	env := envelop{"error": message, "code": code}
	if err := s.writeJSON(w, env, status, nil); err != nil {
		s.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// domainErrorResponse maps the errors services & facades return onto their status & wire code
func (s *Server) domainErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var ev *domain.ErrValidation
	switch {
	case errors.As(err, &ev):
		s.failedValidationResponse(w, r, ev.Errors)
	case errors.Is(err, domain.ErrNotAuthenticated):
		s.authenticationRequiredResponse(w, r)
	case errors.Is(err, domain.ErrInvalidTarget):
		s.errorResponse(w, r, http.StatusUnprocessableEntity, domain.CodeInvalidTarget, err.Error())
	case errors.Is(err, domain.ErrEmptyMessage):
		s.errorResponse(w, r, http.StatusUnprocessableEntity, domain.CodeEmptyMessage, err.Error())
	case errors.Is(err, domain.ErrNotParticipant):
		s.errorResponse(w, r, http.StatusForbidden, domain.CodeNotParticipant, err.Error())
	case errors.Is(err, domain.ErrConversationNotFound):
		s.errorResponse(w, r, http.StatusNotFound, domain.CodeConversationNotFound, err.Error())
	case errors.Is(err, domain.ErrRecordNotFound):
		s.notFoundResponse(w, r)
	case errors.Is(err, domain.ErrEditConflict):
		s.editConflictResponse(w, r)
	default:
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	s.logError(r, err)
	message := "the server encountered a problem and could not process your request"
	s.errorResponse(w, r, http.StatusInternalServerError, domain.CodeServerError, message)
}

func (s *Server) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	s.errorResponse(w, r, http.StatusNotFound, domain.CodeNotFound, message)
}

func (s *Server) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	s.errorResponse(w, r, http.StatusBadRequest, domain.CodeValidation, err.Error())
}

func (s *Server) failedValidationResponse(w http.ResponseWriter, r *http.Request, errs map[string]string) {
	if err := s.writeJSON(w, envelop{"errors": errs, "code": domain.CodeValidation}, http.StatusUnprocessableEntity, nil); err != nil {
		s.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (s *Server) editConflictResponse(w http.ResponseWriter, r *http.Request) {
	message := "unable to update the record due to an edit conflict, please try again"
	s.errorResponse(w, r, http.StatusConflict, "edit_conflict", message)
}

func (s *Server) invalidCredentialResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	message := "invalid or missing authentication token"
	s.errorResponse(w, r, http.StatusUnauthorized, domain.CodeNotAuthenticated, message)
}

func (s *Server) authenticationRequiredResponse(w http.ResponseWriter, r *http.Request) {
	message := "you must be authenticated to access this resource"
	s.errorResponse(w, r, http.StatusUnauthorized, domain.CodeNotAuthenticated, message)
}
