package server

import (
	"net/http"

	"github.com/justinas/alice"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	// Middlewares
	base := alice.New(s.recoverPanic, s.logRequest, s.authenticate)
	authenticated := alice.New(s.requireAuthenticatedUser)
	// User Routes
	mux.HandleFunc("POST /v1/users", s.RegisterUserHandler)
	mux.Handle("GET /v1/users/current", authenticated.ThenFunc(s.GetCurrentUserHandler))
	// Token Routes
	mux.HandleFunc("POST /v1/tokens/auth", s.GenerateAuthTokenHandler)
	mux.Handle("DELETE /v1/tokens/auth", authenticated.ThenFunc(s.RevokeAuthTokensHandler))
	// Conversation Routes
	mux.Handle("POST /v1/conversations", authenticated.ThenFunc(s.EnsureConversationHandler))
	mux.Handle("GET /v1/conversations", authenticated.ThenFunc(s.GetConversationsHandler))
	mux.Handle("GET /v1/conversations/{id}", authenticated.ThenFunc(s.GetConversationHandler))
	// Messages Routes
	mux.Handle("GET /v1/conversations/{id}/messages", authenticated.ThenFunc(s.GetMessagesHandler))
	mux.Handle("POST /v1/conversations/{id}/messages", authenticated.ThenFunc(s.SendMessageHandler))
	mux.Handle("POST /v1/conversations/{id}/read", authenticated.ThenFunc(s.MarkConversationReadHandler))
	mux.Handle("POST /v1/messages/{id}/read", authenticated.ThenFunc(s.MarkMessageReadHandler))
	mux.Handle("GET /v1/unread", authenticated.ThenFunc(s.GetUnreadCountsHandler))
	// Websocket Routes
	mux.Handle("GET /v1/feed", authenticated.ThenFunc(s.WebsocketFeedHandler))
	// Health
	mux.Handle("GET /v1/healthz", s.Health)

	return base.Then(mux)
}
