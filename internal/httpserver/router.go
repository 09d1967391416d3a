package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"chatcore/internal/config"
	"chatcore/internal/domain"
	"chatcore/internal/security"
	"chatcore/internal/service"
	"chatcore/internal/store/sqlite"
	"chatcore/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services,
// and middleware.
func NewRouter(cfg *config.Config, db *sql.DB, hub *ws.Hub, tokenSvc *security.TokenService, passwordHasher *security.PasswordHasher, encryptor *security.Encryptor) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	userRepo := sqlite.NewUserRepo(db)
	friendRepo := sqlite.NewFriendRepo(db)
	msgRepo := sqlite.NewMessageRepo(db, encryptor)
	reqRepo := sqlite.NewRequestRepo(db)

	// Services
	authSvc := service.NewAuthService(userRepo, tokenSvc, passwordHasher)
	socialSvc := service.NewSocialService(userRepo, friendRepo)
	msgSvc := service.NewMessageService(userRepo, friendRepo, msgRepo, reqRepo)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc))
			r.Post("/login", handleLogin(authSvc))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, userRepo))

			r.Route("/users", func(r chi.Router) {
				r.Get("/search", handleSearchUsers(socialSvc))
			})

			r.Route("/friends", func(r chi.Router) {
				r.Get("/", handleListFriends(socialSvc))
				r.Get("/requests", handleListFriendRequests(socialSvc))
				r.Post("/requests/{userID}", handleSendFriendRequest(socialSvc))
				r.Post("/requests/{userID}/accept", handleAcceptFriendRequest(socialSvc))
			})

			r.Route("/chats", func(r chi.Router) {
				r.Get("/partners", handleListChatPartners(msgSvc))
				r.Get("/requests", handleListMessageRequests(msgSvc))
				r.Post("/requests/{senderID}/accept", handleAcceptMessageRequest(msgSvc))
				r.Post("/requests/{senderID}/decline", handleDeclineMessageRequest(msgSvc))
			})

			r.Route("/messages", func(r chi.Router) {
				r.Post("/", handleSendMessage(msgSvc, hub))
				r.Get("/unread", handleUnreadCounts(msgSvc))
				r.Get("/{partnerID}", handleGetMessages(msgSvc))
				r.Put("/{messageID}", handleEditMessage(msgSvc))
				r.Delete("/{messageID}", handleDeleteMessage(msgSvc))
				r.Post("/{messageID}/reactions", handleReactToMessage(msgSvc))
			})
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(hub, tokenSvc, userRepo, msgSvc, cfg.CORSOrigins))

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain sentinel errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
