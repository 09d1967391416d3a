package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"chatcore/internal/domain"
	"chatcore/internal/service"
)

func handleListFriends(socialSvc *service.SocialService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		friends, err := socialSvc.ListFriends(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, usersOrEmpty(friends))
	}
}

func handleListFriendRequests(socialSvc *service.SocialService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		reqs, err := socialSvc.ListFriendRequests(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, usersOrEmpty(reqs))
	}
}

func handleSendFriendRequest(socialSvc *service.SocialService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		toID := chi.URLParam(r, "userID")
		if err := socialSvc.SendFriendRequest(r.Context(), user.ID, toID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleAcceptFriendRequest(socialSvc *service.SocialService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		senderID := chi.URLParam(r, "userID")
		if err := socialSvc.AcceptFriendRequest(r.Context(), user.ID, senderID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleSearchUsers(socialSvc *service.SocialService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := socialSvc.SearchUsers(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, usersOrEmpty(users))
	}
}

// usersOrEmpty keeps empty results as [] rather than null on the wire.
func usersOrEmpty(users []*domain.User) []*domain.User {
	if users == nil {
		return []*domain.User{}
	}
	return users
}
