package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chatcore/internal/domain"
	"chatcore/internal/service"
	"chatcore/internal/ws"
)

type messageSendRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

func handleSendMessage(msgSvc *service.MessageService, hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		var req messageSendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		msg, err := msgSvc.Send(r.Context(), user.ID, req.To, req.Text)
		if err != nil {
			writeError(w, err)
			return
		}
		// Push to live sessions as well; recipients de-duplicate by
		// message id, so this coexists with the client's own socket emit.
		ws.DeliverNewMessage(hub, *msg, user)
		writeJSON(w, http.StatusCreated, msg)
	}
}

func handleGetMessages(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		partnerID := chi.URLParam(r, "partnerID")
		msgs, err := msgSvc.History(r.Context(), user.ID, partnerID)
		if err != nil {
			writeError(w, err)
			return
		}
		if msgs == nil {
			msgs = []*domain.Message{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

func handleEditMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		messageID := chi.URLParam(r, "messageID")
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		msg, err := msgSvc.Edit(r.Context(), user.ID, messageID, req.Text)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

func handleDeleteMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		messageID := chi.URLParam(r, "messageID")
		if err := msgSvc.Delete(r.Context(), user.ID, messageID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleReactToMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		messageID := chi.URLParam(r, "messageID")
		var req struct {
			Emoji string `json:"emoji"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		msg, err := msgSvc.React(r.Context(), user.ID, messageID, req.Emoji)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

func handleListChatPartners(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		partners, err := msgSvc.Partners(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		if partners == nil {
			partners = []*domain.Partner{}
		}
		writeJSON(w, http.StatusOK, partners)
	}
}

func handleUnreadCounts(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		counts, err := msgSvc.UnreadCounts(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

func handleListMessageRequests(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		senders, err := msgSvc.PendingRequests(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, usersOrEmpty(senders))
	}
}

func handleAcceptMessageRequest(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		senderID := chi.URLParam(r, "senderID")
		if err := msgSvc.AcceptRequest(r.Context(), user.ID, senderID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleDeclineMessageRequest(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		senderID := chi.URLParam(r, "senderID")
		if err := msgSvc.DeclineRequest(r.Context(), user.ID, senderID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
