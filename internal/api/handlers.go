package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/core"
)

type APIHandler struct {
	chatService *core.ChatService
	templates   core.TemplateRepository
	logger      *zap.Logger
}

func NewAPIHandler(cs *core.ChatService, templates core.TemplateRepository, logger *zap.Logger) *APIHandler {
	return &APIHandler{chatService: cs, templates: templates, logger: logger}
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type ChatReply struct {
	SessionID string `json:"session_id"`
	core.ChatResponse
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	resp, err := h.chatService.ProcessMessage(r.Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, core.ErrPersistence) {
			// Not saved; the client should resend the same message.
			h.logger.Error("persistence failure", zap.String("session_id", req.SessionID), zap.Error(err))
			http.Error(w, "Temporary storage failure, please retry", http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("failed to process message", zap.String("session_id", req.SessionID), zap.Error(err))
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ChatReply{SessionID: req.SessionID, ChatResponse: *resp})
}

func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.chatService.History(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, core.ErrConversationNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load history", zap.String("session_id", sessionID), zap.Error(err))
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"messages":   messages,
	})
}

func (h *APIHandler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.chatService.Reset(r.Context(), sessionID); err != nil {
		h.logger.Error("failed to delete session", zap.String("session_id", sessionID), zap.Error(err))
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) TemplatesHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"templates": h.templates.List(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
