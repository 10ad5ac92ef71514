// Package server exposes the notebook over HTTP.
package server

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog"

	"lumina-rag/internal/db"
	"lumina-rag/internal/models"
	"lumina-rag/internal/server/middleware"
)

// defaultSessionTitle is replaced by the first user message.
const defaultSessionTitle = "New Chat"

// autoTitleLimit caps auto-generated session titles.
const autoTitleLimit = 40

const maxUploadBytes = 32 << 20

// RAGService is the core pipeline consumed by the HTTP surface.
type RAGService interface {
	IngestFile(ctx context.Context, filename, mimeType, sessionID string, data []byte) error
	Query(ctx context.Context, q models.Query) models.AnswerEnvelope
	Define(ctx context.Context, term, contextStr string) string
	ClearStorage(ctx context.Context) error
}

// SessionStore persists sessions and messages.
type SessionStore interface {
	CreateSession(ctx context.Context, title string) (*db.Session, error)
	ListSessions(ctx context.Context) ([]db.Session, error)
	GetSession(ctx context.Context, id string) (*db.Session, error)
	UpdateSession(ctx context.Context, id string, title *string, pinned *bool) error
	DeleteSession(ctx context.Context, id string) error
	ClearAllSessions(ctx context.Context) error
	AddMessage(ctx context.Context, sessionID, role, content string, images []models.ImageResult) error
	SessionMessages(ctx context.Context, sessionID string) ([]db.Message, error)
}

type Handler struct {
	rag    RAGService
	store  SessionStore
	logger *zerolog.Logger
}

func NewHandler(rag RAGService, store SessionStore, logger *zerolog.Logger) *Handler {
	return &Handler{rag: rag, store: store, logger: logger}
}

type ChatRequest struct {
	Message       string `json:"message"`
	IncludeImages bool   `json:"include_images"`
	SessionID     string `json:"session_id,omitempty"`
}

type DefineRequest struct {
	Word    string `json:"word"`
	Context string `json:"context"`
}

type DefineResponse struct {
	Definition string `json:"definition"`
}

type SessionUpdate struct {
	Title  *string `json:"title,omitempty"`
	Pinned *bool   `json:"pinned,omitempty"`
}

type SessionHistory struct {
	Messages []db.Message `json:"messages"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// POST /api/v1/upload (multipart: file, session_id)
func (h *Handler) Upload(req *restful.Request, resp *restful.Response) {
	r := req.Request
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}
	defer file.Close()
	sessionID := r.FormValue("session_id")

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	h.logger.Info().
		Str("filename", header.Filename).
		Str("mime_type", mimeType).
		Str("session_id", sessionID).
		Int("bytes", len(data)).
		Msg("upload received")

	if err := h.rag.IngestFile(r.Context(), header.Filename, mimeType, sessionID, data); err != nil {
		h.logger.Error().Err(err).Str("filename", header.Filename).Msg("upload failed")
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, StatusResponse{Status: "success"})
}

// POST /api/v1/chat
func (h *Handler) Chat(req *restful.Request, resp *restful.Response) {
	var chatReq ChatRequest
	if err := req.ReadEntity(&chatReq); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}
	ctx := req.Request.Context()

	if chatReq.SessionID != "" {
		if err := h.store.AddMessage(ctx, chatReq.SessionID, "user", chatReq.Message, nil); err != nil {
			h.logger.Warn().Err(err).Msg("failed to persist user message")
		}
		h.autoTitle(ctx, chatReq.SessionID, chatReq.Message)
	}

	envelope := h.rag.Query(ctx, models.Query{
		Text:          chatReq.Message,
		SessionID:     chatReq.SessionID,
		IncludeImages: chatReq.IncludeImages,
	})

	if chatReq.SessionID != "" {
		if err := h.store.AddMessage(ctx, chatReq.SessionID, "bot", envelope.Answer, envelope.Images); err != nil {
			h.logger.Warn().Err(err).Msg("failed to persist bot message")
		}
	}

	_ = resp.WriteHeaderAndEntity(http.StatusOK, envelope)
}

// autoTitle renames a fresh session after its first message.
func (h *Handler) autoTitle(ctx context.Context, sessionID, message string) {
	session, err := h.store.GetSession(ctx, sessionID)
	if err != nil || session.Title != defaultSessionTitle {
		return
	}
	title := message
	if runes := []rune(title); len(runes) > autoTitleLimit {
		title = string(runes[:autoTitleLimit]) + "..."
	}
	if err := h.store.UpdateSession(ctx, sessionID, &title, nil); err != nil {
		h.logger.Warn().Err(err).Msg("failed to auto-title session")
	}
}

// POST /api/v1/define
func (h *Handler) Define(req *restful.Request, resp *restful.Response) {
	var defineReq DefineRequest
	if err := req.ReadEntity(&defineReq); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}
	definition := h.rag.Define(req.Request.Context(), defineReq.Word, defineReq.Context)
	_ = resp.WriteHeaderAndEntity(http.StatusOK, DefineResponse{Definition: definition})
}

// POST /api/v1/sessions
func (h *Handler) CreateSession(req *restful.Request, resp *restful.Response) {
	session, err := h.store.CreateSession(req.Request.Context(), defaultSessionTitle)
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, session)
}

// GET /api/v1/sessions
func (h *Handler) ListSessions(req *restful.Request, resp *restful.Response) {
	sessions, err := h.store.ListSessions(req.Request.Context())
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, sessions)
}

// GET /api/v1/sessions/{session_id}
func (h *Handler) SessionHistory(req *restful.Request, resp *restful.Response) {
	sessionID := req.PathParameter("session_id")
	messages, err := h.store.SessionMessages(req.Request.Context(), sessionID)
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, SessionHistory{Messages: messages})
}

// PUT /api/v1/sessions/{session_id}
func (h *Handler) UpdateSession(req *restful.Request, resp *restful.Response) {
	sessionID := req.PathParameter("session_id")
	var update SessionUpdate
	if err := req.ReadEntity(&update); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}
	if err := h.store.UpdateSession(req.Request.Context(), sessionID, update.Title, update.Pinned); err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, StatusResponse{Status: "updated"})
}

// DELETE /api/v1/sessions/{session_id}
func (h *Handler) DeleteSession(req *restful.Request, resp *restful.Response) {
	sessionID := req.PathParameter("session_id")
	if err := h.store.DeleteSession(req.Request.Context(), sessionID); err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, StatusResponse{Status: "deleted"})
}

// DELETE /api/v1/sessions — wipes the chat store and the knowledge base.
func (h *Handler) ClearAll(req *restful.Request, resp *restful.Response) {
	ctx := req.Request.Context()
	if err := h.store.ClearAllSessions(ctx); err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	if err := h.rag.ClearStorage(ctx); err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, StatusResponse{Status: "all_cleared"})
}

// GET /api/v1/health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	_ = resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{Status: "ok", Version: "1.0.0"})
}
