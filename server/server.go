// Package server exposes the drafting loop over HTTP.
//
// Information Hiding: the wire protocol (request shape, NDJSON event
// framing, status codes) is decided here. Callers hand in a provider and
// a store; everything request-scoped stays inside the handler.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/inkwell-ai/inkwell/agent"
	"github.com/inkwell-ai/inkwell/events"
	"github.com/inkwell-ai/inkwell/llm"
	"github.com/inkwell-ai/inkwell/patch"
	"github.com/inkwell-ai/inkwell/storage"
	"github.com/inkwell-ai/inkwell/tools"
)

// Config carries the server-level knobs shared by every chat request.
type Config struct {
	Addr             string
	MaxTurns         int
	WebSearch        bool
	WebSearchMaxUses int
}

// Server wires the HTTP surface to the orchestration loop.
type Server struct {
	provider llm.Provider
	store    storage.Store
	cfg      Config
	log      zerolog.Logger

	httpServer *http.Server
}

// New creates a Server. The provider and store are shared across requests;
// both must be safe for concurrent use.
func New(provider llm.Provider, store storage.Store, cfg Config, log zerolog.Logger) *Server {
	return &Server{
		provider: provider,
		store:    store,
		cfg:      cfg,
		log:      log,
	}
}

// Handler returns the route table. Exposed separately from ListenAndServe
// so tests can drive it with httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /v1/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// ListenAndServe blocks serving HTTP until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
	}
	s.log.Info().Str("addr", s.cfg.Addr).Msg("http server starting")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type selectionPayload struct {
	Text        string `json:"text"`
	StartOffset int    `json:"startOffset"`
	EndOffset   int    `json:"endOffset"`
}

type historyTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	SessionID             string            `json:"sessionId"`
	ProjectID             string            `json:"projectId"`
	ProjectName           string            `json:"projectName,omitempty"`
	AgentName             string            `json:"agentName,omitempty"`
	AgentDescription      string            `json:"agentDescription,omitempty"`
	Message               string            `json:"message"`
	ActiveDocumentID      string            `json:"activeDocumentId,omitempty"`
	ActiveDocumentContent string            `json:"activeDocumentContent,omitempty"`
	Selection             *selectionPayload `json:"selection,omitempty"`
	History               []historyTurn     `json:"history,omitempty"`
}

// handleChat validates the request, then switches to NDJSON streaming and
// runs the drafting loop. Validation failures are plain JSON errors; once
// the stream has started, failures become ERROR events on the stream.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.ProjectID == "" {
		writeError(w, http.StatusBadRequest, "projectId is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	log := s.log.With().
		Str("request_id", uuid.NewString()).
		Str("session_id", req.SessionID).
		Logger()

	active, err := s.resolveActiveDocument(r.Context(), req)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("document %s not found", req.ActiveDocumentID))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	history, err := s.resolveHistory(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sink := newNDJSONSink(w)

	session := agent.NewSession(s.provider, tools.NewDispatcher(s.store, log), agent.Config{
		MaxTurns:         s.cfg.MaxTurns,
		WebSearch:        s.cfg.WebSearch,
		WebSearchMaxUses: s.cfg.WebSearchMaxUses,
		AgentName:        req.AgentName,
		AgentDescription: req.AgentDescription,
		ProjectID:        req.ProjectID,
		ProjectName:      req.ProjectName,
	}, log).WithHistory(history)
	if active != nil {
		session = session.WithActiveDocument(active)
	}

	result, runErr := session.Run(r.Context(), req.Message, sink)
	if runErr != nil {
		log.Error().Err(runErr).Msg("chat run failed")
		_ = sink.Send(events.Error(runErr.Error()))
		_ = sink.Send(events.Done())
		return
	}

	if err := s.persistExchange(r.Context(), req, result.FinalText); err != nil {
		log.Error().Err(err).Msg("persisting conversation failed")
	}

	_ = sink.Send(events.Done())
}

// resolveActiveDocument loads the referenced document and applies the
// client's unsaved content on top when provided.
func (s *Server) resolveActiveDocument(ctx context.Context, req chatRequest) (*tools.ActiveDocument, error) {
	if req.ActiveDocumentID == "" {
		return nil, nil
	}
	doc, err := s.store.GetDocument(ctx, req.ActiveDocumentID)
	if err != nil {
		return nil, err
	}

	content := doc.Content
	if req.ActiveDocumentContent != "" {
		content = req.ActiveDocumentContent
	}

	active := &tools.ActiveDocument{
		ID:      doc.ID,
		Title:   doc.Title,
		DocType: doc.DocType,
		Content: content,
	}
	if sel := req.Selection; sel != nil {
		active.Selection = &patch.Selection{
			Text:            sel.Text,
			StartOffset:     sel.StartOffset,
			EndOffset:       sel.EndOffset,
			ContentSnapshot: content,
		}
	}
	return active, nil
}

// resolveHistory prefers inline history from the request; otherwise the
// stored conversation for the session is loaded.
func (s *Server) resolveHistory(ctx context.Context, req chatRequest) ([]storage.Turn, error) {
	if len(req.History) > 0 {
		turns := make([]storage.Turn, 0, len(req.History))
		for _, h := range req.History {
			turns = append(turns, storage.Turn{Role: h.Role, Content: h.Content})
		}
		return turns, nil
	}
	turns, err := s.store.LoadTurns(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	return turns, nil
}

// persistExchange saves the durable user/assistant pair. Synthetic tool
// turns never reach the store.
func (s *Server) persistExchange(ctx context.Context, req chatRequest, assistantText string) error {
	turns := []storage.Turn{
		{Role: "user", Content: req.Message},
		{Role: "assistant", Content: assistantText},
	}
	return s.store.AppendTurns(ctx, req.SessionID, turns)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("document %s not found", id))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
