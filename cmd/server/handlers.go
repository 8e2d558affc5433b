package main

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"stockchat/pkg/chart"
	"stockchat/pkg/chat"
	"stockchat/pkg/config"
	"stockchat/pkg/logger"
	"stockchat/pkg/models"
	"stockchat/pkg/quotecache"
	"stockchat/pkg/session"
	"stockchat/pkg/validation"
)

// examplePrompts are the canned questions offered under the chat box.
var examplePrompts = []string{
	"What is your role?",
	"Give me an overview of the stock",
	"What is the highest Close rate?",
	"What are the key technical indicators suggesting?",
	"What is the lowest Open rate?",
	"Show me support and resistance levels",
}

// QuoteFetcher fetches the quote window for a symbol.
type QuoteFetcher interface {
	FetchWindow(ctx context.Context, symbol string) (models.QuoteWindow, error)
}

// Completer produces the next assistant message for a history.
type Completer interface {
	Complete(ctx context.Context, history []models.Message) (models.Message, error)
}

// Server wires the handlers to their dependencies.
type Server struct {
	cfg      *config.Config
	quotes   QuoteFetcher
	chat     Completer
	cache    *quotecache.Cache // nil when no Redis is configured
	sessions *session.Store
	tokens   *session.TokenService
	tmpl     *template.Template
}

// Response is the standard API envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.Error("JSON encoding error", zap.Error(err))
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, Response{Success: false, Error: message})
}

// loadWindow returns the quote window for symbol, consulting the cache
// first when one is configured. Cache failures degrade to a direct fetch.
func (s *Server) loadWindow(ctx context.Context, symbol string) (models.QuoteWindow, error) {
	if s.cache != nil {
		if w, err := s.cache.Get(ctx, symbol); err == nil {
			return w, nil
		} else if !errors.Is(err, quotecache.ErrCacheMiss) {
			logger.Log.Warn("quote cache read failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}

	w, err := s.quotes.FetchWindow(ctx, symbol)
	if err != nil {
		return models.QuoteWindow{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, w); err != nil {
			logger.Log.Warn("quote cache write failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return w, nil
}

// indexPage is the template payload for the web page.
type indexPage struct {
	Symbol         string
	Symbols        []string
	Metrics        models.Metrics
	Chart          template.HTML
	ExamplePrompts []string
	FetchError     string
}

// indexHandler renders the page: selector, metrics, chart, chat panel.
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.FetchTimeout)
	defer cancel()

	symbol := validation.SanitizeSymbol(r.URL.Query().Get("symbol"))
	if symbol == "" {
		symbol = s.cfg.DefaultSymbol()
	}

	page := indexPage{
		Symbol:         symbol,
		Symbols:        s.cfg.Symbols,
		ExamplePrompts: examplePrompts,
	}

	window, err := s.loadWindow(ctx, symbol)
	if err != nil {
		// fetch failures render on the page verbatim, nothing is retried
		page.FetchError = err.Error()
	} else {
		page.Metrics = window.Metrics()
		page.Chart = template.HTML(chart.SVG(window))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, page); err != nil {
		logger.Log.Error("template render failed", zap.Error(err))
	}
}

// getQuotesHandler returns the quote window and derived metrics for a symbol.
func (s *Server) getQuotesHandler(w http.ResponseWriter, r *http.Request) {
	symbol := validation.SanitizeSymbol(mux.Vars(r)["symbol"])
	if !validation.ValidTicker(symbol) {
		s.writeError(w, http.StatusBadRequest, "invalid symbol")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.FetchTimeout)
	defer cancel()

	window, err := s.loadWindow(ctx, symbol)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"window":  window,
			"metrics": window.Metrics(),
		},
	})
}

type createSessionRequest struct {
	Symbol string `json:"symbol"`
}

// createSessionHandler opens a chat session for a symbol. The page calls
// this on load and again whenever the user picks a new symbol, which is
// what resets the chat history per symbol.
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	symbol := validation.SanitizeSymbol(req.Symbol)
	if !validation.ValidTicker(symbol) {
		s.writeError(w, http.StatusBadRequest, "invalid symbol")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.FetchTimeout)
	defer cancel()

	// the session owns a snapshot of the data it will chat about
	window, err := s.loadWindow(ctx, symbol)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	sess, err := s.sessions.Create(symbol, window)
	if err != nil {
		logger.Log.Error("session create failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	token, err := s.tokens.IssueToken(sess)
	if err != nil {
		logger.Log.Error("token issue failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	s.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"token":      token,
			"session_id": sess.ID,
			"symbol":     sess.Symbol,
		},
	})
}

// historyHandler returns the ordered message history for the session.
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"symbol":   sess.Symbol,
			"messages": sess.History(),
		},
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

// chatHandler runs one chat turn: append user question, call the
// completion provider with quote context plus accumulated history, commit
// the pair. A failed completion commits nothing.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	question := validation.SanitizeString(req.Message)
	if question == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ChatTimeout)
	defer cancel()

	payload := chat.BuildPayload(sess.History(), sess.Window, question)
	answer, err := s.chat.Complete(ctx, payload)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if err := sess.CommitTurn(models.UserMessage(question), answer); err != nil {
		logger.Log.Error("commit turn failed", zap.String("session", sess.ID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to record chat turn")
		return
	}

	s.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"message": answer,
		},
	})
}

// sessionFromRequest resolves the session behind the verified token.
func (s *Server) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	claims, ok := session.ClaimsFromContext(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "missing session")
		return nil, false
	}
	sess, err := s.sessions.Get(claims.SessionID)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "session expired")
		return nil, false
	}
	return sess, true
}

// healthHandler reports liveness.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		},
	})
}

// readyHandler reports readiness; when a cache is configured Redis must
// answer.
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.cache.Ping(ctx); err != nil {
			s.writeError(w, http.StatusServiceUnavailable, "quote cache not ready")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{"status": "ready"}})
}
