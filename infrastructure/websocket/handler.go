package websocket

import (
	"chat-relay/contract"
	"chat-relay/observability"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	gws "github.com/gorilla/websocket"
)

// Handler accepts connections on /ws/chat/{room}/ and runs one Session each.
type Handler struct {
	ctx        context.Context
	upgrader   gws.Upgrader
	hub        contract.IHub
	dispatcher EventDispatcher
	monitor    *observability.Monitor
	cfg        Config
	log        *slog.Logger
}

// NewHandler builds the upgrade handler. Sessions are bound to ctx and close
// when it is canceled. An empty allowedOrigins accepts any origin.
func NewHandler(
	ctx context.Context,
	hub contract.IHub,
	dispatcher EventDispatcher,
	monitor *observability.Monitor,
	cfg Config,
	allowedOrigins []string,
	log *slog.Logger,
) *Handler {
	origins := newOriginPolicy(allowedOrigins, log)
	return &Handler{
		ctx: ctx,
		upgrader: gws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.allowed,
		},
		hub:        hub,
		dispatcher: dispatcher,
		monitor:    monitor,
		cfg:        cfg,
		log:        log,
	}
}

// Register mounts the endpoint with and without the trailing slash.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("GET /ws/chat/{room}/", h)
	mux.Handle("GET /ws/chat/{room}", h)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomKey := strings.TrimSpace(r.PathValue("room"))
	if roomKey == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}

	session := NewSession(roomKey, h.hub, h.dispatcher, h.cfg, h.log)
	h.hub.Join(roomKey, session)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.Leave(roomKey, session)
		h.log.Warn("WebSocket upgrade failed", "room", roomKey, "remote", r.RemoteAddr, "error", err)
		return
	}
	h.log.Info("Session opened", "session", session.id, "room", roomKey, "remote", r.RemoteAddr)

	h.monitor.ConnectionOpened()
	err = session.Serve(h.ctx, conn)
	h.monitor.ConnectionClosed(err != nil)
}

// originPolicy accepts any origin only when none is configured or "*" is
// listed. Invalid entries never widen the policy.
type originPolicy struct {
	allowAll bool
	origins  map[string]struct{}
	log      *slog.Logger
}

func newOriginPolicy(configured []string, log *slog.Logger) originPolicy {
	policy := originPolicy{origins: make(map[string]struct{}), log: log}
	entries := 0
	for _, origin := range configured {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		entries++
		switch {
		case trimmed == "*":
			policy.allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn("Ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		policy.origins[normalized] = struct{}{}
	}
	if entries == 0 {
		policy.allowAll = true
	} else if !policy.allowAll && len(policy.origins) == 0 {
		log.Warn("No valid origin configured, browser connections will be refused")
	}
	return policy
}

// allowed lets through non browser clients, which send no Origin header.
func (p originPolicy) allowed(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if p.allowAll || header == "" {
		return true
	}
	normalized, ok := normalizeOrigin(header)
	if ok {
		if _, exists := p.origins[normalized]; exists {
			return true
		}
	}
	p.log.Warn("Blocked WebSocket connection from disallowed origin", "origin", header)
	return false
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
