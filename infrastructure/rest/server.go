// Package rest exposes registration, login and history over plain HTTP.
package rest

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/services"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/samber/lo"
)

type Server struct {
	authService services.IAuthService
	chatService services.IChatService
	hub         contract.IHub
	monitor     *observability.Monitor
	log         *slog.Logger
}

func NewServer(
	authService services.IAuthService,
	chatService services.IChatService,
	hub contract.IHub,
	monitor *observability.Monitor,
	log *slog.Logger,
) *Server {
	return &Server{authService: authService, chatService: chatService, hub: hub, monitor: monitor, log: log}
}

// Register mounts every REST route on mux.
func (s *Server) Register(mux *http.ServeMux) {
	routes := http.NewServeMux()
	routes.HandleFunc("POST /api/register/", s.register)
	routes.HandleFunc("POST /api/login/", s.login)
	routes.HandleFunc("POST /api/logout/", s.protect(s.logout))
	routes.HandleFunc("GET /api/users/", s.protect(s.listUsers))
	routes.HandleFunc("GET /api/rooms/", s.protect(s.listRooms))
	routes.HandleFunc("POST /api/rooms/", s.protect(s.createRoom))
	routes.HandleFunc("GET /api/my-rooms/", s.protect(s.myRooms))
	routes.HandleFunc("GET /api/messages/{room_id}/", s.protect(s.listMessages))
	routes.HandleFunc("POST /api/messages/{room_id}/", s.protect(s.postMessage))
	routes.HandleFunc("GET /api/messages/{room_id}/search/", s.protect(s.searchMessages))
	routes.HandleFunc("GET /api/stats/", s.stats)
	mux.Handle("/api/", logging(s.log, routes))
}

func (s *Server) protect(next func(http.ResponseWriter, *http.Request, domain.UserIdentity)) http.HandlerFunc {
	return authenticated(s.authService, s.log, next)
}

type userView struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
}

func toUserView(user domain.User) userView {
	return userView{ID: user.ID, Username: user.Username}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	user, err := s.authService.Register(req)
	var validation errors.ValidationError
	switch {
	case err == nil:
		ok(w, http.StatusCreated, "User registered successfully!", toUserView(user))
	case stderrors.As(err, &validation):
		fail(w, http.StatusBadRequest, validation.Message)
	case stderrors.Is(err, errors.ErrUsernameTaken), stderrors.Is(err, errors.ErrEmailInUse):
		fail(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("Registration failed", "error", err)
		fail(w, http.StatusInternalServerError, "Unexpected error: "+err.Error())
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Both email and password are required.")
		return
	}
	tokens, err := s.authService.Login(req.Email, req.Password)
	var validation errors.ValidationError
	switch {
	case err == nil:
		ok(w, http.StatusOK, "User logged in successfully!", tokens)
	case stderrors.As(err, &validation):
		fail(w, http.StatusBadRequest, validation.Message)
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		fail(w, http.StatusUnauthorized, err.Error())
	default:
		s.log.Error("Login failed", "error", err)
		fail(w, http.StatusInternalServerError, "Server error.")
	}
}

type logoutRequest struct {
	Refresh string `json:"refresh"`
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request, _ domain.UserIdentity) {
	var req logoutRequest
	if err := decode(w, r, &req); err != nil || req.Refresh == "" {
		fail(w, http.StatusBadRequest, "Refresh token is required.")
		return
	}
	access, _ := auth.BearerToken(r.Header.Get("Authorization"))
	if err := s.authService.Logout(req.Refresh, access); err != nil {
		fail(w, http.StatusBadRequest, "Logout failed: "+err.Error())
		return
	}
	ok(w, http.StatusResetContent, "Logged out successfully!", nil)
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request, _ domain.UserIdentity) {
	users, err := s.chatService.ListUsers()
	if err != nil {
		s.internalError(w, "list users", err)
		return
	}
	ok(w, http.StatusOK, "User list fetched successfully.", lo.Map(users, func(u domain.User, _ int) userView {
		return toUserView(u)
	}))
}

func (s *Server) listRooms(w http.ResponseWriter, _ *http.Request, _ domain.UserIdentity) {
	rooms, err := s.chatService.ListRooms()
	if err != nil {
		s.internalError(w, "list rooms", err)
		return
	}
	ok(w, http.StatusOK, "All chat rooms fetched successfully.", emptyIfNil(rooms))
}

type createRoomRequest struct {
	Name    string          `json:"name"`
	Members []domain.UserID `json:"members"`
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request, identity domain.UserIdentity) {
	var req createRoomRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	room, err := s.chatService.CreateRoom(req.Name, req.Members, identity.ID)
	var validation errors.ValidationError
	switch {
	case err == nil:
		ok(w, http.StatusCreated, "Chat room created successfully.", room)
	case stderrors.As(err, &validation):
		fail(w, http.StatusBadRequest, validation.Message)
	case stderrors.Is(err, errors.ErrRoomNameTaken):
		fail(w, http.StatusBadRequest, err.Error())
	case stderrors.Is(err, errors.ErrUserNotFound):
		fail(w, http.StatusBadRequest, "Invalid member.")
	default:
		s.internalError(w, "create room", err)
	}
}

func (s *Server) myRooms(w http.ResponseWriter, _ *http.Request, identity domain.UserIdentity) {
	rooms, err := s.chatService.ListRoomsFor(identity.ID)
	if err != nil {
		s.internalError(w, "list user rooms", err)
		return
	}
	ok(w, http.StatusOK, "Your chat rooms fetched successfully.", emptyIfNil(rooms))
}

type messagesPage struct {
	Messages []domain.Message `json:"messages"`
	Cursor   *string          `json:"cursor,omitempty"`
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request, _ domain.UserIdentity) {
	room, found := s.roomID(w, r)
	if !found {
		return
	}
	var cursor *string
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		cursor = &raw
	}
	messages, next, err := s.chatService.GetMessages(room, cursor)
	switch {
	case err == nil:
		ok(w, http.StatusOK, "Messages fetched successfully.", messagesPage{Messages: emptyIfNil(messages), Cursor: next})
	case stderrors.Is(err, errors.ErrRoomNotFound):
		fail(w, http.StatusNotFound, "Chat room not found.")
	default:
		s.internalError(w, "list messages", err)
	}
}

type postMessageRequest struct {
	Receiver domain.UserID `json:"receiver"`
	Content  string        `json:"content"`
}

// postMessage persists without broadcasting; live delivery goes through the socket.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request, identity domain.UserIdentity) {
	room, found := s.roomID(w, r)
	if !found {
		return
	}
	var req postMessageRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	message, err := s.chatService.PostMessage(r.Context(), room, identity, req.Receiver, req.Content)
	var validation errors.ValidationError
	switch {
	case err == nil:
		ok(w, http.StatusCreated, "Message sent successfully.", message)
	case stderrors.As(err, &validation):
		fail(w, http.StatusBadRequest, validation.Message)
	case stderrors.Is(err, errors.ErrRoomNotFound):
		fail(w, http.StatusNotFound, "Chat room not found.")
	case stderrors.Is(err, errors.ErrUserNotFound):
		fail(w, http.StatusBadRequest, "Invalid receiver.")
	default:
		s.internalError(w, "post message", err)
	}
}

func (s *Server) searchMessages(w http.ResponseWriter, r *http.Request, _ domain.UserIdentity) {
	room, found := s.roomID(w, r)
	if !found {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := s.chatService.SearchMessages(r.Context(), room, r.URL.Query().Get("q"), limit)
	var validation errors.ValidationError
	switch {
	case err == nil:
		ok(w, http.StatusOK, "Messages fetched successfully.", emptyIfNil(hits))
	case stderrors.As(err, &validation):
		fail(w, http.StatusBadRequest, validation.Message)
	case stderrors.Is(err, errors.ErrRoomNotFound):
		fail(w, http.StatusNotFound, "Chat room not found.")
	default:
		s.internalError(w, "search messages", err)
	}
}

type statsView struct {
	Hub         contract.HubStats             `json:"hub"`
	Process     observability.ProcessStats    `json:"process"`
	Connections observability.ConnectionStats `json:"connections"`
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.monitor.Latest()
	ok(w, http.StatusOK, "Stats fetched successfully.", statsView{
		Hub:         s.hub.Stats(),
		Process:     snapshot.Process,
		Connections: snapshot.Connections,
	})
}

func (s *Server) roomID(w http.ResponseWriter, r *http.Request) (domain.RoomID, bool) {
	room, err := domain.ParseRoomID(r.PathValue("room_id"))
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid room id.")
		return 0, false
	}
	return room, true
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error("Request failed", "op", op, "error", err)
	fail(w, http.StatusInternalServerError, "Server error.")
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
