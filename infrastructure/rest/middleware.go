package rest

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"
)

// authenticated resolves the bearer token with the same validator the
// socket path uses and hands the identity to next.
func authenticated(validator contract.TokenValidator, log *slog.Logger, next func(http.ResponseWriter, *http.Request, domain.UserIdentity)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, found := auth.BearerToken(r.Header.Get("Authorization"))
		if !found {
			fail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		identity, err := validator.Authenticate(r.Context(), token)
		if err != nil {
			var authErr errors.AuthError
			if stderrors.As(err, &authErr) {
				fail(w, http.StatusUnauthorized, authErr.Message)
				return
			}
			log.Error("Unable to authenticate request", "path", r.URL.Path, "error", err)
			fail(w, http.StatusInternalServerError, "Server error.")
			return
		}
		next(w, r, identity)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// logging wraps the REST routes only; upgraded connections log themselves.
func logging(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration", time.Since(start),
		)
	})
}
