package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
)

type IAuthService interface {
	Register(req auth.RegisterRequest) (domain.User, error)
	Login(email, password string) (TokenPair, error)
	Logout(refreshToken, accessToken string) error
	Authenticate(ctx context.Context, token string) (domain.UserIdentity, error)
}

type TokenPair struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

type AuthService struct {
	userRepository       repositories.IUserRepository
	revocationRepository repositories.IRevocationRepository
	tokens               *auth.TokenManager
	log                  *slog.Logger
}

func NewAuthService(
	userRepository repositories.IUserRepository,
	revocationRepository repositories.IRevocationRepository,
	tokens *auth.TokenManager,
	log *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepository:       userRepository,
		revocationRepository: revocationRepository,
		tokens:               tokens,
		log:                  log,
	}
}

// Register validates the request before any expensive hashing, then persists the account.
func (s *AuthService) Register(req auth.RegisterRequest) (domain.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := auth.ValidateRegister(req); err != nil {
		return domain.User{}, errors.NewValidationError("%s", err.Error())
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.userRepository.CreateUser(req.Username, req.Email, hashedPassword)
	if err != nil {
		return domain.User{}, err
	}
	s.log.Info("User registered", "user", user.ID, "username", user.Username)
	return user, nil
}

// Login never tells an unknown email apart from a wrong password.
func (s *AuthService) Login(email, password string) (TokenPair, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return TokenPair{}, errors.NewValidationError("Both email and password are required.")
	}

	user, err := s.userRepository.GetUserByEmail(strings.TrimSpace(email))
	if err != nil {
		if !stderrors.Is(err, errors.ErrUserNotFound) {
			s.log.Error("Unable to load user for login", "error", err)
		}
		return TokenPair{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return TokenPair{}, errors.ErrInvalidCredentials
	}

	access, err := s.tokens.GenerateAccess(user.ID)
	if err != nil {
		return TokenPair{}, errors.ErrTokenGeneration
	}
	refresh, err := s.tokens.GenerateRefresh(user.ID)
	if err != nil {
		return TokenPair{}, errors.ErrTokenGeneration
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Logout blacklists the refresh token, and the access token when one is given,
// until they expire.
func (s *AuthService) Logout(refreshToken, accessToken string) error {
	if refreshToken == "" {
		return errors.NewValidationError("Refresh token is required.")
	}
	claims, err := s.tokens.Parse(refreshToken)
	if err != nil {
		return errors.NewValidationError("Invalid or expired token.")
	}
	if claims.TokenType != auth.RefreshToken {
		return errors.NewValidationError("Token has wrong type.")
	}
	if err = s.revocationRepository.Revoke(claims.ID, claims.ExpiresAt.Time); err != nil {
		return errors.StoreError{Op: "revoke refresh token", Err: err}
	}

	if accessToken == "" {
		return nil
	}
	if accessClaims, err := s.tokens.Parse(accessToken); err == nil {
		if err = s.revocationRepository.Revoke(accessClaims.ID, accessClaims.ExpiresAt.Time); err != nil {
			return errors.StoreError{Op: "revoke access token", Err: err}
		}
	}
	return nil
}

// Authenticate resolves an access token to its user. It runs for every inbound
// event, so a revoked token or a deleted user stops working mid-session.
// Token rejections are AuthError; storage failures are returned as is.
func (s *AuthService) Authenticate(_ context.Context, token string) (domain.UserIdentity, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return domain.UserIdentity{}, errors.NewAuthError(err)
	}
	if claims.TokenType != auth.AccessToken {
		return domain.UserIdentity{}, errors.NewAuthError(errors.ErrWrongTokenType)
	}

	revoked, err := s.revocationRepository.IsRevoked(claims.ID)
	if err != nil {
		return domain.UserIdentity{}, errors.StoreError{Op: "check token revocation", Err: err}
	}
	if revoked {
		return domain.UserIdentity{}, errors.NewAuthError(errors.ErrTokenRevoked)
	}

	userID, err := claims.SubjectID()
	if err != nil {
		return domain.UserIdentity{}, errors.NewAuthError(err)
	}
	user, err := s.userRepository.GetUserByID(userID)
	if stderrors.Is(err, errors.ErrUserNotFound) {
		return domain.UserIdentity{}, errors.NewAuthError(err)
	}
	if err != nil {
		return domain.UserIdentity{}, errors.StoreError{Op: "load user", Err: err}
	}
	return user.Identity(), nil
}
