package auth

import (
	"context"

	"github.com/iliyamo/sportstix-client/internal/handoff"
	"github.com/iliyamo/sportstix-client/internal/model"
	"github.com/iliyamo/sportstix-client/internal/transport"
)

// Service wraps the auth endpoints. It installs credential pairs into the
// session store; everything downstream (bearer attachment, refresh) reads
// from there.
type Service struct {
	client  *transport.Client
	session *handoff.SessionStore
}

// NewService builds an auth Service over the shared transport and session
// store.
func NewService(client *transport.Client, session *handoff.SessionStore) *Service {
	return &Service{client: client, session: session}
}

// Login exchanges credentials for a token pair and returns the identity
// derived from the new access token.
func (s *Service) Login(ctx context.Context, email, password string) (model.User, error) {
	pair, err := transport.Post[model.TokenPair](ctx, s.client, "/auth/login", model.LoginRequest{Email: email, Password: password}, nil)
	if err != nil {
		return model.User{}, err
	}
	s.session.SetTokens(pair.AccessToken, pair.RefreshToken)
	return Identity(pair.AccessToken)
}

// Signup registers a new account and signs it in. The gateway returns a
// token pair on success, so signup behaves exactly like login afterwards.
func (s *Service) Signup(ctx context.Context, email, password, name string) (model.User, error) {
	pair, err := transport.Post[model.TokenPair](ctx, s.client, "/auth/signup", model.SignupRequest{Email: email, Password: password, Name: name}, nil)
	if err != nil {
		return model.User{}, err
	}
	s.session.SetTokens(pair.AccessToken, pair.RefreshToken)
	return Identity(pair.AccessToken)
}

// Logout clears the session locally. The gateway keeps no server-side
// session beyond the refresh token, which simply stops being presented.
func (s *Service) Logout() {
	s.session.Clear()
}

// CurrentUser returns the identity derived from the current access token,
// or transport.ErrNoSession when signed out.
func (s *Service) CurrentUser() (model.User, error) {
	tok := s.session.AccessToken()
	if tok == "" {
		return model.User{}, transport.ErrNoSession
	}
	return Identity(tok)
}
