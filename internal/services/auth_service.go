package services

import (
	"errors"

	"buttergolf/internal/auth"
	"buttergolf/internal/domain"
	"buttergolf/internal/repos"
)

var ErrBadToken = &Error{Kind: ErrUnauthorized, Msg: "invalid or expired session"}

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type AuthService struct {
	Users    *repos.UserRepo
	Verifier TokenVerifier
}

func NewAuthService(users *repos.UserRepo, v TokenVerifier) *AuthService {
	return &AuthService{Users: users, Verifier: v}
}

// Resolve maps a bearer token, or failing that a session cookie, to a local
// user. No credentials at all yields (nil, nil). A bad bearer token is not
// retried against the cookie.
func (s *AuthService) Resolve(bearer, cookie string) (*domain.User, error) {
	token := bearer
	if token == "" {
		token = cookie
	}
	if token == "" {
		return nil, nil
	}
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return nil, ErrBadToken
	}

	u, err := s.Users.ByClerkID(claims.Subject)
	if errors.Is(err, repos.ErrNotFound) {
		// first request beat the user.created webhook
		return s.Users.UpsertFromProvider(repos.ProviderProfile{
			ClerkID:  claims.Subject,
			Email:    claims.Email,
			Name:     claims.Name,
			ImageURL: claims.ImageURL,
		})
	}
	return u, err
}
