// Package auth verifies credentials issued outside this service: session
// tokens minted by the identity provider, its signed webhooks, and the
// internal ops API key.
package auth

import (
	"crypto/rsa"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	svix "github.com/svix/svix-webhooks/go"
	"golang.org/x/crypto/bcrypt"
)

// SessionCookie is the cookie the provider's web SDK stores the session token in.
const SessionCookie = "__session"

var (
	ErrNoKey        = errors.New("auth public key not configured")
	ErrInvalidToken = errors.New("invalid session token")
)

// Claims is the session token payload. Profile fields are only present when
// the provider's token template adds them.
type Claims struct {
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks RS256 session tokens against the provider's public key.
type Verifier struct {
	key    *rsa.PublicKey
	issuer string
	leeway time.Duration
}

// NewVerifier parses a PEM public key. Literal "\n" sequences are accepted so
// the key can live in a single-line env var.
func NewVerifier(pemKey, issuer string) (*Verifier, error) {
	v := &Verifier{issuer: issuer, leeway: 5 * time.Second}
	if strings.TrimSpace(pemKey) == "" {
		return v, nil
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(strings.ReplaceAll(pemKey, `\n`, "\n")))
	if err != nil {
		return nil, err
	}
	v.key = key
	return v, nil
}

// NewVerifierFromKey is used by tests that mint their own key pair.
func NewVerifierFromKey(key *rsa.PublicKey, issuer string) *Verifier {
	return &Verifier{key: key, issuer: issuer, leeway: 5 * time.Second}
}

func (v *Verifier) Verify(token string) (*Claims, error) {
	if v.key == nil {
		return nil, ErrNoKey
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return v.key, nil }, opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// WebhookVerifier checks svix signatures on identity-provider webhooks.
type WebhookVerifier struct{ wh *svix.Webhook }

func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	if secret == "" {
		return &WebhookVerifier{}, nil
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, err
	}
	return &WebhookVerifier{wh: wh}, nil
}

// Verify takes the raw body and the svix-id, svix-timestamp and svix-signature headers.
func (v *WebhookVerifier) Verify(payload []byte, headers http.Header) error {
	if v.wh == nil {
		return errors.New("webhook secret not configured")
	}
	return v.wh.Verify(payload, headers)
}

// APIKey compares presented keys with a bcrypt hash of the configured key.
type APIKey struct{ hash []byte }

func NewAPIKey(hash string) *APIKey { return &APIKey{hash: []byte(hash)} }

func (k *APIKey) Valid(key string) bool {
	if len(k.hash) == 0 || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(k.hash, []byte(key)) == nil
}
