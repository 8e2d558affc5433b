package session

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"stockchat/pkg/metrics"
)

// Claims ties a token to one chat session.
type Claims struct {
	SessionID string `json:"session_id"`
	Symbol    string `json:"symbol"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies session tokens. The signing key is
// generated at startup and never persisted: a restart invalidates every
// outstanding token, which matches the in-memory session store.
type TokenService struct {
	privateKey *rsa.PrivateKey
	issuer     string
	expiration time.Duration
}

// NewTokenService generates an ephemeral RSA key pair.
func NewTokenService(issuer string, expiration time.Duration) (*TokenService, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return &TokenService{
		privateKey: key,
		issuer:     issuer,
		expiration: expiration,
	}, nil
}

// IssueToken generates a signed token for a session.
func (t *TokenService) IssueToken(s *Session) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: s.ID,
		Symbol:    s.Symbol,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiration)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(t.privateKey)
	if err != nil {
		metrics.SessionTokenErrors.WithLabelValues("issue").Inc()
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates a token and returns its claims.
func (t *TokenService) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &t.privateKey.PublicKey, nil
	})
	if err != nil {
		metrics.SessionTokenErrors.WithLabelValues("verify").Inc()
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		metrics.SessionTokenErrors.WithLabelValues("verify").Inc()
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

type contextKey string

const claimsKey contextKey = "session_claims"

// Middleware extracts and verifies the bearer token, placing the claims in
// the request context.
func (t *TokenService) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			http.Error(w, "malformed authorization header", http.StatusUnauthorized)
			return
		}
		claims, err := t.VerifyToken(raw)
		if err != nil {
			http.Error(w, "invalid session token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the verified claims put there by Middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}
