// Package signing issues and verifies the tokens embedded in client
// signature links.
package signing

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/domain/quote"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// issuer is the iss and aud claim of every link token
const issuer = "btp-devis"

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid signature link")
	ErrExpiredToken     = errors.New("signature link has expired")
	ErrTokenNotYetValid = errors.New("signature link is not yet valid")
	ErrInvalidClaims    = errors.New("invalid signature link claims")
)

// Claims are the claims of a signature link. The subject is the quote id.
type Claims struct {
	jwt.RegisteredClaims
	Number string `json:"number,omitempty"`
}

// QuoteID returns the quote the link was issued for
func (c *Claims) QuoteID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidClaims
	}
	return id, nil
}

// Link is an issued signature link
type Link struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LinkIssuer signs HS256 tokens for client signature links
type LinkIssuer struct {
	secret  []byte
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

// NewLinkIssuer creates an issuer. Without a configured secret a random one
// is generated, so links do not survive a restart; production requires one.
func NewLinkIssuer(cfg config.SignatureConfig) (*LinkIssuer, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate signature secret: %w", err)
		}
	}
	ttl := cfg.LinkTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &LinkIssuer{
		secret:  secret,
		ttl:     ttl,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		now:     time.Now,
	}, nil
}

// HasEphemeralSecret reports whether no secret was configured
func HasEphemeralSecret(cfg config.SignatureConfig) bool {
	return cfg.Secret == ""
}

// Issue creates a signature link for the quote
func (s *LinkIssuer) Issue(quoteID int64, number quote.Number) (*Link, error) {
	if quoteID <= 0 {
		return nil, ErrInvalidClaims
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    issuer,
			Subject:   strconv.FormatInt(quoteID, 10),
			Audience:  jwt.ClaimStrings{issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if !number.IsZero() {
		claims.Number = number.String()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign signature link: %w", err)
	}
	return &Link{
		Token:     token,
		URL:       s.baseURL + "/" + token,
		ExpiresAt: expiresAt.Truncate(time.Second),
	}, nil
}

// Verify validates a link token and returns its claims
func (s *LinkIssuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if _, err := claims.QuoteID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// TTL returns the link lifetime
func (s *LinkIssuer) TTL() time.Duration {
	return s.ttl
}
