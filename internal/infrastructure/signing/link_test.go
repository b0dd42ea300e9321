package signing

import (
	"strings"
	"testing"
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/domain/quote"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestIssuer(t *testing.T) *LinkIssuer {
	t.Helper()
	issuer, err := NewLinkIssuer(config.SignatureConfig{
		Secret:  testSecret,
		LinkTTL: time.Hour,
		BaseURL: "https://devis.example.fr/signature/",
	})
	require.NoError(t, err)
	return issuer
}

func TestLinkIssuer_IssueAndVerify(t *testing.T) {
	issuer := newTestIssuer(t)
	n, _ := quote.NewNumber(2025, 12)

	link, err := issuer.Issue(34, n)
	require.NoError(t, err)
	assert.Equal(t, "https://devis.example.fr/signature/"+link.Token, link.URL)
	assert.WithinDuration(t, time.Now().Add(time.Hour), link.ExpiresAt, 2*time.Second)

	claims, err := issuer.Verify(link.Token)
	require.NoError(t, err)
	id, err := claims.QuoteID()
	require.NoError(t, err)
	assert.Equal(t, int64(34), id)
	assert.Equal(t, "DEV-2025-0012", claims.Number)
	assert.NotEmpty(t, claims.ID)
}

func TestLinkIssuer_Issue_InvalidQuote(t *testing.T) {
	_, err := newTestIssuer(t).Issue(0, quote.Number{})
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestLinkIssuer_Verify(t *testing.T) {
	issuer := newTestIssuer(t)
	link, err := issuer.Issue(5, quote.Number{})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := newTestIssuer(t)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Verify(link.Token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := NewLinkIssuer(config.SignatureConfig{Secret: strings.Repeat("x", 32)})
		require.NoError(t, err)
		_, err = other.Verify(link.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := issuer.Verify(link.Token + "x")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Verify("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("foreign audience", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "5",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("bad subject", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "btp-devis",
			Audience:  jwt.ClaimStrings{"btp-devis"},
			Subject:   "abc",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})
}

func TestNewLinkIssuer_EphemeralSecret(t *testing.T) {
	cfg := config.SignatureConfig{}
	assert.True(t, HasEphemeralSecret(cfg))

	a, err := NewLinkIssuer(cfg)
	require.NoError(t, err)
	b, err := NewLinkIssuer(cfg)
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, a.TTL())

	link, err := a.Issue(1, quote.Number{})
	require.NoError(t, err)
	_, err = b.Verify(link.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
